// Package tools provides the side-effect boundary of a conversation: named,
// deterministic actions a task can trigger, with templated options resolved
// against state and results merged back into it.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Tool is one invocable action. Exec receives fully resolved options and
// returns key/value facts to merge into conversation state.
type Tool interface {
	Name() string
	Description() string
	Exec(ctx context.Context, options map[string]any) (map[string]any, error)
}

// Registry holds the tools available to one guide. It seals on first use by
// an Executor so the tool set cannot drift mid-conversation.
type Registry struct {
	mu     sync.Mutex
	sealed bool
	tools  map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering after the registry is sealed or
// re-registering a name is a configuration error.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("tool registry sealed - cannot register tool %q", t.Name())
	}
	if t.Name() == "" {
		return fmt.Errorf("tool with empty name")
	}
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("duplicate tool %q", t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Seal prevents further registrations.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Get returns the named tool, or nil when unknown.
func (r *Registry) Get(name string) Tool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tools[name]
}

// Names returns registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns the registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// FuncTool adapts a plain function into a Tool.
type FuncTool struct {
	ToolName string
	Desc     string
	Fn       func(ctx context.Context, options map[string]any) (map[string]any, error)
}

// Name implements Tool.
func (f *FuncTool) Name() string { return f.ToolName }

// Description implements Tool.
func (f *FuncTool) Description() string { return f.Desc }

// Exec implements Tool.
func (f *FuncTool) Exec(ctx context.Context, options map[string]any) (map[string]any, error) {
	return f.Fn(ctx, options)
}
