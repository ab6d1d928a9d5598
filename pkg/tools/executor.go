package tools

import (
	"context"
	"fmt"

	"chatguide/pkg/logx"
	"chatguide/pkg/state"
)

// Call is one tool invocation request: a tool name plus options whose string
// values may contain {{var}} placeholders.
type Call struct {
	Tool    string
	Options map[string]any
}

// Executor runs tool calls sequentially against a registry, resolving
// templated options from state first and merging map results back into it.
// A failing or unknown tool is logged and skipped; tools never abort a turn.
type Executor struct {
	registry *Registry
	logger   *logx.Logger
}

// NewExecutor creates an executor over the registry and seals it.
func NewExecutor(registry *Registry) *Executor {
	registry.Seal()
	return &Executor{
		registry: registry,
		logger:   logx.NewLogger("tools"),
	}
}

// Run executes calls in order. Each result map is written into st attributed
// to sourceTask, so later tools and the adjustment pass see earlier writes.
func (e *Executor) Run(ctx context.Context, st *state.Store, sourceTask string, calls []Call) {
	for _, call := range calls {
		if err := e.runOne(ctx, st, sourceTask, call); err != nil {
			e.logger.Warn("tool %q failed: %v", call.Tool, err)
		}
	}
}

func (e *Executor) runOne(ctx context.Context, st *state.Store, sourceTask string, call Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tool := e.registry.Get(call.Tool)
	if tool == nil {
		return fmt.Errorf("unknown tool")
	}

	options, _ := st.Resolve(call.Options).(map[string]any)
	if options == nil {
		options = map[string]any{}
	}

	result, err := tool.Exec(ctx, options)
	if err != nil {
		return err
	}
	if len(result) > 0 {
		st.Update(result, sourceTask)
	}
	e.logger.Debug("tool %q wrote %d keys", call.Tool, len(result))
	return nil
}
