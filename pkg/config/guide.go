// Package config loads and validates guide documents: the declarative YAML
// description of a conversation flow. All validation is fatal at load time;
// a conversation never starts on a malformed guide.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"chatguide/pkg/adjust"
	"chatguide/pkg/flow"
	"chatguide/pkg/state"
	"chatguide/pkg/tone"
)

// ExpectDoc is one expects entry. In YAML it is either a bare key string or
// a map carrying validation.
type ExpectDoc struct {
	Key     string   `yaml:"key"`
	Type    string   `yaml:"type"`
	Choices []string `yaml:"choices"`
	Min     *float64 `yaml:"min"`
	Max     *float64 `yaml:"max"`
	Pattern string   `yaml:"pattern"`
}

// UnmarshalYAML accepts both the shorthand string form and the full map form.
func (e *ExpectDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&e.Key)
	}
	type plain ExpectDoc
	return node.Decode((*plain)(e))
}

// ToolDoc is one tool call declaration on a task.
type ToolDoc struct {
	Tool    string         `yaml:"tool"`
	Options map[string]any `yaml:"options"`
}

// TaskDoc is one task definition.
type TaskDoc struct {
	Description string      `yaml:"description"`
	Expects     []ExpectDoc `yaml:"expects"`
	Tools       []ToolDoc   `yaml:"tools"`
	Silent      bool        `yaml:"silent"`
	MaxAttempts int         `yaml:"max_attempts"`
}

// AdjustmentDoc is one reactive rule in document form. When and Actions stay
// untyped here; they compile through the adjust package parsers.
type AdjustmentDoc struct {
	Name    string `yaml:"name"`
	When    any    `yaml:"when"`
	Actions []any  `yaml:"actions"`
}

// Defaults carries tunables with engine-wide fallbacks. HistoryTokens, when
// set, bounds prompt history by token count instead of message count.
type Defaults struct {
	MaxAttempts    int `yaml:"max_attempts"`
	HistoryWindow  int `yaml:"history_window"`
	HistoryTokens  int `yaml:"history_tokens"`
	MaxSilentChain int `yaml:"max_silent_chain"`
}

// LLMDoc selects the model provider for the host layer.
type LLMDoc struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	Host      string `yaml:"host"`
}

// Document is the raw guide file shape.
type Document struct {
	Persona     string             `yaml:"persona"`
	Guardrails  []string           `yaml:"guardrails"`
	State       map[string]any     `yaml:"state"`
	Plan        [][]string         `yaml:"plan"`
	Tasks       map[string]TaskDoc `yaml:"tasks"`
	Tones       map[string]string  `yaml:"tones"`
	Tone        []string           `yaml:"tone"`
	Adjustments []AdjustmentDoc    `yaml:"adjustments"`
	Defaults    Defaults           `yaml:"defaults"`
	LLM         LLMDoc             `yaml:"llm"`
}

type compiledRule struct {
	name      string
	condition adjust.Condition
	actions   []adjust.Action
}

// Guide is a validated, compiled guide document. It is an immutable factory:
// every conversation gets fresh State/Plan/Adjustment instances from it so
// sessions never share mutable state.
type Guide struct {
	doc   Document
	rules []compiledRule
}

// Load reads and parses a guide file.
func Load(path string) (*Guide, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read guide %s: %w", path, err)
	}
	g, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("guide %s: %w", path, err)
	}
	return g, nil
}

// Parse validates and compiles a guide document.
func Parse(data []byte) (*Guide, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse guide document: %w", err)
	}

	g := &Guide{doc: doc}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Guide) validate() error {
	if len(g.doc.Plan) == 0 {
		return fmt.Errorf("plan cannot be empty")
	}

	// Every plan entry must name a defined task, and every task definition
	// must compile.
	for bi, block := range g.doc.Plan {
		if len(block) == 0 {
			return fmt.Errorf("plan block %d is empty", bi)
		}
		seen := make(map[string]bool, len(block))
		for _, id := range block {
			if _, ok := g.doc.Tasks[id]; !ok {
				return fmt.Errorf("plan block %d references undefined task %q", bi, id)
			}
			if seen[id] {
				return fmt.Errorf("plan block %d lists task %q twice", bi, id)
			}
			seen[id] = true
		}
	}
	for id, task := range g.doc.Tasks {
		if task.MaxAttempts < 0 {
			return fmt.Errorf("task %q: max_attempts cannot be negative", id)
		}
		for i := range task.Expects {
			exp := expectationFromDoc(task.Expects[i])
			if err := exp.Compile(); err != nil {
				return fmt.Errorf("task %q: %w", id, err)
			}
		}
		for i, tc := range task.Tools {
			if tc.Tool == "" {
				return fmt.Errorf("task %q: tools[%d] missing tool name", id, i)
			}
		}
	}

	for _, id := range g.doc.Tone {
		if _, ok := g.doc.Tones[id]; !ok && len(g.doc.Tones) > 0 {
			return fmt.Errorf("active tone %q is not defined", id)
		}
	}

	seen := make(map[string]bool, len(g.doc.Adjustments))
	g.rules = make([]compiledRule, 0, len(g.doc.Adjustments))
	for i, a := range g.doc.Adjustments {
		if a.Name == "" {
			return fmt.Errorf("adjustments[%d]: missing name", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate adjustment name %q", a.Name)
		}
		seen[a.Name] = true

		cond, err := adjust.ParseCondition(a.When)
		if err != nil {
			return fmt.Errorf("adjustment %q: when: %w", a.Name, err)
		}
		actions, err := adjust.ParseActions(a.Actions)
		if err != nil {
			return fmt.Errorf("adjustment %q: %w", a.Name, err)
		}
		g.rules = append(g.rules, compiledRule{name: a.Name, condition: cond, actions: actions})
	}

	return nil
}

// Doc returns the raw document.
func (g *Guide) Doc() Document { return g.doc }

// Persona returns the prompt persona text.
func (g *Guide) Persona() string { return g.doc.Persona }

// Guardrails returns the guardrail lines.
func (g *Guide) Guardrails() []string { return g.doc.Guardrails }

// Defaults returns the tunables section.
func (g *Guide) Defaults() Defaults { return g.doc.Defaults }

// LLM returns the provider selection section.
func (g *Guide) LLM() LLMDoc { return g.doc.LLM }

// NewState creates a fresh store seeded with the document's initial values.
func (g *Guide) NewState() *state.Store {
	return state.NewStore(g.doc.State)
}

// NewTask materializes a fresh task instance, or nil for unknown ids.
func (g *Guide) NewTask(id string) *flow.Task {
	doc, ok := g.doc.Tasks[id]
	if !ok {
		return nil
	}

	t := flow.NewTask(id, doc.Description)
	t.Silent = doc.Silent
	if doc.MaxAttempts > 0 {
		t.MaxAttempts = doc.MaxAttempts
	} else if g.doc.Defaults.MaxAttempts > 0 {
		t.MaxAttempts = g.doc.Defaults.MaxAttempts
	}
	for i := range doc.Expects {
		exp := expectationFromDoc(doc.Expects[i])
		// Validated at load time; Compile cannot fail here.
		_ = exp.Compile()
		t.Expects = append(t.Expects, exp)
	}
	for _, tc := range doc.Tools {
		t.Tools = append(t.Tools, flow.ToolCall{Tool: tc.Tool, Options: tc.Options})
	}
	return t
}

// NewPlan materializes a fresh plan with fresh task instances.
func (g *Guide) NewPlan() *flow.Plan {
	blocks := make([]*flow.Block, 0, len(g.doc.Plan))
	for _, ids := range g.doc.Plan {
		tasks := make([]*flow.Task, 0, len(ids))
		for _, id := range ids {
			tasks = append(tasks, g.NewTask(id))
		}
		blocks = append(blocks, flow.NewBlock(tasks...))
	}
	return flow.NewPlan(blocks...)
}

// NewPalette materializes the tone palette with the document's definitions
// and initial active list.
func (g *Guide) NewPalette() *tone.Palette {
	return tone.NewPalette(g.doc.Tones, g.doc.Tone)
}

// NewAdjustments materializes fresh rule instances with cleared fired flags.
func (g *Guide) NewAdjustments() []*adjust.Adjustment {
	out := make([]*adjust.Adjustment, 0, len(g.rules))
	for _, r := range g.rules {
		out = append(out, &adjust.Adjustment{
			Name:      r.name,
			Condition: r.condition,
			Actions:   r.actions,
		})
	}
	return out
}

func expectationFromDoc(doc ExpectDoc) flow.Expectation {
	return flow.Expectation{
		Key:     doc.Key,
		Kind:    flow.ExpectKind(doc.Type),
		Choices: doc.Choices,
		Min:     doc.Min,
		Max:     doc.Max,
		Pattern: doc.Pattern,
	}
}
