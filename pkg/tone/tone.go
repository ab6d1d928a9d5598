// Package tone tracks the advisory style identifiers injected into prompts.
// Tones shape how the model speaks; they are never read by control flow.
package tone

import "strings"

// Palette holds the known tone definitions and the currently active set.
type Palette struct {
	definitions map[string]string
	active      []string
}

// NewPalette creates a palette. definitions maps tone id to instruction
// text; active is the initially active ordered set.
func NewPalette(definitions map[string]string, active []string) *Palette {
	defs := make(map[string]string, len(definitions))
	for k, v := range definitions {
		defs[k] = v
	}
	p := &Palette{definitions: defs}
	p.Set(active)
	return p
}

// Define registers or replaces the instruction text for a tone id.
func (p *Palette) Define(id, instruction string) {
	p.definitions[id] = instruction
}

// Active returns the active tone ids in order.
func (p *Palette) Active() []string {
	out := make([]string, len(p.active))
	copy(out, p.active)
	return out
}

// IsActive reports whether the tone id is currently active.
func (p *Palette) IsActive(id string) bool {
	for _, t := range p.active {
		if t == id {
			return true
		}
	}
	return false
}

// Set replaces the active tone list entirely.
func (p *Palette) Set(tones []string) {
	p.active = make([]string, 0, len(tones))
	p.active = append(p.active, tones...)
}

// Add appends a tone if not already active.
func (p *Palette) Add(id string) {
	if id == "" || p.IsActive(id) {
		return
	}
	p.active = append(p.active, id)
}

// Instruction renders the prompt text for the active tones. Tones without a
// definition fall back to their id so misconfiguration degrades gracefully.
func (p *Palette) Instruction() string {
	parts := make([]string, 0, len(p.active))
	for _, id := range p.active {
		if text, ok := p.definitions[id]; ok && text != "" {
			parts = append(parts, text)
		} else {
			parts = append(parts, id)
		}
	}
	return strings.Join(parts, " ")
}
