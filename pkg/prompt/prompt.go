// Package prompt deterministically assembles the model input for one
// reasoning pass: guide framing, tone, guardrails, the current and upcoming
// tasks, and a bounded slice of the transcript, all rendered through an
// embedded template.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"chatguide/pkg/contextmgr"
)

//go:embed *.tpl.md
var templateFS embed.FS

const turnTemplate = "turn.tpl.md"

// TaskView is a task as the model sees it: description already resolved
// against state, expectations flattened to display strings.
type TaskView struct {
	ID          string
	Description string
	Expects     []string
	Attempts    int
	MaxAttempts int
}

// ToolView describes an invocable tool for the prompt.
type ToolView struct {
	Name        string
	Description string
}

// Data is everything one render needs. All fields are plain values so the
// same Data always renders to the same prompt.
type Data struct {
	Persona         string
	Guardrails      []string
	ToneInstruction string
	CurrentTasks    []TaskView
	UpcomingTasks   []TaskView
	Tools           []ToolView
	History         []contextmgr.Message
	Finished        bool
}

// Builder renders turn prompts from the embedded template.
type Builder struct {
	tmpl *template.Template
}

// NewBuilder parses the embedded templates.
func NewBuilder() (*Builder, error) {
	content, err := templateFS.ReadFile(turnTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", turnTemplate, err)
	}

	tmpl, err := template.New(turnTemplate).Funcs(template.FuncMap{
		"join": strings.Join,
	}).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", turnTemplate, err)
	}

	return &Builder{tmpl: tmpl}, nil
}

// Build renders the prompt for one reasoning pass.
func (b *Builder) Build(data Data) (string, error) {
	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render turn prompt: %w", err)
	}
	return buf.String(), nil
}
