// Package flow models the unit of LLM-driven work (Task), the grouping of
// tasks addressed in one turn (Block), the ordered progression of blocks
// (Plan), and the execution ledger that tracks where a conversation stands.
package flow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// DefaultMaxAttempts bounds how many turns a task may stay current without
// producing its expected values before it is failed.
const DefaultMaxAttempts = 3

// ExpectKind describes how an expected value is validated.
type ExpectKind string

const (
	// ExpectAny accepts any non-blank value.
	ExpectAny ExpectKind = ""
	// ExpectString accepts any non-blank string.
	ExpectString ExpectKind = "string"
	// ExpectEnum accepts only one of Choices.
	ExpectEnum ExpectKind = "enum"
	// ExpectNumber accepts numeric values, optionally bounded by Min/Max.
	ExpectNumber ExpectKind = "number"
	// ExpectPattern accepts strings matching Pattern.
	ExpectPattern ExpectKind = "pattern"
)

// Expectation is one expected output key of a task, with optional validation.
type Expectation struct {
	Key     string     `json:"key"`
	Kind    ExpectKind `json:"type,omitempty"`
	Choices []string   `json:"choices,omitempty"`
	Min     *float64   `json:"min,omitempty"`
	Max     *float64   `json:"max,omitempty"`
	Pattern string     `json:"pattern,omitempty"`

	re *regexp.Regexp
}

// Compile prepares the expectation for use, validating its declaration.
func (e *Expectation) Compile() error {
	if e.Key == "" {
		return fmt.Errorf("expectation key cannot be empty")
	}
	switch e.Kind {
	case ExpectAny, ExpectString, ExpectNumber:
	case ExpectEnum:
		if len(e.Choices) == 0 {
			return fmt.Errorf("expectation %q: enum requires choices", e.Key)
		}
	case ExpectPattern:
		if e.Pattern == "" {
			return fmt.Errorf("expectation %q: pattern type requires a pattern", e.Key)
		}
		re, err := regexp.Compile(e.Pattern)
		if err != nil {
			return fmt.Errorf("expectation %q: invalid pattern: %w", e.Key, err)
		}
		e.re = re
	default:
		return fmt.Errorf("expectation %q: unknown type %q", e.Key, e.Kind)
	}
	return nil
}

// Accepts reports whether value satisfies the expectation. Blank values are
// always rejected; the model signals "no data yet" with an empty result.
func (e *Expectation) Accepts(value any) bool {
	text := strings.TrimSpace(fmt.Sprintf("%v", value))
	if text == "" {
		return false
	}

	switch e.Kind {
	case ExpectAny, ExpectString:
		return true
	case ExpectEnum:
		for _, c := range e.Choices {
			if strings.EqualFold(text, c) {
				return true
			}
		}
		return false
	case ExpectNumber:
		n, ok := asNumber(value)
		if !ok {
			return false
		}
		if e.Min != nil && n < *e.Min {
			return false
		}
		if e.Max != nil && n > *e.Max {
			return false
		}
		return true
	case ExpectPattern:
		if e.re == nil {
			// Compile was skipped; fall back to a one-off match.
			re, err := regexp.Compile(e.Pattern)
			if err != nil {
				return false
			}
			e.re = re
		}
		return e.re.MatchString(text)
	default:
		return false
	}
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// ToolCall is one deterministic side effect a task triggers, with templated
// options resolved against state at execution time.
type ToolCall struct {
	Tool    string         `json:"tool"`
	Options map[string]any `json:"options,omitempty"`
}

// Task is an atomic LLM-driven objective with an optional extraction contract.
type Task struct {
	ID          string
	Description string
	Expects     []Expectation
	Tools       []ToolCall
	Silent      bool
	MaxAttempts int

	status   TaskStatus
	attempts int
}

// NewTask creates a pending task. A zero maxAttempts uses DefaultMaxAttempts.
func NewTask(id, description string) *Task {
	return &Task{
		ID:          id,
		Description: description,
		MaxAttempts: DefaultMaxAttempts,
		status:      TaskPending,
	}
}

// Status returns the current lifecycle state.
func (t *Task) Status() TaskStatus {
	return t.status
}

// Attempts returns how many turns the task has been current without completing.
func (t *Task) Attempts() int {
	return t.attempts
}

// IsCompleted reports whether the task completed successfully.
func (t *Task) IsCompleted() bool {
	return t.status == TaskCompleted
}

// IsTerminal reports whether the task no longer blocks its block:
// completed, or failed after exhausting its attempt budget.
func (t *Task) IsTerminal() bool {
	return t.status == TaskCompleted || t.status == TaskFailed
}

// Start marks the task in progress. No-op once terminal.
func (t *Task) Start() {
	if t.status == TaskPending {
		t.status = TaskInProgress
	}
}

// Complete marks the task completed. Idempotent.
func (t *Task) Complete() {
	t.status = TaskCompleted
}

// Fail marks the task failed. Idempotent; never demotes a completed task.
func (t *Task) Fail() {
	if t.status != TaskCompleted {
		t.status = TaskFailed
	}
}

// RecordAttempt increments the attempt counter and fails the task once the
// budget is exhausted. This is the anti-infinite-loop invariant: no task may
// block plan progression beyond its configured attempts.
func (t *Task) RecordAttempt() {
	if t.IsTerminal() {
		return
	}
	t.Start()
	t.attempts++

	budget := t.MaxAttempts
	if budget <= 0 {
		budget = DefaultMaxAttempts
	}
	if t.attempts >= budget {
		t.Fail()
	}
}

// ExpectsKey reports whether key is one of the task's expected outputs.
func (t *Task) ExpectsKey(key string) bool {
	return t.Expectation(key) != nil
}

// Expectation returns the expectation declared for key, or nil.
func (t *Task) Expectation(key string) *Expectation {
	for i := range t.Expects {
		if t.Expects[i].Key == key {
			return &t.Expects[i]
		}
	}
	return nil
}

// Restore forces status and attempts, used when resuming a session.
func (t *Task) Restore(status TaskStatus, attempts int) {
	t.status = status
	t.attempts = attempts
}
