// Package adjust implements the reactive rule engine: each rule watches the
// conversation through a typed predicate AST and, when its condition first
// becomes true, mutates state, plan, or tone through a fixed action set.
package adjust

import (
	"strconv"
	"strings"

	"chatguide/pkg/flow"
	"chatguide/pkg/state"
	"chatguide/pkg/tone"
)

// View is what a condition evaluates against. Conditions must treat it as
// read-only; actions fired by earlier rules in the same pass are visible to
// later conditions (sequential visibility).
type View struct {
	State *state.Store
	Plan  *flow.Plan
	Tones *tone.Palette
	Turns int
}

// Condition is a boolean predicate over a View. Implementations are pure:
// no mutation, no I/O.
type Condition interface {
	Eval(v View) bool
}

// Bool is a constant condition, mainly useful in tests and always-on rules.
type Bool bool

func (b Bool) Eval(View) bool { return bool(b) }

// All is true when every child condition is true. Empty All is true.
type All []Condition

func (a All) Eval(v View) bool {
	for _, c := range a {
		if !c.Eval(v) {
			return false
		}
	}
	return true
}

// Any is true when at least one child condition is true.
type Any []Condition

func (a Any) Eval(v View) bool {
	for _, c := range a {
		if c.Eval(v) {
			return true
		}
	}
	return false
}

// Not negates its child condition.
type Not struct{ C Condition }

func (n Not) Eval(v View) bool { return !n.C.Eval(v) }

// Has is true when the state key holds a non-nil value.
type Has struct{ Key string }

func (h Has) Eval(v View) bool {
	return v.State.Get(h.Key, nil) != nil
}

// Eq is true when the state value equals Value. Comparison is loose across
// numeric types and strings, since model extractions arrive as text.
type Eq struct {
	Key   string
	Value any
}

func (e Eq) Eval(v View) bool {
	actual := v.State.Get(e.Key, nil)
	if actual == e.Value {
		return true
	}
	an, aok := toNumber(actual)
	en, eok := toNumber(e.Value)
	if aok && eok {
		return an == en
	}
	as, aok := actual.(string)
	es, eok := e.Value.(string)
	if aok && eok {
		return strings.EqualFold(as, es)
	}
	return false
}

// Gt is true when the state value is numerically greater than Value.
// Non-numeric values never match.
type Gt struct {
	Key   string
	Value float64
}

func (g Gt) Eval(v View) bool {
	n, ok := toNumber(v.State.Get(g.Key, nil))
	return ok && n > g.Value
}

// Lt is true when the state value is numerically less than Value.
type Lt struct {
	Key   string
	Value float64
}

func (l Lt) Eval(v View) bool {
	n, ok := toNumber(v.State.Get(l.Key, nil))
	return ok && n < l.Value
}

// TurnsAtLeast is true once the conversation has run N or more turns.
type TurnsAtLeast struct{ N int }

func (t TurnsAtLeast) Eval(v View) bool { return v.Turns >= t.N }

// TaskCompleted is true when the named task has completed.
type TaskCompleted struct{ ID string }

func (t TaskCompleted) Eval(v View) bool {
	task := v.Plan.Task(t.ID)
	return task != nil && task.IsCompleted()
}

// ToneActive is true when the tone id is currently active.
type ToneActive struct{ ID string }

func (t ToneActive) Eval(v View) bool { return v.Tones.IsActive(t.ID) }

// PlanAt is true when the plan cursor sits at Index.
type PlanAt struct{ Index int }

func (p PlanAt) Eval(v View) bool { return v.Plan.CurrentIndex() == p.Index }

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
