package adjust

import (
	"fmt"

	"chatguide/pkg/logx"
)

// Adjustment is one reactive rule: a named condition with an ordered action
// list. Once fired it is skipped until explicitly reset.
type Adjustment struct {
	Name      string
	Condition Condition
	Actions   []Action

	fired bool
}

// Fired reports whether the rule has already fired.
func (a *Adjustment) Fired() bool { return a.fired }

// Reset clears the fired flag so the rule may fire again.
func (a *Adjustment) Reset() { a.fired = false }

// Engine evaluates adjustments in definition order, once per pass.
type Engine struct {
	rules  []*Adjustment
	logger *logx.Logger
}

// NewEngine creates an engine over the given rules. Rule names must be
// unique; duplicates are a configuration error.
func NewEngine(rules ...*Adjustment) (*Engine, error) {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if r.Name == "" {
			return nil, fmt.Errorf("adjustment with empty name")
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("duplicate adjustment name %q", r.Name)
		}
		seen[r.Name] = true
	}
	return &Engine{rules: rules, logger: logx.NewLogger("adjust")}, nil
}

// Evaluate runs one pass: each unfired rule's condition is evaluated against
// the view; on true its actions apply in order against the target and the
// rule is marked fired. Mutations by earlier rules are visible to later
// conditions in the same pass. A panicking condition or a failing action
// skips that rule (or action) and never aborts the pass.
//
// Returns the names of rules that fired, in order.
func (e *Engine) Evaluate(view View, target Target) []string {
	var fired []string

	for _, rule := range e.rules {
		if rule.fired {
			continue
		}
		if !e.safeEval(rule, view) {
			continue
		}

		for _, action := range rule.Actions {
			if err := e.safeApply(action, target); err != nil {
				e.logger.Warn("adjustment %q action %T failed: %v", rule.Name, action, err)
			}
		}
		rule.fired = true
		fired = append(fired, rule.Name)
		e.logger.Debug("adjustment %q fired", rule.Name)
	}

	return fired
}

func (e *Engine) safeEval(rule *Adjustment, view View) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("adjustment %q condition panicked: %v", rule.Name, r)
			result = false
		}
	}()
	if rule.Condition == nil {
		return false
	}
	return rule.Condition.Eval(view)
}

func (e *Engine) safeApply(action Action, target Target) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	return action.Apply(target)
}

// ResetAll clears every rule's fired flag.
func (e *Engine) ResetAll() {
	for _, r := range e.rules {
		r.Reset()
	}
}

// Reset clears the fired flag of one rule by name.
func (e *Engine) Reset(name string) bool {
	for _, r := range e.rules {
		if r.Name == name {
			r.Reset()
			return true
		}
	}
	return false
}

// FiredNames returns the names of all rules that have fired so far.
func (e *Engine) FiredNames() []string {
	var names []string
	for _, r := range e.rules {
		if r.fired {
			names = append(names, r.Name)
		}
	}
	return names
}

// RestoreFired marks the named rules as fired, used when resuming a session.
func (e *Engine) RestoreFired(names []string) {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	for _, r := range e.rules {
		r.fired = set[r.Name]
	}
}

// Rules returns the rules in definition order.
func (e *Engine) Rules() []*Adjustment {
	out := make([]*Adjustment, len(e.rules))
	copy(out, e.rules)
	return out
}
