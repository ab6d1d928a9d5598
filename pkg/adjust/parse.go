package adjust

import (
	"fmt"
)

// ParseCondition builds a Condition from its declarative document form:
// a bare boolean, or a single-operator map such as
//
//	{all: [...]}, {any: [...]}, {not: {...}}, {has: key},
//	{eq: {key: k, value: v}}, {gt: {key: k, value: n}}, {lt: ...},
//	{turns_at_least: n}, {task_completed: id}, {tone_active: id},
//	{plan_at: index}
//
// Malformed conditions are load-time errors so they surface before any
// conversation starts.
func ParseCondition(raw any) (Condition, error) {
	switch v := raw.(type) {
	case bool:
		return Bool(v), nil
	case map[string]any:
		return parseConditionMap(v)
	case nil:
		return nil, fmt.Errorf("condition cannot be empty")
	default:
		return nil, fmt.Errorf("condition must be a boolean or a map, got %T", raw)
	}
}

func parseConditionMap(m map[string]any) (Condition, error) {
	if len(m) != 1 {
		return nil, fmt.Errorf("condition map must have exactly one operator, got %d", len(m))
	}

	for op, arg := range m {
		switch op {
		case "all", "any":
			children, err := parseConditionList(arg)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			if op == "all" {
				return All(children), nil
			}
			return Any(children), nil

		case "not":
			child, err := ParseCondition(arg)
			if err != nil {
				return nil, fmt.Errorf("not: %w", err)
			}
			return Not{C: child}, nil

		case "has":
			key, ok := arg.(string)
			if !ok || key == "" {
				return nil, fmt.Errorf("has: requires a key name")
			}
			return Has{Key: key}, nil

		case "eq":
			key, value, err := keyValueArg(arg)
			if err != nil {
				return nil, fmt.Errorf("eq: %w", err)
			}
			return Eq{Key: key, Value: value}, nil

		case "gt", "lt":
			key, value, err := keyValueArg(arg)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			n, ok := toNumber(value)
			if !ok {
				return nil, fmt.Errorf("%s: value must be numeric, got %T", op, value)
			}
			if op == "gt" {
				return Gt{Key: key, Value: n}, nil
			}
			return Lt{Key: key, Value: n}, nil

		case "turns_at_least":
			n, ok := toNumber(arg)
			if !ok {
				return nil, fmt.Errorf("turns_at_least: requires a number")
			}
			return TurnsAtLeast{N: int(n)}, nil

		case "task_completed":
			id, ok := arg.(string)
			if !ok || id == "" {
				return nil, fmt.Errorf("task_completed: requires a task id")
			}
			return TaskCompleted{ID: id}, nil

		case "tone_active":
			id, ok := arg.(string)
			if !ok || id == "" {
				return nil, fmt.Errorf("tone_active: requires a tone id")
			}
			return ToneActive{ID: id}, nil

		case "plan_at":
			n, ok := toNumber(arg)
			if !ok {
				return nil, fmt.Errorf("plan_at: requires an index")
			}
			return PlanAt{Index: int(n)}, nil

		default:
			return nil, fmt.Errorf("unknown condition operator %q", op)
		}
	}
	return nil, fmt.Errorf("empty condition map")
}

func parseConditionList(arg any) ([]Condition, error) {
	items, ok := arg.([]any)
	if !ok {
		return nil, fmt.Errorf("requires a list of conditions, got %T", arg)
	}
	out := make([]Condition, 0, len(items))
	for i, item := range items {
		c, err := ParseCondition(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func keyValueArg(arg any) (string, any, error) {
	m, ok := arg.(map[string]any)
	if !ok {
		return "", nil, fmt.Errorf("requires {key, value}, got %T", arg)
	}
	key, ok := m["key"].(string)
	if !ok || key == "" {
		return "", nil, fmt.Errorf("requires a key name")
	}
	value, ok := m["value"]
	if !ok {
		return "", nil, fmt.Errorf("requires a value")
	}
	return key, value, nil
}

// ParseActions builds the ordered action list from its document form:
// a list of maps each carrying a "type" discriminator.
func ParseActions(raw []any) ([]Action, error) {
	out := make([]Action, 0, len(raw))
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("action %d: must be a map, got %T", i, item)
		}
		a, err := parseAction(m)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func parseAction(m map[string]any) (Action, error) {
	kind, _ := m["type"].(string)
	switch kind {
	case "plan.jump_to":
		index, err := indexArg(m)
		if err != nil {
			return nil, err
		}
		return PlanJump{Index: index}, nil

	case "plan.insert_block":
		index, err := indexArg(m)
		if err != nil {
			return nil, err
		}
		tasks, err := taskListArg(m)
		if err != nil {
			return nil, err
		}
		return PlanInsertBlock{Index: index, Tasks: tasks}, nil

	case "plan.remove_block":
		index, err := indexArg(m)
		if err != nil {
			return nil, err
		}
		return PlanRemoveBlock{Index: index}, nil

	case "plan.replace_block":
		index, err := indexArg(m)
		if err != nil {
			return nil, err
		}
		tasks, err := taskListArg(m)
		if err != nil {
			return nil, err
		}
		return PlanReplaceBlock{Index: index, Tasks: tasks}, nil

	case "tone.set":
		tones, err := stringListArg(m, "tones")
		if err != nil {
			return nil, err
		}
		return ToneSet{Tones: tones}, nil

	case "tone.add":
		t, ok := m["tone"].(string)
		if !ok || t == "" {
			return nil, fmt.Errorf("tone.add requires a tone id")
		}
		return ToneAdd{Tone: t}, nil

	case "state.set":
		key, ok := m["key"].(string)
		if !ok || key == "" {
			return nil, fmt.Errorf("state.set requires a key")
		}
		value, ok := m["value"]
		if !ok {
			return nil, fmt.Errorf("state.set requires a value")
		}
		return StateSet{Key: key, Value: value}, nil

	case "advance_flow":
		force, _ := m["force"].(bool)
		return AdvanceFlow{Force: force}, nil

	case "":
		return nil, fmt.Errorf("action requires a type")
	default:
		return nil, fmt.Errorf("unknown action type %q", kind)
	}
}

func indexArg(m map[string]any) (int, error) {
	raw, ok := m["index"]
	if !ok {
		return 0, fmt.Errorf("%s requires an index", m["type"])
	}
	n, ok := toNumber(raw)
	if !ok {
		return 0, fmt.Errorf("%s index must be a number, got %T", m["type"], raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s index cannot be negative", m["type"])
	}
	return int(n), nil
}

func taskListArg(m map[string]any) ([]string, error) {
	tasks, err := stringListArg(m, "tasks")
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%s requires at least one task", m["type"])
	}
	return tasks, nil
}

func stringListArg(m map[string]any, field string) ([]string, error) {
	raw, ok := m[field]
	if !ok {
		return nil, fmt.Errorf("%s requires %s", m["type"], field)
	}
	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s %s entries must be strings, got %T", m["type"], field, item)
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return v, nil
	default:
		return nil, fmt.Errorf("%s %s must be a list, got %T", m["type"], field, raw)
	}
}
