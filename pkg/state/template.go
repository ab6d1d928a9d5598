package state

import (
	"fmt"
	"regexp"
	"strconv"
)

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Resolve substitutes every {{identifier}} placeholder inside strings,
// slices, and nested maps with the stored value rendered as a string.
// Unresolved identifiers degrade to "". Resolution is side-effect-free and
// idempotent: resolving already-resolved text is a no-op.
func (s *Store) Resolve(value any) any {
	switch v := value.(type) {
	case string:
		return s.resolveString(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = s.Resolve(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = s.Resolve(item)
		}
		return out
	case []string:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = s.resolveString(item)
		}
		return out
	default:
		return value
	}
}

// ResolveString is Resolve restricted to a single string.
func (s *Store) ResolveString(text string) string {
	return s.resolveString(text)
}

func (s *Store) resolveString(text string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-2]
		v, ok := s.vars[name]
		if !ok || v == nil {
			return ""
		}
		return stringify(v)
	})
}

// stringify renders a state value the way it should appear in prompt text:
// integral floats without a trailing ".0", booleans as true/false.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return stringify(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
