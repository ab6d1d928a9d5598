package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetSet(t *testing.T) {
	s := NewStore(map[string]any{"greeting": "hello"})

	assert.Equal(t, "hello", s.Get("greeting", ""))
	assert.Equal(t, "fallback", s.Get("missing", "fallback"))
	assert.Nil(t, s.Get("missing", nil))

	s.Set("user_name", "John", "get_name")
	assert.Equal(t, "John", s.Get("user_name", ""))
	assert.True(t, s.Has("user_name"))
	assert.False(t, s.Has("missing"))

	// Overwrite is allowed; corrections keep the latest value.
	s.Set("user_name", "Johnny", "get_name")
	assert.Equal(t, "Johnny", s.Get("user_name", ""))
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore(nil)
	s.Update(map[string]any{"a": 1, "b": "two", "c": true}, "bulk")

	assert.Equal(t, 1, s.Get("a", nil))
	assert.Equal(t, "two", s.Get("b", nil))
	assert.Equal(t, true, s.Get("c", nil))
	assert.Equal(t, 3, s.Len())
}

func TestVariablesReturnsCopy(t *testing.T) {
	s := NewStore(map[string]any{"k": "v"})
	vars := s.Variables()
	vars["k"] = "mutated"

	assert.Equal(t, "v", s.Get("k", ""))
}

func TestResolveTemplateRoundTrip(t *testing.T) {
	s := NewStore(nil)
	s.Set("x", "v", "")

	assert.Equal(t, "v", s.ResolveString("{{x}}"))
	// Unresolved identifiers degrade to empty string.
	assert.Equal(t, "", s.ResolveString("{{y}}"))
	// Idempotent on already-resolved text.
	assert.Equal(t, "v", s.ResolveString(s.ResolveString("{{x}}")))
}

func TestResolveNestedStructures(t *testing.T) {
	s := NewStore(map[string]any{
		"user_name": "John",
		"city":      "Lisbon",
	})

	resolved := s.Resolve(map[string]any{
		"text":  "Hello {{user_name}} from {{city}}",
		"tags":  []any{"{{city}}", "fixed"},
		"names": []string{"{{user_name}}"},
		"depth": map[string]any{"inner": "{{user_name}}"},
		"count": 3,
	})

	m, ok := resolved.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Hello John from Lisbon", m["text"])
	assert.Equal(t, []any{"Lisbon", "fixed"}, m["tags"])
	assert.Equal(t, []string{"John"}, m["names"])
	assert.Equal(t, map[string]any{"inner": "John"}, m["depth"])
	assert.Equal(t, 3, m["count"])
}

func TestResolveNumericFormatting(t *testing.T) {
	s := NewStore(map[string]any{
		"age":   float64(30),
		"score": 99.5,
		"vip":   true,
	})

	assert.Equal(t, "age=30 score=99.5 vip=true",
		s.ResolveString("age={{age}} score={{score}} vip={{vip}}"))
}

func TestAuditRecordsChanges(t *testing.T) {
	log := NewAuditLog()
	s := NewStore(nil)
	s.AttachAudit(log)

	s.Set("tier", "silver", "classify")
	s.Set("tier", "gold", "classify")
	// Unchanged write must not add an entry.
	s.Set("tier", "gold", "classify")

	require.Equal(t, 2, log.Len())

	latest := log.Latest("tier")
	require.NotNil(t, latest)
	assert.Equal(t, "silver", latest.OldValue)
	assert.Equal(t, "gold", latest.NewValue)
	assert.Equal(t, "classify", latest.SourceTask)
}

func TestAuditSearch(t *testing.T) {
	log := NewAuditLog()
	s := NewStore(nil)
	s.AttachAudit(log)

	s.Set("a", 1, "task1")
	s.Set("b", 2, "task2")
	s.Set("a", 3, "task2")

	assert.Len(t, log.Search("a", "", time.Time{}), 2)
	assert.Len(t, log.Search("", "task2", time.Time{}), 2)
	assert.Len(t, log.Search("a", "task2", time.Time{}), 1)
	assert.Len(t, log.Search("", "", time.Now().Add(time.Hour)), 0)
	assert.Nil(t, log.Latest("missing"))
}

func TestAuditRestoreRoundTrip(t *testing.T) {
	log := NewAuditLog()
	log.Append("k", nil, "v", "t")

	restored := NewAuditLog()
	restored.Restore(log.Entries())

	require.Equal(t, 1, restored.Len())
	assert.Equal(t, log.Entries(), restored.Entries())
}
