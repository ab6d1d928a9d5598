// Package state provides the flat key/value store that holds every fact a
// conversation has extracted, with template resolution and change auditing.
//
// A Store is owned by exactly one Guide instance. All mutation goes through
// Set/Update so that an attached AuditLog sees every change; components that
// only read receive the store by reference and must not retain the maps
// returned by Variables.
package state

import (
	"reflect"
	"sort"
)

// Store is the working memory of one conversation.
// Values are opaque: strings, numbers, booleans, or nil.
type Store struct {
	vars  map[string]any
	audit *AuditLog
}

// NewStore creates a store seeded with the given initial variables.
func NewStore(initial map[string]any) *Store {
	vars := make(map[string]any, len(initial))
	for k, v := range initial {
		vars[k] = v
	}
	return &Store{vars: vars}
}

// AttachAudit routes all subsequent value changes into log.
func (s *Store) AttachAudit(log *AuditLog) {
	s.audit = log
}

// Get returns the value for key, or def if the key is absent. Never fails.
func (s *Store) Get(key string, def any) any {
	if v, ok := s.vars[key]; ok {
		return v
	}
	return def
}

// GetString returns the value for key rendered as a string, or "" if absent.
func (s *Store) GetString(key string) string {
	v, ok := s.vars[key]
	if !ok || v == nil {
		return ""
	}
	return stringify(v)
}

// Has reports whether key holds a value (nil counts as present).
func (s *Store) Has(key string) bool {
	_, ok := s.vars[key]
	return ok
}

// Set overwrites the value for key. If an audit log is attached and the
// value actually changed, the change is recorded with its source task.
func (s *Store) Set(key string, value any, sourceTask string) {
	old, existed := s.vars[key]
	s.vars[key] = value

	if s.audit != nil && (!existed || !reflect.DeepEqual(old, value)) {
		s.audit.Append(key, old, value, sourceTask)
	}
}

// Update applies Set for each pair. Iteration is in sorted key order so
// audit output is deterministic.
func (s *Store) Update(values map[string]any, sourceTask string) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.Set(k, values[k], sourceTask)
	}
}

// Variables returns a copy of all stored variables.
func (s *Store) Variables() map[string]any {
	out := make(map[string]any, len(s.vars))
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}

// Len returns the number of stored variables.
func (s *Store) Len() int {
	return len(s.vars)
}
