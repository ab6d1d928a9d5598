package state

import "time"

// AuditEntry is one immutable record of a state change.
type AuditEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Key        string    `json:"key"`
	OldValue   any       `json:"old_value"`
	NewValue   any       `json:"new_value"`
	SourceTask string    `json:"source_task,omitempty"`
}

// AuditLog is an append-only log of state changes. It grows unboundedly
// unless the host prunes it between sessions.
type AuditLog struct {
	entries []AuditEntry
}

// NewAuditLog creates an empty audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// Append records a change. Called by Store.Set; hosts normally never call
// this directly.
func (a *AuditLog) Append(key string, oldValue, newValue any, sourceTask string) {
	a.entries = append(a.entries, AuditEntry{
		Timestamp:  time.Now().UTC(),
		Key:        key,
		OldValue:   oldValue,
		NewValue:   newValue,
		SourceTask: sourceTask,
	})
}

// Search returns entries matching the given filters. Zero values match all.
func (a *AuditLog) Search(key, task string, since time.Time) []AuditEntry {
	out := make([]AuditEntry, 0, len(a.entries))
	for i := range a.entries {
		e := &a.entries[i]
		if key != "" && e.Key != key {
			continue
		}
		if task != "" && e.SourceTask != task {
			continue
		}
		if !since.IsZero() && e.Timestamp.Before(since) {
			continue
		}
		out = append(out, *e)
	}
	return out
}

// Latest returns the most recent entry for key, or nil if none exists.
func (a *AuditLog) Latest(key string) *AuditEntry {
	for i := len(a.entries) - 1; i >= 0; i-- {
		if a.entries[i].Key == key {
			e := a.entries[i]
			return &e
		}
	}
	return nil
}

// Entries returns a copy of all entries in append order.
func (a *AuditLog) Entries() []AuditEntry {
	out := make([]AuditEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Len returns the number of entries.
func (a *AuditLog) Len() int {
	return len(a.entries)
}

// Restore replaces the log contents, used when resuming a session.
func (a *AuditLog) Restore(entries []AuditEntry) {
	a.entries = make([]AuditEntry, len(entries))
	copy(a.entries, entries)
}
