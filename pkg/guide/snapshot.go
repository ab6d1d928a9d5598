package guide

import (
	"encoding/json"
	"fmt"

	"chatguide/pkg/flow"
	"chatguide/pkg/state"
)

// Progress summarizes how far the plan has come.
type Progress struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// Snapshot is the serializable session dump. It round-trips losslessly
// through RestoreFromDump; the plan cursor is re-derived from the completed
// task set rather than stored.
type Snapshot struct {
	Variables        map[string]any     `json:"variables"`
	Context          json.RawMessage    `json:"context"`
	Execution        flow.Snapshot      `json:"execution"`
	Audit            []state.AuditEntry `json:"audit"`
	Tones            []string           `json:"tones"`
	FiredAdjustments []string           `json:"fired_adjustments,omitempty"`
}

// CurrentTask returns the id of the first open task in the current block,
// or "" when none.
func (g *ChatGuide) CurrentTask() string {
	return g.execution.CurrentTask()
}

// Status returns the orchestrator lifecycle status.
func (g *ChatGuide) Status() flow.ExecStatus {
	return g.execution.Status()
}

// IsFinished reports whether the plan has run out of blocks.
func (g *ChatGuide) IsFinished() bool {
	return g.plan.IsFinished()
}

// Progress reports completed versus total tasks across the whole plan.
func (g *ChatGuide) Progress() Progress {
	tasks := g.plan.AllTasks()
	p := Progress{Total: len(tasks)}
	for _, task := range tasks {
		if task.IsCompleted() {
			p.Completed++
		}
	}
	if p.Total > 0 {
		p.Percent = float64(p.Completed) / float64(p.Total) * 100
	}
	return p
}

// State exposes the conversation state store.
func (g *ChatGuide) State() *state.Store { return g.st }

// Audit exposes the mutation audit log.
func (g *ChatGuide) Audit() *state.AuditLog { return g.audit }

// Turns returns how many turns have run.
func (g *ChatGuide) Turns() int { return g.execution.Turns() }

// Dump captures the session for persistence.
func (g *ChatGuide) Dump() (Snapshot, error) {
	transcript, err := g.transcript.Serialize()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Variables:        g.st.Variables(),
		Context:          transcript,
		Execution:        g.execution.Snapshot(),
		Audit:            g.audit.Entries(),
		Tones:            g.tones.Active(),
		FiredAdjustments: g.engine.FiredNames(),
	}, nil
}

// RestoreFromDump replaces the session state with the snapshot. Task
// statuses come from the completed set and the plan cursor is walked forward
// over every fully terminal block.
func (g *ChatGuide) RestoreFromDump(s Snapshot) error {
	st := state.NewStore(s.Variables)
	audit := state.NewAuditLog()
	audit.Restore(s.Audit)
	st.AttachAudit(audit)

	transcript := g.transcript
	if len(s.Context) > 0 {
		if err := transcript.Deserialize(s.Context); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
	} else {
		transcript.Clear()
	}

	plan := g.cfg.NewPlan()
	for _, id := range s.Execution.Completed {
		if task := plan.Task(id); task != nil {
			task.Restore(flow.TaskCompleted, 0)
		}
	}
	for !plan.IsFinished() && plan.CurrentBlock().IsComplete() {
		plan.Advance()
	}

	g.st = st
	g.audit = audit
	g.plan = plan
	g.execution = flow.RestoreExecution(s.Execution)
	g.tones.Set(s.Tones)
	g.engine.RestoreFired(s.FiredAdjustments)
	g.syncCurrentTask()
	return nil
}

// MarshalSnapshot encodes a snapshot as JSON.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes a JSON snapshot.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return s, nil
}
