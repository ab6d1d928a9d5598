package adjust

import (
	"fmt"

	"chatguide/pkg/flow"
	"chatguide/pkg/state"
	"chatguide/pkg/tone"
)

// Target is the live, mutable surface actions apply to. TaskFactory
// materializes tasks for dynamically inserted blocks from the loaded task
// definitions; AdvanceFlow force-advances the plan past an incomplete block.
type Target struct {
	State       *state.Store
	Plan        *flow.Plan
	Tones       *tone.Palette
	TaskFactory func(id string) *flow.Task
	AdvanceFlow func(force bool)
}

// Action is one mutation an adjustment performs when it fires. The set is
// closed: each kind has exactly one type and Apply dispatches exhaustively
// at the call site via these implementations.
type Action interface {
	Apply(t Target) error
}

// PlanJump moves the plan cursor to Index.
type PlanJump struct{ Index int }

func (a PlanJump) Apply(t Target) error {
	return t.Plan.JumpTo(a.Index)
}

// PlanInsertBlock inserts a new block of the named tasks at Index.
type PlanInsertBlock struct {
	Index int
	Tasks []string
}

func (a PlanInsertBlock) Apply(t Target) error {
	return t.Plan.InsertBlock(a.Index, buildBlock(t, a.Tasks))
}

// PlanRemoveBlock removes the block at Index.
type PlanRemoveBlock struct{ Index int }

func (a PlanRemoveBlock) Apply(t Target) error {
	return t.Plan.RemoveBlock(a.Index)
}

// PlanReplaceBlock swaps the block at Index for a new block of the named tasks.
type PlanReplaceBlock struct {
	Index int
	Tasks []string
}

func (a PlanReplaceBlock) Apply(t Target) error {
	return t.Plan.ReplaceBlock(a.Index, buildBlock(t, a.Tasks))
}

// ToneSet replaces the active tone list entirely.
type ToneSet struct{ Tones []string }

func (a ToneSet) Apply(t Target) error {
	t.Tones.Set(a.Tones)
	return nil
}

// ToneAdd appends a tone if not already active.
type ToneAdd struct{ Tone string }

func (a ToneAdd) Apply(t Target) error {
	t.Tones.Add(a.Tone)
	return nil
}

// StateSet writes a value into state, attributed to the adjustment engine.
type StateSet struct {
	Key   string
	Value any
}

func (a StateSet) Apply(t Target) error {
	if a.Key == "" {
		return fmt.Errorf("state.set requires a key")
	}
	t.State.Set(a.Key, a.Value, "adjustment")
	return nil
}

// AdvanceFlow advances the plan. With Force it advances even when the
// current block has incomplete tasks, as an anti-stall escape hatch
// distinct from per-task attempt budgets.
type AdvanceFlow struct{ Force bool }

func (a AdvanceFlow) Apply(t Target) error {
	if t.AdvanceFlow == nil {
		return fmt.Errorf("advance_flow not supported by this target")
	}
	t.AdvanceFlow(a.Force)
	return nil
}

func buildBlock(t Target, ids []string) *flow.Block {
	tasks := make([]*flow.Task, 0, len(ids))
	for _, id := range ids {
		if t.TaskFactory != nil {
			if task := t.TaskFactory(id); task != nil {
				tasks = append(tasks, task)
				continue
			}
		}
		// Unknown task ids become empty-description tasks so a dynamic
		// block can still name objectives the model should pursue.
		tasks = append(tasks, flow.NewTask(id, ""))
	}
	return flow.NewBlock(tasks...)
}
