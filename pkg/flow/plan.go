package flow

import (
	"errors"
	"fmt"
)

// ErrInvalidPlanIndex is returned by structural plan edits given an index
// outside the valid range. The failed action never aborts the turn.
var ErrInvalidPlanIndex = errors.New("invalid plan index")

// Plan is an ordered sequence of blocks with a movable cursor. The cursor
// satisfies 0 <= cursor <= len(blocks) at all times; cursor == len(blocks)
// is the terminal "finished" position.
type Plan struct {
	blocks []*Block
	cursor int
}

// NewPlan creates a plan over the given blocks with the cursor at the start.
func NewPlan(blocks ...*Block) *Plan {
	return &Plan{blocks: blocks}
}

// CurrentBlock returns the block under the cursor, or nil when finished.
func (p *Plan) CurrentBlock() *Block {
	if p.cursor < len(p.blocks) {
		return p.blocks[p.cursor]
	}
	return nil
}

// Block returns the block at index, or nil if out of range.
func (p *Plan) Block(index int) *Block {
	if index >= 0 && index < len(p.blocks) {
		return p.blocks[index]
	}
	return nil
}

// CurrentIndex returns the cursor position.
func (p *Plan) CurrentIndex() int {
	return p.cursor
}

// Len returns the number of blocks.
func (p *Plan) Len() int {
	return len(p.blocks)
}

// IsFinished reports whether the cursor has moved past the last block.
func (p *Plan) IsFinished() bool {
	return p.cursor >= len(p.blocks)
}

// Advance moves the cursor forward by one, capped at len(blocks).
// No-op when already finished.
func (p *Plan) Advance() {
	if p.cursor < len(p.blocks) {
		p.cursor++
	}
}

// JumpTo moves the cursor to index. Out-of-range indices are rejected.
func (p *Plan) JumpTo(index int) error {
	if index < 0 || index >= len(p.blocks) {
		return fmt.Errorf("%w: jump to %d with %d blocks", ErrInvalidPlanIndex, index, len(p.blocks))
	}
	p.cursor = index
	return nil
}

// InsertBlock inserts block at index; index == len(blocks) appends.
func (p *Plan) InsertBlock(index int, block *Block) error {
	if index < 0 || index > len(p.blocks) {
		return fmt.Errorf("%w: insert at %d with %d blocks", ErrInvalidPlanIndex, index, len(p.blocks))
	}
	p.blocks = append(p.blocks, nil)
	copy(p.blocks[index+1:], p.blocks[index:])
	p.blocks[index] = block
	return nil
}

// RemoveBlock removes the block at index and re-clamps the cursor so it can
// never point past the shortened plan in a way that skips pending work.
func (p *Plan) RemoveBlock(index int) error {
	if index < 0 || index >= len(p.blocks) {
		return fmt.Errorf("%w: remove at %d with %d blocks", ErrInvalidPlanIndex, index, len(p.blocks))
	}
	p.blocks = append(p.blocks[:index], p.blocks[index+1:]...)
	if p.cursor > len(p.blocks) {
		p.cursor = len(p.blocks) - 1
		if p.cursor < 0 {
			p.cursor = 0
		}
	}
	return nil
}

// ReplaceBlock swaps the block at index for the given one.
func (p *Plan) ReplaceBlock(index int, block *Block) error {
	if index < 0 || index >= len(p.blocks) {
		return fmt.Errorf("%w: replace at %d with %d blocks", ErrInvalidPlanIndex, index, len(p.blocks))
	}
	p.blocks[index] = block
	return nil
}

// Blocks returns the blocks in order. The slice is a copy; the blocks are not.
func (p *Plan) Blocks() []*Block {
	out := make([]*Block, len(p.blocks))
	copy(out, p.blocks)
	return out
}

// AllTasks returns every task across all blocks in plan order.
func (p *Plan) AllTasks() []*Task {
	var tasks []*Task
	for _, b := range p.blocks {
		tasks = append(tasks, b.Tasks()...)
	}
	return tasks
}

// Task finds a task by id anywhere in the plan, or nil.
func (p *Plan) Task(id string) *Task {
	for _, b := range p.blocks {
		if t := b.Task(id); t != nil {
			return t
		}
	}
	return nil
}

// RestoreCursor forces the cursor position, clamping into [0, len(blocks)].
// Used when resuming a session.
func (p *Plan) RestoreCursor(index int) {
	if index < 0 {
		index = 0
	}
	if index > len(p.blocks) {
		index = len(p.blocks)
	}
	p.cursor = index
}
