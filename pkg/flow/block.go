package flow

// Block is an ordered list of tasks that are conceptually concurrent: the
// model may address any or all of them within a single turn. A block never
// mutates itself; only task status changes bubble up to IsComplete.
type Block struct {
	tasks []*Task
}

// NewBlock creates a block over the given tasks.
func NewBlock(tasks ...*Task) *Block {
	return &Block{tasks: tasks}
}

// Tasks returns the member tasks in order.
func (b *Block) Tasks() []*Task {
	return b.tasks
}

// TaskIDs returns the member task ids in order.
func (b *Block) TaskIDs() []string {
	ids := make([]string, len(b.tasks))
	for i, t := range b.tasks {
		ids[i] = t.ID
	}
	return ids
}

// Task returns the member task with the given id, or nil.
func (b *Block) Task(id string) *Task {
	for _, t := range b.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// PendingTasks returns member tasks that are not yet terminal.
func (b *Block) PendingTasks() []*Task {
	var pending []*Task
	for _, t := range b.tasks {
		if !t.IsTerminal() {
			pending = append(pending, t)
		}
	}
	return pending
}

// IsComplete reports whether every member task is terminal (completed, or
// failed after exhausting its attempt budget). An empty block is complete.
func (b *Block) IsComplete() bool {
	for _, t := range b.tasks {
		if !t.IsTerminal() {
			return false
		}
	}
	return true
}

// Len returns the number of member tasks.
func (b *Block) Len() int {
	return len(b.tasks)
}
