package flow

// ExecStatus is the orchestrator lifecycle state for one conversation.
type ExecStatus string

const (
	ExecIdle          ExecStatus = "idle"
	ExecProcessing    ExecStatus = "processing"
	ExecAwaitingInput ExecStatus = "awaiting_input"
	ExecComplete      ExecStatus = "complete"
)

// Execution is the ledger of conversation progress: which task is current,
// which tasks have completed, how many turns have run, and the lifecycle
// status. It carries no business data; that lives in state.Store.
type Execution struct {
	currentTask string
	completed   []string
	status      ExecStatus
	turns       int
}

// NewExecution creates an idle execution ledger.
func NewExecution() *Execution {
	return &Execution{status: ExecIdle}
}

// Status returns the lifecycle status.
func (e *Execution) Status() ExecStatus {
	return e.status
}

// SetStatus moves the lifecycle to the given status.
func (e *Execution) SetStatus(status ExecStatus) {
	e.status = status
}

// CurrentTask returns the id of the task currently being pursued, or "".
func (e *Execution) CurrentTask() string {
	return e.currentTask
}

// SetCurrentTask records the task currently being pursued.
func (e *Execution) SetCurrentTask(id string) {
	e.currentTask = id
}

// MarkComplete records a completed task id. Idempotent; order preserved.
func (e *Execution) MarkComplete(id string) {
	for _, c := range e.completed {
		if c == id {
			return
		}
	}
	e.completed = append(e.completed, id)
}

// IsCompleted reports whether the task id has been recorded complete.
func (e *Execution) IsCompleted(id string) bool {
	for _, c := range e.completed {
		if c == id {
			return true
		}
	}
	return false
}

// Completed returns the completed task ids in completion order.
func (e *Execution) Completed() []string {
	out := make([]string, len(e.completed))
	copy(out, e.completed)
	return out
}

// IncrementTurn bumps the turn counter and returns the new value.
func (e *Execution) IncrementTurn() int {
	e.turns++
	return e.turns
}

// Turns returns how many turns have run.
func (e *Execution) Turns() int {
	return e.turns
}

// Snapshot is the serializable form of an execution ledger.
type Snapshot struct {
	CurrentTask string     `json:"current_task,omitempty"`
	Completed   []string   `json:"completed"`
	Status      ExecStatus `json:"status"`
	Turns       int        `json:"turns"`
}

// Snapshot exports the ledger for persistence.
func (e *Execution) Snapshot() Snapshot {
	return Snapshot{
		CurrentTask: e.currentTask,
		Completed:   e.Completed(),
		Status:      e.status,
		Turns:       e.turns,
	}
}

// RestoreExecution rebuilds a ledger from a snapshot.
func RestoreExecution(s Snapshot) *Execution {
	e := NewExecution()
	e.currentTask = s.CurrentTask
	e.completed = append(e.completed, s.Completed...)
	if s.Status != "" {
		e.status = s.Status
	}
	e.turns = s.Turns
	return e
}
