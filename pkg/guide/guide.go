// Package guide is the orchestrator: it owns one conversation's state, plan,
// tones, transcript, and adjustment rules, and drives the per-turn lifecycle
// of prompt assembly, model call, reconciliation, adjustment evaluation, and
// plan advancement.
package guide

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatguide/pkg/adjust"
	"chatguide/pkg/config"
	"chatguide/pkg/contextmgr"
	"chatguide/pkg/flow"
	"chatguide/pkg/llm"
	"chatguide/pkg/logx"
	"chatguide/pkg/metrics"
	"chatguide/pkg/prompt"
	"chatguide/pkg/state"
	"chatguide/pkg/tone"
	"chatguide/pkg/tools"
)

// ErrConversationComplete is returned by Chat once the plan has finished.
var ErrConversationComplete = errors.New("conversation already complete")

const (
	defaultHistoryWindow  = 20
	defaultMaxSilentChain = 3
)

// Option configures a ChatGuide.
type Option func(*ChatGuide)

// WithTools attaches a sealed tool registry; task and model tool calls run
// through it.
func WithTools(registry *tools.Registry) Option {
	return func(g *ChatGuide) {
		g.executor = tools.NewExecutor(registry)
		g.registry = registry
	}
}

// WithMetrics attaches a Prometheus recorder.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(g *ChatGuide) { g.recorder = recorder }
}

// WithHistoryWindow caps how many transcript messages the prompt includes.
func WithHistoryWindow(n int) Option {
	return func(g *ChatGuide) {
		if n > 0 {
			g.historyWindow = n
		}
	}
}

// WithHistoryTokens bounds prompt history by token count instead of message
// count. The newest message is always kept.
func WithHistoryTokens(n int) Option {
	return func(g *ChatGuide) {
		if n > 0 {
			g.historyTokens = n
		}
	}
}

// WithMaxSilentChain caps consecutive silent reasoning passes within one turn.
func WithMaxSilentChain(n int) Option {
	return func(g *ChatGuide) {
		if n > 0 {
			g.maxSilentChain = n
		}
	}
}

// ChatGuide runs one conversation. Not safe for concurrent use: a session is
// single-threaded by design, with the model call as its only blocking point.
type ChatGuide struct {
	cfg    *config.Guide
	client llm.Client

	st         *state.Store
	audit      *state.AuditLog
	plan       *flow.Plan
	tones      *tone.Palette
	engine     *adjust.Engine
	transcript *contextmgr.ContextManager
	execution  *flow.Execution
	builder    *prompt.Builder

	executor *tools.Executor
	registry *tools.Registry
	recorder *metrics.Recorder
	logger   *logx.Logger

	historyWindow  int
	historyTokens  int
	maxSilentChain int
}

// New creates a fresh conversation over a validated guide.
func New(cfg *config.Guide, client llm.Client, opts ...Option) (*ChatGuide, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}

	builder, err := prompt.NewBuilder()
	if err != nil {
		return nil, err
	}
	engine, err := adjust.NewEngine(cfg.NewAdjustments()...)
	if err != nil {
		return nil, err
	}

	audit := state.NewAuditLog()
	st := cfg.NewState()
	st.AttachAudit(audit)

	g := &ChatGuide{
		cfg:            cfg,
		client:         client,
		st:             st,
		audit:          audit,
		plan:           cfg.NewPlan(),
		tones:          cfg.NewPalette(),
		engine:         engine,
		transcript:     contextmgr.NewContextManager(),
		execution:      flow.NewExecution(),
		builder:        builder,
		logger:         logx.NewLogger("guide"),
		historyWindow:  defaultHistoryWindow,
		maxSilentChain: defaultMaxSilentChain,
	}
	if d := cfg.Defaults(); d.HistoryWindow > 0 {
		g.historyWindow = d.HistoryWindow
	}
	if d := cfg.Defaults(); d.HistoryTokens > 0 {
		g.historyTokens = d.HistoryTokens
	}
	if d := cfg.Defaults(); d.MaxSilentChain > 0 {
		g.maxSilentChain = d.MaxSilentChain
	}
	for _, opt := range opts {
		opt(g)
	}

	g.syncCurrentTask()
	return g, nil
}

// AddUserMessage appends a user message to the transcript.
func (g *ChatGuide) AddUserMessage(text string) {
	g.transcript.AddUser(text)
}

// AddAssistantMessage appends an assistant message to the transcript without
// running a turn, e.g. for host-injected greetings.
func (g *ChatGuide) AddAssistantMessage(text string) {
	g.transcript.AddAssistant(text)
}

// Chat runs one conversational turn and returns the user-facing reply.
//
// A failed model call leaves state, plan, and task statuses untouched; the
// caller may retry the turn. Silent tasks chain extra reasoning passes
// before the reply surfaces, bounded by the silent-chain cap.
func (g *ChatGuide) Chat(ctx context.Context) (llm.Reply, error) {
	if g.IsFinished() {
		g.execution.SetStatus(flow.ExecComplete)
		return llm.Reply{}, ErrConversationComplete
	}

	g.execution.SetStatus(flow.ExecProcessing)
	started := time.Now()

	var reply llm.Reply
	for pass := 0; ; pass++ {
		p, err := g.buildPrompt()
		if err != nil {
			g.execution.SetStatus(flow.ExecAwaitingInput)
			return llm.Reply{}, err
		}

		reply, err = g.client.Generate(ctx, p)
		if err != nil {
			// Atomicity: nothing was mutated for this pass.
			g.execution.SetStatus(flow.ExecAwaitingInput)
			g.recorder.ObserveTurn(g.client.ModelName(), false, time.Since(started))
			return llm.Reply{}, fmt.Errorf("turn failed: %w", err)
		}

		if pass == 0 {
			g.execution.IncrementTurn()
		}

		silent := g.applyReply(ctx, reply)
		if !silent || g.IsFinished() {
			break
		}
		if pass+1 >= g.maxSilentChain {
			g.logger.Warn("silent chain cap %d reached, surfacing reply", g.maxSilentChain)
			break
		}
		g.recorder.ObserveSilentPass()
	}

	g.transcript.AddAssistant(reply.AssistantReply)
	g.recorder.ObserveTurn(g.client.ModelName(), true, time.Since(started))

	if g.IsFinished() {
		g.execution.SetStatus(flow.ExecComplete)
	} else {
		g.execution.SetStatus(flow.ExecAwaitingInput)
	}
	return reply, nil
}

// applyReply runs one reconciliation pass and everything downstream of it.
// It reports whether a silent task completed, calling for another pass.
func (g *ChatGuide) applyReply(ctx context.Context, reply llm.Reply) bool {
	completed := g.reconcile(reply)

	silent := false
	for _, task := range completed {
		outcome := string(task.Status())
		g.recorder.ObserveTaskOutcome(task.ID, outcome)
		if task.Silent {
			silent = true
		}
	}

	// Task-declared tools run before model-requested ones, and both before
	// the adjustment pass, which may read what they wrote.
	if g.executor != nil {
		for _, task := range completed {
			if len(task.Tools) > 0 {
				calls := make([]tools.Call, 0, len(task.Tools))
				for _, tc := range task.Tools {
					calls = append(calls, tools.Call{Tool: tc.Tool, Options: tc.Options})
				}
				g.executor.Run(ctx, g.st, task.ID, calls)
			}
		}
		if len(reply.Tools) > 0 {
			calls := make([]tools.Call, 0, len(reply.Tools))
			for _, tc := range reply.Tools {
				calls = append(calls, tools.Call{Tool: tc.Tool, Options: tc.Options})
			}
			g.executor.Run(ctx, g.st, g.execution.CurrentTask(), calls)
		}
	}

	fired := g.engine.Evaluate(
		adjust.View{State: g.st, Plan: g.plan, Tones: g.tones, Turns: g.execution.Turns()},
		adjust.Target{
			State:       g.st,
			Plan:        g.plan,
			Tones:       g.tones,
			TaskFactory: g.cfg.NewTask,
			AdvanceFlow: g.advanceFlow,
		},
	)
	for _, name := range fired {
		g.recorder.ObserveAdjustment(name)
	}

	g.advanceWhileComplete()
	g.syncCurrentTask()
	return silent
}

// reconcile maps the reply's extracted results onto state and tasks per the
// dedupe/validate/match rules, auto-completes empty-expects tasks, and
// records attempts on whatever in the current block is still unresolved.
// Returns the tasks that reached a terminal status during this pass.
func (g *ChatGuide) reconcile(reply llm.Reply) []*flow.Task {
	block := g.plan.CurrentBlock()
	if block == nil {
		return nil
	}

	var terminal []*flow.Task
	wasTerminal := make(map[string]bool, block.Len())
	for _, task := range block.Tasks() {
		wasTerminal[task.ID] = task.IsTerminal()
		if !task.IsTerminal() {
			task.Start()
		}
	}

	seen := make(map[string]bool, len(reply.TaskResults))
	for _, result := range reply.TaskResults {
		if result.Key == "" || seen[result.Key] {
			continue
		}
		seen[result.Key] = true
		if isBlank(result.Value) {
			g.recorder.ObserveExtraction(false)
			continue
		}

		task := g.matchTask(block, result)
		if task != nil {
			if exp := task.Expectation(result.Key); exp != nil && !exp.Accepts(result.Value) {
				g.logger.Debug("discarding %q=%v: fails validation", result.Key, result.Value)
				g.recorder.ObserveExtraction(false)
				continue
			}
		}

		source := g.execution.CurrentTask()
		if task != nil {
			source = task.ID
		}
		g.st.Set(result.Key, result.Value, source)
		g.recorder.ObserveExtraction(true)

		// Completion is idempotent; repeated keys still update the value
		// so corrections land.
		if task != nil {
			task.Complete()
			g.execution.MarkComplete(task.ID)
		}
	}

	// Tasks with nothing to extract complete by being visited.
	for _, task := range block.Tasks() {
		if len(task.Expects) == 0 && !task.IsTerminal() {
			task.Complete()
			g.execution.MarkComplete(task.ID)
		}
	}

	// Whatever is still open was targeted this pass and burned an attempt.
	for _, task := range block.Tasks() {
		if !task.IsTerminal() {
			task.RecordAttempt()
			if task.Status() == flow.TaskFailed {
				g.logger.Warn("task %q failed after %d attempts", task.ID, task.Attempts())
			}
		}
	}

	for _, task := range block.Tasks() {
		if task.IsTerminal() && !wasTerminal[task.ID] {
			terminal = append(terminal, task)
		}
	}
	return terminal
}

// matchTask resolves which task a result belongs to: explicit task_id in the
// current block, then an expects match in the current block, then a task
// whose id equals the key. Unmatched results still land in state.
func (g *ChatGuide) matchTask(block *flow.Block, result llm.TaskResult) *flow.Task {
	if result.TaskID != "" {
		if task := block.Task(result.TaskID); task != nil {
			return task
		}
	}
	for _, task := range block.Tasks() {
		if task.ExpectsKey(result.Key) {
			return task
		}
	}
	return block.Task(result.Key)
}

// advanceFlow is the adjustment escape hatch. With force it fails whatever
// is still open in the current block and moves on.
func (g *ChatGuide) advanceFlow(force bool) {
	block := g.plan.CurrentBlock()
	if block == nil {
		return
	}
	if !block.IsComplete() {
		if !force {
			return
		}
		for _, task := range block.Tasks() {
			if !task.IsTerminal() {
				task.Fail()
				g.recorder.ObserveTaskOutcome(task.ID, string(flow.TaskFailed))
			}
		}
	}
	g.plan.Advance()
}

func (g *ChatGuide) advanceWhileComplete() {
	for {
		block := g.plan.CurrentBlock()
		if block == nil || !block.IsComplete() {
			return
		}
		g.plan.Advance()
	}
}

// syncCurrentTask points the execution ledger at the first open task of the
// current block.
func (g *ChatGuide) syncCurrentTask() {
	block := g.plan.CurrentBlock()
	if block == nil {
		g.execution.SetCurrentTask("")
		return
	}
	for _, task := range block.Tasks() {
		if !task.IsTerminal() {
			g.execution.SetCurrentTask(task.ID)
			return
		}
	}
	g.execution.SetCurrentTask("")
}

func (g *ChatGuide) buildPrompt() (string, error) {
	data := prompt.Data{
		Persona:         g.st.ResolveString(g.cfg.Persona()),
		Guardrails:      g.cfg.Guardrails(),
		ToneInstruction: g.tones.Instruction(),
		History:         g.promptHistory(),
		Finished:        g.plan.IsFinished(),
	}

	if block := g.plan.CurrentBlock(); block != nil {
		for _, task := range block.Tasks() {
			if task.IsTerminal() {
				continue
			}
			data.CurrentTasks = append(data.CurrentTasks, g.taskView(task))
		}
	}
	if next := g.plan.Block(g.plan.CurrentIndex() + 1); next != nil {
		for _, task := range next.Tasks() {
			data.UpcomingTasks = append(data.UpcomingTasks, g.taskView(task))
		}
	}
	if g.registry != nil {
		for _, t := range g.registry.List() {
			data.Tools = append(data.Tools, prompt.ToolView{Name: t.Name(), Description: t.Description()})
		}
	}

	return g.builder.Build(data)
}

// promptHistory bounds the transcript for prompt inclusion: by token budget
// when one is configured, by message count otherwise.
func (g *ChatGuide) promptHistory() []contextmgr.Message {
	if g.historyTokens > 0 {
		return g.transcript.WithinBudget(g.historyTokens)
	}
	return g.transcript.Recent(g.historyWindow)
}

func (g *ChatGuide) taskView(task *flow.Task) prompt.TaskView {
	view := prompt.TaskView{
		ID:          task.ID,
		Description: g.st.ResolveString(task.Description),
		Attempts:    task.Attempts(),
		MaxAttempts: task.MaxAttempts,
	}
	for _, exp := range task.Expects {
		view.Expects = append(view.Expects, exp.Key)
	}
	return view
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	return strings.TrimSpace(s) == ""
}
