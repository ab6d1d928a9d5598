package guide

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatguide/pkg/flow"
	"chatguide/pkg/llm"
	"chatguide/pkg/tools"
)

const codeGuide = `
plan:
  - [get_code]
tasks:
  get_code:
    description: Ask for the 4-digit confirmation code.
    max_attempts: 3
    expects:
      - key: code
        type: pattern
        pattern: "^\\d{4}$"
`

func TestMaxAttemptsFailsTaskAndUnblocksPlan(t *testing.T) {
	cfg := mustGuide(t, codeGuide)
	bad := llm.Reply{AssistantReply: "Hmm, that does not look right.", TaskResults: []llm.TaskResult{
		{Key: "code", Value: "not-a-code"},
	}}
	client := llm.Script(bad, bad, bad)
	g, err := New(cfg, client)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		g.AddUserMessage("banana")
		_, err = g.Chat(context.Background())
		require.NoError(t, err)
	}

	// Invalid values were never written, and the attempt budget converted
	// the stuck task into a failed one so the plan could finish.
	assert.False(t, g.State().Has("code"))
	task := g.plan.Task("get_code")
	require.NotNil(t, task)
	assert.Equal(t, flow.TaskFailed, task.Status())
	assert.True(t, g.IsFinished())
}

func TestTurnFailureLeavesStateUntouched(t *testing.T) {
	cfg := mustGuide(t, onboardingGuide)
	client := &llm.ScriptedClient{
		Replies: []llm.Reply{{}, {AssistantReply: "Hi"}},
		Errs:    []error{errors.New("provider down"), nil},
	}
	g, err := New(cfg, client)
	require.NoError(t, err)

	g.AddUserMessage("hello")
	before, err := g.Dump()
	require.NoError(t, err)

	_, err = g.Chat(context.Background())
	require.Error(t, err)

	after, err := g.Dump()
	require.NoError(t, err)
	assert.Equal(t, before.Variables, after.Variables)
	assert.Equal(t, before.Execution, after.Execution)
	assert.Equal(t, before.Audit, after.Audit)
	assert.Equal(t, 0, g.Turns())
	assert.Equal(t, flow.ExecAwaitingInput, g.Status())

	// The retry succeeds and the turn completes normally.
	reply, err := g.Chat(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hi", reply.AssistantReply)
	assert.Equal(t, 1, g.Turns())
}

const silentGuide = `
plan:
  - [classify_intent]
  - [answer]
tasks:
  classify_intent:
    description: Classify the user's intent.
    silent: true
    expects: [intent]
  answer:
    description: Answer based on {{intent}}.
`

func TestSilentTaskChainsSecondPass(t *testing.T) {
	cfg := mustGuide(t, silentGuide)
	client := llm.Script(
		llm.Reply{AssistantReply: "(internal)", TaskResults: []llm.TaskResult{
			{Key: "intent", Value: "refund"},
		}},
		llm.Reply{AssistantReply: "Happy to help with your refund."},
	)
	g, err := New(cfg, client)
	require.NoError(t, err)

	g.AddUserMessage("I want my money back")
	reply, err := g.Chat(context.Background())
	require.NoError(t, err)

	// The silent pass never surfaced; the caller sees only the second reply.
	assert.Equal(t, "Happy to help with your refund.", reply.AssistantReply)
	assert.Equal(t, 2, client.Calls())
	assert.Equal(t, "refund", g.State().Get("intent", nil))

	// Exactly one assistant message was appended for the whole turn.
	assistant := 0
	for _, m := range g.transcript.Messages() {
		if m.Role == "assistant" {
			assistant++
		}
	}
	assert.Equal(t, 1, assistant)

	// The second pass saw the resolved intent in the task description.
	assert.Contains(t, client.Prompts[1], "Answer based on refund.")
}

const silentLoopGuide = `
plan:
  - [probe]
  - [wrap_up]
tasks:
  probe:
    description: Silently probe.
    silent: true
  wrap_up:
    description: Silently wrap up.
    silent: true
`

func TestSilentChainIsBounded(t *testing.T) {
	cfg := mustGuide(t, silentLoopGuide)
	silent := llm.Reply{AssistantReply: "..."}
	client := llm.Script(silent, silent, silent, silent, silent)
	g, err := New(cfg, client, WithMaxSilentChain(2))
	require.NoError(t, err)

	g.AddUserMessage("hi")
	_, err = g.Chat(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, client.Calls(), 2)
}

const vipGuide = `
plan:
  - [get_tier]
  - [farewell]
tasks:
  get_tier:
    description: Ask for the loyalty tier.
    expects: [tier]
  farewell:
    description: Say goodbye.
tones:
  vip: Roll out the red carpet.
adjustments:
  - name: vip
    when:
      eq: {key: tier, value: gold}
    actions:
      - type: tone.set
        tones: [vip]
`

func TestAdjustmentFiresOnceAcrossTurns(t *testing.T) {
	cfg := mustGuide(t, vipGuide)
	client := llm.Script(
		llm.Reply{AssistantReply: "Gold, lovely.", TaskResults: []llm.TaskResult{
			{Key: "tier", Value: "gold"},
		}},
		llm.Reply{AssistantReply: "Goodbye!"},
	)
	g, err := New(cfg, client)
	require.NoError(t, err)

	g.AddUserMessage("I'm gold tier")
	_, err = g.Chat(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"vip"}, g.tones.Active())

	// Externally overwrite the tone; the rule must not re-fire.
	g.tones.Set(nil)
	g.AddUserMessage("bye")
	_, err = g.Chat(context.Background())
	require.NoError(t, err)
	assert.Empty(t, g.tones.Active())
}

const toolGuide = `
plan:
  - [get_name]
  - [confirm]
tasks:
  get_name:
    description: Ask for the guest's name.
    expects: [user_name]
    tools:
      - tool: crm_lookup
        options:
          name: "{{user_name}}"
  confirm:
    description: Confirm the visit count.
adjustments:
  - name: frequent_guest
    when:
      gt: {key: visits, value: 5}
    actions:
      - type: state.set
        key: frequent
        value: true
`

func TestTaskToolsRunBeforeAdjustments(t *testing.T) {
	cfg := mustGuide(t, toolGuide)

	registry := tools.NewRegistry()
	var lookups []map[string]any
	require.NoError(t, registry.Register(&tools.FuncTool{
		ToolName: "crm_lookup",
		Desc:     "Look up the guest record.",
		Fn: func(_ context.Context, options map[string]any) (map[string]any, error) {
			lookups = append(lookups, options)
			return map[string]any{"visits": 9}, nil
		},
	}))

	client := llm.Script(
		llm.Reply{AssistantReply: "Welcome back!", TaskResults: []llm.TaskResult{
			{Key: "user_name", Value: "Ada"},
		}},
	)
	g, err := New(cfg, client, WithTools(registry))
	require.NoError(t, err)

	g.AddUserMessage("I'm Ada")
	_, err = g.Chat(context.Background())
	require.NoError(t, err)

	// Tool options resolved against the value written in the same pass.
	require.Len(t, lookups, 1)
	assert.Equal(t, "Ada", lookups[0]["name"])

	// The adjustment saw the tool's write in the same turn.
	assert.Equal(t, 9, g.State().Get("visits", nil))
	assert.Equal(t, true, g.State().Get("frequent", nil))
}

func TestPlanMonotonicWithoutJumps(t *testing.T) {
	cfg := mustGuide(t, onboardingGuide)
	client := llm.Script(
		llm.Reply{AssistantReply: "Hi"},
		llm.Reply{AssistantReply: "Still waiting for a name."},
		llm.Reply{AssistantReply: "Thanks!", TaskResults: []llm.TaskResult{
			{Key: "user_name", Value: "Ada"},
		}},
	)
	g, err := New(cfg, client)
	require.NoError(t, err)

	last := g.plan.CurrentIndex()
	for i := 0; i < 3; i++ {
		g.AddUserMessage("...")
		_, err = g.Chat(context.Background())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, g.plan.CurrentIndex(), last)
		last = g.plan.CurrentIndex()
	}
}

func TestHistoryTokenBudgetBoundsPrompt(t *testing.T) {
	cfg := mustGuide(t, onboardingGuide)
	client := llm.Script(llm.Reply{AssistantReply: "Hi!"})
	g, err := New(cfg, client, WithHistoryTokens(8))
	require.NoError(t, err)

	g.AddUserMessage("this opening line rambles on long enough to overflow the token budget by itself")
	g.AddAssistantMessage("noted")
	g.AddUserMessage("short hello")

	_, err = g.Chat(context.Background())
	require.NoError(t, err)

	require.Len(t, client.Prompts, 1)
	assert.Contains(t, client.Prompts[0], "short hello")
	assert.NotContains(t, client.Prompts[0], "overflow the token budget")
}
