package guide

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatguide/pkg/flow"
	"chatguide/pkg/llm"
)

func TestDumpRestoreRoundTrip(t *testing.T) {
	cfg := mustGuide(t, vipGuide)
	client := llm.Script(
		llm.Reply{AssistantReply: "Gold, lovely.", TaskResults: []llm.TaskResult{
			{Key: "tier", Value: "gold"},
		}},
	)
	g, err := New(cfg, client)
	require.NoError(t, err)

	g.AddUserMessage("I'm gold tier")
	_, err = g.Chat(context.Background())
	require.NoError(t, err)

	snap, err := g.Dump()
	require.NoError(t, err)

	// Round-trip through JSON the way a session store would.
	data, err := MarshalSnapshot(snap)
	require.NoError(t, err)
	decoded, err := UnmarshalSnapshot(data)
	require.NoError(t, err)

	restored, err := New(cfg, llm.Script(llm.Reply{AssistantReply: "Goodbye!"}))
	require.NoError(t, err)
	require.NoError(t, restored.RestoreFromDump(decoded))

	assert.Equal(t, "gold", restored.State().Get("tier", nil))
	assert.Equal(t, []string{"vip"}, restored.tones.Active())
	assert.Equal(t, g.Turns(), restored.Turns())
	assert.Equal(t, g.CurrentTask(), restored.CurrentTask())
	assert.Equal(t, g.transcript.Len(), restored.transcript.Len())
	assert.Equal(t, g.Audit().Len(), restored.Audit().Len())

	// The cursor was re-derived from the completed set.
	assert.Equal(t, g.plan.CurrentIndex(), restored.plan.CurrentIndex())
	assert.True(t, restored.plan.Task("get_tier").IsCompleted())

	// A restored fired rule must not fire again.
	restored.tones.Set(nil)
	g2 := restored
	g2.AddUserMessage("bye")
	_, err = g2.Chat(context.Background())
	require.NoError(t, err)
	assert.Empty(t, g2.tones.Active())
	assert.True(t, g2.IsFinished())
}

const tonedGuide = `
plan:
  - [farewell]
tasks:
  farewell:
    description: Say goodbye.
tones:
  neutral: Keep it businesslike.
tone: [neutral]
`

func TestRestoreKeepsClearedTones(t *testing.T) {
	cfg := mustGuide(t, tonedGuide)
	g, err := New(cfg, llm.Script())
	require.NoError(t, err)

	// The session cleared its active tones before being dumped.
	g.tones.Set(nil)
	snap, err := g.Dump()
	require.NoError(t, err)
	assert.Empty(t, snap.Tones)

	data, err := MarshalSnapshot(snap)
	require.NoError(t, err)
	decoded, err := UnmarshalSnapshot(data)
	require.NoError(t, err)

	restored, err := New(cfg, llm.Script())
	require.NoError(t, err)
	assert.Equal(t, []string{"neutral"}, restored.tones.Active())

	// Restore must not resurrect the config-initial tones.
	require.NoError(t, restored.RestoreFromDump(decoded))
	assert.Empty(t, restored.tones.Active())
}

func TestRestoreEmptySnapshot(t *testing.T) {
	cfg := mustGuide(t, onboardingGuide)
	g, err := New(cfg, llm.Script())
	require.NoError(t, err)

	require.NoError(t, g.RestoreFromDump(Snapshot{}))
	assert.Equal(t, 0, g.Turns())
	assert.Equal(t, "greet", g.CurrentTask())
	assert.Equal(t, flow.ExecIdle, g.Status())
	assert.Zero(t, g.transcript.Len())
}
