package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReplyPlainJSON(t *testing.T) {
	reply, err := ParseReply(`{"assistant_reply":"Hi!","task_results":[{"key":"user_name","value":"John","task_id":"get_name"}],"tools":[{"tool":"crm_lookup","options":{"id":"42"}}]}`)
	require.NoError(t, err)
	assert.Equal(t, "Hi!", reply.AssistantReply)
	require.Len(t, reply.TaskResults, 1)
	assert.Equal(t, "user_name", reply.TaskResults[0].Key)
	assert.Equal(t, "John", reply.TaskResults[0].Value)
	assert.Equal(t, "get_name", reply.TaskResults[0].TaskID)
	require.Len(t, reply.Tools, 1)
	assert.Equal(t, "crm_lookup", reply.Tools[0].Tool)
	assert.Equal(t, map[string]any{"id": "42"}, reply.Tools[0].Options)
}

func TestParseReplyCodeFence(t *testing.T) {
	raw := "```json\n{\"assistant_reply\":\"ok\",\"task_results\":[]}\n```"
	reply, err := ParseReply(raw)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.AssistantReply)
}

func TestParseReplySurroundingProse(t *testing.T) {
	raw := "Sure, here is the response:\n{\"assistant_reply\":\"done\"}\nLet me know if you need more."
	reply, err := ParseReply(raw)
	require.NoError(t, err)
	assert.Equal(t, "done", reply.AssistantReply)
}

func TestParseReplyBracesInStrings(t *testing.T) {
	reply, err := ParseReply(`{"assistant_reply":"use {\"x\": 1} as an example"}`)
	require.NoError(t, err)
	assert.Contains(t, reply.AssistantReply, `{"x": 1}`)
}

func TestParseReplyRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"no json here",
		`{"task_results":[]}`,
		`{"assistant_reply": 42broken`,
		`{"assistant_reply":"hi","tools":[{"options":{}}]}`,
	}
	for _, raw := range cases {
		_, err := ParseReply(raw)
		assert.ErrorIs(t, err, ErrMalformedReply, "input: %q", raw)
	}
}

func TestParseReplyEmptyReplyAllowed(t *testing.T) {
	reply, err := ParseReply(`{"assistant_reply":""}`)
	require.NoError(t, err)
	assert.Empty(t, reply.AssistantReply)
}

func TestScriptedClient(t *testing.T) {
	s := Script(
		Reply{AssistantReply: "first"},
		Reply{AssistantReply: "second"},
	)
	r, err := s.Generate(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "first", r.AssistantReply)

	r, err = s.Generate(context.Background(), "p2")
	require.NoError(t, err)
	assert.Equal(t, "second", r.AssistantReply)

	_, err = s.Generate(context.Background(), "p3")
	assert.Error(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3"}, s.Prompts)
}

func TestRetryClientRecovers(t *testing.T) {
	s := &ScriptedClient{
		Replies: []Reply{{}, {AssistantReply: "made it"}},
		Errs:    []error{errors.New("transient"), nil},
	}
	c := WithRetry(s, 3, time.Millisecond)

	reply, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "made it", reply.AssistantReply)
	assert.Equal(t, 2, s.Calls())
}

func TestRetryClientExhausts(t *testing.T) {
	boom := errors.New("down")
	s := &ScriptedClient{
		Replies: make([]Reply, 3),
		Errs:    []error{boom, boom, boom},
	}
	c := WithRetry(s, 3, time.Millisecond)

	_, err := c.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, s.Calls())
}

func TestRetryClientStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &ScriptedClient{
		Replies: make([]Reply, 2),
		Errs:    []error{context.Canceled, nil},
	}
	c := WithRetry(s, 3, time.Millisecond)

	_, err := c.Generate(ctx, "prompt")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, s.Calls())
}
