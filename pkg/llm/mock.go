package llm

import (
	"context"
	"fmt"
)

// ScriptedClient replays canned replies in order. Tests use it to drive the
// engine without a live provider; it records every prompt it was given.
type ScriptedClient struct {
	Replies []Reply
	Errs    []error
	Prompts []string

	next int
}

// Script builds a ScriptedClient from replies alone.
func Script(replies ...Reply) *ScriptedClient {
	return &ScriptedClient{Replies: replies}
}

// Generate implements Client. Errs[i], when set, takes precedence over
// Replies[i] for the i-th call. Running past the script is an error.
func (s *ScriptedClient) Generate(_ context.Context, prompt string) (Reply, error) {
	s.Prompts = append(s.Prompts, prompt)
	i := s.next
	s.next++

	if i < len(s.Errs) && s.Errs[i] != nil {
		return Reply{}, s.Errs[i]
	}
	if i < len(s.Replies) {
		return s.Replies[i], nil
	}
	return Reply{}, fmt.Errorf("scripted client exhausted after %d calls", i)
}

// ModelName implements Client.
func (s *ScriptedClient) ModelName() string { return "scripted" }

// Calls returns how many times Generate ran.
func (s *ScriptedClient) Calls() int { return s.next }

// OfflineClient cycles through canned replies forever, so the CLI can run a
// guide without any provider configured.
type OfflineClient struct {
	replies []Reply
	next    int
}

// NewOfflineClient builds an offline client. With no replies it acknowledges
// every prompt with a fixed line.
func NewOfflineClient(replies ...Reply) *OfflineClient {
	if len(replies) == 0 {
		replies = []Reply{{AssistantReply: "(offline) Noted. No model is configured, so nothing was extracted."}}
	}
	return &OfflineClient{replies: replies}
}

// Generate implements Client.
func (o *OfflineClient) Generate(_ context.Context, _ string) (Reply, error) {
	r := o.replies[o.next%len(o.replies)]
	o.next++
	return r, nil
}

// ModelName implements Client.
func (o *OfflineClient) ModelName() string { return "offline" }
