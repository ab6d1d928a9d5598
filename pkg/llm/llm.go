// Package llm defines the model boundary: a prompt string goes out, a
// structured reply comes back. Providers differ only in transport; the reply
// contract and its validation live here.
package llm

import (
	"context"
	"errors"
)

// TaskResult is one extracted key/value pair from the model. TaskID is the
// model's optional attribution of which task the value satisfies.
type TaskResult struct {
	Key    string `json:"key"`
	Value  any    `json:"value"`
	TaskID string `json:"task_id,omitempty"`
}

// ToolInvocation is a model-requested tool call.
type ToolInvocation struct {
	Tool    string         `json:"tool"`
	Options map[string]any `json:"options,omitempty"`
}

// Reply is the structured turn output. AssistantReply is always present;
// TaskResults and Tools may be empty.
type Reply struct {
	AssistantReply string           `json:"assistant_reply"`
	TaskResults    []TaskResult     `json:"task_results,omitempty"`
	Tools          []ToolInvocation `json:"tools,omitempty"`
}

// ErrMalformedReply marks replies that fail the structural contract. Hosts
// treat it as a recoverable turn failure, never a crash.
var ErrMalformedReply = errors.New("malformed model reply")

// Client is the injected model boundary. Generate blocks until the provider
// answers or ctx is done.
type Client interface {
	Generate(ctx context.Context, prompt string) (Reply, error)
	ModelName() string
}
