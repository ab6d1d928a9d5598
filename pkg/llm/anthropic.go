package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicClient drives Claude models through the official SDK.
type AnthropicClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropicClient creates a Claude-backed client for the given model.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	return &AnthropicClient{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		maxTokens: defaultAnthropicMaxTokens,
	}
}

// Generate implements Client.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (Reply, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return Reply{}, fmt.Errorf("anthropic call failed: %w", err)
	}

	var text string
	for i := range msg.Content {
		block := &msg.Content[i]
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}
	return ParseReply(text)
}

// ModelName implements Client.
func (c *AnthropicClient) ModelName() string { return string(c.model) }
