package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient drives Gemini models through the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	apiKey string
	model  string
}

// NewGeminiClient creates a Gemini-backed client. The underlying SDK client
// needs a context, so construction is deferred to the first Generate call.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{apiKey: apiKey, model: model}
}

// Generate implements Client.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (Reply, error) {
	if c.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return Reply{}, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		c.client = client
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return Reply{}, fmt.Errorf("gemini call failed: %w", err)
	}
	if result == nil {
		return Reply{}, fmt.Errorf("empty response from Gemini")
	}
	return ParseReply(result.Text())
}

// ModelName implements Client.
func (c *GeminiClient) ModelName() string { return c.model }
