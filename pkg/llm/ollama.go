package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// OllamaClient drives local models through an Ollama server.
type OllamaClient struct {
	client *api.Client
	model  string
}

// NewOllamaClient creates a client against the given Ollama server URL,
// e.g. "http://localhost:11434". An unparseable URL falls back to the
// default local server.
func NewOllamaClient(hostURL, model string) *OllamaClient {
	parsed, err := url.Parse(hostURL)
	if err != nil || parsed.Host == "" {
		parsed, _ = url.Parse("http://localhost:11434")
	}
	return &OllamaClient{
		client: api.NewClient(parsed, http.DefaultClient),
		model:  model,
	}
}

// Generate implements Client.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (Reply, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
	}

	var response api.ChatResponse
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return Reply{}, fmt.Errorf("ollama call failed: %w", err)
	}
	return ParseReply(response.Message.Content)
}

// ModelName implements Client.
func (c *OllamaClient) ModelName() string { return c.model }
