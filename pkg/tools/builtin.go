package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"chatguide/pkg/logx"
)

const httpGetBodyLimit = 64 * 1024

// Builtins returns the stock tools: state_merge writes its resolved options
// straight into the conversation state, notify emits a log line, and http_get
// fetches a URL. Hosts register these alongside their own tools, or not at all.
func Builtins() []Tool {
	return []Tool{
		&FuncTool{
			ToolName: "state_merge",
			Desc:     "Write the given key/value options into the conversation state.",
			Fn: func(_ context.Context, options map[string]any) (map[string]any, error) {
				return options, nil
			},
		},
		&FuncTool{
			ToolName: "notify",
			Desc:     "Record a notification message for the operator.",
			Fn: func(_ context.Context, options map[string]any) (map[string]any, error) {
				msg, _ := options["message"].(string)
				if msg == "" {
					return nil, fmt.Errorf("notify requires a message option")
				}
				logx.NewLogger("notify").Info("%s", msg)
				return nil, nil
			},
		},
		&FuncTool{
			ToolName: "http_get",
			Desc:     "Fetch a URL and expose the response body as http_body.",
			Fn:       httpGet,
		},
	}
}

// RegisterBuiltins adds the stock tools to a registry.
func RegisterBuiltins(r *Registry) error {
	for _, t := range Builtins() {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func httpGet(ctx context.Context, options map[string]any) (map[string]any, error) {
	url, _ := options["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("http_get requires a url option")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("http_get: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http_get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, httpGetBodyLimit))
	if err != nil {
		return nil, fmt.Errorf("http_get: failed to read body: %w", err)
	}
	return map[string]any{
		"http_status": resp.StatusCode,
		"http_body":   string(body),
	}, nil
}
