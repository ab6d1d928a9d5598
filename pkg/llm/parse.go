package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseReply extracts a Reply from raw model output. Models wrap JSON in
// code fences or preamble text often enough that we locate the outermost
// object rather than demanding a bare document.
func ParseReply(raw string) (Reply, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return Reply{}, fmt.Errorf("%w: no JSON object found", ErrMalformedReply)
	}

	// assistant_reply is required; a pointer distinguishes absent from empty.
	var wire struct {
		AssistantReply *string          `json:"assistant_reply"`
		TaskResults    []TaskResult     `json:"task_results"`
		Tools          []ToolInvocation `json:"tools"`
	}
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if wire.AssistantReply == nil {
		return Reply{}, fmt.Errorf("%w: missing assistant_reply", ErrMalformedReply)
	}
	for i, tc := range wire.Tools {
		if strings.TrimSpace(tc.Tool) == "" {
			return Reply{}, fmt.Errorf("%w: tools[%d] missing tool name", ErrMalformedReply, i)
		}
	}

	return Reply{
		AssistantReply: *wire.AssistantReply,
		TaskResults:    wire.TaskResults,
		Tools:          wire.Tools,
	}, nil
}

// extractJSON returns the first balanced top-level JSON object in s, with
// any markdown code fences stripped first.
func extractJSON(s string) string {
	s = stripFences(s)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop a language tag like "json" on the fence line.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}") {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
