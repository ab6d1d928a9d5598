// Package contextmgr tracks the running conversation transcript and provides
// token-aware windows of it for prompt assembly.
package contextmgr

import (
	"fmt"
	"strings"
	"time"

	"github.com/tiktoken-go/tokenizer"
)

// Message roles as they appear in the transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single transcript entry.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ContextManager owns the ordered transcript and counts tokens with the same
// encoding regardless of provider; GPT-4 encoding is a close enough proxy for
// windowing decisions across all of them.
type ContextManager struct {
	messages []Message
	codec    tokenizer.Codec
}

// NewContextManager creates an empty transcript manager.
func NewContextManager() *ContextManager {
	// Codec construction only fails for unknown models; GPT4 is built in.
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		codec = nil
	}
	return &ContextManager{
		messages: make([]Message, 0),
		codec:    codec,
	}
}

// AddMessage appends a role/content pair to the transcript.
func (cm *ContextManager) AddMessage(role, content string) {
	cm.messages = append(cm.messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}

// AddUser appends a user message.
func (cm *ContextManager) AddUser(content string) { cm.AddMessage(RoleUser, content) }

// AddAssistant appends an assistant message.
func (cm *ContextManager) AddAssistant(content string) { cm.AddMessage(RoleAssistant, content) }

// Messages returns a copy of the full transcript.
func (cm *ContextManager) Messages() []Message {
	out := make([]Message, len(cm.messages))
	copy(out, cm.messages)
	return out
}

// Recent returns the last n messages, or all of them when fewer exist.
func (cm *ContextManager) Recent(n int) []Message {
	if n <= 0 {
		return nil
	}
	start := len(cm.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(cm.messages)-start)
	copy(out, cm.messages[start:])
	return out
}

// WithinBudget returns the longest suffix of the transcript whose combined
// token count fits the budget. A single oversized message still yields that
// one message so the model always sees the latest exchange.
func (cm *ContextManager) WithinBudget(maxTokens int) []Message {
	if maxTokens <= 0 || len(cm.messages) == 0 {
		return nil
	}

	total := 0
	start := len(cm.messages)
	for i := len(cm.messages) - 1; i >= 0; i-- {
		cost := cm.countText(cm.messages[i].Role + cm.messages[i].Content)
		if total+cost > maxTokens && start < len(cm.messages) {
			break
		}
		total += cost
		start = i
	}

	out := make([]Message, len(cm.messages)-start)
	copy(out, cm.messages[start:])
	return out
}

// CountTokens returns the token count of the whole transcript.
func (cm *ContextManager) CountTokens() int {
	total := 0
	for _, m := range cm.messages {
		total += cm.countText(m.Role + m.Content)
	}
	return total
}

func (cm *ContextManager) countText(text string) int {
	if cm.codec != nil {
		if n, err := cm.codec.Count(text); err == nil {
			return n
		}
	}
	// 4 chars per token is the usual fallback estimate.
	return len(text) / 4
}

// Len returns the number of transcript messages.
func (cm *ContextManager) Len() int { return len(cm.messages) }

// Clear drops the transcript.
func (cm *ContextManager) Clear() { cm.messages = cm.messages[:0] }

// Summary renders a one-line description of the transcript, for logs.
func (cm *ContextManager) Summary() string {
	if len(cm.messages) == 0 {
		return "empty transcript"
	}
	counts := make(map[string]int)
	order := make([]string, 0, 3)
	for _, m := range cm.messages {
		if counts[m.Role] == 0 {
			order = append(order, m.Role)
		}
		counts[m.Role]++
	}
	parts := make([]string, 0, len(order))
	for _, role := range order {
		parts = append(parts, fmt.Sprintf("%s: %d", role, counts[role]))
	}
	return fmt.Sprintf("%d messages (%d tokens) - %s",
		len(cm.messages), cm.CountTokens(), strings.Join(parts, ", "))
}
