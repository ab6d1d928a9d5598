package contextmgr

import (
	"encoding/json"
	"fmt"
	"time"
)

// serializedMessage keeps timestamps as Unix seconds for compact dumps.
type serializedMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

type serializedTranscript struct {
	Messages []serializedMessage `json:"messages"`
}

// Serialize converts the transcript to JSON for session dumps.
func (cm *ContextManager) Serialize() ([]byte, error) {
	st := serializedTranscript{
		Messages: make([]serializedMessage, len(cm.messages)),
	}
	for i, m := range cm.messages {
		st.Messages[i] = serializedMessage{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp.Unix(),
		}
	}
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transcript: %w", err)
	}
	return data, nil
}

// Deserialize replaces the transcript with the serialized one.
func (cm *ContextManager) Deserialize(data []byte) error {
	var st serializedTranscript
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	cm.messages = make([]Message, len(st.Messages))
	for i, sm := range st.Messages {
		cm.messages[i] = Message{
			Role:      sm.Role,
			Content:   sm.Content,
			Timestamp: time.Unix(sm.Timestamp, 0).UTC(),
		}
	}
	return nil
}
