package chat

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a conversation. Once appended it is never changed.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// State is a point-in-time snapshot of a widget session.
type State struct {
	Messages       []Message `json:"messages"`
	IsLoading      bool      `json:"isLoading"`
	ConversationID string    `json:"conversationId,omitempty"`
}
