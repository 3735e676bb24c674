package chat

import "time"

// Conversation is a backend-side thread of turns owned by one chatbot.
type Conversation struct {
	ID        string    `json:"id"`
	ChatbotID string    `json:"chatbotId"`
	CreatedAt time.Time `json:"createdAt"`
}
