package chat

// ChatRequest is the body of POST /api/v1/chatbots/{chatbotId}/chat.
// ConversationID marshals to null when the visitor has no stored identity.
type ChatRequest struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id"`
}

// ChatResponse is the backend's reply. Response is a pointer so that a body
// without the field can be told apart from an empty answer.
type ChatResponse struct {
	Response       *string `json:"response"`
	ConversationID string  `json:"conversation_id"`
}

// Text returns the reply text, or "" when the field was absent.
func (r *ChatResponse) Text() string {
	if r == nil || r.Response == nil {
		return ""
	}
	return *r.Response
}
