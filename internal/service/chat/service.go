// Package chat keeps the development backend's conversations in memory.
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/zhouzirui/botura-widget/internal/model/chat"
)

var (
	ErrChatbotRequired      = errors.New("chatbot id is required")
	ErrConversationNotFound = errors.New("conversation not found")
)

// Service encapsulates conversation state management.
type Service struct {
	mu            sync.RWMutex
	conversations map[string]chat.Conversation
	messages      map[string][]chat.Message
	now           func() time.Time
}

// NewService bootstraps an empty in-memory service.
func NewService() *Service {
	return &Service{
		conversations: make(map[string]chat.Conversation),
		messages:      make(map[string][]chat.Message),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// ResolveConversation returns the conversation named by conversationID when it
// exists and belongs to chatbotID. Anything else starts a new conversation;
// created reports which happened.
func (s *Service) ResolveConversation(_ context.Context, chatbotID string, conversationID *string) (conv chat.Conversation, created bool, err error) {
	if chatbotID == "" {
		return chat.Conversation{}, false, ErrChatbotRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if conversationID != nil {
		if existing, ok := s.conversations[*conversationID]; ok && existing.ChatbotID == chatbotID {
			return existing, false, nil
		}
	}

	conv = chat.Conversation{
		ID:        uuid.NewString(),
		ChatbotID: chatbotID,
		CreatedAt: s.now(),
	}
	s.conversations[conv.ID] = conv
	s.messages[conv.ID] = make([]chat.Message, 0, 16)
	return conv, true, nil
}

// GetConversation retrieves a conversation by identifier.
func (s *Service) GetConversation(_ context.Context, conversationID string) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return chat.Conversation{}, ErrConversationNotFound
	}
	return conv, nil
}

// SaveMessage appends a message to the conversation history.
func (s *Service) SaveMessage(_ context.Context, conversationID string, message chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return errors.Wrap(ErrConversationNotFound, conversationID)
	}

	if message.Timestamp.IsZero() {
		message.Timestamp = s.now()
	}
	s.messages[conversationID] = append(s.messages[conversationID], message)
	return nil
}

// LoadTranscript returns a copy of the stored messages.
func (s *Service) LoadTranscript(_ context.Context, conversationID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[conversationID]
	if !ok {
		return nil, errors.Wrap(ErrConversationNotFound, conversationID)
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}
