package store

import (
	"context"
	"sync"
)

// MemoryStore keeps identities for the life of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]string
}

var _ ConversationStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

// Load returns the identity stored for chatbotID.
func (s *MemoryStore) Load(_ context.Context, chatbotID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.items[Key(chatbotID)]
	return id, ok
}

// Save overwrites the identity stored for chatbotID.
func (s *MemoryStore) Save(_ context.Context, chatbotID, conversationID string) error {
	s.mu.Lock()
	s.items[Key(chatbotID)] = conversationID
	s.mu.Unlock()
	return nil
}
