// Package store persists the conversation identity of each chatbot scope.
package store

import (
	"context"

	"github.com/pkg/errors"
)

// KeyPrefix namespaces stored identities per chatbot.
const KeyPrefix = "chat_conversation_"

// ErrStoreUnavailable is returned by Save when no durable store is attached.
var ErrStoreUnavailable = errors.New("conversation store unavailable")

// ConversationStore keeps one opaque conversation identifier per chatbot.
//
// Load never fails: a store that cannot be read reports the identity as
// absent. Save overwrites and is visible to the next Load right away.
// Identities have no expiry and are never deleted by the widget.
type ConversationStore interface {
	Load(ctx context.Context, chatbotID string) (string, bool)
	Save(ctx context.Context, chatbotID, conversationID string) error
}

// Key returns the storage key for a chatbot scope.
func Key(chatbotID string) string {
	return KeyPrefix + chatbotID
}

// Unavailable stands in for a missing durable store.
type Unavailable struct{}

var _ ConversationStore = Unavailable{}

// Load always reports the identity as absent.
func (Unavailable) Load(context.Context, string) (string, bool) {
	return "", false
}

// Save always fails with ErrStoreUnavailable.
func (Unavailable) Save(context.Context, string, string) error {
	return ErrStoreUnavailable
}
