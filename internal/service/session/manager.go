// Package session runs the send/receive cycle of one mounted widget.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/botura-widget/internal/model/chat"
	"github.com/zhouzirui/botura-widget/internal/model/widget"
	"github.com/zhouzirui/botura-widget/internal/store"
)

// ApologyMessage is shown to the visitor whenever a send fails.
const ApologyMessage = "Entschuldigung, es gab einen Fehler. Bitte versuche es erneut."

var (
	// ErrEmptyMessage rejects sends whose text is blank after trimming.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrSendInFlight rejects sends while a previous one is still waiting for the backend.
	ErrSendInFlight = errors.New("a message is already being sent")
)

// Backend is the remote chat endpoint.
type Backend interface {
	Chat(ctx context.Context, chatbotID string, req chat.ChatRequest) (*chat.ChatResponse, error)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// Manager owns the message list and loading flag of one widget instance.
// At most one backend request is in flight at any time; sends arriving
// meanwhile are dropped, not queued.
type Manager struct {
	cfg     widget.Config
	backend Backend
	store   store.ConversationStore
	now     func() time.Time
	logger  zerolog.Logger

	mu             sync.Mutex
	messages       []chat.Message
	loading        bool
	conversationID string
	subscribers    map[int]chan chat.State
	nextSubID      int
	closed         bool

	inflight sync.WaitGroup
}

// NewManager builds a Manager and reads the stored conversation identity once.
// A nil store behaves like a missing durable store.
func NewManager(ctx context.Context, cfg widget.Config, backend Backend, conversations store.ConversationStore, opts ...Option) *Manager {
	if conversations == nil {
		conversations = store.Unavailable{}
	}
	m := &Manager{
		cfg:         cfg,
		backend:     backend,
		store:       conversations,
		now:         time.Now,
		logger:      zerolog.Nop(),
		subscribers: make(map[int]chan chat.State),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With().Str("chatbot_id", cfg.ChatbotID).Logger()

	if id, ok := m.store.Load(ctx, cfg.ChatbotID); ok && id != "" {
		m.conversationID = id
		m.logger.Debug().Str("conversation_id", id).Msg("resuming stored conversation")
	}
	return m
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() widget.Config {
	return m.cfg
}

// Send appends the visitor's message and starts one backend request.
//
// The user message is in the state before Send returns. The request is
// detached from ctx's cancellation: once issued it always completes with an
// assistant message (the answer or ApologyMessage).
func (m *Manager) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	m.mu.Lock()
	if m.loading {
		m.mu.Unlock()
		return ErrSendInFlight
	}
	m.loading = true
	m.messages = append(m.messages, chat.Message{Role: chat.RoleUser, Content: text, Timestamp: m.now()})
	conversationID := m.conversationID
	m.inflight.Add(1)
	m.publishLocked()
	m.mu.Unlock()

	go m.exchange(context.WithoutCancel(ctx), text, conversationID)
	return nil
}

func (m *Manager) exchange(ctx context.Context, text, conversationID string) {
	defer m.inflight.Done()

	req := chat.ChatRequest{Message: text}
	if conversationID != "" {
		req.ConversationID = &conversationID
	}

	resp, err := m.backend.Chat(ctx, m.cfg.ChatbotID, req)
	if err != nil {
		m.logger.Error().Err(err).Msg("chat request failed")
		m.complete(ApologyMessage, "")
		return
	}

	newID := resp.ConversationID
	if newID != "" {
		if err := m.store.Save(ctx, m.cfg.ChatbotID, newID); err != nil {
			m.logger.Warn().Err(err).Str("conversation_id", newID).Msg("persist conversation id failed")
		}
	}
	m.complete(resp.Text(), newID)
}

// complete appends the assistant turn and returns the manager to idle.
func (m *Manager) complete(content, conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, chat.Message{Role: chat.RoleAssistant, Content: content, Timestamp: m.now()})
	if conversationID != "" {
		m.conversationID = conversationID
	}
	m.loading = false
	m.publishLocked()
}

// State returns a snapshot of the session.
func (m *Manager) State() chat.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// IsLoading reports whether a request is in flight.
func (m *Manager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// ConversationID returns the identity sent with the next request, or "".
func (m *Manager) ConversationID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conversationID
}

// Wait blocks until no request is in flight.
func (m *Manager) Wait() {
	m.inflight.Wait()
}

// Subscribe returns a channel that receives a snapshot after every state
// change, starting with the current state. Slow readers only see the latest
// snapshot. The returned func cancels the subscription.
func (m *Manager) Subscribe() (<-chan chat.State, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan chat.State, 1)
	if m.closed {
		close(ch)
		return ch, func() {}
	}

	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = ch
	ch <- m.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if sub, ok := m.subscribers[id]; ok {
				delete(m.subscribers, id)
				close(sub)
			}
		})
	}
}

// Close waits for the in-flight request and ends all subscriptions.
func (m *Manager) Close() {
	m.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for id, ch := range m.subscribers {
		delete(m.subscribers, id)
		close(ch)
	}
}

func (m *Manager) snapshotLocked() chat.State {
	return chat.State{
		Messages:       append([]chat.Message(nil), m.messages...),
		IsLoading:      m.loading,
		ConversationID: m.conversationID,
	}
}

// publishLocked hands the current snapshot to every subscriber, replacing
// any snapshot the subscriber has not read yet.
func (m *Manager) publishLocked() {
	if len(m.subscribers) == 0 {
		return
	}
	state := m.snapshotLocked()
	for _, ch := range m.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- state
	}
}
