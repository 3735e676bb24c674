package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/botura-widget/internal/model/chat"
	"github.com/zhouzirui/botura-widget/internal/model/widget"
	"github.com/zhouzirui/botura-widget/internal/service/backend"
	"github.com/zhouzirui/botura-widget/internal/store"
)

type reply struct {
	resp *chat.ChatResponse
	err  error
}

// fakeBackend records requests and answers each one with the next reply
// pushed onto its channel.
type fakeBackend struct {
	mu       sync.Mutex
	requests []chat.ChatRequest
	started  chan struct{}
	replies  chan reply
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		started: make(chan struct{}, 16),
		replies: make(chan reply, 16),
	}
}

func (f *fakeBackend) Chat(ctx context.Context, chatbotID string, req chat.ChatRequest) (*chat.ChatResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	f.started <- struct{}{}

	r := <-f.replies
	return r.resp, r.err
}

func (f *fakeBackend) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func answer(text, conversationID string) reply {
	return reply{resp: &chat.ChatResponse{Response: &text, ConversationID: conversationID}}
}

func testConfig() widget.Config {
	return widget.Config{ChatbotID: "abc", APIBaseURL: widget.DefaultAPIBaseURL}
}

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

func TestSendSuccessScenario(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend()
	conversations := store.NewMemoryStore()
	m := NewManager(ctx, testConfig(), be, conversations, WithClock(fixedClock()))

	be.replies <- answer("Hi!", "c1")
	require.NoError(t, m.Send(ctx, "Hello"))
	m.Wait()

	state := m.State()
	require.Len(t, state.Messages, 2)
	assert.Equal(t, chat.RoleUser, state.Messages[0].Role)
	assert.Equal(t, "Hello", state.Messages[0].Content)
	assert.Equal(t, chat.RoleAssistant, state.Messages[1].Role)
	assert.Equal(t, "Hi!", state.Messages[1].Content)
	assert.False(t, state.IsLoading)

	id, ok := conversations.Load(ctx, "abc")
	require.True(t, ok)
	assert.Equal(t, "c1", id)
	assert.Equal(t, "c1", m.ConversationID())

	require.Len(t, be.requests, 1)
	assert.Nil(t, be.requests[0].ConversationID)
}

func TestSendAppendsUserMessageBeforeBackendCall(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend()
	m := NewManager(ctx, testConfig(), be, store.NewMemoryStore())

	require.NoError(t, m.Send(ctx, "  Hello  "))

	state := m.State()
	require.Len(t, state.Messages, 1)
	assert.Equal(t, "Hello", state.Messages[0].Content)
	assert.True(t, state.IsLoading)

	<-be.started
	be.replies <- answer("Hi!", "")
	m.Wait()
	assert.False(t, m.IsLoading())
}

func TestSendWhileInFlightIsDropped(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend()
	m := NewManager(ctx, testConfig(), be, store.NewMemoryStore())

	require.NoError(t, m.Send(ctx, "first"))
	<-be.started

	err := m.Send(ctx, "second")
	require.ErrorIs(t, err, ErrSendInFlight)
	assert.Len(t, m.State().Messages, 1)

	be.replies <- answer("one", "")
	m.Wait()

	assert.Equal(t, 1, be.requestCount())
	state := m.State()
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "first", state.Messages[0].Content)
	assert.Equal(t, "one", state.Messages[1].Content)
}

func TestSendEmptyIsRejected(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend()
	m := NewManager(ctx, testConfig(), be, store.NewMemoryStore())

	for _, text := range []string{"", "   ", "\n\t"} {
		require.ErrorIs(t, m.Send(ctx, text), ErrEmptyMessage)
	}
	assert.Empty(t, m.State().Messages)
	assert.False(t, m.IsLoading())
	assert.Zero(t, be.requestCount())
}

func TestSendFailureAppendsApology(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend()
	conversations := store.NewMemoryStore()
	require.NoError(t, conversations.Save(ctx, "abc", "old"))
	m := NewManager(ctx, testConfig(), be, conversations)

	be.replies <- reply{err: errors.Wrap(backend.ErrBadResponse, "status 500")}
	require.NoError(t, m.Send(ctx, "Hello"))
	m.Wait()

	state := m.State()
	require.Len(t, state.Messages, 2)
	assert.Equal(t, chat.RoleUser, state.Messages[0].Role)
	assert.Equal(t, chat.RoleAssistant, state.Messages[1].Role)
	assert.Equal(t, ApologyMessage, state.Messages[1].Content)
	assert.False(t, state.IsLoading)

	id, _ := conversations.Load(ctx, "abc")
	assert.Equal(t, "old", id, "store unchanged on failure")
	assert.Equal(t, "old", m.ConversationID())
}

func TestSendAfterFailureIsAccepted(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend()
	m := NewManager(ctx, testConfig(), be, store.NewMemoryStore())

	be.replies <- reply{err: backend.ErrNetwork}
	require.NoError(t, m.Send(ctx, "one"))
	m.Wait()

	be.replies <- answer("two back", "c9")
	require.NoError(t, m.Send(ctx, "two"))
	m.Wait()

	contents := make([]string, 0, 4)
	for _, msg := range m.State().Messages {
		contents = append(contents, msg.Content)
	}
	assert.Equal(t, []string{"one", ApologyMessage, "two", "two back"}, contents)
}

func TestStoredIdentityIsSentAndReplaced(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend()
	conversations := store.NewMemoryStore()
	require.NoError(t, conversations.Save(ctx, "abc", "c1"))

	m := NewManager(ctx, testConfig(), be, conversations)
	assert.Equal(t, "c1", m.ConversationID())

	be.replies <- answer("ok", "c2")
	require.NoError(t, m.Send(ctx, "Hello"))
	m.Wait()

	require.NotNil(t, be.requests[0].ConversationID)
	assert.Equal(t, "c1", *be.requests[0].ConversationID)
	id, _ := conversations.Load(ctx, "abc")
	assert.Equal(t, "c2", id)
}

func TestSendIgnoresCallerCancellation(t *testing.T) {
	be := newFakeBackend()
	m := NewManager(context.Background(), testConfig(), be, store.NewMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Send(ctx, "Hello"))
	<-be.started
	cancel()

	be.replies <- answer("still here", "")
	m.Wait()
	assert.Equal(t, "still here", m.State().Messages[1].Content)
}

func TestSaveFailureStillUpdatesIdentity(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend()
	m := NewManager(ctx, testConfig(), be, nil)

	be.replies <- answer("Hi!", "c1")
	require.NoError(t, m.Send(ctx, "Hello"))
	m.Wait()

	assert.Equal(t, "c1", m.ConversationID())
	assert.Len(t, m.State().Messages, 2)
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	ctx := context.Background()
	be := newFakeBackend()
	m := NewManager(ctx, testConfig(), be, store.NewMemoryStore())

	updates, cancel := m.Subscribe()
	defer cancel()

	initial := <-updates
	assert.Empty(t, initial.Messages)
	assert.False(t, initial.IsLoading)

	require.NoError(t, m.Send(ctx, "Hello"))
	sending := <-updates
	assert.True(t, sending.IsLoading)
	assert.Len(t, sending.Messages, 1)

	be.replies <- answer("Hi!", "c1")
	m.Wait()
	done := <-updates
	assert.False(t, done.IsLoading)
	assert.Len(t, done.Messages, 2)
	assert.Equal(t, "c1", done.ConversationID)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	ctx := context.Background()
	m := NewManager(ctx, testConfig(), newFakeBackend(), store.NewMemoryStore())

	updates, cancel := m.Subscribe()
	<-updates
	m.Close()

	_, open := <-updates
	assert.False(t, open)
	cancel()

	late, _ := m.Subscribe()
	_, open = <-late
	assert.False(t, open)
}
