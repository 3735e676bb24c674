package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/botura-widget/internal/model/chat"
	"github.com/zhouzirui/botura-widget/internal/model/chatbot"
	"github.com/zhouzirui/botura-widget/internal/service/ai"
	chatservice "github.com/zhouzirui/botura-widget/internal/service/chat"
)

const botID = "db0274b1-784f-4730-a225-d43d86444745"

type failingReplier struct{}

func (failingReplier) Reply(context.Context, chatbot.Profile, []chat.Message, string) (string, error) {
	return "", errors.New("model down")
}

func setupRouter(replier ai.Replier) (*chi.Mux, *chatservice.Service) {
	chatSvc := chatservice.NewService()
	handler := New(chatSvc, chatbot.NewMemoryStore(chatbot.Seed()), replier, zerolog.Nop())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc
}

func post(t *testing.T, r http.Handler, chatbotID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/chatbots/"+chatbotID+"/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestChatStartsAndContinuesConversation(t *testing.T) {
	r, chatSvc := setupRouter(nil)

	rec := post(t, r, botID, map[string]any{"message": " Hallo ", "conversation_id": nil})
	require.Equal(t, http.StatusOK, rec.Code)

	var first chat.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.NotEmpty(t, first.ConversationID)
	assert.Contains(t, first.Text(), "Hallo")

	rec = post(t, r, botID, map[string]any{"message": "Noch da?", "conversation_id": first.ConversationID})
	require.Equal(t, http.StatusOK, rec.Code)

	var second chat.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.ConversationID, second.ConversationID)

	transcript, err := chatSvc.LoadTranscript(context.Background(), first.ConversationID)
	require.NoError(t, err)
	require.Len(t, transcript, 4)
	assert.Equal(t, "Hallo", transcript[0].Content)
}

func TestChatStaleConversationStartsNew(t *testing.T) {
	r, _ := setupRouter(nil)

	rec := post(t, r, botID, map[string]any{"message": "Hi", "conversation_id": "stale"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chat.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEqual(t, "stale", resp.ConversationID)
	assert.NotEmpty(t, resp.ConversationID)
}

func TestChatRejectsBadRequests(t *testing.T) {
	r, _ := setupRouter(nil)

	assert.Equal(t, http.StatusBadRequest, post(t, r, botID, map[string]any{"message": "   "}).Code)
	assert.Equal(t, http.StatusNotFound, post(t, r, "unknown", map[string]any{"message": "Hi"}).Code)

	req := httptest.NewRequest(http.MethodPost, "/chatbots/"+botID+"/chat", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatReplierFailure(t *testing.T) {
	r, _ := setupRouter(failingReplier{})

	rec := post(t, r, botID, map[string]any{"message": "Hi"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"response"`)
}
