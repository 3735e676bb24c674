package chatbot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/botura-widget/internal/model/chatbot"
)

func setupRouter() *chi.Mux {
	r := chi.NewRouter()
	New(chatbot.NewMemoryStore(chatbot.Seed())).RegisterRoutes(r)
	return r
}

func TestListChatbots(t *testing.T) {
	rec := httptest.NewRecorder()
	setupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chatbots", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []chatbot.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotEmpty(t, got)
	assert.Equal(t, "Bastel Laden", got[0].Name)
}

func TestGetChatbot(t *testing.T) {
	r := setupRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chatbots/demo", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chatbots/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
