package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/botura-widget/internal/model/chat"
	model "github.com/zhouzirui/botura-widget/internal/model/widget"
	"github.com/zhouzirui/botura-widget/internal/service/mount"
	"github.com/zhouzirui/botura-widget/internal/service/session"
	"github.com/zhouzirui/botura-widget/internal/store"
)

func TestLoadAttributesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widget.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chatbot-id: abc
data-color: "#f97316"
Position: top-left
`), 0o600))

	attrs, err := loadAttributesFile(path)
	require.NoError(t, err)
	assert.Equal(t, model.Attributes{
		model.AttrChatbotID: "abc",
		model.AttrColor:     "#f97316",
		model.AttrPosition:  "top-left",
	}, attrs)

	_, err = loadAttributesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunREPL(t *testing.T) {
	var failNext atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failNext.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var req chat.ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		failNext.Store(true)
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "Echo: " + req.Message, "conversation_id": "c1"})
	}))
	defer srv.Close()

	w, err := mount.NewBootstrapper(store.NewMemoryStore()).MountAttributes(context.Background(), model.Attributes{
		model.AttrChatbotID: "abc",
		model.AttrAPIURL:    srv.URL,
	})
	require.NoError(t, err)
	defer w.Unmount()

	in := strings.NewReader("Hallo\n\nNochmal\n/quit\nignored\n")
	var out bytes.Buffer
	require.NoError(t, runREPL(context.Background(), w, in, &out, func(s string) string { return s + "\n" }))

	text := out.String()
	assert.Contains(t, text, "👋 Hi! Wie kann ich dir helfen?")
	assert.Contains(t, text, "Echo: Hallo")
	assert.Contains(t, text, session.ApologyMessage)
	assert.Len(t, w.Session.State().Messages, 4)
}
