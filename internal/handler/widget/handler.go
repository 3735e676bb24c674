// Package widget exposes mounted widget sessions over HTTP, SSE and websocket.
package widget

import (
	"encoding/json"
	"html"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/botura-widget/internal/model/chat"
	model "github.com/zhouzirui/botura-widget/internal/model/widget"
	"github.com/zhouzirui/botura-widget/internal/render"
	"github.com/zhouzirui/botura-widget/internal/service/mount"
	"github.com/zhouzirui/botura-widget/internal/service/session"
	"github.com/zhouzirui/botura-widget/pkg/utils"
)

const sseKeepAlive = 15 * time.Second

// Handler serves the presentation bridge.
type Handler struct {
	page     *mount.HostPage
	registry *Registry
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// New creates a Handler. page may be nil when widgets were mounted from
// explicit attributes only.
func New(page *mount.HostPage, registry *Registry, logger zerolog.Logger) *Handler {
	return &Handler{
		page:     page,
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the bridge routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handlePage)
	r.Route("/widgets", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Route("/{chatbotID}", func(r chi.Router) {
			r.Get("/", h.handleState)
			r.Post("/messages", h.handleSend)
			r.Get("/events", h.handleEvents)
			r.Get("/ws", h.handleWebSocket)
		})
	})
}

// messageView is a message with its content rendered for display.
type messageView struct {
	Role      chat.Role `json:"role"`
	Content   string    `json:"content"`
	HTML      string    `json:"html"`
	Timestamp time.Time `json:"timestamp"`
}

// stateView is what presentation clients render.
type stateView struct {
	Config         model.Config  `json:"config"`
	Messages       []messageView `json:"messages"`
	IsLoading      bool          `json:"isLoading"`
	ConversationID string        `json:"conversationId,omitempty"`
}

func newStateView(cfg model.Config, state chat.State) stateView {
	messages := make([]messageView, 0, len(state.Messages))
	for _, msg := range state.Messages {
		rendered, err := render.HTML(msg.Content)
		if err != nil {
			rendered = "<p>" + html.EscapeString(msg.Content) + "</p>"
		}
		messages = append(messages, messageView{
			Role:      msg.Role,
			Content:   msg.Content,
			HTML:      rendered,
			Timestamp: msg.Timestamp,
		})
	}
	return stateView{
		Config:         cfg,
		Messages:       messages,
		IsLoading:      state.IsLoading,
		ConversationID: state.ConversationID,
	}
}

type sendRequest struct {
	Text string `json:"text"`
}

func (h *Handler) widget(w http.ResponseWriter, r *http.Request) (*mount.Widget, bool) {
	mounted, ok := h.registry.Get(chi.URLParam(r, "chatbotID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "widget not mounted")
	}
	return mounted, ok
}

func (h *Handler) handlePage(w http.ResponseWriter, _ *http.Request) {
	if h.page == nil {
		utils.RespondError(w, http.StatusNotFound, "no host page loaded")
		return
	}
	doc, err := h.page.HTML()
	if err != nil {
		h.logger.Error().Err(err).Msg("serialize host page")
		utils.RespondError(w, http.StatusInternalServerError, "host page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(doc))
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	widgets := h.registry.List()
	configs := make([]model.Config, 0, len(widgets))
	for _, mounted := range widgets {
		configs = append(configs, mounted.Config)
	}
	utils.RespondJSON(w, http.StatusOK, configs)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	mounted, ok := h.widget(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, newStateView(mounted.Config, mounted.Session.State()))
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	mounted, ok := h.widget(w, r)
	if !ok {
		return
	}

	var payload sendRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := mounted.Session.Send(r.Context(), payload.Text); err != nil {
		utils.RespondError(w, sendStatus(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, newStateView(mounted.Config, mounted.Session.State()))
}

func sendStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSendInFlight):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleEvents streams a "state" event after every session change.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	mounted, ok := h.widget(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	updates, cancel := mounted.Session.Subscribe()
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	logger := h.logger.With().Str("chatbot_id", mounted.Config.ChatbotID).Logger()
	logger.Debug().Msg("sse stream opened")
	defer logger.Debug().Msg("sse stream closed")

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case state, open := <-updates:
			if !open {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, "state", newStateView(mounted.Config, state)); err != nil {
				logger.Debug().Err(err).Msg("sse write failed")
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "keep-alive"); err != nil {
				return
			}
		}
	}
}
