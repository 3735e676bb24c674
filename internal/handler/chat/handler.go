// Package chat serves the backend chat endpoint that widgets post to.
package chat

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/botura-widget/internal/model/chat"
	"github.com/zhouzirui/botura-widget/internal/model/chatbot"
	"github.com/zhouzirui/botura-widget/internal/service/ai"
	chatService "github.com/zhouzirui/botura-widget/internal/service/chat"
	"github.com/zhouzirui/botura-widget/pkg/utils"
)

// Handler answers widget chat requests.
type Handler struct {
	chatSvc  *chatService.Service
	chatbots chatbot.Store
	replier  ai.Replier
	logger   zerolog.Logger
}

// New creates a chat handler. A nil replier falls back to ai.EchoReplier.
func New(chatSvc *chatService.Service, chatbots chatbot.Store, replier ai.Replier, logger zerolog.Logger) *Handler {
	if replier == nil {
		replier = ai.EchoReplier{}
	}
	return &Handler{
		chatSvc:  chatSvc,
		chatbots: chatbots,
		replier:  replier,
		logger:   logger,
	}
}

// RegisterRoutes mounts the chat routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chatbots/{chatbotID}/chat", h.handleChat)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	chatbotID := chi.URLParam(r, "chatbotID")
	logger := h.logger.With().
		Str("chatbot_id", chatbotID).
		Str("request_id", middleware.GetReqID(r.Context())).
		Logger()

	var payload chat.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text := strings.TrimSpace(payload.Message)
	if text == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	profile, ok := h.chatbots.FindByID(chatbotID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "chatbot not found")
		return
	}

	ctx := r.Context()
	conv, created, err := h.chatSvc.ResolveConversation(ctx, chatbotID, payload.ConversationID)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if created && payload.ConversationID != nil {
		logger.Info().Str("requested", *payload.ConversationID).Str("conversation_id", conv.ID).Msg("unknown conversation, starting a new one")
	}

	history, err := h.chatSvc.LoadTranscript(ctx, conv.ID)
	if err != nil {
		logger.Error().Err(err).Msg("load transcript")
		utils.RespondError(w, http.StatusInternalServerError, "conversation unavailable")
		return
	}

	if err := h.chatSvc.SaveMessage(ctx, conv.ID, chat.Message{Role: chat.RoleUser, Content: text}); err != nil {
		logger.Warn().Err(err).Msg("save user message")
	}

	reply, err := h.replier.Reply(ctx, profile, history, text)
	if err != nil {
		logger.Error().Err(err).Str("conversation_id", conv.ID).Msg("reply generation failed")
		utils.RespondError(w, http.StatusBadGateway, "reply generation failed")
		return
	}

	if err := h.chatSvc.SaveMessage(ctx, conv.ID, chat.Message{Role: chat.RoleAssistant, Content: reply}); err != nil {
		logger.Warn().Err(err).Msg("save assistant message")
	}

	logger.Debug().Str("conversation_id", conv.ID).Int("turns", len(history)+2).Msg("chat answered")
	utils.RespondJSON(w, http.StatusOK, chat.ChatResponse{
		Response:       &reply,
		ConversationID: conv.ID,
	})
}
