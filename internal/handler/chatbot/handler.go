package chatbot

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/botura-widget/internal/model/chatbot"
	"github.com/zhouzirui/botura-widget/pkg/utils"
)

// Handler serves the chatbot catalogue.
type Handler struct {
	chatbots chatbot.Store
}

// New creates a chatbot handler.
func New(chatbots chatbot.Store) *Handler {
	return &Handler{chatbots: chatbots}
}

// RegisterRoutes mounts the chatbot routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chatbots", h.handleList)
	r.Get("/chatbots/{chatbotID}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.chatbots.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.chatbots.FindByID(chi.URLParam(r, "chatbotID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "chatbot not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, profile)
}
