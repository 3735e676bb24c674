package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/botura-widget/internal/handler/chat"
	"github.com/zhouzirui/botura-widget/internal/handler/chatbot"
	"github.com/zhouzirui/botura-widget/internal/handler/widget"
	middlewarePkg "github.com/zhouzirui/botura-widget/internal/middleware"
	chatbotModel "github.com/zhouzirui/botura-widget/internal/model/chatbot"
	"github.com/zhouzirui/botura-widget/internal/service/ai"
	chatService "github.com/zhouzirui/botura-widget/internal/service/chat"
	"github.com/zhouzirui/botura-widget/internal/service/mount"
)

// allowAnyOrigin lets widgets on any host page reach the server.
var allowAnyOrigin = []string{"*"}

func baseRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowAnyOrigin))
	return r
}

// NewBackendRouter wires the development chat backend.
func NewBackendRouter(chatbots chatbotModel.Store, chatSvc *chatService.Service, replier ai.Replier, logger zerolog.Logger) http.Handler {
	r := baseRouter()

	chatbotHandler := chatbot.New(chatbots)
	chatHandler := chat.New(chatSvc, chatbots, replier, logger.With().Str("component", "chat").Logger())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Route("/api/v1", func(api chi.Router) {
		chatbotHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
	})

	return r
}

// NewWidgetRouter wires the presentation bridge for mounted widgets.
func NewWidgetRouter(page *mount.HostPage, registry *widget.Registry, logger zerolog.Logger) http.Handler {
	r := baseRouter()
	widget.New(page, registry, logger.With().Str("component", "bridge").Logger()).RegisterRoutes(r)
	return r
}
