package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/z-chat/backend/internal/handler/chat"
	"github.com/zhouzirui/z-chat/backend/internal/handler/settings"
	"github.com/zhouzirui/z-chat/backend/internal/handler/stream"
	"github.com/zhouzirui/z-chat/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/z-chat/backend/internal/middleware"
	"github.com/zhouzirui/z-chat/backend/internal/model/catalog"
	aiService "github.com/zhouzirui/z-chat/backend/internal/service/ai"
	chatService "github.com/zhouzirui/z-chat/backend/internal/service/chat"
	"github.com/zhouzirui/z-chat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(models catalog.Store, chatSvc *chatService.Service, aiSvc *aiService.Service, opts settings.Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": chatSvc.Count(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		settings.New(models, opts).RegisterRoutes(api)
		chat.New(chatSvc, aiSvc).RegisterRoutes(api)
		stream.New(aiSvc, chatSvc).RegisterRoutes(api)
		ws.New(aiSvc, chatSvc).RegisterRoutes(api)
	})

	return r
}
