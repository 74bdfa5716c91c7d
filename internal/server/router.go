package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sie-engine/siechat/internal/api"
	"github.com/sie-engine/siechat/internal/api/handlers"
	"github.com/sie-engine/siechat/internal/api/middleware"
	"github.com/sie-engine/siechat/internal/web"
)

type RouterConfig struct {
	KeyValidator     middleware.KeyValidator
	ChatHandler      *handlers.ChatHandler
	TopicHandler     *handlers.TopicHandler
	KnowledgeHandler *handlers.KnowledgeHandler
	WidgetHandler    *handlers.WidgetHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))
	r.Use(middleware.BearerAuth(cfg.KeyValidator))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/chat", cfg.ChatHandler.Ask)

	r.Get("/widget/config", cfg.WidgetHandler.GetConfig)
	r.Handle("/widget/*", http.StripPrefix("/widget/", web.Handler()))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireEditor)

		r.Route("/topics", func(r chi.Router) {
			r.Get("/", cfg.TopicHandler.GetMapping)
			r.Post("/", cfg.TopicHandler.CreateTerm)
			r.Delete("/{id}", cfg.TopicHandler.DeleteTerm)
		})

		r.Route("/knowledge", func(r chi.Router) {
			r.Post("/", cfg.KnowledgeHandler.Push)
			r.Delete("/{id}", cfg.KnowledgeHandler.Delete)
		})
	})

	return r
}
