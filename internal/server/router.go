package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/citewise/internal/api"
	"github.com/cloo-solutions/citewise/internal/api/handlers"
	"github.com/cloo-solutions/citewise/internal/api/middleware"
)

const (
	maxBodyBytes   int64 = 1 << 20
	maxUploadBytes int64 = 50 << 20
)

type RouterConfig struct {
	AuthValidator   middleware.AuthValidator
	ChatHandler     *handlers.ChatHandler
	SessionHandler  *handlers.SessionHandler
	FeedbackHandler *handlers.FeedbackHandler
	DocumentHandler *handlers.DocumentHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Group(func(r chi.Router) {
			r.Use(middleware.MaxBodyBytes(maxBodyBytes))

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", cfg.ChatHandler.CreateSession)
				r.Get("/", cfg.SessionHandler.List)
				r.Delete("/", cfg.SessionHandler.Clear)
				r.Get("/{id}", cfg.SessionHandler.Get)
				r.Delete("/{id}", cfg.SessionHandler.Delete)
				r.Post("/{id}/ask", cfg.ChatHandler.Ask)
				r.Post("/{id}/feedback", cfg.FeedbackHandler.Submit)
			})

			r.Post("/analyze", cfg.ChatHandler.Analyze)

			r.Get("/documents/date-range", cfg.DocumentHandler.DateRange)
			r.Get("/documents/text", cfg.DocumentHandler.Text)
			r.Get("/documents/download", cfg.DocumentHandler.Download)
		})

		r.With(middleware.MaxBodyBytes(maxUploadBytes)).Post("/documents", cfg.DocumentHandler.Create)
	})

	return r
}
