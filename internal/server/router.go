package server

import (
	"net/http"

	"github.com/cadenlabs/brandgov/internal/api"
	"github.com/cadenlabs/brandgov/internal/api/handlers"
	"github.com/cadenlabs/brandgov/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	Authenticator     middleware.Authenticator
	BrandHandler      *handlers.BrandHandler
	ContentHandler    *handlers.ContentHandler
	GovernanceHandler *handlers.GovernanceHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Audit uploads are multipart images, so the body cap is larger than a
	// typical JSON API would use.
	const maxBodyBytes int64 = 12 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.Authenticator))

		r.Route("/brands", func(r chi.Router) {
			r.Post("/", cfg.BrandHandler.Create)
			r.Get("/", cfg.BrandHandler.List)
			r.Post("/{id}/manual", cfg.BrandHandler.GenerateManual)
			r.Put("/{id}/manual", cfg.BrandHandler.IngestManual)
			r.Get("/{id}/manual", cfg.BrandHandler.GetManual)
		})

		r.Post("/generate", cfg.ContentHandler.Generate)
		r.Get("/inbox", cfg.ContentHandler.Inbox)

		r.Route("/content", func(r chi.Router) {
			r.Get("/", cfg.ContentHandler.List)
			r.Get("/{id}", cfg.ContentHandler.Get)
			r.Post("/{id}/approve", cfg.GovernanceHandler.Approve)
			r.Post("/{id}/reject", cfg.GovernanceHandler.Reject)
			r.Post("/{id}/audit-image", cfg.GovernanceHandler.AuditImage)
			r.Get("/{id}/audits", cfg.GovernanceHandler.ListAudits)
		})
	})

	return r
}
