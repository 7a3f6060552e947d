package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"itemcrud/internal/metrics"
)

// routerConfig holds what newRouter needs besides the handler.
type routerConfig struct {
	CORSOrigins []string
	APIKeys     []string
}

// newRouter builds the HTTP routes and middleware stack.
func newRouter(h *Handler, c *metrics.Collector, cfg routerConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(logger))
	r.Use(metricsMiddleware(c))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Location"},
		MaxAge:         300,
	}))

	r.Get("/health", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", c.Handler())

	r.Group(func(r chi.Router) {
		if keys := apiKeySet(cfg.APIKeys); len(keys) > 0 {
			r.Use(authMiddleware(keys))
		}

		r.Route("/items", func(r chi.Router) {
			r.Post("/", h.handleCreateItem)
			r.Get("/", h.handleListItems)
			r.Get("/{id}", h.handleGetItem)
			r.Put("/{id}", h.handleUpdateItem)
			r.Delete("/{id}", h.handleDeleteItem)
			r.Post("/{id}/comments", h.handleAddComment)
		})

		r.Get("/activity", h.handleListActivity)
	})

	return r
}
