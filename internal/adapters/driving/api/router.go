// Package api exposes the knowledge base over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/casekb/internal/core/ports/driving"
	"github.com/custodia-labs/casekb/internal/metrics"
)

// NewRouter creates a chi router with all API routes mounted.
// metricsHandler, if non-nil, is mounted at GET /metrics.
func NewRouter(ingestor driving.Ingestor, querier driving.Querier, analyzer driving.Analyzer, m *metrics.Metrics) chi.Router {
	h := NewHandler(ingestor, querier, analyzer, m)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/ingest", h.Ingest)
	r.Get("/search", h.Search)

	r.Get("/documents", h.ListDocuments)
	r.Get("/documents/{id}", h.GetDocument)
	r.Delete("/documents/{id}", h.DeleteDocument)

	r.Get("/analysis/timeline", h.Timeline)
	r.Get("/analysis/patterns", h.Patterns)
	r.Get("/analysis/contradictions", h.Contradictions)

	r.Get("/index/verify", h.Verify)
	r.Post("/index/rebuild", h.Rebuild)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if m != nil {
		r.Get("/metrics", m.Handler().ServeHTTP)
	}

	return r
}
