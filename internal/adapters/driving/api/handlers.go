package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/casekb/internal/core/domain"
	"github.com/custodia-labs/casekb/internal/core/ports/driving"
	"github.com/custodia-labs/casekb/internal/logger"
	"github.com/custodia-labs/casekb/internal/metrics"
)

// Handler holds API route handlers.
type Handler struct {
	ingestor driving.Ingestor
	querier  driving.Querier
	analyzer driving.Analyzer
	metrics  *metrics.Metrics
}

// NewHandler creates a new Handler.
func NewHandler(ingestor driving.Ingestor, querier driving.Querier, analyzer driving.Analyzer, m *metrics.Metrics) *Handler {
	return &Handler{ingestor: ingestor, querier: querier, analyzer: analyzer, metrics: m}
}

// ingestRequest is the POST /ingest body. Content is base64 so binary
// formats survive JSON transport.
type ingestRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Ingest handles POST /ingest.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<20)
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if req.Filename == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("filename is required"))
		return
	}

	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("content must be base64"))
		return
	}

	start := time.Now()
	if h.metrics != nil {
		h.metrics.StartIngest()
	}
	outcome, err := h.ingestor.Ingest(r.Context(), domain.RawFile{
		DeclaredFilename: req.Filename,
		Content:          content,
	})
	if h.metrics != nil {
		h.metrics.FinishIngest(string(outcome.Status), time.Since(start), err)
	}
	if err != nil {
		if errors.Is(err, domain.ErrExtractionFailed) {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
			return
		}
		logger.Warn("ingest failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	status := http.StatusCreated
	if outcome.Status == domain.StatusDuplicateSkipped {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]string{
		"document_id": outcome.DocumentID,
		"status":      string(outcome.Status),
		"filename":    outcome.Filename,
	})
}

// Search handles GET /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := q.Get("q")
	mode := q.Get("mode")
	if mode == "" {
		mode = string(domain.ModeHybrid)
	}
	k, _ := strconv.Atoi(q.Get("limit"))

	filter := domain.QueryFilter{Party: q.Get("party")}
	for _, raw := range q["type"] {
		dt := domain.DocType(raw)
		if !dt.Valid() {
			writeJSON(w, http.StatusBadRequest, errorBody("unknown document type: "+raw))
			return
		}
		filter.DocTypes = append(filter.DocTypes, dt)
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid from date"))
			return
		}
		filter.DateFrom = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid to date"))
			return
		}
		filter.DateTo = t
	}

	start := time.Now()
	result, err := h.querier.Query(r.Context(), text, domain.QueryMode(mode), k, filter)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuery) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		logger.Warn("search failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveQuery(string(result.Mode), time.Since(start), result.Degraded)
	}

	writeJSON(w, http.StatusOK, result)
}

// ListDocuments handles GET /documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docType := domain.DocType(r.URL.Query().Get("type"))
	if docType != "" && !docType.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown document type"))
		return
	}

	docs, err := h.querier.ListDocuments(r.Context(), docType)
	if err != nil {
		logger.Warn("list documents failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if h.metrics != nil && docType == "" {
		h.metrics.SetDocumentCount(len(docs))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     len(docs),
	})
}

// GetDocument handles GET /documents/{id}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.querier.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		logger.Warn("get document failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /documents/{id}.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.ingestor.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		logger.Warn("delete document failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Timeline handles GET /analysis/timeline.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}

	var from, to time.Time
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid from date"))
			return
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid to date"))
			return
		}
		to = t
	}

	events, err := h.analyzer.Timeline(r.Context(), q, from, to)
	if err != nil {
		logger.Warn("timeline failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// Patterns handles GET /analysis/patterns.
func (h *Handler) Patterns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}

	report, err := h.analyzer.DetectPatterns(r.Context(), q)
	if err != nil {
		logger.Warn("pattern detection failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Contradictions handles GET /analysis/contradictions.
func (h *Handler) Contradictions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}

	contradictions, err := h.analyzer.FindContradictions(r.Context(), q)
	if err != nil {
		logger.Warn("contradiction analysis failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contradictions": contradictions})
}

// Verify handles GET /index/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	report, err := h.ingestor.Verify(r.Context())
	if err != nil {
		logger.Warn("verify failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chunks":          report.Chunks,
		"vector_entries":  report.VectorEntries,
		"keyword_entries": report.KeywordEntries,
		"pending_docs":    report.PendingDocs,
		"consistent":      report.Consistent(),
	})
}

// Rebuild handles POST /index/rebuild.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if err := h.ingestor.Rebuild(r.Context()); err != nil {
		logger.Warn("rebuild failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rebuilt"})
}
