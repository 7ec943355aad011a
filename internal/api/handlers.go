// Package api serves the merged history as JSON over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/runnerr0/histmerge/internal/browser"
	"github.com/runnerr0/histmerge/internal/harvest"
	"github.com/runnerr0/histmerge/internal/storage"
)

// Service is the pipeline the handlers expose. *harvest.Harvester
// implements it.
type Service interface {
	RunExtraction(ctx context.Context) (*harvest.Report, error)
	QueryHistory(ctx context.Context, b browser.Browser, limit int) ([]storage.HistoryRecord, error)
	GetStats(ctx context.Context) (*storage.Stats, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	svc    Service
	logger *log.Logger

	// ShutdownTimeout bounds how long Serve waits for in-flight requests
	// once its context ends. Zero means DefaultShutdownTimeout.
	ShutdownTimeout time.Duration
}

// NewHandler creates a new HTTP handler. A nil logger uses the standard
// logger.
func NewHandler(svc Service, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

type envelope map[string]interface{}

type recordJSON struct {
	Browser     string `json:"browser"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	VisitedAt   string `json:"visited_at"`
	ExtractedAt string `json:"extracted_at,omitempty"`
}

type statsJSON struct {
	Total             int64            `json:"total"`
	PerBrowser        map[string]int64 `json:"per_browser"`
	OldestVisit       string           `json:"oldest_visit,omitempty"`
	NewestVisit       string           `json:"newest_visit,omitempty"`
	DatabaseSizeBytes int64            `json:"database_size_bytes"`
}

// Extract handles POST /api/extract
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.RunExtraction(r.Context())
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "extraction failed", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success":      true,
		"report":       report,
		"total_merged": report.TotalMerged,
	})
}

// History handles GET /api/history?browser=&limit=
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var b browser.Browser
	if name := q.Get("browser"); name != "" {
		parsed, err := browser.Parse(name)
		if err != nil {
			h.fail(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		b = parsed
	}

	limit := storage.DefaultQueryLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			h.fail(w, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	records, err := h.svc.QueryHistory(r.Context(), b, limit)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "query failed", err)
		return
	}

	out := make([]recordJSON, len(records))
	for i, rec := range records {
		out[i] = recordJSON{
			Browser:   string(rec.Browser),
			URL:       rec.URL,
			Title:     rec.Title,
			VisitedAt: rec.VisitedAt.UTC().Format(time.RFC3339),
		}
		if !rec.ExtractedAt.IsZero() {
			out[i].ExtractedAt = rec.ExtractedAt.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"count":   len(out),
		"records": out,
	})
}

// Stats handles GET /api/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStats(r.Context())
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "stats failed", err)
		return
	}

	out := statsJSON{
		Total:             stats.Total,
		PerBrowser:        make(map[string]int64, len(stats.PerBrowser)),
		DatabaseSizeBytes: stats.DatabaseSizeBytes,
	}
	for b, n := range stats.PerBrowser {
		out.PerBrowser[string(b)] = n
	}
	if stats.Total > 0 {
		out.OldestVisit = stats.OldestVisit.UTC().Format(time.RFC3339)
		out.NewestVisit = stats.NewestVisit.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "stats": out})
}

// fail writes an error envelope. Internal causes are logged, not returned.
func (h *Handler) fail(w http.ResponseWriter, status int, msg string, cause error) {
	if cause != nil {
		h.logger.Printf("api: %s: %v", msg, cause)
	}
	writeJSON(w, status, envelope{"success": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
