package server

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowline-analytics/flowline/internal/handlers"
	"github.com/flowline-analytics/flowline/internal/middleware"
)

// NewRouter constructs a ServeMux with the analytics API routes
// registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	// Health and operational metrics
	mux.HandleFunc("/healthz", h.HealthCheck)
	mux.Handle("/metrics", promhttp.Handler())

	// Event ingestion
	mux.HandleFunc("/api/v1/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.IngestEvent(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Metrics API routes
	mux.HandleFunc("/api/v1/metrics/littles-law/", methodGet(h.LittlesLaw))
	mux.HandleFunc("/api/v1/metrics/entropy/", methodGet(h.Entropy))
	mux.HandleFunc("/api/v1/metrics/summary/", methodGet(h.Summary))
	mux.HandleFunc("/api/v1/metrics/patterns/", methodGet(h.Patterns))

	// Insights API routes
	mux.HandleFunc("/api/v1/insights/daily/", methodGet(h.DailyInsight))
	mux.HandleFunc("/api/v1/insights/weekly", methodGet(h.WeeklyInsight))
	mux.HandleFunc("/api/v1/insights/trend", methodGet(h.TrendInsight))

	// Actions API routes
	mux.HandleFunc("/api/v1/actions/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// POST /api/v1/actions/:id/apply
		if r.Method == http.MethodPost && strings.HasSuffix(path, "/apply") {
			h.ApplyAction(w, r)
			// GET /api/v1/actions/pending
		} else if r.Method == http.MethodGet && strings.HasSuffix(path, "/pending") {
			h.PendingActions(w, r)
			// GET /api/v1/actions/:date
		} else if r.Method == http.MethodGet {
			h.ActionsForDay(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// ROI ledger API routes
	mux.HandleFunc("/api/v1/roi/log", methodGet(h.ROILog))
	mux.HandleFunc("/api/v1/roi/summary", methodGet(h.ROISummary))
	mux.HandleFunc("/api/v1/roi/chain-integrity", methodGet(h.ChainIntegrity))
	mux.HandleFunc("/api/v1/roi/append", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.AppendROI(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/roi/verify/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.VerifyROIEntry(w, r)
		} else {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	return middleware.RequestID(mux)
}

func methodGet(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}
