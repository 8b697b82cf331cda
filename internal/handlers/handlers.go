package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flowline-analytics/flowline/internal/httputil"
	"github.com/flowline-analytics/flowline/internal/ledger"
	"github.com/flowline-analytics/flowline/internal/logging"
	"github.com/flowline-analytics/flowline/internal/models"
	"github.com/flowline-analytics/flowline/internal/service"
	"github.com/flowline-analytics/flowline/internal/validator"
)

// Handler serves the analytics and ledger API.
type Handler struct {
	service *service.Service
	logger  *logging.Logger
}

func NewHandler(svc *service.Service, logger *logging.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// IngestEvent handles POST /api/v1/events
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	var ev models.OperationalEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.IngestEvent(r.Context(), &ev, "http"); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			httputil.WriteError(w, http.StatusBadRequest, verr.Message)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to ingest event", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to ingest event")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ev)
}

// LittlesLaw handles GET /api/v1/metrics/littles-law/:date
func (h *Handler) LittlesLaw(w http.ResponseWriter, r *http.Request) {
	date := pathSuffix(r, "/api/v1/metrics/littles-law/")
	result, err := h.service.LittlesLaw(r.Context(), date, r.URL.Query().Get("location_id"))
	if err != nil {
		h.writeComputeError(w, r, "littles-law", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Entropy handles GET /api/v1/metrics/entropy/:date
func (h *Handler) Entropy(w http.ResponseWriter, r *http.Request) {
	date := pathSuffix(r, "/api/v1/metrics/entropy/")
	result, err := h.service.Entropy(r.Context(), date, r.URL.Query().Get("location_id"))
	if err != nil {
		h.writeComputeError(w, r, "entropy", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Summary handles GET /api/v1/metrics/summary/:date
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	date := pathSuffix(r, "/api/v1/metrics/summary/")
	result, err := h.service.Summary(r.Context(), date, r.URL.Query().Get("location_id"))
	if err != nil {
		h.writeComputeError(w, r, "summary", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Patterns handles GET /api/v1/metrics/patterns/:date
func (h *Handler) Patterns(w http.ResponseWriter, r *http.Request) {
	date := pathSuffix(r, "/api/v1/metrics/patterns/")
	result, err := h.service.Patterns(r.Context(), date, r.URL.Query().Get("location_id"))
	if err != nil {
		h.writeComputeError(w, r, "patterns", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// DailyInsight handles GET /api/v1/insights/daily/:date
func (h *Handler) DailyInsight(w http.ResponseWriter, r *http.Request) {
	date := pathSuffix(r, "/api/v1/insights/daily/")
	result, err := h.service.DailyInsight(r.Context(), date)
	if err != nil {
		h.writeComputeError(w, r, "daily insight", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// WeeklyInsight handles GET /api/v1/insights/weekly
func (h *Handler) WeeklyInsight(w http.ResponseWriter, r *http.Request) {
	endDate := r.URL.Query().Get("end_date")
	if endDate == "" {
		endDate = validator.FormatDate(time.Now())
	}
	result, err := h.service.WeeklyInsight(r.Context(), endDate)
	if err != nil {
		h.writeComputeError(w, r, "weekly insight", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// TrendInsight handles GET /api/v1/insights/trend
func (h *Handler) TrendInsight(w http.ResponseWriter, r *http.Request) {
	endDate := r.URL.Query().Get("end_date")
	if endDate == "" {
		endDate = validator.FormatDate(time.Now())
	}
	result, err := h.service.TrendInsight(r.Context(), endDate)
	if err != nil {
		h.writeComputeError(w, r, "trend insight", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// ActionsForDay handles GET /api/v1/actions/:date
func (h *Handler) ActionsForDay(w http.ResponseWriter, r *http.Request) {
	date := pathSuffix(r, "/api/v1/actions/")
	recs, total, err := h.service.ActionsForDay(r.Context(), date)
	if err != nil {
		h.writeComputeError(w, r, "actions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"actions":                  recs,
		"total_potential_recovery": total,
	})
}

// PendingActions handles GET /api/v1/actions/pending
func (h *Handler) PendingActions(w http.ResponseWriter, r *http.Request) {
	recs, total, err := h.service.PendingActions(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list pending actions", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to list pending actions")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"actions":                  recs,
		"total_potential_recovery": total,
	})
}

// ApplyAction handles POST /api/v1/actions/:id/apply
func (h *Handler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimSuffix(pathSuffix(r, "/api/v1/actions/"), "/apply")
	id, err := uuid.Parse(idStr)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid action ID")
		return
	}

	var req struct {
		AfterLoss float64 `json:"after_loss"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.service.ApplyAction(r.Context(), id, req.AfterLoss)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "Action not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to apply action", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to apply action")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

// ROILog handles GET /api/v1/roi/log
func (h *Handler) ROILog(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	skip := parseInt(r.URL.Query().Get("skip"), 0)

	entries, total, err := h.service.ROILog(r.Context(), limit, skip)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list roi log", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to list ROI log")
		return
	}
	if entries == nil {
		entries = []models.ROILogEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"pagination": map[string]interface{}{
			"total": total,
			"limit": limit,
			"skip":  skip,
		},
	})
}

// ROISummary handles GET /api/v1/roi/summary
func (h *Handler) ROISummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.ROISummary(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to build roi summary", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to build ROI summary")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// AppendROI handles POST /api/v1/roi/append
func (h *Handler) AppendROI(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActionType        models.ActionType `json:"action_type"`
		ActionDescription string            `json:"action_description"`
		BeforeLoss        float64           `json:"before_loss"`
		AfterLoss         float64           `json:"after_loss"`
		ActionCost        float64           `json:"action_cost"`
		Timestamp         time.Time         `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.service.AppendROI(r.Context(), ledger.AppendRequest{
		ActionType:        req.ActionType,
		ActionDescription: req.ActionDescription,
		BeforeLoss:        req.BeforeLoss,
		AfterLoss:         req.AfterLoss,
		ActionCost:        req.ActionCost,
		Timestamp:         req.Timestamp,
	})
	if err != nil {
		if !models.ValidActionType(req.ActionType) {
			httputil.WriteError(w, http.StatusBadRequest, "Unknown action type")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to append roi entry", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to append ROI entry")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

// VerifyROIEntry handles POST /api/v1/roi/verify/:id
func (h *Handler) VerifyROIEntry(w http.ResponseWriter, r *http.Request) {
	idStr := pathSuffix(r, "/api/v1/roi/verify/")
	id, err := uuid.Parse(idStr)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid entry ID")
		return
	}

	entry, err := h.service.VerifyROIEntry(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "Entry not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to verify roi entry", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to verify entry")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

// ChainIntegrity handles GET /api/v1/roi/chain-integrity
func (h *Handler) ChainIntegrity(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.VerifyROIChain(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to verify chain", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Failed to verify chain")
		return
	}

	status := "valid"
	message := "chain verified from genesis"
	if !report.Valid {
		status = "invalid"
		message = report.Reason + "; all later entries are unverifiable"
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"chain_status": status,
		"message":      message,
		"report":       report,
	})
}

// writeComputeError maps date parse failures to 400 and everything else
// to 500. Domain statuses never reach this path: they are data in a 200.
func (h *Handler) writeComputeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if strings.Contains(err.Error(), "invalid date") {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}
	h.logger.ErrorContext(r.Context(), "computation failed", "operation", op, "error", err)
	httputil.WriteError(w, http.StatusInternalServerError, "Computation failed")
}

func pathSuffix(r *http.Request, prefix string) string {
	return strings.TrimPrefix(r.URL.Path, prefix)
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
