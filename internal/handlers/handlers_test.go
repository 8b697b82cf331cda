package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowline-analytics/flowline/internal/cache"
	"github.com/flowline-analytics/flowline/internal/config"
	"github.com/flowline-analytics/flowline/internal/handlers"
	"github.com/flowline-analytics/flowline/internal/ledger"
	"github.com/flowline-analytics/flowline/internal/logging"
	"github.com/flowline-analytics/flowline/internal/models"
	"github.com/flowline-analytics/flowline/internal/server"
	"github.com/flowline-analytics/flowline/internal/service"
)

// stubRepository holds events in memory for handler tests.
type stubRepository struct {
	events []models.OperationalEvent
	recs   []models.ActionRecommendation
}

func (s *stubRepository) InsertEvent(ctx context.Context, ev *models.OperationalEvent) error {
	s.events = append(s.events, *ev)
	return nil
}

func (s *stubRepository) EventsForDay(ctx context.Context, day time.Time, locationID string) ([]models.OperationalEvent, error) {
	var out []models.OperationalEvent
	for _, ev := range s.events {
		sameDay := ev.Timestamp.UTC().Truncate(24 * time.Hour).Equal(day.UTC().Truncate(24 * time.Hour))
		if sameDay && (locationID == "" || ev.LocationID == locationID) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *stubRepository) LocationsForDay(ctx context.Context, day time.Time) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, ev := range s.events {
		if ev.Timestamp.UTC().Truncate(24*time.Hour).Equal(day.UTC().Truncate(24*time.Hour)) && !seen[ev.LocationID] {
			seen[ev.LocationID] = true
			out = append(out, ev.LocationID)
		}
	}
	return out, nil
}

func (s *stubRepository) SaveRecommendations(ctx context.Context, recs []models.ActionRecommendation) error {
	s.recs = append(s.recs, recs...)
	return nil
}

func (s *stubRepository) RecommendationsForDay(ctx context.Context, day time.Time) ([]models.ActionRecommendation, error) {
	return s.recs, nil
}

func (s *stubRepository) PendingRecommendations(ctx context.Context) ([]models.ActionRecommendation, error) {
	return s.recs, nil
}

func (s *stubRepository) MarkRecommendationApplied(ctx context.Context, id uuid.UUID) (models.ActionRecommendation, error) {
	for _, r := range s.recs {
		if r.ID == id {
			r.Applied = true
			return r, nil
		}
	}
	return models.ActionRecommendation{}, fmt.Errorf("not found")
}

func (s *stubRepository) Close() {}

func testServer(t *testing.T) (http.Handler, *stubRepository) {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)

	logger := logging.Default()
	repo := &stubRepository{}
	led := ledger.New(ledger.NewMemoryStore(), logger, ledger.DefaultRetryPolicy())
	svc := service.New(repo, cache.New(nil, false, 0), led, cfg, logger)
	return server.NewRouter(handlers.NewHandler(svc, logger)), repo
}

func seedEvents(repo *stubRepository, n int) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	wait, svc := 400.0, 90.0
	for i := 0; i < n; i++ {
		repo.events = append(repo.events, models.OperationalEvent{
			ID:                       uuid.New(),
			Timestamp:                base.Add(time.Duration(i) * 5 * time.Minute),
			LocationID:               "front_desk",
			LocationType:             models.LocationFrontDesk,
			ArrivalCount:             3,
			DepartureCount:           3,
			QueueLength:              2,
			WaitTimeSeconds:          &wait,
			ServiceTimeSeconds:       &svc,
			ObservationPeriodSeconds: 300,
		})
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	h, _ := testServer(t)
	rec := doJSON(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIngestEvent(t *testing.T) {
	h, repo := testServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/events", map[string]interface{}{
		"timestamp":     "2026-03-14T09:00:00Z",
		"location_id":   "front_desk",
		"location_type": "front_desk",
		"arrival_count": 4,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.events, 1)
	assert.Equal(t, 4, repo.events[0].ArrivalCount)
}

func TestIngestEventRejectsNegativeCounts(t *testing.T) {
	h, repo := testServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/events", map[string]interface{}{
		"timestamp":     "2026-03-14T09:00:00Z",
		"location_id":   "front_desk",
		"location_type": "front_desk",
		"arrival_count": -4,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, repo.events)
}

func TestLittlesLawEndpoint(t *testing.T) {
	h, repo := testServer(t)
	seedEvents(repo, 12)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/metrics/littles-law/2026-03-14?location_id=front_desk", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.LittlesLawResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, models.StatusCalculated, result.Status)
	assert.Equal(t, 12, result.DataPointsUsed)
}

func TestLittlesLawInsufficientDataIsStillOK(t *testing.T) {
	h, repo := testServer(t)
	seedEvents(repo, 5)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/metrics/littles-law/2026-03-14", nil)
	// Domain statuses are data, not HTTP errors.
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.LittlesLawResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, models.StatusInsufficientData, result.Status)
}

func TestMetricsEndpointRejectsBadDate(t *testing.T) {
	h, _ := testServer(t)
	rec := doJSON(t, h, http.MethodGet, "/api/v1/metrics/summary/not-a-date", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestROIAppendAndLog(t *testing.T) {
	h, _ := testServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/roi/append", map[string]interface{}{
		"action_type":        "queue_management",
		"action_description": "install queue displays",
		"before_loss":        500,
		"after_loss":         400,
		"action_cost":        50,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var entry models.ROILogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, int64(1), entry.Sequence)
	assert.InDelta(t, 100.0, entry.LossReduction, 1e-9)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/roi/log?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Entries    []models.ROILogEntry `json:"entries"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Pagination.Total)
	require.Len(t, page.Entries, 1)
}

func TestROIAppendRejectsUnknownActionType(t *testing.T) {
	h, _ := testServer(t)
	rec := doJSON(t, h, http.MethodPost, "/api/v1/roi/append", map[string]interface{}{
		"action_type": "hire_magician",
		"before_loss": 100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChainIntegrityEndpoint(t *testing.T) {
	h, _ := testServer(t)

	for i := 0; i < 3; i++ {
		rec := doJSON(t, h, http.MethodPost, "/api/v1/roi/append", map[string]interface{}{
			"action_type": "add_capacity",
			"before_loss": 300,
			"after_loss":  200,
			"action_cost": 150,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, h, http.MethodGet, "/api/v1/roi/chain-integrity", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ChainStatus string `json:"chain_status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "valid", resp.ChainStatus)
}

func TestVerifyROIEntryEndpoint(t *testing.T) {
	h, _ := testServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/roi/append", map[string]interface{}{
		"action_type": "demand_smoothing",
		"before_loss": 200,
		"after_loss":  150,
		"action_cost": 75,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var entry models.ROILogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))

	rec = doJSON(t, h, http.MethodPost, "/api/v1/roi/verify/"+entry.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var verified models.ROILogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verified))
	assert.Equal(t, models.VerificationValid, verified.Verification)
}

func TestVerifyROIEntryUnknownID(t *testing.T) {
	h, _ := testServer(t)
	rec := doJSON(t, h, http.MethodPost, "/api/v1/roi/verify/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := testServer(t)
	rec := doJSON(t, h, http.MethodDelete, "/api/v1/roi/log", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
