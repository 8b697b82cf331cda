package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowline-analytics/flowline/internal/cache"
	"github.com/flowline-analytics/flowline/internal/config"
	"github.com/flowline-analytics/flowline/internal/ledger"
	"github.com/flowline-analytics/flowline/internal/logging"
	"github.com/flowline-analytics/flowline/internal/models"
)

// mockRepository implements repository.EventRepository with overridable
// functions.
type mockRepository struct {
	insertEventFunc               func(ctx context.Context, ev *models.OperationalEvent) error
	eventsForDayFunc              func(ctx context.Context, day time.Time, locationID string) ([]models.OperationalEvent, error)
	locationsForDayFunc           func(ctx context.Context, day time.Time) ([]string, error)
	saveRecommendationsFunc       func(ctx context.Context, recs []models.ActionRecommendation) error
	recommendationsForDayFunc     func(ctx context.Context, day time.Time) ([]models.ActionRecommendation, error)
	pendingRecommendationsFunc    func(ctx context.Context) ([]models.ActionRecommendation, error)
	markRecommendationAppliedFunc func(ctx context.Context, id uuid.UUID) (models.ActionRecommendation, error)
}

func (m *mockRepository) InsertEvent(ctx context.Context, ev *models.OperationalEvent) error {
	if m.insertEventFunc != nil {
		return m.insertEventFunc(ctx, ev)
	}
	return nil
}

func (m *mockRepository) EventsForDay(ctx context.Context, day time.Time, locationID string) ([]models.OperationalEvent, error) {
	if m.eventsForDayFunc != nil {
		return m.eventsForDayFunc(ctx, day, locationID)
	}
	return nil, nil
}

func (m *mockRepository) LocationsForDay(ctx context.Context, day time.Time) ([]string, error) {
	if m.locationsForDayFunc != nil {
		return m.locationsForDayFunc(ctx, day)
	}
	return nil, nil
}

func (m *mockRepository) SaveRecommendations(ctx context.Context, recs []models.ActionRecommendation) error {
	if m.saveRecommendationsFunc != nil {
		return m.saveRecommendationsFunc(ctx, recs)
	}
	return nil
}

func (m *mockRepository) RecommendationsForDay(ctx context.Context, day time.Time) ([]models.ActionRecommendation, error) {
	if m.recommendationsForDayFunc != nil {
		return m.recommendationsForDayFunc(ctx, day)
	}
	return nil, nil
}

func (m *mockRepository) PendingRecommendations(ctx context.Context) ([]models.ActionRecommendation, error) {
	if m.pendingRecommendationsFunc != nil {
		return m.pendingRecommendationsFunc(ctx)
	}
	return nil, nil
}

func (m *mockRepository) MarkRecommendationApplied(ctx context.Context, id uuid.UUID) (models.ActionRecommendation, error) {
	if m.markRecommendationAppliedFunc != nil {
		return m.markRecommendationAppliedFunc(ctx, id)
	}
	return models.ActionRecommendation{}, nil
}

func (m *mockRepository) Close() {}

func testService(t *testing.T, repo *mockRepository) *Service {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)

	logger := logging.Default()
	led := ledger.New(ledger.NewMemoryStore(), logger, ledger.DefaultRetryPolicy())
	return New(repo, cache.New(nil, false, 0), led, cfg, logger)
}

func f(v float64) *float64 { return &v }

func dayEvents(n int, loc string) []models.OperationalEvent {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	events := make([]models.OperationalEvent, n)
	for i := range events {
		events[i] = models.OperationalEvent{
			ID:                       uuid.New(),
			Timestamp:                base.Add(time.Duration(i) * 5 * time.Minute),
			LocationID:               loc,
			LocationType:             models.LocationFrontDesk,
			ArrivalCount:             3,
			DepartureCount:           3,
			QueueLength:              2,
			WaitTimeSeconds:          f(400),
			ServiceTimeSeconds:       f(90),
			ObservationPeriodSeconds: 300,
		}
	}
	return events
}

func TestIngestEventRejectsInvalid(t *testing.T) {
	inserted := false
	repo := &mockRepository{
		insertEventFunc: func(ctx context.Context, ev *models.OperationalEvent) error {
			inserted = true
			return nil
		},
	}
	s := testService(t, repo)

	ev := &models.OperationalEvent{
		Timestamp:    time.Now(),
		LocationID:   "front_desk",
		LocationType: models.LocationFrontDesk,
		ArrivalCount: -2,
	}
	err := s.IngestEvent(context.Background(), ev, "http")
	require.Error(t, err)
	assert.False(t, inserted, "invalid event must never reach storage")
}

func TestIngestEventAssignsID(t *testing.T) {
	var stored *models.OperationalEvent
	repo := &mockRepository{
		insertEventFunc: func(ctx context.Context, ev *models.OperationalEvent) error {
			stored = ev
			return nil
		},
	}
	s := testService(t, repo)

	ev := &models.OperationalEvent{
		Timestamp:    time.Now(),
		LocationID:   "front_desk",
		LocationType: models.LocationFrontDesk,
		ArrivalCount: 2,
	}
	require.NoError(t, s.IngestEvent(context.Background(), ev, "http"))
	require.NotNil(t, stored)
	assert.NotEqual(t, uuid.Nil, stored.ID)
}

func TestSummary(t *testing.T) {
	repo := &mockRepository{
		eventsForDayFunc: func(ctx context.Context, day time.Time, locationID string) ([]models.OperationalEvent, error) {
			return dayEvents(12, "front_desk"), nil
		},
	}
	s := testService(t, repo)

	summary, err := s.Summary(context.Background(), "2026-03-14", "front_desk")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCalculated, summary.Status)
	assert.Equal(t, 36, summary.Flow.TotalArrivals)
	assert.Equal(t, 12, summary.DataPoints)
}

func TestLittlesLawInsufficientData(t *testing.T) {
	repo := &mockRepository{
		eventsForDayFunc: func(ctx context.Context, day time.Time, locationID string) ([]models.OperationalEvent, error) {
			return dayEvents(9, "front_desk"), nil
		},
	}
	s := testService(t, repo)

	r, err := s.LittlesLaw(context.Background(), "2026-03-14", "front_desk")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInsufficientData, r.Status)
}

func TestLittlesLawRejectsBadDate(t *testing.T) {
	s := testService(t, &mockRepository{})
	_, err := s.LittlesLaw(context.Background(), "03/14/2026", "front_desk")
	assert.Error(t, err)
}

func TestDailyInsightNoData(t *testing.T) {
	s := testService(t, &mockRepository{})

	daily, err := s.DailyInsight(context.Background(), "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoData, daily.Status)
}

func TestDailyInsightGeneratesAndPersistsCandidates(t *testing.T) {
	var saved []models.ActionRecommendation
	repo := &mockRepository{
		locationsForDayFunc: func(ctx context.Context, day time.Time) ([]string, error) {
			return []string{"front_desk"}, nil
		},
		eventsForDayFunc: func(ctx context.Context, day time.Time, locationID string) ([]models.OperationalEvent, error) {
			return dayEvents(40, "front_desk"), nil
		},
		saveRecommendationsFunc: func(ctx context.Context, recs []models.ActionRecommendation) error {
			saved = recs
			return nil
		},
	}
	s := testService(t, repo)

	daily, err := s.DailyInsight(context.Background(), "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, models.StatusGenerated, daily.Status)
	assert.Positive(t, daily.TotalLoss)
	require.NotNil(t, daily.TopLossPoint)
	assert.Equal(t, "front_desk", daily.TopLossPoint.LocationID)
	assert.NotEmpty(t, daily.Candidates)
	assert.Equal(t, len(daily.Candidates), len(saved))
}

func TestApplyActionAppendsToLedger(t *testing.T) {
	rec := models.ActionRecommendation{
		ID:                 uuid.New(),
		Date:               "2026-03-14",
		LocationID:         "front_desk",
		ActionType:         models.ActionQueueManagement,
		Description:        "virtual queue rollout",
		ImplementationCost: 50,
	}
	repo := &mockRepository{
		markRecommendationAppliedFunc: func(ctx context.Context, id uuid.UUID) (models.ActionRecommendation, error) {
			applied := rec
			applied.Applied = true
			return applied, nil
		},
		eventsForDayFunc: func(ctx context.Context, day time.Time, locationID string) ([]models.OperationalEvent, error) {
			return dayEvents(20, "front_desk"), nil
		},
	}
	s := testService(t, repo)

	entry, err := s.ApplyAction(context.Background(), rec.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.Sequence)
	assert.Equal(t, models.ActionQueueManagement, entry.ActionType)
	assert.InDelta(t, 50.0, entry.ActionCost, 1e-9)

	report, err := s.VerifyROIChain(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestPendingActionsTotalsRecovery(t *testing.T) {
	repo := &mockRepository{
		pendingRecommendationsFunc: func(ctx context.Context) ([]models.ActionRecommendation, error) {
			return []models.ActionRecommendation{
				{EstimatedSavings: models.SavingsRange{Min: 100, Max: 200}},
				{EstimatedSavings: models.SavingsRange{Min: 50, Max: 150}},
			}, nil
		},
	}
	s := testService(t, repo)

	recs, total, err := s.PendingActions(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.InDelta(t, 250.0, total, 1e-9)
}
