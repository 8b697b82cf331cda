// Package service orchestrates the analytics pipeline: events in, derived
// metrics, losses, insights, and ledger entries out. All computations are
// deterministic over immutable historical windows, so results are cached
// per (kind, date, location) and recomputation is always safe.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowline-analytics/flowline/internal/aggregator"
	"github.com/flowline-analytics/flowline/internal/cache"
	"github.com/flowline-analytics/flowline/internal/config"
	"github.com/flowline-analytics/flowline/internal/entropy"
	"github.com/flowline-analytics/flowline/internal/insight"
	"github.com/flowline-analytics/flowline/internal/ledger"
	"github.com/flowline-analytics/flowline/internal/logging"
	"github.com/flowline-analytics/flowline/internal/loss"
	"github.com/flowline-analytics/flowline/internal/metrics"
	"github.com/flowline-analytics/flowline/internal/models"
	"github.com/flowline-analytics/flowline/internal/queueing"
	"github.com/flowline-analytics/flowline/internal/repository"
	"github.com/flowline-analytics/flowline/internal/validator"
)

// ErrNotFound is surfaced for unknown dates and entry ids.
var ErrNotFound = errors.New("not found")

// Service exposes the full analytics and ledger surface.
type Service struct {
	repo    repository.EventRepository
	cache   *cache.Cache
	ledger  *ledger.Ledger
	cfg     *config.Config
	logger  *logging.Logger
	checker *validator.Validator

	agg        *aggregator.Aggregator
	queueEng   *queueing.Engine
	entropyEng *entropy.Engine
	lossEng    *loss.Engine
	insightGen *insight.Generator
}

// New wires the engines from configuration.
func New(repo repository.EventRepository, metricsCache *cache.Cache, led *ledger.Ledger, cfg *config.Config, logger *logging.Logger) *Service {
	s := &Service{
		repo:    repo,
		cache:   metricsCache,
		ledger:  led,
		cfg:     cfg,
		logger:  logger,
		checker: validator.New(cfg.Engine.ObservationPeriodSeconds),

		queueEng:   queueing.New(cfg.Engine.MinDataPoints, cfg.Engine.VerificationTolerance),
		entropyEng: entropy.New(cfg.Engine.MinDataPoints, cfg.Engine.CVLowThreshold, cfg.Engine.CVHighThreshold),
		lossEng:    loss.New(cfg.Costs),
		insightGen: insight.New(cfg.Actions, cfg.Engine.ConfidenceThreshold),
	}
	s.agg = aggregator.New(s.servers)
	return s
}

// servers resolves the configured server count. The empty location means
// "all locations combined", whose capacity is the sum of the parts.
func (s *Service) servers(locationID string) int {
	if locationID != "" {
		return s.cfg.Servers(locationID)
	}
	total := 0
	for id := range s.cfg.Locations {
		total += s.cfg.Servers(id)
	}
	if total < 1 {
		total = 1
	}
	return total
}

// IngestEvent validates and persists one operational event, then drops
// the day's cached computations so they recompute against the new data.
func (s *Service) IngestEvent(ctx context.Context, ev *models.OperationalEvent, source string) error {
	if err := s.checker.Validate(ev); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			metrics.EventsRejected.WithLabelValues(source, verr.Reason).Inc()
		}
		return err
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.Must(uuid.NewV7())
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		return fmt.Errorf("failed to persist event: %w", err)
	}
	metrics.EventsIngested.WithLabelValues(source, string(ev.LocationType)).Inc()

	date := validator.FormatDate(ev.Timestamp)
	if err := s.cache.InvalidateDay(ctx, date); err != nil {
		s.logger.WarnContext(ctx, "cache invalidation failed", "date", date, "error", err)
	}
	return nil
}

// Summary returns the daily metrics rollup for a date and optional
// location, read through the cache.
func (s *Service) Summary(ctx context.Context, date, locationID string) (models.DailyMetricsSummary, error) {
	var out models.DailyMetricsSummary
	key := cache.Key("summary", date, locationID)
	if err := s.cache.Get(ctx, "summary", key, &out); err == nil {
		return out, nil
	}

	day, err := validator.ParseDate(date)
	if err != nil {
		return out, err
	}
	events, err := s.repo.EventsForDay(ctx, day, locationID)
	if err != nil {
		return out, fmt.Errorf("failed to load events: %w", err)
	}

	start := time.Now()
	out = s.agg.Summarize(date, locationID, events)
	s.observe("aggregator", out.Status, start)

	s.cachePut(ctx, key, out)
	return out, nil
}

// LittlesLaw computes the queueing result for a date and optional
// location.
func (s *Service) LittlesLaw(ctx context.Context, date, locationID string) (models.LittlesLawResult, error) {
	var out models.LittlesLawResult
	key := cache.Key("littles_law", date, locationID)
	if err := s.cache.Get(ctx, "littles_law", key, &out); err == nil {
		return out, nil
	}

	summary, err := s.Summary(ctx, date, locationID)
	if err != nil {
		return out, err
	}

	start := time.Now()
	out = s.queueEng.Compute(summary, s.servers(locationID))
	s.observe("queueing", out.Status, start)

	s.cachePut(ctx, key, out)
	return out, nil
}

// Entropy computes the variability result for a date and optional
// location. The Kingman estimate uses rho and mu from the queueing result
// for the same window.
func (s *Service) Entropy(ctx context.Context, date, locationID string) (models.EntropyResult, error) {
	var out models.EntropyResult
	key := cache.Key("entropy", date, locationID)
	if err := s.cache.Get(ctx, "entropy", key, &out); err == nil {
		return out, nil
	}

	day, err := validator.ParseDate(date)
	if err != nil {
		return out, err
	}
	events, err := s.repo.EventsForDay(ctx, day, locationID)
	if err != nil {
		return out, fmt.Errorf("failed to load events: %w", err)
	}

	littles, err := s.LittlesLaw(ctx, date, locationID)
	if err != nil {
		return out, err
	}
	rho, mu := -1.0, 0.0
	if littles.Status == models.StatusCalculated {
		rho = littles.Queue.UtilizationRho
		if w := littles.LittlesLaw.WSeconds - littles.Queue.WQSeconds; w > 0 {
			mu = 1 / w
		}
	}

	start := time.Now()
	out = s.entropyEng.Compute(date, locationID,
		entropy.InterarrivalSamples(events), entropy.ServiceSamples(events), rho, mu)
	s.observe("entropy", out.Status, start)

	s.cachePut(ctx, key, out)
	return out, nil
}

// Loss computes the conservative loss breakdown for a date and optional
// location.
func (s *Service) Loss(ctx context.Context, date, locationID string) (models.LossBreakdown, error) {
	var out models.LossBreakdown
	key := cache.Key("loss", date, locationID)
	if err := s.cache.Get(ctx, "loss", key, &out); err == nil {
		return out, nil
	}

	day, err := validator.ParseDate(date)
	if err != nil {
		return out, err
	}
	events, err := s.repo.EventsForDay(ctx, day, locationID)
	if err != nil {
		return out, fmt.Errorf("failed to load events: %w", err)
	}
	ent, err := s.Entropy(ctx, date, locationID)
	if err != nil {
		return out, err
	}

	start := time.Now()
	out = s.lossEng.Compute(date, locationID, events, s.servers(locationID), &ent)
	s.observe("loss", models.StatusCalculated, start)

	s.cachePut(ctx, key, out)
	return out, nil
}

func (s *Service) cachePut(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

func (s *Service) observe(engine string, status models.Status, start time.Time) {
	metrics.ComputationsTotal.WithLabelValues(engine, string(status)).Inc()
	metrics.ComputationDuration.WithLabelValues(engine).Observe(time.Since(start).Seconds())
}
