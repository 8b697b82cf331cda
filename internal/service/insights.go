package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowline-analytics/flowline/internal/cache"
	"github.com/flowline-analytics/flowline/internal/entropy"
	"github.com/flowline-analytics/flowline/internal/insight"
	"github.com/flowline-analytics/flowline/internal/ledger"
	"github.com/flowline-analytics/flowline/internal/loss"
	"github.com/flowline-analytics/flowline/internal/models"
	"github.com/flowline-analytics/flowline/internal/repository"
	"github.com/flowline-analytics/flowline/internal/validator"
)

// secondsPerDay sizes the expected-sample denominator for completeness.
const secondsPerDay = 86400

// DailyInsight builds the per-day rollup: losses by location, the top
// loss point, and the headline recommendation. Candidates are persisted
// so the pending-actions listing survives restarts.
func (s *Service) DailyInsight(ctx context.Context, date string) (models.DailyInsight, error) {
	var out models.DailyInsight
	key := cache.Key("insight", date, "")
	if err := s.cache.Get(ctx, "insight", key, &out); err == nil {
		return out, nil
	}

	day, err := validator.ParseDate(date)
	if err != nil {
		return out, err
	}
	locations, err := s.repo.LocationsForDay(ctx, day)
	if err != nil {
		return out, fmt.Errorf("failed to list locations: %w", err)
	}

	out = models.DailyInsight{
		Status:         models.StatusNoData,
		Date:           date,
		LossByLocation: map[string]float64{},
	}
	if len(locations) == 0 {
		return out, nil
	}

	var candidates []models.ActionRecommendation
	var observations int
	expectedPerLocation := secondsPerDay / s.cfg.Engine.ObservationPeriodSeconds

	for _, loc := range locations {
		events, err := s.repo.EventsForDay(ctx, day, loc)
		if err != nil {
			return out, fmt.Errorf("failed to load events for %s: %w", loc, err)
		}
		observations += len(events)

		ent, err := s.Entropy(ctx, date, loc)
		if err != nil {
			return out, err
		}
		breakdown, err := s.Loss(ctx, date, loc)
		if err != nil {
			return out, err
		}

		out.Breakdowns = append(out.Breakdowns, breakdown)
		out.LossByLocation[loc] = breakdown.TotalLoss
		out.TotalLoss += breakdown.TotalLoss

		patterns := s.entropyEng.AnalyzePatterns(events)
		completeness := float64(len(events)) / expectedPerLocation

		candidates = append(candidates, s.insightGen.Candidates(date, insight.LocationInput{
			LocationID:   loc,
			Breakdown:    breakdown,
			Entropy:      &ent,
			Patterns:     &patterns,
			Completeness: completeness,
		})...)
	}

	out.Status = models.StatusGenerated
	out.TotalLoss = models.RoundMoney(out.TotalLoss)
	out.TopLossPoint = loss.TopLossPoint(out.Breakdowns)
	out.Candidates = candidates
	out.Recommendation = s.insightGen.SelectBest(candidates)
	out.DataCompleteness = float64(observations) / (expectedPerLocation * float64(len(locations)))

	if err := s.repo.SaveRecommendations(ctx, candidates); err != nil {
		return out, fmt.Errorf("failed to persist recommendations: %w", err)
	}

	s.cachePut(ctx, key, out)
	return out, nil
}

// WeeklyInsight aggregates the seven days ending at endDate.
func (s *Service) WeeklyInsight(ctx context.Context, endDate string) (models.WeeklySummary, error) {
	end, err := validator.ParseDate(endDate)
	if err != nil {
		return models.WeeklySummary{}, err
	}

	var days []models.DailyInsight
	for i := 6; i >= 0; i-- {
		date := validator.FormatDate(end.AddDate(0, 0, -i))
		daily, err := s.DailyInsight(ctx, date)
		if err != nil {
			return models.WeeklySummary{}, err
		}
		if daily.Status == models.StatusNoData {
			continue
		}
		days = append(days, daily)
	}
	return insight.Weekly(days), nil
}

// trendHorizonDays is the fixed lookback window for trend analysis.
const trendHorizonDays = 30

// TrendInsight fits the loss trajectory over the 30 days ending at
// endDate.
func (s *Service) TrendInsight(ctx context.Context, endDate string) (models.TrendAnalysis, error) {
	end, err := validator.ParseDate(endDate)
	if err != nil {
		return models.TrendAnalysis{}, err
	}

	var series []models.DailyLossPoint
	for i := trendHorizonDays - 1; i >= 0; i-- {
		date := validator.FormatDate(end.AddDate(0, 0, -i))
		daily, err := s.DailyInsight(ctx, date)
		if err != nil {
			return models.TrendAnalysis{}, err
		}
		if daily.Status == models.StatusNoData {
			continue
		}
		series = append(series, models.DailyLossPoint{Date: date, TotalLoss: daily.TotalLoss})
	}
	return insight.Trend(series), nil
}

// ActionsForDay lists the candidates generated for one date with their
// combined midpoint recovery.
func (s *Service) ActionsForDay(ctx context.Context, date string) ([]models.ActionRecommendation, float64, error) {
	day, err := validator.ParseDate(date)
	if err != nil {
		return nil, 0, err
	}
	recs, err := s.repo.RecommendationsForDay(ctx, day)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load recommendations: %w", err)
	}
	return recs, potentialRecovery(recs), nil
}

// PendingActions lists unapplied candidates across all dates.
func (s *Service) PendingActions(ctx context.Context) ([]models.ActionRecommendation, float64, error) {
	recs, err := s.repo.PendingRecommendations(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load pending recommendations: %w", err)
	}
	return recs, potentialRecovery(recs), nil
}

func potentialRecovery(recs []models.ActionRecommendation) float64 {
	var total float64
	for _, r := range recs {
		total += r.EstimatedSavings.Midpoint()
	}
	return models.RoundMoney(total)
}

// ApplyAction marks a recommendation as acted upon and records the
// intervention in the ROI ledger using the recommendation's date loss as
// the before figure.
func (s *Service) ApplyAction(ctx context.Context, id uuid.UUID, afterLoss float64) (models.ROILogEntry, error) {
	rec, err := s.repo.MarkRecommendationApplied(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.ROILogEntry{}, ErrNotFound
		}
		return models.ROILogEntry{}, err
	}

	breakdown, err := s.Loss(ctx, rec.Date, rec.LocationID)
	if err != nil {
		return models.ROILogEntry{}, err
	}

	return s.ledger.Append(ctx, ledger.AppendRequest{
		ActionType:        rec.ActionType,
		ActionDescription: rec.Description,
		BeforeLoss:        breakdown.TotalLoss,
		AfterLoss:         afterLoss,
		ActionCost:        rec.ImplementationCost,
		Timestamp:         time.Now(),
	})
}

// AppendROI records an intervention directly.
func (s *Service) AppendROI(ctx context.Context, req ledger.AppendRequest) (models.ROILogEntry, error) {
	return s.ledger.Append(ctx, req)
}

// ROILog returns ledger entries newest-first with the total count.
func (s *Service) ROILog(ctx context.Context, limit, skip int) ([]models.ROILogEntry, int64, error) {
	return s.ledger.List(ctx, limit, skip)
}

// ROISummary returns the cumulative report.
func (s *Service) ROISummary(ctx context.Context) (models.ROISummary, error) {
	return s.ledger.Summary(ctx)
}

// VerifyROIEntry re-checks one entry's hash.
func (s *Service) VerifyROIEntry(ctx context.Context, id uuid.UUID) (models.ROILogEntry, error) {
	entry, err := s.ledger.VerifyEntry(ctx, id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return models.ROILogEntry{}, ErrNotFound
		}
		return models.ROILogEntry{}, err
	}
	return entry, nil
}

// VerifyROIChain replays the whole chain.
func (s *Service) VerifyROIChain(ctx context.Context) (models.ChainIntegrityReport, error) {
	return s.ledger.VerifyChain(ctx)
}

// Patterns exposes the hourly demand pattern analysis for one day and
// location.
func (s *Service) Patterns(ctx context.Context, date, locationID string) (entropy.PatternAnalysis, error) {
	day, err := validator.ParseDate(date)
	if err != nil {
		return entropy.PatternAnalysis{}, err
	}
	events, err := s.repo.EventsForDay(ctx, day, locationID)
	if err != nil {
		return entropy.PatternAnalysis{}, fmt.Errorf("failed to load events: %w", err)
	}
	return s.entropyEng.AnalyzePatterns(events), nil
}
