package entropy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowline-analytics/flowline/internal/models"
)

func TestCoefficientOfVariation(t *testing.T) {
	// Constant samples have zero variability.
	assert.Zero(t, CoefficientOfVariation([]float64{5, 5, 5, 5}))

	// Fewer than two samples is meaningless.
	assert.Zero(t, CoefficientOfVariation([]float64{5}))
	assert.Zero(t, CoefficientOfVariation(nil))

	// {2, 4, 6}: mean 4, sample stdev 2, CV 0.5.
	assert.InDelta(t, 0.5, CoefficientOfVariation([]float64{2, 4, 6}), 1e-9)
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestComputeStatuses(t *testing.T) {
	e := New(10, 0.5, 1.0)

	r := e.Compute("2026-03-14", "front_desk", nil, nil, -1, 0)
	assert.Equal(t, models.StatusNoData, r.Status)

	r = e.Compute("2026-03-14", "front_desk", repeat(60, 9), nil, -1, 0)
	assert.Equal(t, models.StatusInsufficientData, r.Status)

	r = e.Compute("2026-03-14", "front_desk", repeat(60, 10), repeat(90, 10), -1, 0)
	assert.Equal(t, models.StatusCalculated, r.Status)
	assert.Nil(t, r.KingmanImpact)
}

func TestComputeClassification(t *testing.T) {
	e := New(10, 0.5, 1.0)

	// Constant interarrivals: CV 0. Service CV defaults to the low
	// threshold when samples are missing, classifying as moderate.
	r := e.Compute("2026-03-14", "front_desk", repeat(60, 12), nil, -1, 0)
	require.Equal(t, models.StatusCalculated, r.Status)
	assert.Equal(t, models.VariabilityLow, r.Interpretation.ArrivalVariability)
	assert.Equal(t, models.VariabilityModerate, r.Interpretation.ServiceVariability)
	assert.InDelta(t, 0.5, r.Entropy.ServiceCV, 1e-9)
	// vim = (0 + 0.25)/2
	assert.InDelta(t, 0.125, r.Entropy.VarianceImpactMultiplier, 1e-9)
}

func TestComputeKingmanEstimate(t *testing.T) {
	e := New(10, 0.5, 1.0)

	r := e.Compute("2026-03-14", "front_desk", repeat(60, 12), repeat(90, 12), 0.5, 1.0/90.0)
	require.Equal(t, models.StatusCalculated, r.Status)
	require.NotNil(t, r.KingmanImpact)
	assert.Equal(t, models.StatusCalculated, r.KingmanImpact.Status)
	require.NotNil(t, r.KingmanImpact.WqEstimateSeconds)
	// Both CVs are 0, so the estimate collapses to 0.
	assert.InDelta(t, 0.0, *r.KingmanImpact.WqEstimateSeconds, 1e-9)
}

func TestComputeKingmanUnstable(t *testing.T) {
	e := New(10, 0.5, 1.0)

	r := e.Compute("2026-03-14", "front_desk", repeat(60, 12), repeat(90, 12), 1.2, 1.0/90.0)
	require.NotNil(t, r.KingmanImpact)
	assert.Equal(t, models.StatusUnstable, r.KingmanImpact.Status)
	assert.Nil(t, r.KingmanImpact.WqEstimateSeconds)
}

func TestInterarrivalSamples(t *testing.T) {
	events := []models.OperationalEvent{
		{ArrivalCount: 3, ObservationPeriodSeconds: 300},
		{ArrivalCount: 0, ObservationPeriodSeconds: 300},
		{ArrivalCount: 2, ObservationPeriodSeconds: 300},
	}
	samples := InterarrivalSamples(events)
	require.Len(t, samples, 5)
	assert.InDelta(t, 100.0, samples[0], 1e-9)
	assert.InDelta(t, 150.0, samples[4], 1e-9)
}

func TestAnalyzePatterns(t *testing.T) {
	e := New(10, 0.5, 1.0)

	var events []models.OperationalEvent
	base := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	// Steady mornings at hour 9, busy lunches at hour 12, quiet hour 15.
	for day := 0; day < 4; day++ {
		d := base.AddDate(0, 0, day)
		events = append(events,
			models.OperationalEvent{Timestamp: d.Add(9 * time.Hour), ArrivalCount: 5},
			models.OperationalEvent{Timestamp: d.Add(12 * time.Hour), ArrivalCount: 12},
			models.OperationalEvent{Timestamp: d.Add(15 * time.Hour), ArrivalCount: 2},
		)
	}

	p := e.AnalyzePatterns(events)
	require.Equal(t, models.StatusCalculated, p.Status)
	require.NotEmpty(t, p.PeakHours)
	assert.Equal(t, 12, p.PeakHours[0])
	assert.Empty(t, p.HighVariabilityHours)
	// Constant per-hour arrivals are fully predictable.
	assert.Equal(t, PredictabilityHigh, p.Predictability)
	assert.True(t, math.Abs(p.AvgCV) < 1e-9)
}

func TestAnalyzePatternsInsufficientData(t *testing.T) {
	e := New(10, 0.5, 1.0)
	p := e.AnalyzePatterns(make([]models.OperationalEvent, 5))
	assert.Equal(t, models.StatusInsufficientData, p.Status)
}
