package loss

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowline-analytics/flowline/internal/config"
	"github.com/flowline-analytics/flowline/internal/models"
)

func testCosts() config.CostConfig {
	return config.CostConfig{
		RevenuePerCustomer:       150,
		CustomerLifetimeValue:    500,
		TimeValuePerMinute:       2,
		AcceptableWaitMinutes:    5,
		LaborCostPerHour:         25,
		OvertimeMultiplier:       1.5,
		WalkawayThresholdMinutes: 15,
		WalkawayProbPerMinute:    0.02,
		ConservativeFactor:       0.7,
		TargetUtilization:        0.85,
	}
}

func f(v float64) *float64 { return &v }

func event(arrivals, departures, queue int, wait, service *float64) models.OperationalEvent {
	return models.OperationalEvent{
		Timestamp:                time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		LocationID:               "front_desk",
		LocationType:             models.LocationFrontDesk,
		ArrivalCount:             arrivals,
		DepartureCount:           departures,
		QueueLength:              queue,
		WaitTimeSeconds:          wait,
		ServiceTimeSeconds:       service,
		ObservationPeriodSeconds: 300,
	}
}

func TestComputeEmptyEventsIsZero(t *testing.T) {
	e := New(testCosts())
	b := e.Compute("2026-03-14", "front_desk", nil, 3, nil)
	assert.Zero(t, b.TotalLoss)
	for _, cat := range models.LossCategories() {
		assert.Contains(t, b.Categories, cat)
	}
}

func TestWaitTimeCost(t *testing.T) {
	e := New(testCosts())
	// 10 minutes of wait, 5 acceptable: 5 excess minutes for each of 4
	// waiting customers = 20 excess minutes.
	// 20 * $2/min * 0.7 = $28.
	events := []models.OperationalEvent{event(4, 4, 4, f(600), nil)}
	b := e.Compute("2026-03-14", "front_desk", events, 3, nil)
	assert.InDelta(t, 28.0, b.Categories[models.LossWaitTime], 1e-9)
}

func TestWaitBelowThresholdCostsNothing(t *testing.T) {
	e := New(testCosts())
	events := []models.OperationalEvent{event(4, 4, 4, f(240), nil)}
	b := e.Compute("2026-03-14", "front_desk", events, 3, nil)
	assert.Zero(t, b.Categories[models.LossWaitTime])
}

func TestVariabilityInflatesWaitCost(t *testing.T) {
	e := New(testCosts())
	events := []models.OperationalEvent{event(4, 4, 4, f(600), nil)}

	entropy := &models.EntropyResult{
		Status:  models.StatusCalculated,
		Entropy: models.EntropyValues{VarianceImpactMultiplier: 1.5},
	}
	b := e.Compute("2026-03-14", "front_desk", events, 3, entropy)
	assert.InDelta(t, 42.0, b.Categories[models.LossWaitTime], 1e-9)

	// The multiplier is capped at 2 even for extreme variability.
	entropy.Entropy.VarianceImpactMultiplier = 9.0
	b = e.Compute("2026-03-14", "front_desk", events, 3, entropy)
	assert.InDelta(t, 56.0, b.Categories[models.LossWaitTime], 1e-9)
}

func TestWalkawayLowerBound(t *testing.T) {
	e := New(testCosts())
	// 40 minutes of wait: 25 excess minutes over the 15-minute threshold,
	// p = min(0.5, 25*0.02) = 0.5. Queue of 20: np = 10,
	// lower bound = 10 - 1.645*sqrt(5) ~ 6.32, floored to 6.
	// Cost: 6 * (150 + 50) * 0.7 = $840.
	events := []models.OperationalEvent{event(20, 20, 20, f(2400), nil)}
	b := e.Compute("2026-03-14", "front_desk", events, 3, nil)
	assert.InDelta(t, 840.0, b.Categories[models.LossWalkaway], 1e-9)
}

func TestWalkawaySmallQueueConservativelyZero(t *testing.T) {
	e := New(testCosts())
	// Queue of 1 with modest excess wait: np is small enough that the
	// lower bound clamps to zero. Nothing is provable, nothing is charged.
	events := []models.OperationalEvent{event(1, 1, 1, f(1200), nil)}
	b := e.Compute("2026-03-14", "front_desk", events, 3, nil)
	assert.Zero(t, b.Categories[models.LossWalkaway])
}

func TestThroughputLoss(t *testing.T) {
	e := New(testCosts())
	// 1 server, 300s window, 100s service: capacity 3. 10 arrivals is
	// above the 20% buffer, so 7 are provably lost.
	// 7 * $150 * 0.7 = $735.
	events := []models.OperationalEvent{event(10, 3, 7, nil, f(100))}
	b := e.Compute("2026-03-14", "front_desk", events, 1, nil)
	assert.InDelta(t, 735.0, b.Categories[models.LossLostThroughput], 1e-9)
}

func TestOvertimeCost(t *testing.T) {
	e := New(testCosts())
	// 1 server: util = arrivalRate/depRate = 6/3 = 2.0, one full server
	// of overload for 300s. 300s/3600 * $25 * 0.5 premium * 0.7 = $0.73.
	events := []models.OperationalEvent{event(6, 3, 3, nil, nil)}
	b := e.Compute("2026-03-14", "front_desk", events, 1, nil)
	assert.InDelta(t, 0.73, b.Categories[models.LossOvertime], 1e-9)
}

func TestIdleTimeCost(t *testing.T) {
	e := New(testCosts())
	// 2 servers: util = 1/(2*4) = 0.125, well below 0.7*0.85. Idle
	// fraction 0.725 over 300s and 2 servers = 435s.
	// 435/3600 * $25 * 0.7 = $2.11.
	events := []models.OperationalEvent{event(1, 4, 0, nil, nil)}
	b := e.Compute("2026-03-14", "front_desk", events, 2, nil)
	assert.InDelta(t, 2.11, b.Categories[models.LossIdleTime], 1e-9)
}

func TestTotalLossIsSumOfCategories(t *testing.T) {
	e := New(testCosts())
	events := []models.OperationalEvent{
		event(10, 3, 7, f(600), f(100)),
		event(1, 4, 0, nil, nil),
	}
	b := e.Compute("2026-03-14", "front_desk", events, 2, nil)

	var sum float64
	for _, v := range b.Categories {
		sum += v
	}
	assert.InDelta(t, sum, b.TotalLoss, 0.01)
	assert.Positive(t, b.TotalLoss)
}

func TestTopLossPoint(t *testing.T) {
	breakdowns := []models.LossBreakdown{
		{
			LocationID: "front_desk",
			Categories: map[string]float64{models.LossWaitTime: 120, models.LossWalkaway: 80},
		},
		{
			LocationID: "restaurant",
			Categories: map[string]float64{models.LossOvertime: 200},
		},
	}

	top := TopLossPoint(breakdowns)
	require.NotNil(t, top)
	assert.Equal(t, "restaurant", top.LocationID)
	assert.Equal(t, models.LossOvertime, top.Category)
	assert.InDelta(t, 200.0, top.Amount, 1e-9)
}

func TestTopLossPointTieBreaksLexicographically(t *testing.T) {
	breakdowns := []models.LossBreakdown{
		{
			LocationID: "front_desk",
			Categories: map[string]float64{
				models.LossWalkaway: 100,
				models.LossWaitTime: 100,
			},
		},
	}

	top := TopLossPoint(breakdowns)
	require.NotNil(t, top)
	// "wait_time_cost" sorts before "walkaway_cost".
	assert.Equal(t, models.LossWaitTime, top.Category)
}

func TestTopLossPointAllZero(t *testing.T) {
	breakdowns := []models.LossBreakdown{
		{LocationID: "lobby", Categories: map[string]float64{models.LossWaitTime: 0}},
	}
	assert.Nil(t, TopLossPoint(breakdowns))
}
