package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowline-analytics/flowline/internal/models"
)

func fixedServers(n int) func(string) int {
	return func(string) int { return n }
}

func event(ts time.Time, arrivals, departures, queue int, wait, service *float64) models.OperationalEvent {
	return models.OperationalEvent{
		Timestamp:                ts,
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

func f(v float64) *float64 { return &v }

func TestSummarizeEmptyIsNoData(t *testing.T) {
	a := New(fixedServers(3))
	s := a.Summarize("2026-03-14", "front_desk", nil)
	assert.Equal(t, models.StatusNoData, s.Status)
	assert.Zero(t, s.DataPoints)
}

func TestSummarizeFrontDeskDay(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	events := []models.OperationalEvent{
		event(base, 5, 4, 2, f(120), f(90)),
		event(base.Add(5*time.Minute), 4, 5, 1, f(100), f(80)),
		event(base.Add(10*time.Minute), 6, 5, 3, f(150), f(95)),
		event(base.Add(15*time.Minute), 3, 3, 1, f(90), f(85)),
	}

	a := New(fixedServers(3))
	s := a.Summarize("2026-03-14", "front_desk", events)

	require.Equal(t, models.StatusCalculated, s.Status)
	assert.Equal(t, 4, s.DataPoints)
	assert.Equal(t, 18, s.Flow.TotalArrivals)
	assert.Equal(t, 17, s.Flow.TotalDepartures)
	assert.Equal(t, 1, s.Flow.NetFlow)

	// Uniform 300s spacing makes the time-weighted average the plain mean.
	assert.InDelta(t, 1.75, s.Queue.AvgQueueLength, 1e-9)
	assert.Equal(t, 3, s.Queue.MaxQueueLength)

	assert.InDelta(t, 115.0, s.Time.AvgWaitSeconds, 1e-9)
	assert.InDelta(t, 150.0, s.Time.MaxWaitSeconds, 1e-9)
	assert.InDelta(t, 87.5, s.Time.AvgServiceSeconds, 1e-9)

	// Four samples of 300s each.
	assert.InDelta(t, 1200.0, s.ElapsedSeconds, 1e-9)
	assert.False(t, s.Utilization.IsOverloaded)
}

func TestSummarizeTimeWeightedQueueAverage(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	// First sample in force for 600s, second for its 300s period.
	events := []models.OperationalEvent{
		event(base, 1, 1, 4, nil, nil),
		event(base.Add(10*time.Minute), 1, 1, 1, nil, nil),
	}

	a := New(fixedServers(1))
	s := a.Summarize("2026-03-14", "front_desk", events)

	// (4*600 + 1*300) / 900 = 3.0
	assert.InDelta(t, 3.0, s.Queue.AvgQueueLength, 1e-9)
	assert.InDelta(t, 900.0, s.ElapsedSeconds, 1e-9)
}

func TestSummarizeHandlesUnorderedEvents(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	events := []models.OperationalEvent{
		event(base.Add(5*time.Minute), 2, 2, 1, nil, nil),
		event(base, 3, 1, 2, nil, nil),
	}

	a := New(fixedServers(1))
	s := a.Summarize("2026-03-14", "front_desk", events)

	assert.Equal(t, 5, s.Flow.TotalArrivals)
	assert.Equal(t, 3, s.Flow.TotalDepartures)
	// 600s span: first sample at t=0, second sample's period ends at 600s.
	assert.InDelta(t, 600.0, s.ElapsedSeconds, 1e-9)
}

func TestSummarizeOverloadDetection(t *testing.T) {
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	// One server, 300s window, 5 arrivals needing 90s each: offered load
	// 450/300 = 1.5.
	events := []models.OperationalEvent{
		event(base, 5, 3, 4, f(200), f(90)),
	}

	a := New(fixedServers(1))
	s := a.Summarize("2026-03-14", "front_desk", events)

	assert.InDelta(t, 1.5, s.Utilization.PeakUtilization, 1e-9)
	assert.True(t, s.Utilization.IsOverloaded)
}
