// Package aggregator rolls raw operational events up into per-day,
// per-location summaries. Summaries are derived data: recomputing one for
// the same (date, location) replaces the previous result.
package aggregator

import (
	"sort"

	"github.com/flowline-analytics/flowline/internal/models"
)

// Aggregator computes DailyMetricsSummary rollups.
type Aggregator struct {
	servers func(locationID string) int
}

// New creates an Aggregator. servers maps a location to its configured
// server-unit count; it must return at least 1.
func New(servers func(locationID string) int) *Aggregator {
	return &Aggregator{servers: servers}
}

// Summarize computes the rollup for one (date, location) slice of events.
// Events may arrive in any order; they are sorted by timestamp first.
// An empty slice yields a no_data summary with zeroed metrics.
func (a *Aggregator) Summarize(date, locationID string, events []models.OperationalEvent) models.DailyMetricsSummary {
	summary := models.DailyMetricsSummary{
		Status:     models.StatusNoData,
		Date:       date,
		LocationID: locationID,
	}
	if len(events) == 0 {
		return summary
	}

	sorted := make([]models.OperationalEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	c := a.servers(locationID)
	if c < 1 {
		c = 1
	}

	var (
		arrivals, departures int
		maxQueue             int
		weightedQueueSum     float64
		weightSum            float64
		waitSum, waitN       float64
		maxWait              float64
		serviceSum, serviceN float64
		busySeconds          float64
		capacitySeconds      float64
		peakUtil             float64
	)

	for i, ev := range sorted {
		arrivals += ev.ArrivalCount
		departures += ev.DepartureCount

		if ev.QueueLength > maxQueue {
			maxQueue = ev.QueueLength
		}

		// Each queue sample is weighted by the interval it was in force:
		// until the next sample, or its own observation period for the last.
		weight := ev.ObservationPeriodSeconds
		if i+1 < len(sorted) {
			if gap := sorted[i+1].Timestamp.Sub(ev.Timestamp).Seconds(); gap > 0 {
				weight = gap
			}
		}
		weightedQueueSum += float64(ev.QueueLength) * weight
		weightSum += weight

		if ev.WaitTimeSeconds != nil {
			waitSum += *ev.WaitTimeSeconds
			waitN++
			if *ev.WaitTimeSeconds > maxWait {
				maxWait = *ev.WaitTimeSeconds
			}
		}
		if ev.ServiceTimeSeconds != nil {
			serviceSum += *ev.ServiceTimeSeconds
			serviceN++
			busySeconds += float64(ev.DepartureCount) * *ev.ServiceTimeSeconds

			// Offered load in this interval: work arriving per unit of
			// capacity. This can legitimately exceed 1 during bursts.
			if ev.ObservationPeriodSeconds > 0 {
				offered := float64(ev.ArrivalCount) * *ev.ServiceTimeSeconds /
					(float64(c) * ev.ObservationPeriodSeconds)
				if offered > peakUtil {
					peakUtil = offered
				}
			}
		}
		capacitySeconds += ev.ObservationPeriodSeconds * float64(c)
	}

	summary.Status = models.StatusCalculated
	summary.DataPoints = len(sorted)
	summary.ElapsedSeconds = elapsed(sorted)

	summary.Flow = models.FlowMetrics{
		TotalArrivals:   arrivals,
		TotalDepartures: departures,
		NetFlow:         arrivals - departures,
	}

	avgQueue := 0.0
	if weightSum > 0 {
		avgQueue = weightedQueueSum / weightSum
	}
	summary.Queue = models.QueueMetrics{
		AvgQueueLength: avgQueue,
		MaxQueueLength: maxQueue,
	}

	avgWait := 0.0
	if waitN > 0 {
		avgWait = waitSum / waitN
	}
	avgService := 0.0
	if serviceN > 0 {
		avgService = serviceSum / serviceN
	}
	summary.Time = models.TimeMetrics{
		AvgWaitSeconds:    avgWait,
		MaxWaitSeconds:    maxWait,
		AvgServiceSeconds: avgService,
	}

	avgUtil := 0.0
	if capacitySeconds > 0 {
		avgUtil = busySeconds / capacitySeconds
	}
	summary.Utilization = models.UtilizationMetrics{
		AvgUtilization:  avgUtil,
		PeakUtilization: peakUtil,
		IsOverloaded:    peakUtil >= 1,
	}

	return summary
}

// elapsed is the span from the first sample to the end of the last sample's
// observation period. A single sample spans exactly its own period.
func elapsed(sorted []models.OperationalEvent) float64 {
	first := sorted[0].Timestamp
	last := sorted[len(sorted)-1]
	span := last.Timestamp.Sub(first).Seconds() + last.ObservationPeriodSeconds
	if span <= 0 {
		return last.ObservationPeriodSeconds
	}
	return span
}
