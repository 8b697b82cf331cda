// Package queueing implements the Little's Law engine and the M/M/c
// helpers used for staffing what-if estimates.
package queueing

import (
	"math"

	"github.com/flowline-analytics/flowline/internal/models"
)

// Engine computes Little's Law results from daily summaries. All status
// conditions (no data, too little data, unstable system) are reported as
// data on the result, never as Go errors.
type Engine struct {
	minDataPoints int
	tolerance     float64
}

// New creates an Engine. minDataPoints is the inclusive threshold below
// which a window is insufficient; tolerance is the relative deviation
// allowed by the model-vs-observation cross-check.
func New(minDataPoints int, tolerance float64) *Engine {
	return &Engine{minDataPoints: minDataPoints, tolerance: tolerance}
}

// Compute derives L = lambda * W from the summary and cross-checks it
// against the observed time-weighted queue average. servers is the
// configured server-unit count for the summary's location.
func (e *Engine) Compute(summary models.DailyMetricsSummary, servers int) models.LittlesLawResult {
	result := models.LittlesLawResult{
		Status:         models.StatusNoData,
		Date:           summary.Date,
		LocationID:     summary.LocationID,
		DataPointsUsed: summary.DataPoints,
	}
	if summary.DataPoints == 0 {
		return result
	}
	if summary.DataPoints < e.minDataPoints {
		result.Status = models.StatusInsufficientData
		return result
	}
	if servers < 1 {
		servers = 1
	}

	lambda := 0.0
	if summary.ElapsedSeconds > 0 {
		lambda = float64(summary.Flow.TotalArrivals) / summary.ElapsedSeconds
	}
	w := summary.Time.AvgWaitSeconds + summary.Time.AvgServiceSeconds
	l := lambda * w

	// Utilization rho = lambda / (c * mu). With no service-time
	// observations mu is unknown; the system is reported as saturated
	// rather than guessed at.
	rho := 1.0
	if summary.Time.AvgServiceSeconds > 0 {
		mu := 1.0 / summary.Time.AvgServiceSeconds
		rho = lambda / (float64(servers) * mu)
	}

	// Relative deviation against the observed average. With nothing
	// observed, a zero model agrees perfectly and anything else is a
	// full-scale disagreement.
	lObserved := summary.Queue.AvgQueueLength
	deviation := 0.0
	switch {
	case lObserved > 0:
		deviation = math.Abs(l-lObserved) / lObserved
	case l > 0:
		deviation = 1.0
	}

	result.Status = models.StatusCalculated
	result.LittlesLaw = models.LittlesLawValues{
		L:          l,
		LambdaRate: lambda,
		WSeconds:   w,
	}
	result.Queue = models.QueueOnlyValues{
		LQ:             l * rho,
		WQSeconds:      math.Max(0, w-summary.Time.AvgServiceSeconds),
		UtilizationRho: rho,
	}
	result.Verification = models.Verification{
		Verified:  deviation <= e.tolerance,
		LObserved: lObserved,
		Deviation: deviation,
		Tolerance: e.tolerance,
	}
	result.SystemState = models.SystemState{IsStable: rho < 1}
	return result
}
