// Package entropy measures operational variability: coefficients of
// variation over interarrival and service samples, and the Kingman wait
// impact they imply.
package entropy

import (
	"math"

	"github.com/flowline-analytics/flowline/internal/models"
)

const kingmanFormula = "Wq = (rho/(1-rho)) * ((Ca^2 + Cs^2)/2) * (1/mu)"

// Engine classifies variability against configurable CV thresholds.
type Engine struct {
	minDataPoints int
	cvLow         float64
	cvHigh        float64
}

// New creates an Engine. cvLow and cvHigh split the low/moderate/high
// classification bands.
func New(minDataPoints int, cvLow, cvHigh float64) *Engine {
	return &Engine{minDataPoints: minDataPoints, cvLow: cvLow, cvHigh: cvHigh}
}

// Compute builds an EntropyResult from raw interarrival and service
// samples, in seconds. rho and mu come from the queueing result for the
// same window; pass rho < 0 when utilization is unknown to skip the
// Kingman estimate.
func (e *Engine) Compute(date, locationID string, interarrival, service []float64, rho, mu float64) models.EntropyResult {
	result := models.EntropyResult{
		Status:         models.StatusNoData,
		Date:           date,
		LocationID:     locationID,
		DataPointsUsed: len(interarrival),
	}
	if len(interarrival) == 0 {
		return result
	}
	if len(interarrival) < e.minDataPoints {
		result.Status = models.StatusInsufficientData
		return result
	}

	arrivalCV := CoefficientOfVariation(interarrival)

	// With too few service observations assume moderate variability
	// rather than reporting a spuriously clean CV of zero.
	serviceCV := e.cvLow
	if len(service) >= e.minDataPoints {
		serviceCV = CoefficientOfVariation(service)
	}

	vim := (arrivalCV*arrivalCV + serviceCV*serviceCV) / 2

	result.Status = models.StatusCalculated
	result.Entropy = models.EntropyValues{
		ArrivalCV:                arrivalCV,
		ServiceCV:                serviceCV,
		VarianceImpactMultiplier: vim,
	}
	result.Interpretation = models.EntropyInterpretation{
		ArrivalVariability: e.classify(arrivalCV),
		ServiceVariability: e.classify(serviceCV),
	}
	if rho >= 0 {
		result.KingmanImpact = e.kingman(rho, mu, vim)
	}
	return result
}

// kingman applies the G/G/1 approximation. Past saturation the formula has
// no validity domain, so only the interpretation is returned.
func (e *Engine) kingman(rho, mu, vim float64) *models.KingmanImpact {
	if rho >= 1 {
		return &models.KingmanImpact{
			Status:         models.StatusUnstable,
			Interpretation: "system at or above capacity, wait time unbounded",
			Formula:        kingmanFormula,
		}
	}
	impact := &models.KingmanImpact{
		Status:         models.StatusCalculated,
		Interpretation: e.interpretVariability(vim),
		Formula:        kingmanFormula,
	}
	if mu > 0 {
		wq := (rho / (1 - rho)) * vim * (1 / mu)
		impact.WqEstimateSeconds = &wq
	}
	return impact
}

func (e *Engine) interpretVariability(vim float64) string {
	switch {
	case vim < e.cvLow:
		return "low variability, efficient operations"
	case vim < e.cvHigh:
		return "moderate variability, typical for most systems"
	case vim < 2*e.cvHigh:
		return "high variability, significant wait time impact"
	default:
		return "very high variability, major operational challenge"
	}
}

func (e *Engine) classify(cv float64) models.VariabilityLevel {
	switch {
	case cv < e.cvLow:
		return models.VariabilityLow
	case cv < e.cvHigh:
		return models.VariabilityModerate
	default:
		return models.VariabilityHigh
	}
}

// CoefficientOfVariation returns sample stdev / mean, or 0 when fewer
// than two samples or a non-positive mean make the ratio meaningless.
func CoefficientOfVariation(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	mean := 0.0
	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))
	if mean <= 0 {
		return 0
	}
	var ss float64
	for _, s := range samples {
		d := s - mean
		ss += d * d
	}
	stdev := math.Sqrt(ss / float64(len(samples)-1))
	return stdev / mean
}

// InterarrivalSamples derives per-arrival spacing from aggregate counts:
// an event reporting k arrivals over a p-second window contributes k
// samples of p/k seconds each.
func InterarrivalSamples(events []models.OperationalEvent) []float64 {
	var samples []float64
	for _, ev := range events {
		if ev.ArrivalCount <= 0 || ev.ObservationPeriodSeconds <= 0 {
			continue
		}
		gap := ev.ObservationPeriodSeconds / float64(ev.ArrivalCount)
		for i := 0; i < ev.ArrivalCount; i++ {
			samples = append(samples, gap)
		}
	}
	return samples
}

// ServiceSamples extracts the non-nil service durations.
func ServiceSamples(events []models.OperationalEvent) []float64 {
	var samples []float64
	for _, ev := range events {
		if ev.ServiceTimeSeconds != nil {
			samples = append(samples, *ev.ServiceTimeSeconds)
		}
	}
	return samples
}
