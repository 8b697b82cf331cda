package entropy

import (
	"sort"

	"github.com/flowline-analytics/flowline/internal/models"
)

// Predictability is the closed set of pattern classifications.
type Predictability string

const (
	PredictabilityHigh   Predictability = "high"
	PredictabilityMedium Predictability = "medium"
	PredictabilityLow    Predictability = "low"
)

// HourlyStat summarizes one hour-of-day bucket.
type HourlyStat struct {
	Hour  int     `json:"hour"`
	Mean  float64 `json:"mean"`
	CV    float64 `json:"cv"`
	Count int     `json:"count"`
}

// PatternAnalysis reports temporal arrival patterns for a window.
type PatternAnalysis struct {
	Status               models.Status  `json:"status"`
	PeakHours            []int          `json:"peak_hours"`
	HighVariabilityHours []int          `json:"high_variability_hours"`
	Predictability       Predictability `json:"predictability"`
	AvgCV                float64        `json:"avg_cv"`
	HourlyStats          []HourlyStat   `json:"hourly_stats"`
}

// minBucketSamples is the smallest hour bucket worth classifying; a CV
// over one or two samples is noise.
const minBucketSamples = 3

// AnalyzePatterns groups events by hour of day and reports peak hours
// (top three by mean arrivals), hours with high arrival variability, and
// an overall predictability classification.
func (e *Engine) AnalyzePatterns(events []models.OperationalEvent) PatternAnalysis {
	if len(events) < e.minDataPoints {
		return PatternAnalysis{Status: models.StatusInsufficientData}
	}

	buckets := make(map[int][]float64)
	for _, ev := range events {
		h := ev.Timestamp.UTC().Hour()
		buckets[h] = append(buckets[h], float64(ev.ArrivalCount))
	}

	stats := make([]HourlyStat, 0, len(buckets))
	for h, arrivals := range buckets {
		mean := 0.0
		for _, a := range arrivals {
			mean += a
		}
		mean /= float64(len(arrivals))
		stats = append(stats, HourlyStat{
			Hour:  h,
			Mean:  mean,
			CV:    CoefficientOfVariation(arrivals),
			Count: len(arrivals),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Hour < stats[j].Hour })

	byMean := make([]HourlyStat, len(stats))
	copy(byMean, stats)
	sort.Slice(byMean, func(i, j int) bool {
		if byMean[i].Mean != byMean[j].Mean {
			return byMean[i].Mean > byMean[j].Mean
		}
		return byMean[i].Hour < byMean[j].Hour
	})
	var peaks []int
	for _, s := range byMean {
		if len(peaks) == 3 || s.Mean <= 0 {
			break
		}
		peaks = append(peaks, s.Hour)
	}

	var highVar []int
	var cvSum float64
	var cvN int
	for _, s := range stats {
		if s.Count < minBucketSamples {
			continue
		}
		cvSum += s.CV
		cvN++
		if s.CV > e.cvHigh {
			highVar = append(highVar, s.Hour)
		}
	}
	avgCV := 0.0
	if cvN > 0 {
		avgCV = cvSum / float64(cvN)
	}

	predictability := PredictabilityLow
	switch {
	case avgCV < e.cvLow:
		predictability = PredictabilityHigh
	case avgCV < e.cvHigh:
		predictability = PredictabilityMedium
	}

	return PatternAnalysis{
		Status:               models.StatusCalculated,
		PeakHours:            peaks,
		HighVariabilityHours: highVar,
		Predictability:       predictability,
		AvgCV:                avgCV,
		HourlyStats:          stats,
	}
}
