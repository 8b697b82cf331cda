package insight

import (
	"math"

	"github.com/flowline-analytics/flowline/internal/models"
)

// Weekly aggregates up to seven daily insights into the weekly report.
// Days must be ordered by date ascending.
func Weekly(days []models.DailyInsight) models.WeeklySummary {
	summary := models.WeeklySummary{
		Status:         models.StatusNoData,
		DailyBreakdown: []models.DailyLossPoint{},
		LossByCategory: map[string]float64{},
	}
	if len(days) == 0 {
		return summary
	}

	summary.Status = models.StatusCalculated
	summary.StartDate = days[0].Date
	summary.EndDate = days[len(days)-1].Date

	for _, d := range days {
		point := models.DailyLossPoint{Date: d.Date, TotalLoss: d.TotalLoss}
		summary.DailyBreakdown = append(summary.DailyBreakdown, point)
		summary.TotalLoss += d.TotalLoss

		if summary.WorstDay == nil || point.TotalLoss > summary.WorstDay.TotalLoss {
			p := point
			summary.WorstDay = &p
		}
		if summary.BestDay == nil || point.TotalLoss < summary.BestDay.TotalLoss {
			p := point
			summary.BestDay = &p
		}

		for _, b := range d.Breakdowns {
			for cat, amount := range b.Categories {
				summary.LossByCategory[cat] += amount
			}
		}
	}

	summary.TotalLoss = models.RoundMoney(summary.TotalLoss)
	summary.AvgDailyLoss = models.RoundMoney(summary.TotalLoss / float64(len(days)))
	for cat, amount := range summary.LossByCategory {
		summary.LossByCategory[cat] = models.RoundMoney(amount)
	}
	return summary
}

// stableBand is the relative slope below which a trend reads as flat.
const stableBand = 0.02

// Trend fits a least-squares line through the daily loss series and
// classifies the direction. The series must be ordered by date ascending;
// change_percentage compares the last seven days with the seven before.
func Trend(series []models.DailyLossPoint) models.TrendAnalysis {
	analysis := models.TrendAnalysis{
		Status: models.StatusNoData,
		Series: series,
	}
	if len(series) < 2 {
		return analysis
	}

	slope := regressionSlope(series)
	mean := 0.0
	for _, p := range series {
		mean += p.TotalLoss
	}
	mean /= float64(len(series))

	analysis.Status = models.StatusCalculated
	analysis.SlopePerDay = models.RoundMoney(slope)
	analysis.Direction = models.TrendStable
	if mean > 0 {
		switch rel := slope / mean; {
		case rel > stableBand:
			analysis.Direction = models.TrendWorsening
		case rel < -stableBand:
			analysis.Direction = models.TrendImproving
		}
	}
	analysis.ChangePercentage = weekOverWeek(series)
	return analysis
}

func regressionSlope(series []models.DailyLossPoint) float64 {
	n := float64(len(series))
	var sumX, sumY, sumXY, sumXX float64
	for i, p := range series {
		x := float64(i)
		sumX += x
		sumY += p.TotalLoss
		sumXY += x * p.TotalLoss
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// weekOverWeek compares the trailing seven days against the seven before
// them; 0 when there is not enough history or the prior week was lossless.
func weekOverWeek(series []models.DailyLossPoint) float64 {
	if len(series) < 14 {
		return 0
	}
	recent := series[len(series)-7:]
	prior := series[len(series)-14 : len(series)-7]

	var recentSum, priorSum float64
	for _, p := range recent {
		recentSum += p.TotalLoss
	}
	for _, p := range prior {
		priorSum += p.TotalLoss
	}
	if priorSum == 0 {
		return 0
	}
	return math.Round((recentSum-priorSum)/priorSum*10000) / 100
}
