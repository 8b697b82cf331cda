package models

import (
	"time"

	"github.com/google/uuid"
)

// ActionType is the closed set of recommended interventions.
type ActionType string

const (
	ActionAddStaffPeak         ActionType = "add_staff_peak"
	ActionAddCapacity          ActionType = "add_capacity"
	ActionQueueManagement      ActionType = "queue_management"
	ActionScheduleOptimization ActionType = "schedule_optimization"
	ActionDemandSmoothing      ActionType = "demand_smoothing"
)

// ValidActionType reports whether t is a known action type.
func ValidActionType(t ActionType) bool {
	switch t {
	case ActionAddStaffPeak, ActionAddCapacity, ActionQueueManagement,
		ActionScheduleOptimization, ActionDemandSmoothing:
		return true
	}
	return false
}

// SavingsRange is the estimated recoverable loss for an action, as a
// min/max band rather than a point figure.
type SavingsRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Midpoint returns the center of the band.
func (r SavingsRange) Midpoint() float64 {
	return (r.Min + r.Max) / 2
}

// ActionRecommendation is one candidate intervention with its cost/benefit
// estimate. Confidence below the selection threshold keeps a candidate out
// of the daily headline recommendation but it is still persisted.
type ActionRecommendation struct {
	ID                  uuid.UUID    `json:"id"`
	Date                string       `json:"date"`
	LocationID          string       `json:"location_id"`
	ActionType          ActionType   `json:"action_type"`
	Description         string       `json:"description"`
	TargetCategory      string       `json:"target_category"`
	EstimatedSavings    SavingsRange `json:"estimated_savings"`
	ImplementationCost  float64      `json:"implementation_cost"`
	NetBenefitEstimate  float64      `json:"net_benefit_estimate"`
	Confidence          float64      `json:"confidence"`
	Applied             bool         `json:"applied"`
	CreatedAt           time.Time    `json:"created_at"`
}

// TopLossPoint identifies the single worst (location, category) pair.
type TopLossPoint struct {
	LocationID string  `json:"location_id"`
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
}

// DailyInsight is the per-day narrative rollup: losses, the dominant loss
// point, and the single headline recommendation if any candidate cleared
// the confidence bar.
type DailyInsight struct {
	Status           Status                 `json:"status"`
	Date             string                 `json:"date"`
	TotalLoss        float64                `json:"total_loss"`
	LossByLocation   map[string]float64     `json:"loss_by_location"`
	Breakdowns       []LossBreakdown        `json:"breakdowns"`
	TopLossPoint     *TopLossPoint          `json:"top_loss_point,omitempty"`
	Recommendation   *ActionRecommendation  `json:"recommendation,omitempty"`
	Candidates       []ActionRecommendation `json:"candidates,omitempty"`
	DataCompleteness float64                `json:"data_completeness"`
}

// DailyLossPoint is one day's total in a weekly or trend series.
type DailyLossPoint struct {
	Date      string  `json:"date"`
	TotalLoss float64 `json:"total_loss"`
}

// WeeklySummary aggregates seven days of insights.
type WeeklySummary struct {
	Status         Status             `json:"status"`
	StartDate      string             `json:"start_date"`
	EndDate        string             `json:"end_date"`
	TotalLoss      float64            `json:"total_loss"`
	AvgDailyLoss   float64            `json:"avg_daily_loss"`
	WorstDay       *DailyLossPoint    `json:"worst_day,omitempty"`
	BestDay        *DailyLossPoint    `json:"best_day,omitempty"`
	DailyBreakdown []DailyLossPoint   `json:"daily_breakdown"`
	LossByCategory map[string]float64 `json:"loss_by_category"`
}

// TrendDirection is the closed set of trend classifications.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendWorsening TrendDirection = "worsening"
	TrendStable    TrendDirection = "stable"
)

// TrendAnalysis reports the loss trajectory over a lookback window.
type TrendAnalysis struct {
	Status           Status           `json:"status"`
	Direction        TrendDirection   `json:"direction"`
	SlopePerDay      float64          `json:"slope_per_day"`
	ChangePercentage float64          `json:"change_percentage"`
	Series           []DailyLossPoint `json:"series"`
}
