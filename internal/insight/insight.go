// Package insight turns loss breakdowns into ranked intervention
// recommendations and narrative daily/weekly/trend rollups.
package insight

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/flowline-analytics/flowline/internal/config"
	"github.com/flowline-analytics/flowline/internal/entropy"
	"github.com/flowline-analytics/flowline/internal/models"
)

// Generator evaluates the fixed action catalogue against measured losses.
type Generator struct {
	actions             config.ActionCostConfig
	confidenceThreshold float64
	now                 func() time.Time
}

// New creates a Generator. confidenceThreshold gates which candidates may
// become the headline recommendation.
func New(actions config.ActionCostConfig, confidenceThreshold float64) *Generator {
	return &Generator{actions: actions, confidenceThreshold: confidenceThreshold, now: time.Now}
}

// LocationInput bundles everything known about one location for one day.
type LocationInput struct {
	LocationID   string
	Breakdown    models.LossBreakdown
	Entropy      *models.EntropyResult
	Patterns     *entropy.PatternAnalysis
	Completeness float64
}

// Candidates evaluates every action type against one location's losses.
// Recovery estimates are ranges, never points: the honest statement is
// "between min and max of the addressed loss is recoverable".
func (g *Generator) Candidates(date string, in LocationInput) []models.ActionRecommendation {
	var out []models.ActionRecommendation

	confidence := g.confidence(in)
	cats := in.Breakdown.Categories

	add := func(actionType models.ActionType, target, description string, rec models.SavingsRange, cost float64) {
		if rec.Max <= 0 {
			return
		}
		out = append(out, models.ActionRecommendation{
			ID:             uuid.Must(uuid.NewV7()),
			Date:           date,
			LocationID:     in.LocationID,
			ActionType:     actionType,
			Description:    description,
			TargetCategory: target,
			EstimatedSavings: models.SavingsRange{
				Min: models.RoundMoney(rec.Min),
				Max: models.RoundMoney(rec.Max),
			},
			ImplementationCost: cost,
			NetBenefitEstimate: models.RoundMoney(rec.Midpoint() - cost),
			Confidence:         confidence,
			CreatedAt:          g.now().UTC(),
		})
	}

	if waitCost := cats[models.LossWaitTime]; waitCost > 0 {
		// Four-hour peak coverage block.
		cost := g.actions.AddStaffPeakPerHour * 4
		add(models.ActionAddStaffPeak, models.LossWaitTime,
			fmt.Sprintf("add staff coverage during peak hours at %s", in.LocationID),
			models.SavingsRange{Min: 0.3 * waitCost, Max: 0.5 * waitCost}, cost)
	}

	if throughput := cats[models.LossLostThroughput]; throughput > 0 {
		add(models.ActionAddCapacity, models.LossLostThroughput,
			fmt.Sprintf("add a service station at %s", in.LocationID),
			models.SavingsRange{Min: 0.4 * throughput, Max: 0.7 * throughput}, g.actions.AddCapacity)
	}

	if walkaway := cats[models.LossWalkaway]; walkaway > 0 {
		add(models.ActionQueueManagement, models.LossWalkaway,
			fmt.Sprintf("introduce queue management (displays, virtual queue) at %s", in.LocationID),
			models.SavingsRange{Min: 0.4 * walkaway, Max: 0.6 * walkaway}, g.actions.QueueManagement)
	}

	if staffing := cats[models.LossIdleTime] + cats[models.LossOvertime]; staffing > 0 {
		factor := scheduleFactor(in.Patterns)
		add(models.ActionScheduleOptimization, models.LossIdleTime,
			fmt.Sprintf("realign staff schedules with demand at %s", in.LocationID),
			models.SavingsRange{Min: 0.8 * factor * staffing, Max: 1.2 * factor * staffing},
			g.actions.ScheduleOptimization)
	}

	if smoothable := variabilityPortion(cats[models.LossWaitTime], in.Entropy); smoothable > 0 {
		add(models.ActionDemandSmoothing, models.LossWaitTime,
			fmt.Sprintf("smooth demand at %s with appointments or incentives", in.LocationID),
			models.SavingsRange{Min: 0.5 * smoothable, Max: 0.8 * smoothable}, g.actions.DemandSmoothing)
	}

	return out
}

// scheduleFactor scales the recoverable share of staffing losses by how
// predictable the demand pattern is: a schedule can only follow a pattern
// that exists.
func scheduleFactor(p *entropy.PatternAnalysis) float64 {
	if p == nil || p.Status != models.StatusCalculated {
		return 0.2
	}
	switch p.Predictability {
	case entropy.PredictabilityHigh:
		return 0.5
	case entropy.PredictabilityMedium:
		return 0.35
	default:
		return 0.2
	}
}

// variabilityPortion is the share of wait cost attributable to demand
// variability above the Poisson baseline, which smoothing can remove.
func variabilityPortion(waitCost float64, e *models.EntropyResult) float64 {
	if waitCost <= 0 || e == nil || e.Status != models.StatusCalculated {
		return 0
	}
	vim := e.Entropy.VarianceImpactMultiplier
	if vim <= 1 {
		return 0
	}
	return waitCost * (1 - 1/math.Min(vim, 2))
}

// confidence combines data completeness with a variability penalty: the
// less predictable the window, the less a single day's numbers prove.
func (g *Generator) confidence(in LocationInput) float64 {
	c := in.Completeness
	if c > 1 {
		c = 1
	}
	if c < 0 {
		c = 0
	}
	if in.Entropy != nil && in.Entropy.Status == models.StatusCalculated {
		switch in.Entropy.Interpretation.ArrivalVariability {
		case models.VariabilityHigh:
			c *= 0.7
		case models.VariabilityModerate:
			c *= 0.85
		}
	}
	return math.Round(c*100) / 100
}

// SelectBest picks the candidate with the highest net benefit estimate
// among those clearing the confidence threshold. Ties break on action
// type for reproducibility.
func (g *Generator) SelectBest(candidates []models.ActionRecommendation) *models.ActionRecommendation {
	var best *models.ActionRecommendation
	sorted := make([]models.ActionRecommendation, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ActionType < sorted[j].ActionType })

	for i := range sorted {
		c := &sorted[i]
		if c.Confidence < g.confidenceThreshold {
			continue
		}
		if best == nil || c.NetBenefitEstimate > best.NetBenefitEstimate {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}
