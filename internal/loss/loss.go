// Package loss attributes provable financial loss to operational
// inefficiency. Every figure is a conservative lower bound: when an input
// is uncertain the computation always takes the branch that understates
// the loss.
package loss

import (
	"math"
	"sort"

	"github.com/flowline-analytics/flowline/internal/config"
	"github.com/flowline-analytics/flowline/internal/models"
)

// z95 is the one-sided 95% normal quantile used for the walkaway
// lower bound.
const z95 = 1.645

// Engine computes conservative loss breakdowns from raw events and the
// queueing/entropy results for the same window.
type Engine struct {
	costs config.CostConfig
}

// New creates an Engine with the given financial parameters.
func New(costs config.CostConfig) *Engine {
	return &Engine{costs: costs}
}

// Compute attributes loss for one (date, location). servers is the
// configured server-unit count; entropy may be nil when the variability
// engine had insufficient data.
func (e *Engine) Compute(date, locationID string, events []models.OperationalEvent, servers int, entropy *models.EntropyResult) models.LossBreakdown {
	breakdown := models.LossBreakdown{
		Date:       date,
		LocationID: locationID,
		Categories: map[string]float64{
			models.LossWaitTime:       0,
			models.LossLostThroughput: 0,
			models.LossWalkaway:       0,
			models.LossIdleTime:       0,
			models.LossOvertime:       0,
		},
	}
	if len(events) == 0 {
		return breakdown
	}
	if servers < 1 {
		servers = 1
	}

	waitCost := e.waitTimeCost(events)
	if entropy != nil && entropy.Status == models.StatusCalculated {
		// Variability inflates wait beyond the averages; cap the
		// multiplier so a noisy CV cannot dominate the estimate.
		if vim := entropy.Entropy.VarianceImpactMultiplier; vim > 1 {
			waitCost *= math.Min(vim, 2.0)
		}
	}

	breakdown.Categories[models.LossWaitTime] = models.RoundMoney(waitCost)
	breakdown.Categories[models.LossLostThroughput] = models.RoundMoney(e.throughputLoss(events, servers))
	breakdown.Categories[models.LossWalkaway] = models.RoundMoney(e.walkawayCost(events))
	breakdown.Categories[models.LossIdleTime] = models.RoundMoney(e.idleTimeCost(events, servers))
	breakdown.Categories[models.LossOvertime] = models.RoundMoney(e.overtimeCost(events, servers))

	total := 0.0
	for _, v := range breakdown.Categories {
		total += v
	}
	breakdown.TotalLoss = models.RoundMoney(total)
	return breakdown
}

// waitTimeCost values customer time spent waiting beyond the acceptable
// threshold, using queue length as the count of affected customers.
func (e *Engine) waitTimeCost(events []models.OperationalEvent) float64 {
	threshold := e.costs.AcceptableWaitMinutes * 60
	var excessSeconds float64
	for _, ev := range events {
		if ev.WaitTimeSeconds == nil || *ev.WaitTimeSeconds <= threshold {
			continue
		}
		excessSeconds += (*ev.WaitTimeSeconds - threshold) * float64(ev.QueueLength)
	}
	cost := (excessSeconds / 60) * e.costs.TimeValuePerMinute
	return cost * e.costs.ConservativeFactor
}

// throughputLoss counts arrivals that provably exceeded service capacity.
// A 20% buffer over nominal capacity keeps ordinary bursts out of the
// estimate.
func (e *Engine) throughputLoss(events []models.OperationalEvent, servers int) float64 {
	var lost float64
	for _, ev := range events {
		if ev.ServiceTimeSeconds == nil || *ev.ServiceTimeSeconds <= 0 || ev.ObservationPeriodSeconds <= 0 {
			continue
		}
		capacity := float64(servers) * ev.ObservationPeriodSeconds / *ev.ServiceTimeSeconds
		if float64(ev.ArrivalCount) > capacity*1.2 {
			lost += math.Floor(float64(ev.ArrivalCount) - capacity)
		}
	}
	return lost * e.costs.RevenuePerCustomer * e.costs.ConservativeFactor
}

// walkawayCost estimates customers lost to excessive waits. The per-event
// count is the 95% one-sided lower confidence bound of a binomial with
// n = queue length and p = the wait-derived walkaway probability, so the
// figure understates rather than projects.
func (e *Engine) walkawayCost(events []models.OperationalEvent) float64 {
	threshold := e.costs.WalkawayThresholdMinutes * 60
	var walkaways float64
	for _, ev := range events {
		if ev.WaitTimeSeconds == nil || *ev.WaitTimeSeconds <= threshold || ev.QueueLength == 0 {
			continue
		}
		excessMinutes := (*ev.WaitTimeSeconds - threshold) / 60
		p := math.Min(0.5, excessMinutes*e.costs.WalkawayProbPerMinute)
		n := float64(ev.QueueLength)
		lower := n*p - z95*math.Sqrt(n*p*(1-p))
		if lower > 0 {
			walkaways += lower
		}
	}
	walkaways = math.Floor(walkaways)

	direct := walkaways * e.costs.RevenuePerCustomer
	// A walked-away customer also forfeits a slice of future visits.
	future := walkaways * e.costs.CustomerLifetimeValue * 0.1
	return (direct + future) * e.costs.ConservativeFactor
}

// idleTimeCost prices staff capacity left significantly below the target
// utilization.
func (e *Engine) idleTimeCost(events []models.OperationalEvent, servers int) float64 {
	target := e.costs.TargetUtilization
	var idleSeconds float64
	for _, ev := range events {
		util := utilization(ev, servers)
		if util >= target*0.7 {
			continue
		}
		idleSeconds += (target - util) * ev.ObservationPeriodSeconds * float64(servers)
	}
	cost := (idleSeconds / 3600) * e.costs.LaborCostPerHour
	return cost * e.costs.ConservativeFactor
}

// overtimeCost prices the premium portion of work above full utilization.
func (e *Engine) overtimeCost(events []models.OperationalEvent, servers int) float64 {
	var overtimeSeconds float64
	for _, ev := range events {
		util := utilization(ev, servers)
		if util <= 1 {
			continue
		}
		overtimeSeconds += (util - 1) * ev.ObservationPeriodSeconds * float64(servers)
	}
	base := (overtimeSeconds / 3600) * e.costs.LaborCostPerHour
	premium := base * (e.costs.OvertimeMultiplier - 1)
	return premium * e.costs.ConservativeFactor
}

// utilization is the per-event arrival-to-capacity ratio. Without a
// departure rate the event is treated as half-loaded, which biases both
// the idle and overtime estimates toward zero.
func utilization(ev models.OperationalEvent, servers int) float64 {
	depRate := ev.DepartureRate()
	if depRate <= 0 {
		return 0.5
	}
	return ev.ArrivalRate() / (float64(servers) * depRate)
}

// TopLossPoint returns the single worst (location, category) pair across
// breakdowns. Ties break on lexicographic category, then location, so the
// result is reproducible. Returns nil when every amount is zero.
func TopLossPoint(breakdowns []models.LossBreakdown) *models.TopLossPoint {
	var top *models.TopLossPoint
	sorted := make([]models.LossBreakdown, len(breakdowns))
	copy(sorted, breakdowns)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LocationID < sorted[j].LocationID })

	categories := models.LossCategories()
	sort.Strings(categories)

	for _, b := range sorted {
		for _, cat := range categories {
			amount := b.Categories[cat]
			if amount <= 0 {
				continue
			}
			if top == nil || amount > top.Amount {
				top = &models.TopLossPoint{LocationID: b.LocationID, Category: cat, Amount: amount}
			}
		}
	}
	return top
}
