package models

// Status is the closed set of domain-status values a computation can report.
// Status conditions are data, not errors: callers must handle every variant.
type Status string

const (
	StatusNoData           Status = "no_data"
	StatusInsufficientData Status = "insufficient_data"
	StatusCalculated       Status = "calculated"
	StatusGenerated        Status = "generated"
	StatusUnstable         Status = "unstable"
)

// VariabilityLevel classifies a coefficient of variation against the
// configured thresholds.
type VariabilityLevel string

const (
	VariabilityLow      VariabilityLevel = "low"
	VariabilityModerate VariabilityLevel = "moderate"
	VariabilityHigh     VariabilityLevel = "high"
)

// FlowMetrics aggregates arrival/departure counts for a window.
type FlowMetrics struct {
	TotalArrivals   int `json:"total_arrivals"`
	TotalDepartures int `json:"total_departures"`
	NetFlow         int `json:"net_flow"`
}

// QueueMetrics summarizes queue-length samples for a window. The average is
// time-weighted by the interval each sample was in force.
type QueueMetrics struct {
	AvgQueueLength float64 `json:"avg_queue_length"`
	MaxQueueLength int     `json:"max_queue_length"`
}

// TimeMetrics summarizes wait/service duration observations, in seconds.
type TimeMetrics struct {
	AvgWaitSeconds    float64 `json:"avg_wait_time_seconds"`
	MaxWaitSeconds    float64 `json:"max_wait_time_seconds"`
	AvgServiceSeconds float64 `json:"avg_service_time_seconds"`
}

// UtilizationMetrics summarizes server-unit utilization for a window.
type UtilizationMetrics struct {
	AvgUtilization  float64 `json:"avg_utilization"`
	PeakUtilization float64 `json:"peak_utilization"`
	IsOverloaded    bool    `json:"is_overloaded"`
}

// DailyMetricsSummary is the derived, recomputable per-window rollup.
// Regeneration replaces the prior summary for the same (date, location) key.
type DailyMetricsSummary struct {
	Status     Status `json:"status"`
	Date       string `json:"date"`
	LocationID string `json:"location_id,omitempty"`
	DataPoints int    `json:"data_points_count"`

	// Elapsed seconds covered by the window; needed for rate computation.
	ElapsedSeconds float64 `json:"elapsed_seconds"`

	Flow        FlowMetrics        `json:"flow_metrics"`
	Queue       QueueMetrics       `json:"queue_metrics"`
	Time        TimeMetrics        `json:"time_metrics"`
	Utilization UtilizationMetrics `json:"utilization_metrics"`
}

// LittlesLawValues holds the L = lambda * W decomposition.
type LittlesLawValues struct {
	L          float64 `json:"L"`
	LambdaRate float64 `json:"lambda_rate"`
	WSeconds   float64 `json:"W_seconds"`
}

// QueueOnlyValues holds the queue-only component of the system metrics.
type QueueOnlyValues struct {
	LQ             float64 `json:"L_q"`
	WQSeconds      float64 `json:"W_q_seconds"`
	UtilizationRho float64 `json:"utilization_rho"`
}

// Verification is the model-vs-observation cross-check: L from Little's Law
// against the time-weighted observed number in system.
type Verification struct {
	Verified  bool    `json:"verified"`
	LObserved float64 `json:"L_observed"`
	Deviation float64 `json:"deviation"`
	Tolerance float64 `json:"tolerance"`
}

// SystemState captures stability: rho >= 1 implies not stable.
type SystemState struct {
	IsStable bool `json:"is_stable"`
}

// LittlesLawResult is the Queueing Theory Engine output for one window.
type LittlesLawResult struct {
	Status         Status           `json:"status"`
	Date           string           `json:"date"`
	LocationID     string           `json:"location_id,omitempty"`
	LittlesLaw     LittlesLawValues `json:"littles_law"`
	Queue          QueueOnlyValues  `json:"queue_metrics"`
	Verification   Verification     `json:"verification"`
	SystemState    SystemState      `json:"system_state"`
	DataPointsUsed int              `json:"data_points_used"`
}

// EntropyValues holds the raw variability measurements.
type EntropyValues struct {
	ArrivalCV                float64 `json:"arrival_cv"`
	ServiceCV                float64 `json:"service_cv"`
	VarianceImpactMultiplier float64 `json:"variance_impact_multiplier"`
}

// EntropyInterpretation classifies each CV against the configured thresholds.
type EntropyInterpretation struct {
	ArrivalVariability VariabilityLevel `json:"arrival_variability"`
	ServiceVariability VariabilityLevel `json:"service_variability"`
}

// KingmanImpact is the G/G/1 wait estimate. The numeric estimate is only
// present when the system is stable; past rho >= 1 the formula is invalid
// and only the interpretation is returned.
type KingmanImpact struct {
	Status            Status   `json:"status"`
	WqEstimateSeconds *float64 `json:"wq_estimate_seconds,omitempty"`
	Interpretation    string   `json:"interpretation"`
	Formula           string   `json:"formula"`
}

// EntropyResult is the Entropy/Variability Engine output for one window.
type EntropyResult struct {
	Status         Status                `json:"status"`
	Date           string                `json:"date"`
	LocationID     string                `json:"location_id,omitempty"`
	Entropy        EntropyValues         `json:"entropy"`
	Interpretation EntropyInterpretation `json:"interpretation"`
	KingmanImpact  *KingmanImpact        `json:"kingman_impact,omitempty"`
	DataPointsUsed int                   `json:"data_points_used"`
}

// Loss categories form a fixed closed set. Keys are stable across releases;
// the lexicographic order doubles as the deterministic tiebreak order.
const (
	LossWaitTime       = "wait_time_cost"
	LossLostThroughput = "lost_throughput_revenue"
	LossWalkaway       = "walkaway_cost"
	LossIdleTime       = "idle_time_cost"
	LossOvertime       = "overtime_cost"
)

// LossCategories lists every category key.
func LossCategories() []string {
	return []string{LossWaitTime, LossLostThroughput, LossWalkaway, LossIdleTime, LossOvertime}
}

// LossBreakdown is the conservative lower-bound financial attribution for
// one (date, location). TotalLoss is the unweighted sum of the categories.
type LossBreakdown struct {
	Date       string             `json:"date"`
	LocationID string             `json:"location_id,omitempty"`
	Categories map[string]float64 `json:"categories"`
	TotalLoss  float64            `json:"total_loss"`
}
