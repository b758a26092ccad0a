package aggregates

import (
	"time"

	sloaggregates "github.com/rsionnach/nthlayer/pkg/slo/aggregates"
)

// TimeSeriesPoint is one budget-remaining observation, value in [0,1].
type TimeSeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type DriftPattern string

const (
	PatternStable             DriftPattern = "STABLE"
	PatternGradualDecline     DriftPattern = "GRADUAL_DECLINE"
	PatternGradualImprovement DriftPattern = "GRADUAL_IMPROVEMENT"
	PatternStepChangeDown     DriftPattern = "STEP_CHANGE_DOWN"
	PatternStepChangeUp       DriftPattern = "STEP_CHANGE_UP"
	PatternVolatile           DriftPattern = "VOLATILE"
)

type DriftSeverity string

const (
	SeverityNone     DriftSeverity = "NONE"
	SeverityInfo     DriftSeverity = "INFO"
	SeverityWarn     DriftSeverity = "WARN"
	SeverityCritical DriftSeverity = "CRITICAL"
)

// ExitCode maps a severity to a scripting exit code: 0 healthy, 1 warn,
// 2 critical.
func (s DriftSeverity) ExitCode() int {
	switch s {
	case SeverityWarn:
		return 1
	case SeverityCritical:
		return 2
	default:
		return 0
	}
}

// DriftMetrics is the regression fit over an analysis window.
type DriftMetrics struct {
	SlopePerDay         float64 `json:"slope_per_day"`
	SlopePerWeek        float64 `json:"slope_per_week"`
	RSquared            float64 `json:"r_squared"`
	CurrentBudget       float64 `json:"current_budget"`
	BudgetAtWindowStart float64 `json:"budget_at_window_start"`
	Variance            float64 `json:"variance"`
	DataPoints          int     `json:"data_points"`
}

// DriftProjection extrapolates the fitted trend forward. DaysUntilExhaustion
// is nil whenever the slope is non-negative.
type DriftProjection struct {
	DaysUntilExhaustion *float64 `json:"days_until_exhaustion"`
	ProjectedBudget30d  float64  `json:"projected_budget_30d"`
	ProjectedBudget60d  float64  `json:"projected_budget_60d"`
	ProjectedBudget90d  float64  `json:"projected_budget_90d"`
	Confidence          float64  `json:"confidence"`
}

// DriftResult is the full output of one drift analysis call.
type DriftResult struct {
	Service        string             `json:"service"`
	Tier           sloaggregates.Tier `json:"tier"`
	SLO            string             `json:"slo"`
	Window         time.Duration      `json:"window"`
	AnalyzedAt     time.Time          `json:"analyzed_at"`
	DataStart      time.Time          `json:"data_start"`
	DataEnd        time.Time          `json:"data_end"`
	Metrics        DriftMetrics       `json:"metrics"`
	Projection     DriftProjection    `json:"projection"`
	Pattern        DriftPattern       `json:"pattern"`
	Severity       DriftSeverity      `json:"severity"`
	Summary        string             `json:"summary"`
	Recommendation string             `json:"recommendation"`
	ExitCode       int                `json:"exit_code"`
}
