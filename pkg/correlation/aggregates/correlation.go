package aggregates

import "time"

// Deployment is a release event. The two correlation fields are the only
// mutation the correlator performs, through the store.
type Deployment struct {
	ID                    string `validate:"required"`
	Service               string `validate:"required"`
	Environment           string
	DeployedAt            time.Time `validate:"required"`
	CommitSHA             string
	Author                string
	CorrelatedBurnMinutes *float64
	CorrelationConfidence *float64
}

// CorrelationWindow configures the burn-rate windows around a deployment.
type CorrelationWindow struct {
	BeforeMinutes        int `yaml:"before-minutes"`
	AfterMinutes         int `yaml:"after-minutes"`
	HistoryLookbackHours int `yaml:"history-lookback-hours"`
}

func DefaultCorrelationWindow() CorrelationWindow {
	return CorrelationWindow{
		BeforeMinutes:        30,
		AfterMinutes:         120,
		HistoryLookbackHours: 168,
	}
}

// Confidence bands shared by every consumer of correlation scores.
const (
	LowConfidence      = 0.3
	MediumConfidence   = 0.5
	HighConfidence     = 0.7
	BlockingConfidence = 0.8
)

type ConfidenceLabel string

const (
	ConfidenceNone   ConfidenceLabel = "NONE"
	ConfidenceLow    ConfidenceLabel = "LOW"
	ConfidenceMedium ConfidenceLabel = "MEDIUM"
	ConfidenceHigh   ConfidenceLabel = "HIGH"
)

// LabelFor maps a confidence score to its band. Boundaries are inclusive on
// the lower edge of each band.
func LabelFor(confidence float64) ConfidenceLabel {
	switch {
	case confidence >= HighConfidence:
		return ConfidenceHigh
	case confidence >= MediumConfidence:
		return ConfidenceMedium
	case confidence >= LowConfidence:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// CorrelationResult is one correlation verdict for a (deployment, SLO) pair.
type CorrelationResult struct {
	DeploymentID string             `json:"deployment_id"`
	Service      string             `json:"service"`
	SLO          string             `json:"slo"`
	BurnMinutes  float64            `json:"burn_minutes"`
	Confidence   float64            `json:"confidence"`
	Method       string             `json:"method"`
	Details      map[string]float64 `json:"details"`
}

func (r CorrelationResult) ConfidenceLabel() ConfidenceLabel {
	return LabelFor(r.Confidence)
}

// ExitCode maps the strongest verdict of a batch to a scripting exit code:
// 0 none, 1 low or medium, 2 blocking.
func ExitCode(results []CorrelationResult) int {
	code := 0
	for _, result := range results {
		if result.Confidence >= BlockingConfidence {
			return 2
		}
		if result.Confidence >= LowConfidence {
			code = 1
		}
	}
	return code
}

// Dependency is one edge of the service dependency graph.
type Dependency struct {
	Service string
	Depth   int
}
