package drift

import (
	"time"

	"github.com/rsionnach/nthlayer/pkg/drift/aggregates"
)

// PatternOptions controls the categorical shape classification.
type PatternOptions struct {
	// StepWindow is the trailing sub-window inspected for sudden jumps.
	StepWindow time.Duration
	// StepChangeThreshold is the budget fraction jump treated as a step change.
	StepChangeThreshold float64
	// LowFitRSquared is the r² under which the regression line is not trusted.
	LowFitRSquared float64
	// VarianceFloor is the minimum variance for a low-fit series to count as volatile.
	VarianceFloor float64
	// NegligibleSlope is the absolute slope per second under which a trend is noise.
	NegligibleSlope float64
}

func DefaultPatternOptions() PatternOptions {
	return PatternOptions{
		StepWindow:          24 * time.Hour,
		StepChangeThreshold: 0.05,
		LowFitRSquared:      0.3,
		VarianceFloor:       0.0001,
		NegligibleSlope:     1e-9,
	}
}

// DetectPattern classifies a budget-remaining series. A recent step change
// overrides the slope-based classes: a sudden jump dominates any overall
// trend.
func DetectPattern(points []aggregates.TimeSeriesPoint, slopePerSecond float64, rSquared float64, opts PatternOptions) aggregates.DriftPattern {
	if len(points) < 2 {
		return aggregates.PatternStable
	}

	if pattern, ok := detectStepChange(points, opts); ok {
		return pattern
	}

	variance := sampleVariance(points)
	if rSquared < opts.LowFitRSquared && variance > opts.VarianceFloor {
		return aggregates.PatternVolatile
	}

	if slopePerSecond > -opts.NegligibleSlope && slopePerSecond < opts.NegligibleSlope {
		return aggregates.PatternStable
	}
	if slopePerSecond < 0 {
		return aggregates.PatternGradualDecline
	}
	return aggregates.PatternGradualImprovement
}

func detectStepChange(points []aggregates.TimeSeriesPoint, opts PatternOptions) (aggregates.DriftPattern, bool) {
	cutoff := points[len(points)-1].Timestamp.Add(-opts.StepWindow)
	var recent []aggregates.TimeSeriesPoint
	for _, point := range points {
		if !point.Timestamp.Before(cutoff) {
			recent = append(recent, point)
		}
	}
	if len(recent) < 2 {
		return "", false
	}
	var maxJump, signedJump float64
	for i := range recent {
		for j := i + 1; j < len(recent); j++ {
			jump := recent[j].Value - recent[i].Value
			abs := jump
			if abs < 0 {
				abs = -abs
			}
			if abs > maxJump {
				maxJump = abs
				signedJump = jump
			}
		}
	}
	if maxJump <= opts.StepChangeThreshold {
		return "", false
	}
	if signedJump < 0 {
		return aggregates.PatternStepChangeDown, true
	}
	return aggregates.PatternStepChangeUp, true
}

func sampleVariance(points []aggregates.TimeSeriesPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	var sum float64
	for _, point := range points {
		sum += point.Value
	}
	mean := sum / float64(len(points))
	var squared float64
	for _, point := range points {
		squared += (point.Value - mean) * (point.Value - mean)
	}
	return squared / float64(len(points)-1)
}
