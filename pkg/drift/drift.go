package drift

import (
	"context"
	"fmt"
	"time"

	"github.com/rsionnach/nthlayer/internal/metrics"
	"github.com/rsionnach/nthlayer/pkg/drift/aggregates"
	"github.com/rsionnach/nthlayer/pkg/slo"
	sloaggregates "github.com/rsionnach/nthlayer/pkg/slo/aggregates"
)

const secondsPerDay = 86400.0

// Analyze fits the budget-remaining series of one SLO over the given window
// and produces a drift verdict. A zero window uses the tier default.
func (s *Service) Analyze(ctx context.Context, sloDef sloaggregates.SLO, window time.Duration) (*aggregates.DriftResult, error) {
	tier := sloDef.Tier.Normalize()
	thresholds := s.policy.ForTier(tier)
	if window == 0 {
		window = thresholds.Window
	}
	now := time.Now().UTC()
	points, err := s.store.GetBudgetSeries(ctx, sloDef.ID, now.Add(-window), now)
	if err != nil {
		return nil, fmt.Errorf("fail to fetch budget series for SLO %s: %w", sloDef.Name, err)
	}
	if len(points) < 2 {
		return nil, &InsufficientDataError{SLO: sloDef.Name, DataPoints: len(points)}
	}

	fitted := fitSeries(points)
	driftMetrics := aggregates.DriftMetrics{
		SlopePerDay:         fitted.SlopePerSecond * secondsPerDay,
		SlopePerWeek:        fitted.SlopePerSecond * secondsPerDay * 7,
		RSquared:            fitted.RSquared,
		CurrentBudget:       points[len(points)-1].Value,
		BudgetAtWindowStart: points[0].Value,
		Variance:            fitted.Variance,
		DataPoints:          len(points),
	}

	pattern := DetectPattern(points, fitted.SlopePerSecond, fitted.RSquared, s.patternOpts)
	projection := project(driftMetrics.CurrentBudget, fitted.SlopePerSecond, fitted.RSquared)
	severity := classifySeverity(pattern, projection, fitted.SlopePerSecond, thresholds)

	result := &aggregates.DriftResult{
		Service:        sloDef.Service,
		Tier:           tier,
		SLO:            sloDef.Name,
		Window:         window,
		AnalyzedAt:     now,
		DataStart:      points[0].Timestamp,
		DataEnd:        points[len(points)-1].Timestamp,
		Metrics:        driftMetrics,
		Projection:     projection,
		Pattern:        pattern,
		Severity:       severity,
		Summary:        summarize(sloDef, pattern, severity, driftMetrics, projection),
		Recommendation: recommend(pattern, severity),
		ExitCode:       severity.ExitCode(),
	}
	metrics.ObserveDriftAnalysis(string(severity))
	s.logger.Debug(fmt.Sprintf("drift analysis for %s/%s: pattern %s, severity %s", sloDef.Service, sloDef.Name, pattern, severity))
	return result, nil
}

// AnalyzeService runs drift analysis for every SLO of a service, skipping
// SLOs whose tier disables drift analysis.
func (s *Service) AnalyzeService(ctx context.Context, service string) ([]*aggregates.DriftResult, error) {
	slos, err := s.store.GetSLOsByService(ctx, service)
	if err != nil {
		return nil, fmt.Errorf("fail to list SLOs for service %s: %w", service, err)
	}
	results := []*aggregates.DriftResult{}
	for _, sloDef := range slos {
		if !s.policy.ForTier(sloDef.Tier).Enabled {
			continue
		}
		result, err := s.Analyze(ctx, *sloDef, 0)
		if err != nil {
			s.logger.Warn(fmt.Sprintf("skipping drift analysis for %s/%s: %s", service, sloDef.Name, err.Error()))
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

func project(currentBudget float64, slopePerSecond float64, rSquared float64) aggregates.DriftProjection {
	projection := aggregates.DriftProjection{
		Confidence: clamp(rSquared, 0, 1),
	}
	projectAt := func(days float64) float64 {
		return clamp(currentBudget+slopePerSecond*secondsPerDay*days, 0, 1)
	}
	projection.ProjectedBudget30d = projectAt(30)
	projection.ProjectedBudget60d = projectAt(60)
	projection.ProjectedBudget90d = projectAt(90)
	if slopePerSecond < 0 {
		days := currentBudget / (-slopePerSecond * secondsPerDay)
		projection.DaysUntilExhaustion = &days
	}
	return projection
}

func classifySeverity(pattern aggregates.DriftPattern, projection aggregates.DriftProjection, slopePerSecond float64, thresholds slo.Thresholds) aggregates.DriftSeverity {
	if pattern == aggregates.PatternStepChangeDown || pattern == aggregates.PatternStepChangeUp {
		return aggregates.SeverityCritical
	}
	severity := aggregates.SeverityNone
	if projection.DaysUntilExhaustion != nil {
		if *projection.DaysUntilExhaustion <= thresholds.CriticalDays {
			return aggregates.SeverityCritical
		}
		if *projection.DaysUntilExhaustion <= thresholds.WarnDays {
			severity = aggregates.SeverityWarn
		}
	}
	// Thresholds are negative: a steeper decline is a smaller slope.
	switch {
	case slopePerSecond <= thresholds.CriticalSlope:
		return aggregates.SeverityCritical
	case slopePerSecond <= thresholds.WarnSlope:
		severity = aggregates.SeverityWarn
	case slopePerSecond < 0:
		if severity == aggregates.SeverityNone {
			severity = aggregates.SeverityInfo
		}
	}
	return severity
}

func summarize(sloDef sloaggregates.SLO, pattern aggregates.DriftPattern, severity aggregates.DriftSeverity, driftMetrics aggregates.DriftMetrics, projection aggregates.DriftProjection) string {
	summary := fmt.Sprintf("%s/%s: pattern %s, severity %s, budget %.1f%% remaining, trend %+.2f%%/week",
		sloDef.Service, sloDef.Name, pattern, severity, driftMetrics.CurrentBudget*100, driftMetrics.SlopePerWeek*100)
	if projection.DaysUntilExhaustion != nil {
		summary += fmt.Sprintf(", exhaustion in ~%.0f days", *projection.DaysUntilExhaustion)
	}
	return summary
}

func recommend(pattern aggregates.DriftPattern, severity aggregates.DriftSeverity) string {
	switch {
	case pattern == aggregates.PatternStepChangeDown:
		return "investigate recent deployments and incidents: the budget dropped sharply"
	case pattern == aggregates.PatternStepChangeUp:
		return "verify measurement pipeline: the budget jumped sharply upward"
	case pattern == aggregates.PatternVolatile:
		return "budget consumption is erratic: review alerting noise and sampling before trusting the trend"
	case severity == aggregates.SeverityCritical:
		return "freeze risky changes and reduce burn: the budget is on track to exhaust soon"
	case severity == aggregates.SeverityWarn:
		return "plan reliability work: the decline will exhaust the budget if it continues"
	case severity == aggregates.SeverityInfo:
		return "monitor: the budget is declining slowly"
	default:
		return "no action needed"
	}
}
