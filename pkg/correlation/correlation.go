package correlation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rsionnach/nthlayer/internal/metrics"
	"github.com/rsionnach/nthlayer/pkg/correlation/aggregates"
	sloaggregates "github.com/rsionnach/nthlayer/pkg/slo/aggregates"
)

// Correlate scores one (deployment, SLO) pair by comparing burn rates before
// and after the deployment. When the verdict reaches the low confidence band
// it is persisted back onto the deployment record, fail-open.
func (s *Service) Correlate(ctx context.Context, deployment aggregates.Deployment, sloDef sloaggregates.SLO) (*aggregates.CorrelationResult, error) {
	before := time.Duration(s.window.BeforeMinutes) * time.Minute
	after := time.Duration(s.window.AfterMinutes) * time.Minute

	beforeRate, err := s.store.GetBurnRateWindow(ctx, sloDef.ID, deployment.DeployedAt.Add(-before), deployment.DeployedAt)
	if err != nil {
		return nil, fmt.Errorf("fail to fetch pre-deployment burn rate for SLO %s: %w", sloDef.Name, err)
	}
	afterRate, err := s.store.GetBurnRateWindow(ctx, sloDef.ID, deployment.DeployedAt, deployment.DeployedAt.Add(after))
	if err != nil {
		return nil, fmt.Errorf("fail to fetch post-deployment burn rate for SLO %s: %w", sloDef.Name, err)
	}

	burnMinutes := afterRate * float64(s.window.AfterMinutes)
	burnRateScore := BurnRateScore(beforeRate, afterRate)
	magnitudeScore := MagnitudeScore(burnMinutes)
	confidence := directConfidence(burnRateScore, magnitudeScore)

	result := &aggregates.CorrelationResult{
		DeploymentID: deployment.ID,
		Service:      deployment.Service,
		SLO:          sloDef.Name,
		BurnMinutes:  burnMinutes,
		Confidence:   confidence,
		Method:       "direct",
		Details: map[string]float64{
			"before_rate":     beforeRate,
			"after_rate":      afterRate,
			"burn_rate_score": burnRateScore,
			"magnitude_score": magnitudeScore,
		},
	}
	metrics.ObserveCorrelation(string(result.ConfidenceLabel()))

	if confidence >= aggregates.LowConfidence {
		err := s.store.UpdateDeploymentCorrelation(ctx, deployment.ID, burnMinutes, confidence)
		if err != nil {
			s.logger.Warn(fmt.Sprintf("fail to persist correlation for deployment %s: %s", deployment.ID, err.Error()))
			metrics.ObserveDegradedOperation("persist_correlation")
		} else {
			metrics.ObserveCorrelationPersisted()
		}
	}
	return result, nil
}

// CorrelateService scores every (deployment, SLO) pair of a service within
// the lookback. A pair that fails to score is logged and skipped; the batch
// never aborts. Results are sorted by confidence descending.
func (s *Service) CorrelateService(ctx context.Context, service string, lookbackHours int) ([]aggregates.CorrelationResult, error) {
	results := []aggregates.CorrelationResult{}

	deployments, err := s.store.GetRecentDeployments(ctx, service, lookbackHours, "")
	if err != nil {
		s.logger.Warn(fmt.Sprintf("fail to list deployments for service %s: %s", service, err.Error()))
		return results, nil
	}
	slos, err := s.store.GetSLOsByService(ctx, service)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("fail to list SLOs for service %s: %s", service, err.Error()))
		return results, nil
	}

	for _, deployment := range deployments {
		for _, sloDef := range slos {
			result, err := s.Correlate(ctx, *deployment, *sloDef)
			if err != nil {
				s.logger.Warn(fmt.Sprintf("skipping correlation for deployment %s and SLO %s: %s", deployment.ID, sloDef.Name, err.Error()))
				continue
			}
			results = append(results, *result)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results, nil
}

// AttributeCrossService explains whether a deployment in one service could
// be responsible for a burn observed on another service's SLO, composing the
// direct verdict with proximity, dependency and history signals.
func (s *Service) AttributeCrossService(ctx context.Context, deployment aggregates.Deployment, sloDef sloaggregates.SLO, observedAt time.Time) (*aggregates.CorrelationResult, error) {
	direct, err := s.Correlate(ctx, deployment, sloDef)
	if err != nil {
		return nil, err
	}

	proximity := ProximityScore(deployment.DeployedAt, observedAt)
	dependency := s.sideScore("dependency_score", func() (float64, error) {
		return s.dependencyScore(ctx, deployment.Service, sloDef.Service)
	})
	history := s.sideScore("history_score", func() (float64, error) {
		return s.historyScore(ctx, deployment.Service)
	})

	confidence := crossServiceConfidence(direct.Confidence, proximity, dependency.Value, history.Value)
	result := &aggregates.CorrelationResult{
		DeploymentID: deployment.ID,
		Service:      sloDef.Service,
		SLO:          sloDef.Name,
		BurnMinutes:  direct.BurnMinutes,
		Confidence:   confidence,
		Method:       "cross-service",
		Details: map[string]float64{
			"direct_confidence": direct.Confidence,
			"proximity_score":   proximity,
			"dependency_score":  dependency.Value,
			"history_score":     history.Value,
		},
	}
	metrics.ObserveCorrelation(string(result.ConfidenceLabel()))
	return result, nil
}

// dependencyScore rates how related the deploying service is to the affected
// one. Graph-derived relationships take priority over the static downstream
// declarations.
func (s *Service) dependencyScore(ctx context.Context, deployer string, affected string) (float64, error) {
	if deployer == affected {
		return dependencySelf, nil
	}
	if s.graph != nil {
		upstream, err := s.graph.GetUpstream(ctx, affected)
		if err != nil {
			return 0, err
		}
		for _, dependency := range upstream {
			if dependency.Service == deployer {
				return dependencyDirect, nil
			}
		}
		transitive, err := s.graph.GetTransitiveUpstream(ctx, affected)
		if err != nil {
			return 0, err
		}
		for _, dependency := range transitive {
			if dependency.Service == deployer && dependency.Depth >= 2 {
				return dependencyTransitive, nil
			}
		}
		return 0, nil
	}
	for _, service := range s.downstream[deployer] {
		if service == affected {
			return dependencyDeclared, nil
		}
	}
	return 0, nil
}

// historyScore is the fraction of the deployer's recent deployments whose
// stored correlation confidence reached the medium band, a repeat offender
// signal.
func (s *Service) historyScore(ctx context.Context, service string) (float64, error) {
	deployments, err := s.store.GetRecentDeployments(ctx, service, s.window.HistoryLookbackHours, "")
	if err != nil {
		return 0, err
	}
	if len(deployments) == 0 {
		return 0, nil
	}
	offenders := 0
	for _, deployment := range deployments {
		if deployment.CorrelationConfidence != nil && *deployment.CorrelationConfidence >= aggregates.MediumConfidence {
			offenders++
		}
	}
	return float64(offenders) / float64(len(deployments)), nil
}
