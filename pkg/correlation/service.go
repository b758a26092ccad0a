package correlation

import (
	"context"
	"log/slog"
	"time"

	"github.com/rsionnach/nthlayer/internal/metrics"
	"github.com/rsionnach/nthlayer/pkg/correlation/aggregates"
	sloaggregates "github.com/rsionnach/nthlayer/pkg/slo/aggregates"
)

type Store interface {
	GetBurnRateWindow(ctx context.Context, sloID string, start time.Time, end time.Time) (float64, error)
	GetRecentDeployments(ctx context.Context, service string, hours int, environment string) ([]*aggregates.Deployment, error)
	GetSLOsByService(ctx context.Context, service string) ([]*sloaggregates.SLO, error)
	UpdateDeploymentCorrelation(ctx context.Context, deploymentID string, burnMinutes float64, confidence float64) error
}

// Graph is the optional service dependency graph collaborator.
type Graph interface {
	GetUpstream(ctx context.Context, service string) ([]aggregates.Dependency, error)
	GetTransitiveUpstream(ctx context.Context, service string) ([]aggregates.Dependency, error)
}

type Service struct {
	logger *slog.Logger
	store  Store
	graph  Graph
	window aggregates.CorrelationWindow
	// downstream maps a deploying service to the services it is declared to
	// affect, used when no dependency graph is available.
	downstream map[string][]string
}

func New(logger *slog.Logger, store Store, graph Graph, window aggregates.CorrelationWindow, downstream map[string][]string) *Service {
	if window.BeforeMinutes == 0 && window.AfterMinutes == 0 {
		window = aggregates.DefaultCorrelationWindow()
	}
	return &Service{
		logger:     logger,
		store:      store,
		graph:      graph,
		window:     window,
		downstream: downstream,
	}
}

// SideScore is the outcome of a fail-open side computation. On failure the
// value degrades to neutral zero instead of failing the caller.
type SideScore struct {
	Value    float64
	Degraded bool
}

func (s *Service) sideScore(operation string, compute func() (float64, error)) SideScore {
	value, err := compute()
	if err != nil {
		s.logger.Warn("degraded " + operation + ": " + err.Error())
		metrics.ObserveDegradedOperation(operation)
		return SideScore{Degraded: true}
	}
	return SideScore{Value: value}
}
