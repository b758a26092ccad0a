package handlers

import (
	"context"
	"time"

	corraggregates "github.com/rsionnach/nthlayer/pkg/correlation/aggregates"
	driftaggregates "github.com/rsionnach/nthlayer/pkg/drift/aggregates"
	sloaggregates "github.com/rsionnach/nthlayer/pkg/slo/aggregates"
)

type SLOService interface {
	CreateSLO(ctx context.Context, slo sloaggregates.SLO) error
	GetSLO(ctx context.Context, id string) (*sloaggregates.SLO, error)
	GetSLOByName(ctx context.Context, name string) (*sloaggregates.SLO, error)
	ListSLOs(ctx context.Context) ([]*sloaggregates.SLO, error)
	GetSLOsByService(ctx context.Context, service string) ([]*sloaggregates.SLO, error)
	DeleteSLO(ctx context.Context, id string) error
	AddMeasurement(ctx context.Context, measurement sloaggregates.Measurement) error
}

type DriftService interface {
	Analyze(ctx context.Context, slo sloaggregates.SLO, window time.Duration) (*driftaggregates.DriftResult, error)
	AnalyzeService(ctx context.Context, service string) ([]*driftaggregates.DriftResult, error)
}

type CorrelationService interface {
	Correlate(ctx context.Context, deployment corraggregates.Deployment, slo sloaggregates.SLO) (*corraggregates.CorrelationResult, error)
	CorrelateService(ctx context.Context, service string, lookbackHours int) ([]corraggregates.CorrelationResult, error)
	AttributeCrossService(ctx context.Context, deployment corraggregates.Deployment, slo sloaggregates.SLO, observedAt time.Time) (*corraggregates.CorrelationResult, error)
}

type DeploymentStore interface {
	CreateDeployment(ctx context.Context, deployment corraggregates.Deployment) error
	GetDeployment(ctx context.Context, id string) (*corraggregates.Deployment, error)
	GetRecentDeployments(ctx context.Context, service string, hours int, environment string) ([]*corraggregates.Deployment, error)
}

type Builder struct {
	slo         SLOService
	drift       DriftService
	correlation CorrelationService
	deployments DeploymentStore
}

func NewBuilder(slo SLOService, drift DriftService, correlation CorrelationService, deployments DeploymentStore) *Builder {
	return &Builder{
		slo:         slo,
		drift:       drift,
		correlation: correlation,
		deployments: deployments,
	}
}
