package correlation

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/rsionnach/nthlayer/pkg/correlation/aggregates"
	sloaggregates "github.com/rsionnach/nthlayer/pkg/slo/aggregates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	beforeRate     float64
	afterRate      float64
	burnRateErr    error
	deployments    []*aggregates.Deployment
	deploymentsErr error
	slos           []*sloaggregates.SLO
	slosErr        error

	updatedID         string
	updatedBurn       float64
	updatedConfidence float64
	updateErr         error
}

func (s *fakeStore) GetBurnRateWindow(ctx context.Context, sloID string, start time.Time, end time.Time) (float64, error) {
	if s.burnRateErr != nil {
		return 0, s.burnRateErr
	}
	// The before window is 30 minutes, the after window 120: the duration
	// tells which one is being queried.
	if end.Sub(start) <= 31*time.Minute {
		return s.beforeRate, nil
	}
	return s.afterRate, nil
}

func (s *fakeStore) GetRecentDeployments(ctx context.Context, service string, hours int, environment string) ([]*aggregates.Deployment, error) {
	return s.deployments, s.deploymentsErr
}

func (s *fakeStore) GetSLOsByService(ctx context.Context, service string) ([]*sloaggregates.SLO, error) {
	return s.slos, s.slosErr
}

func (s *fakeStore) UpdateDeploymentCorrelation(ctx context.Context, deploymentID string, burnMinutes float64, confidence float64) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updatedID = deploymentID
	s.updatedBurn = burnMinutes
	s.updatedConfidence = confidence
	return nil
}

type fakeGraph struct {
	upstream      []aggregates.Dependency
	transitive    []aggregates.Dependency
	upstreamErr   error
	transitiveErr error
}

func (g *fakeGraph) GetUpstream(ctx context.Context, service string) ([]aggregates.Dependency, error) {
	return g.upstream, g.upstreamErr
}

func (g *fakeGraph) GetTransitiveUpstream(ctx context.Context, service string) ([]aggregates.Dependency, error) {
	return g.transitive, g.transitiveErr
}

func testDeployment() aggregates.Deployment {
	return aggregates.Deployment{
		ID:         "deploy-1",
		Service:    "payments",
		DeployedAt: time.Now().UTC().Add(-3 * time.Hour),
	}
}

func testSLO(service string) sloaggregates.SLO {
	return sloaggregates.SLO{
		ID:        "slo-1",
		Name:      "availability",
		Service:   service,
		Tier:      sloaggregates.TierCritical,
		Objective: 99.9,
	}
}

func newTestService(store Store, graph Graph, downstream map[string][]string) *Service {
	return New(slog.Default(), store, graph, aggregates.DefaultCorrelationWindow(), downstream)
}

func TestCorrelateSpike(t *testing.T) {
	// Burn rate jumps from 0.001 to 0.05 per minute after the deploy, a 50x
	// spike.
	store := &fakeStore{beforeRate: 0.001, afterRate: 0.05}
	service := newTestService(store, nil, nil)

	result, err := service.Correlate(context.Background(), testDeployment(), testSLO("payments"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Confidence, aggregates.MediumConfidence)
	assert.InDelta(t, 0.05*120, result.BurnMinutes, 1e-9)
	assert.Equal(t, "direct", result.Method)

	// The verdict was persisted onto the deployment.
	assert.Equal(t, "deploy-1", store.updatedID)
	assert.InDelta(t, result.Confidence, store.updatedConfidence, 1e-9)
}

func TestCorrelateNoSpike(t *testing.T) {
	store := &fakeStore{beforeRate: 0.01, afterRate: 0.01}
	service := newTestService(store, nil, nil)

	result, err := service.Correlate(context.Background(), testDeployment(), testSLO("payments"))
	require.NoError(t, err)
	assert.Less(t, result.Confidence, aggregates.HighConfidence)
}

func TestCorrelatePersistenceFailOpen(t *testing.T) {
	store := &fakeStore{beforeRate: 0.001, afterRate: 0.05, updateErr: errors.New("write failed")}
	service := newTestService(store, nil, nil)

	result, err := service.Correlate(context.Background(), testDeployment(), testSLO("payments"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Confidence, aggregates.LowConfidence)
}

func TestCorrelateLowConfidenceNotPersisted(t *testing.T) {
	store := &fakeStore{beforeRate: 0.01, afterRate: 0.005}
	service := newTestService(store, nil, nil)

	result, err := service.Correlate(context.Background(), testDeployment(), testSLO("payments"))
	require.NoError(t, err)
	assert.Less(t, result.Confidence, aggregates.LowConfidence)
	assert.Empty(t, store.updatedID)
}

func TestCorrelateServiceSorted(t *testing.T) {
	store := &fakeStore{
		beforeRate: 0.001,
		afterRate:  0.05,
		deployments: []*aggregates.Deployment{
			{ID: "deploy-1", Service: "payments", DeployedAt: time.Now().UTC().Add(-2 * time.Hour)},
			{ID: "deploy-2", Service: "payments", DeployedAt: time.Now().UTC().Add(-5 * time.Hour)},
		},
		slos: []*sloaggregates.SLO{
			{ID: "slo-1", Name: "availability", Service: "payments", Objective: 99.9},
			{ID: "slo-2", Name: "latency", Service: "payments", Objective: 99.5},
		},
	}
	service := newTestService(store, nil, nil)

	results, err := service.CorrelateService(context.Background(), "payments", 168)
	require.NoError(t, err)
	assert.Len(t, results, 4)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Confidence, results[i].Confidence)
	}
}

func TestCorrelateServiceAllFailing(t *testing.T) {
	store := &fakeStore{
		deploymentsErr: errors.New("repository down"),
		slosErr:        errors.New("repository down"),
	}
	service := newTestService(store, nil, nil)

	results, err := service.CorrelateService(context.Background(), "payments", 168)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCorrelateServiceSkipsBadPairs(t *testing.T) {
	store := &fakeStore{
		burnRateErr: errors.New("query timeout"),
		deployments: []*aggregates.Deployment{
			{ID: "deploy-1", Service: "payments", DeployedAt: time.Now().UTC()},
		},
		slos: []*sloaggregates.SLO{
			{ID: "slo-1", Name: "availability", Service: "payments", Objective: 99.9},
		},
	}
	service := newTestService(store, nil, nil)

	results, err := service.CorrelateService(context.Background(), "payments", 168)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDependencyScoreSelf(t *testing.T) {
	service := newTestService(&fakeStore{}, nil, nil)
	score, err := service.dependencyScore(context.Background(), "payments", "payments")
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestDependencyScoreGraph(t *testing.T) {
	graph := &fakeGraph{
		upstream: []aggregates.Dependency{{Service: "payments", Depth: 1}},
	}
	service := newTestService(&fakeStore{}, graph, nil)
	score, err := service.dependencyScore(context.Background(), "payments", "checkout")
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	graph = &fakeGraph{
		transitive: []aggregates.Dependency{{Service: "ledger", Depth: 2}},
	}
	service = newTestService(&fakeStore{}, graph, nil)
	score, err = service.dependencyScore(context.Background(), "ledger", "checkout")
	require.NoError(t, err)
	assert.Equal(t, 0.4, score)

	service = newTestService(&fakeStore{}, &fakeGraph{}, nil)
	score, err = service.dependencyScore(context.Background(), "unrelated", "checkout")
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestDependencyScoreYAMLFallback(t *testing.T) {
	downstream := map[string][]string{"payments": {"checkout", "billing"}}
	service := newTestService(&fakeStore{}, nil, downstream)

	score, err := service.dependencyScore(context.Background(), "payments", "checkout")
	require.NoError(t, err)
	assert.Equal(t, 0.6, score)

	score, err = service.dependencyScore(context.Background(), "payments", "search")
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestDependencyScoreGraphBeatsYAML(t *testing.T) {
	// The graph knows nothing about the relationship: the declared downstream
	// list is ignored when a graph is present.
	downstream := map[string][]string{"payments": {"checkout"}}
	service := newTestService(&fakeStore{}, &fakeGraph{}, downstream)

	score, err := service.dependencyScore(context.Background(), "payments", "checkout")
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestHistoryScore(t *testing.T) {
	high := 0.8
	low := 0.1
	store := &fakeStore{
		deployments: []*aggregates.Deployment{
			{ID: "d1", CorrelationConfidence: &high},
			{ID: "d2", CorrelationConfidence: &low},
			{ID: "d3"},
			{ID: "d4", CorrelationConfidence: &high},
		},
	}
	service := newTestService(store, nil, nil)

	score, err := service.historyScore(context.Background(), "payments")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestHistoryScoreNoHistory(t *testing.T) {
	service := newTestService(&fakeStore{}, nil, nil)
	score, err := service.historyScore(context.Background(), "payments")
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestAttributeCrossServiceFailOpen(t *testing.T) {
	// History and graph lookups fail: the attribution still succeeds with
	// neutral side scores.
	store := &fakeStore{beforeRate: 0.001, afterRate: 0.05, deploymentsErr: errors.New("repository down")}
	graph := &fakeGraph{upstreamErr: errors.New("graph down")}
	service := newTestService(store, graph, nil)

	deployment := testDeployment()
	result, err := service.AttributeCrossService(context.Background(), deployment, testSLO("checkout"), deployment.DeployedAt.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "cross-service", result.Method)
	assert.Zero(t, result.Details["dependency_score"])
	assert.Zero(t, result.Details["history_score"])
	assert.Greater(t, result.Details["proximity_score"], 0.7)
	assert.Greater(t, result.Confidence, 0.0)
}

func TestAttributeCrossServiceComposition(t *testing.T) {
	store := &fakeStore{beforeRate: 0.001, afterRate: 0.05}
	graph := &fakeGraph{upstream: []aggregates.Dependency{{Service: "payments", Depth: 1}}}
	service := newTestService(store, graph, nil)

	deployment := testDeployment()
	result, err := service.AttributeCrossService(context.Background(), deployment, testSLO("checkout"), deployment.DeployedAt)
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Details["proximity_score"])
	assert.Equal(t, 1.0, result.Details["dependency_score"])
	assert.GreaterOrEqual(t, result.Confidence, aggregates.MediumConfidence)
}
