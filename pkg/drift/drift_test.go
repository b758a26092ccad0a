package drift

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/rsionnach/nthlayer/pkg/drift/aggregates"
	"github.com/rsionnach/nthlayer/pkg/slo"
	sloaggregates "github.com/rsionnach/nthlayer/pkg/slo/aggregates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	series    []aggregates.TimeSeriesPoint
	seriesErr error
	slos      []*sloaggregates.SLO
	slosErr   error
}

func (s *fakeStore) GetBudgetSeries(ctx context.Context, sloID string, start time.Time, end time.Time) ([]aggregates.TimeSeriesPoint, error) {
	return s.series, s.seriesErr
}

func (s *fakeStore) GetSLOsByService(ctx context.Context, service string) ([]*sloaggregates.SLO, error) {
	return s.slos, s.slosErr
}

func newTestService(store Store) *Service {
	policy, err := slo.NewPolicy(nil)
	if err != nil {
		panic(err)
	}
	return New(slog.Default(), store, policy)
}

func testSLO(tier sloaggregates.Tier) sloaggregates.SLO {
	return sloaggregates.SLO{
		ID:        "slo-1",
		Name:      "availability",
		Service:   "payments",
		Tier:      tier,
		Objective: 99.9,
	}
}

func TestAnalyzeInsufficientData(t *testing.T) {
	store := &fakeStore{series: []aggregates.TimeSeriesPoint{{Timestamp: time.Now(), Value: 0.5}}}
	service := newTestService(store)

	_, err := service.Analyze(context.Background(), testSLO(sloaggregates.TierCritical), 0)
	require.Error(t, err)
	var insufficient *InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 1, insufficient.DataPoints)
}

func TestAnalyzeFlatSeries(t *testing.T) {
	start := time.Now().UTC().Add(-30 * 24 * time.Hour)
	store := &fakeStore{series: linearSeries(start, 720, time.Hour, 0.8, 0)}
	service := newTestService(store)

	result, err := service.Analyze(context.Background(), testSLO(sloaggregates.TierCritical), 0)
	require.NoError(t, err)
	assert.Equal(t, aggregates.PatternStable, result.Pattern)
	assert.Equal(t, aggregates.SeverityNone, result.Severity)
	assert.Nil(t, result.Projection.DaysUntilExhaustion)
	assert.Equal(t, 0, result.ExitCode)
	assert.InDelta(t, 0.8, result.Metrics.CurrentBudget, 1e-9)
	assert.Equal(t, 720, result.Metrics.DataPoints)
}

func TestAnalyzeDecliningSeries(t *testing.T) {
	start := time.Now().UTC().Add(-30 * 24 * time.Hour)
	// 0.90 down to ~0.70 over 30 days on a critical tier service.
	slopePerSecond := -0.2 / (30 * 86400)
	store := &fakeStore{series: linearSeries(start, 720, time.Hour, 0.9, slopePerSecond)}
	service := newTestService(store)

	result, err := service.Analyze(context.Background(), testSLO(sloaggregates.TierCritical), 0)
	require.NoError(t, err)
	assert.Equal(t, aggregates.PatternGradualDecline, result.Pattern)
	assert.Equal(t, aggregates.SeverityCritical, result.Severity)
	assert.Equal(t, 2, result.ExitCode)
	require.NotNil(t, result.Projection.DaysUntilExhaustion)

	expectedDays := result.Metrics.CurrentBudget / (-slopePerSecond * 86400)
	assert.InDelta(t, expectedDays, *result.Projection.DaysUntilExhaustion, 0.1)
	assert.InDelta(t, slopePerSecond*86400*7, result.Metrics.SlopePerWeek, 1e-9)
	assert.InDelta(t, 7*result.Metrics.SlopePerDay, result.Metrics.SlopePerWeek, 1e-12)
	assert.Contains(t, result.Summary, "GRADUAL_DECLINE")
}

func TestAnalyzeImprovingSeries(t *testing.T) {
	start := time.Now().UTC().Add(-30 * 24 * time.Hour)
	store := &fakeStore{series: linearSeries(start, 720, time.Hour, 0.5, 0.1/(30*86400))}
	service := newTestService(store)

	result, err := service.Analyze(context.Background(), testSLO(sloaggregates.TierStandard), 0)
	require.NoError(t, err)
	assert.Equal(t, aggregates.PatternGradualImprovement, result.Pattern)
	assert.Nil(t, result.Projection.DaysUntilExhaustion)
	assert.Equal(t, aggregates.SeverityNone, result.Severity)
	assert.GreaterOrEqual(t, result.Projection.ProjectedBudget90d, result.Projection.ProjectedBudget30d)
}

func TestAnalyzeStepChange(t *testing.T) {
	start := time.Now().UTC().Add(-30 * 24 * time.Hour)
	series := linearSeries(start, 720, time.Hour, 0.85, 0)
	for i := len(series) - 12; i < len(series); i++ {
		series[i].Value -= 0.10
	}
	store := &fakeStore{series: series}
	service := newTestService(store)

	result, err := service.Analyze(context.Background(), testSLO(sloaggregates.TierStandard), 0)
	require.NoError(t, err)
	assert.Equal(t, aggregates.PatternStepChangeDown, result.Pattern)
	assert.Equal(t, aggregates.SeverityCritical, result.Severity)
}

func TestAnalyzeProjectionsClamped(t *testing.T) {
	start := time.Now().UTC().Add(-30 * 24 * time.Hour)
	// Steep decline exhausts well before 90 days: projections clamp at zero.
	store := &fakeStore{series: linearSeries(start, 720, time.Hour, 0.9, -0.5/(30*86400))}
	service := newTestService(store)

	result, err := service.Analyze(context.Background(), testSLO(sloaggregates.TierCritical), 0)
	require.NoError(t, err)
	require.NotNil(t, result.Projection.DaysUntilExhaustion)
	assert.Less(t, *result.Projection.DaysUntilExhaustion, 90.0)
	assert.Zero(t, result.Projection.ProjectedBudget90d)
	assert.GreaterOrEqual(t, result.Projection.ProjectedBudget30d, 0.0)
}

func TestAnalyzeServiceSkipsFailures(t *testing.T) {
	store := &fakeStore{
		slos: []*sloaggregates.SLO{
			{ID: "slo-1", Name: "availability", Service: "payments", Tier: sloaggregates.TierCritical, Objective: 99.9},
			{ID: "slo-2", Name: "latency", Service: "payments", Tier: sloaggregates.TierLow, Objective: 99},
		},
		// No measurements: every analysis fails with insufficient data.
	}
	service := newTestService(store)

	results, err := service.AnalyzeService(context.Background(), "payments")
	require.NoError(t, err)
	// The low tier SLO is skipped (drift disabled), the critical one fails
	// on insufficient data and is skipped too.
	assert.Empty(t, results)
}

func TestAnalyzeServiceStoreError(t *testing.T) {
	store := &fakeStore{slosErr: errors.New("connection refused")}
	service := newTestService(store)

	_, err := service.AnalyzeService(context.Background(), "payments")
	assert.Error(t, err)
}
