package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/rsionnach/nthlayer/internal/util"
	"github.com/rsionnach/nthlayer/pkg/correlation/aggregates"
	"github.com/stretchr/testify/assert"
)

func TestDeploymentCRUD(t *testing.T) {
	deployment := aggregates.Deployment{
		ID:          util.NewUUID(),
		Service:     "payments",
		Environment: "production",
		DeployedAt:  time.Now().UTC().Add(-2 * time.Hour),
		CommitSHA:   "abc123",
		Author:      "alice",
	}
	err := TestComponent.CreateDeployment(context.Background(), deployment)
	assert.NoError(t, err)

	deploymentGet, err := TestComponent.GetDeployment(context.Background(), deployment.ID)
	assert.NoError(t, err)
	assert.Equal(t, deployment.Service, deploymentGet.Service)
	assert.Nil(t, deploymentGet.CorrelationConfidence)

	recent, err := TestComponent.GetRecentDeployments(context.Background(), "payments", 24, "")
	assert.NoError(t, err)
	assert.Len(t, recent, 1)

	recent, err = TestComponent.GetRecentDeployments(context.Background(), "payments", 24, "staging")
	assert.NoError(t, err)
	assert.Len(t, recent, 0)

	recent, err = TestComponent.GetRecentDeployments(context.Background(), "payments", 1, "")
	assert.NoError(t, err)
	assert.Len(t, recent, 0)

	err = TestComponent.UpdateDeploymentCorrelation(context.Background(), deployment.ID, 6.5, 0.84)
	assert.NoError(t, err)
	deploymentGet, err = TestComponent.GetDeployment(context.Background(), deployment.ID)
	assert.NoError(t, err)
	assert.NotNil(t, deploymentGet.CorrelatedBurnMinutes)
	assert.InDelta(t, 6.5, *deploymentGet.CorrelatedBurnMinutes, 0.0001)
	assert.NotNil(t, deploymentGet.CorrelationConfidence)
	assert.InDelta(t, 0.84, *deploymentGet.CorrelationConfidence, 0.0001)

	err = TestComponent.UpdateDeploymentCorrelation(context.Background(), util.NewUUID(), 1, 0.5)
	assert.ErrorContains(t, err, "not found")
}

func TestDependencyGraph(t *testing.T) {
	// checkout -> payments -> ledger
	err := TestComponent.CreateDependency(context.Background(), "checkout", "payments")
	assert.NoError(t, err)
	err = TestComponent.CreateDependency(context.Background(), "payments", "ledger")
	assert.NoError(t, err)
	// Duplicate edges are ignored.
	err = TestComponent.CreateDependency(context.Background(), "checkout", "payments")
	assert.NoError(t, err)

	upstream, err := TestComponent.GetUpstream(context.Background(), "checkout")
	assert.NoError(t, err)
	assert.Len(t, upstream, 1)
	assert.Equal(t, "payments", upstream[0].Service)
	assert.Equal(t, 1, upstream[0].Depth)

	transitive, err := TestComponent.GetTransitiveUpstream(context.Background(), "checkout")
	assert.NoError(t, err)
	assert.Len(t, transitive, 2)
	assert.Equal(t, "payments", transitive[0].Service)
	assert.Equal(t, "ledger", transitive[1].Service)
	assert.Equal(t, 2, transitive[1].Depth)

	upstream, err = TestComponent.GetUpstream(context.Background(), "ledger")
	assert.NoError(t, err)
	assert.Len(t, upstream, 0)
}
