package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	er "github.com/mcorbin/corbierror"
	"github.com/rsionnach/nthlayer/pkg/correlation/aggregates"
)

type dbDeployment struct {
	ID                    string
	Service               string
	Environment           string
	DeployedAt            time.Time `db:"deployed_at"`
	CommitSHA             string    `db:"commit_sha"`
	Author                string
	CorrelatedBurnMinutes *float64 `db:"correlated_burn_minutes"`
	CorrelationConfidence *float64 `db:"correlation_confidence"`
}

func toDeployment(deployment *dbDeployment) *aggregates.Deployment {
	return &aggregates.Deployment{
		ID:                    deployment.ID,
		Service:               deployment.Service,
		Environment:           deployment.Environment,
		DeployedAt:            deployment.DeployedAt.UTC(),
		CommitSHA:             deployment.CommitSHA,
		Author:                deployment.Author,
		CorrelatedBurnMinutes: deployment.CorrelatedBurnMinutes,
		CorrelationConfidence: deployment.CorrelationConfidence,
	}
}

func (c *Database) CreateDeployment(ctx context.Context, deployment aggregates.Deployment) error {
	data := dbDeployment{
		ID:          deployment.ID,
		Service:     deployment.Service,
		Environment: deployment.Environment,
		DeployedAt:  deployment.DeployedAt.UTC(),
		CommitSHA:   deployment.CommitSHA,
		Author:      deployment.Author,
	}
	result, err := c.db.NamedExecContext(ctx, "INSERT INTO deployment (id, service, environment, deployed_at, commit_sha, author) VALUES (:id, :service, :environment, :deployed_at, :commit_sha, :author)", data)
	if err != nil {
		return fmt.Errorf("fail to create deployment %s: %w", deployment.ID, err)
	}
	return checkResult(result, 1)
}

func (c *Database) GetDeployment(ctx context.Context, id string) (*aggregates.Deployment, error) {
	deployment := dbDeployment{}
	err := c.db.GetContext(ctx, &deployment, "SELECT id, service, environment, deployed_at, commit_sha, author, correlated_burn_minutes, correlation_confidence FROM deployment WHERE id=$1", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, er.New("deployment not found", er.NotFound, true)
		}
		return nil, fmt.Errorf("fail to get deployment %s: %w", id, err)
	}
	return toDeployment(&deployment), nil
}

func (c *Database) GetRecentDeployments(ctx context.Context, service string, hours int, environment string) ([]*aggregates.Deployment, error) {
	threshold := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	deployments := []dbDeployment{}
	var err error
	if environment == "" {
		err = c.db.SelectContext(ctx, &deployments, "SELECT id, service, environment, deployed_at, commit_sha, author, correlated_burn_minutes, correlation_confidence FROM deployment WHERE service=$1 AND deployed_at >= $2 ORDER BY deployed_at DESC", service, threshold)
	} else {
		err = c.db.SelectContext(ctx, &deployments, "SELECT id, service, environment, deployed_at, commit_sha, author, correlated_burn_minutes, correlation_confidence FROM deployment WHERE service=$1 AND deployed_at >= $2 AND environment=$3 ORDER BY deployed_at DESC", service, threshold, environment)
	}
	if err != nil {
		return nil, fmt.Errorf("fail to list deployments for service %s: %w", service, err)
	}
	result := []*aggregates.Deployment{}
	for i := range deployments {
		result = append(result, toDeployment(&deployments[i]))
	}
	return result, nil
}

// UpdateDeploymentCorrelation writes a correlation verdict onto a deployment
// record. The write is idempotent and keyed by deployment ID.
func (c *Database) UpdateDeploymentCorrelation(ctx context.Context, deploymentID string, burnMinutes float64, confidence float64) error {
	result, err := c.db.ExecContext(ctx, "UPDATE deployment SET correlated_burn_minutes=$1, correlation_confidence=$2 WHERE id=$3", burnMinutes, confidence, deploymentID)
	if err != nil {
		return fmt.Errorf("fail to update correlation for deployment %s: %w", deploymentID, err)
	}
	return checkResult(result, 1)
}
