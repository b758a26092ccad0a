package database

import (
	"context"
	"fmt"

	"github.com/rsionnach/nthlayer/pkg/correlation/aggregates"
)

type dbDependency struct {
	Service   string
	DependsOn string `db:"depends_on"`
	Depth     int
}

func (c *Database) CreateDependency(ctx context.Context, service string, dependsOn string) error {
	_, err := c.db.ExecContext(ctx, "INSERT INTO service_dependency (service, depends_on) VALUES ($1, $2) ON CONFLICT DO NOTHING", service, dependsOn)
	if err != nil {
		return fmt.Errorf("fail to create dependency %s -> %s: %w", service, dependsOn, err)
	}
	return nil
}

// GetUpstream returns the services the given service directly depends on.
func (c *Database) GetUpstream(ctx context.Context, service string) ([]aggregates.Dependency, error) {
	dependencies := []dbDependency{}
	err := c.db.SelectContext(ctx, &dependencies, "SELECT service, depends_on, 1 AS depth FROM service_dependency WHERE service=$1", service)
	if err != nil {
		return nil, fmt.Errorf("fail to get upstream dependencies for %s: %w", service, err)
	}
	result := []aggregates.Dependency{}
	for _, dependency := range dependencies {
		result = append(result, aggregates.Dependency{Service: dependency.DependsOn, Depth: 1})
	}
	return result, nil
}

// GetTransitiveUpstream walks the dependency edges recursively and returns
// every upstream service with its depth.
func (c *Database) GetTransitiveUpstream(ctx context.Context, service string) ([]aggregates.Dependency, error) {
	query := `WITH RECURSIVE upstream AS (
  SELECT service, depends_on, 1 AS depth FROM service_dependency WHERE service=$1
  UNION
  SELECT d.service, d.depends_on, upstream.depth + 1 FROM service_dependency d
    INNER JOIN upstream ON d.service = upstream.depends_on
    WHERE upstream.depth < 10
)
SELECT service, depends_on, depth FROM upstream ORDER BY depth`
	dependencies := []dbDependency{}
	err := c.db.SelectContext(ctx, &dependencies, query, service)
	if err != nil {
		return nil, fmt.Errorf("fail to get transitive upstream dependencies for %s: %w", service, err)
	}
	result := []aggregates.Dependency{}
	for _, dependency := range dependencies {
		result = append(result, aggregates.Dependency{Service: dependency.DependsOn, Depth: dependency.Depth})
	}
	return result, nil
}
