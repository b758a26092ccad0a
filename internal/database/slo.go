package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	er "github.com/mcorbin/corbierror"
	driftaggregates "github.com/rsionnach/nthlayer/pkg/drift/aggregates"
	"github.com/rsionnach/nthlayer/pkg/slo/aggregates"
)

type dbSLO struct {
	ID          string
	Name        string
	Service     string
	Tier        string
	Description *string
	Labels      *string
	Objective   float64
	CreatedAt   time.Time `db:"created_at"`
}

func toSLO(slo *dbSLO) (*aggregates.SLO, error) {
	labels, err := stringToLabels(slo.Labels)
	if err != nil {
		return nil, err
	}
	return &aggregates.SLO{
		ID:          slo.ID,
		Name:        slo.Name,
		Service:     slo.Service,
		Tier:        aggregates.Tier(slo.Tier),
		Description: slo.Description,
		Labels:      labels,
		Objective:   slo.Objective,
		CreatedAt:   slo.CreatedAt.UTC(),
	}, nil
}

func (c *Database) CreateSLO(ctx context.Context, slo aggregates.SLO) error {
	sloExists := dbSLO{}
	tx := c.db.MustBegin()
	shouldRollback := true
	defer func() {
		if shouldRollback {
			err := tx.Rollback()
			if err != nil {
				c.Logger.Error(err.Error())
			}
		}
	}()
	lock := fmt.Sprintf("slo-%s", slo.Name)
	_, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", lock)
	if err != nil {
		return err
	}
	err = tx.GetContext(ctx, &sloExists, "SELECT slo.id, slo.name FROM slo WHERE name=$1", slo.Name)
	if err != nil {
		if err != sql.ErrNoRows {
			return fmt.Errorf("fail to get SLO %s: %w", slo.Name, err)
		}
	} else {
		return er.Newf("a SLO named %s already exists", er.Conflict, true, slo.Name)
	}
	labels, err := labelsToString(slo.Labels)
	if err != nil {
		return err
	}
	data := dbSLO{
		ID:          slo.ID,
		Name:        slo.Name,
		Service:     slo.Service,
		Tier:        string(slo.Tier),
		Description: slo.Description,
		Labels:      labels,
		Objective:   slo.Objective,
		CreatedAt:   slo.CreatedAt,
	}
	result, err := tx.NamedExecContext(ctx, "INSERT INTO slo (id, name, service, tier, description, labels, objective, created_at) VALUES (:id, :name, :service, :tier, :description, :labels, :objective, :created_at)", data)
	if err != nil {
		return fmt.Errorf("fail to create SLO %s: %w", data.Name, err)
	}
	err = checkResult(result, 1)
	if err != nil {
		return err
	}
	err = tx.Commit()
	if err != nil {
		return err
	}
	shouldRollback = false
	return nil
}

func (c *Database) GetSLO(ctx context.Context, id string) (*aggregates.SLO, error) {
	slo := dbSLO{}
	err := c.db.GetContext(ctx, &slo, "SELECT id, name, service, tier, description, labels, objective, created_at FROM slo WHERE id=$1", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, er.New("SLO not found", er.NotFound, true)
		}
		return nil, fmt.Errorf("fail to get SLO %s: %w", id, err)
	}
	return toSLO(&slo)
}

func (c *Database) GetSLOByName(ctx context.Context, name string) (*aggregates.SLO, error) {
	slo := dbSLO{}
	err := c.db.GetContext(ctx, &slo, "SELECT id, name, service, tier, description, labels, objective, created_at FROM slo WHERE name=$1", name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, er.New("SLO not found", er.NotFound, true)
		}
		return nil, fmt.Errorf("fail to get SLO %s: %w", name, err)
	}
	return toSLO(&slo)
}

func (c *Database) ListSLOs(ctx context.Context) ([]*aggregates.SLO, error) {
	dbSLOs := []dbSLO{}
	err := c.db.SelectContext(ctx, &dbSLOs, "SELECT id, name, service, tier, description, labels, objective, created_at FROM slo ORDER BY service, name")
	if err != nil {
		return nil, fmt.Errorf("fail to list SLOs: %w", err)
	}
	result := []*aggregates.SLO{}
	for i := range dbSLOs {
		slo, err := toSLO(&dbSLOs[i])
		if err != nil {
			return nil, err
		}
		result = append(result, slo)
	}
	return result, nil
}

func (c *Database) GetSLOsByService(ctx context.Context, service string) ([]*aggregates.SLO, error) {
	dbSLOs := []dbSLO{}
	err := c.db.SelectContext(ctx, &dbSLOs, "SELECT id, name, service, tier, description, labels, objective, created_at FROM slo WHERE service=$1 ORDER BY name", service)
	if err != nil {
		return nil, fmt.Errorf("fail to list SLOs for service %s: %w", service, err)
	}
	result := []*aggregates.SLO{}
	for i := range dbSLOs {
		slo, err := toSLO(&dbSLOs[i])
		if err != nil {
			return nil, err
		}
		result = append(result, slo)
	}
	return result, nil
}

func (c *Database) DeleteSLO(ctx context.Context, id string) error {
	result, err := c.db.ExecContext(ctx, "DELETE FROM slo WHERE id=$1", id)
	if err != nil {
		return fmt.Errorf("fail to delete SLO %s: %w", id, err)
	}
	return checkResult(result, 1)
}

type dbMeasurement struct {
	SLOID           string    `db:"slo_id"`
	Timestamp       time.Time `db:"timestamp"`
	BudgetRemaining float64   `db:"budget_remaining"`
}

func (c *Database) AddMeasurement(ctx context.Context, measurement aggregates.Measurement) error {
	data := dbMeasurement{
		SLOID:           measurement.SLOID,
		Timestamp:       measurement.Timestamp.UTC(),
		BudgetRemaining: measurement.BudgetRemaining,
	}
	result, err := c.db.NamedExecContext(ctx, "INSERT INTO slo_measurement (slo_id, timestamp, budget_remaining) VALUES (:slo_id, :timestamp, :budget_remaining)", data)
	if err != nil {
		return fmt.Errorf("fail to add measurement for SLO %s: %w", measurement.SLOID, err)
	}
	return checkResult(result, 1)
}

func (c *Database) GetBudgetSeries(ctx context.Context, sloID string, start time.Time, end time.Time) ([]driftaggregates.TimeSeriesPoint, error) {
	measurements := []dbMeasurement{}
	err := c.db.SelectContext(ctx, &measurements, "SELECT slo_id, timestamp, budget_remaining FROM slo_measurement WHERE slo_id=$1 AND timestamp >= $2 AND timestamp <= $3 ORDER BY timestamp", sloID, start, end)
	if err != nil {
		return nil, fmt.Errorf("fail to get budget series for SLO %s: %w", sloID, err)
	}
	points := []driftaggregates.TimeSeriesPoint{}
	for _, measurement := range measurements {
		points = append(points, driftaggregates.TimeSeriesPoint{
			Timestamp: measurement.Timestamp.UTC(),
			Value:     measurement.BudgetRemaining,
		})
	}
	return points, nil
}

// GetBurnRateWindow returns the budget fraction consumed per minute over the
// window, 0.0 when there is not enough data to tell.
func (c *Database) GetBurnRateWindow(ctx context.Context, sloID string, start time.Time, end time.Time) (float64, error) {
	points, err := c.GetBudgetSeries(ctx, sloID, start, end)
	if err != nil {
		return 0, err
	}
	if len(points) < 2 {
		return 0, nil
	}
	first := points[0]
	last := points[len(points)-1]
	minutes := last.Timestamp.Sub(first.Timestamp).Minutes()
	if minutes <= 0 {
		return 0, nil
	}
	consumed := first.Value - last.Value
	if consumed < 0 {
		return 0, nil
	}
	return consumed / minutes, nil
}
