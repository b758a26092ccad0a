package slo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rsionnach/nthlayer/internal/util"
	"github.com/rsionnach/nthlayer/internal/validator"
	"github.com/rsionnach/nthlayer/pkg/slo/aggregates"
)

type Store interface {
	CreateSLO(ctx context.Context, slo aggregates.SLO) error
	GetSLO(ctx context.Context, id string) (*aggregates.SLO, error)
	GetSLOByName(ctx context.Context, name string) (*aggregates.SLO, error)
	ListSLOs(ctx context.Context) ([]*aggregates.SLO, error)
	GetSLOsByService(ctx context.Context, service string) ([]*aggregates.SLO, error)
	DeleteSLO(ctx context.Context, id string) error
	AddMeasurement(ctx context.Context, measurement aggregates.Measurement) error
}

type Service struct {
	logger *slog.Logger
	store  Store
}

func New(logger *slog.Logger, store Store) *Service {
	return &Service{
		logger: logger,
		store:  store,
	}
}

func InitSLO(slo *aggregates.SLO) {
	slo.ID = util.NewUUID()
	slo.CreatedAt = time.Now().UTC()
	slo.Tier = slo.Tier.Normalize()
}

func (s *Service) CreateSLO(ctx context.Context, slo aggregates.SLO) error {
	s.logger.Info(fmt.Sprintf("creating SLO %s for service %s", slo.Name, slo.Service))
	err := validator.Validator.Struct(slo)
	if err != nil {
		return err
	}
	return s.store.CreateSLO(ctx, slo)
}

func (s *Service) GetSLO(ctx context.Context, id string) (*aggregates.SLO, error) {
	return s.store.GetSLO(ctx, id)
}

func (s *Service) GetSLOByName(ctx context.Context, name string) (*aggregates.SLO, error) {
	return s.store.GetSLOByName(ctx, name)
}

func (s *Service) ListSLOs(ctx context.Context) ([]*aggregates.SLO, error) {
	return s.store.ListSLOs(ctx)
}

func (s *Service) GetSLOsByService(ctx context.Context, service string) ([]*aggregates.SLO, error) {
	return s.store.GetSLOsByService(ctx, service)
}

func (s *Service) DeleteSLO(ctx context.Context, id string) error {
	s.logger.Info(fmt.Sprintf("deleting SLO %s", id))
	return s.store.DeleteSLO(ctx, id)
}

func (s *Service) AddMeasurement(ctx context.Context, measurement aggregates.Measurement) error {
	err := validator.Validator.Struct(measurement)
	if err != nil {
		return err
	}
	return s.store.AddMeasurement(ctx, measurement)
}
