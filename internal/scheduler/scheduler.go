package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	corraggregates "github.com/rsionnach/nthlayer/pkg/correlation/aggregates"
	driftaggregates "github.com/rsionnach/nthlayer/pkg/drift/aggregates"
	sloaggregates "github.com/rsionnach/nthlayer/pkg/slo/aggregates"
)

type Configuration struct {
	// DriftSchedule and CorrelationSchedule are cron expressions. An empty
	// expression disables the corresponding sweep.
	DriftSchedule       string `yaml:"drift-schedule"`
	CorrelationSchedule string `yaml:"correlation-schedule"`
	LookbackHours       int    `yaml:"lookback-hours"`
}

type SLOStore interface {
	ListSLOs(ctx context.Context) ([]*sloaggregates.SLO, error)
}

type DriftService interface {
	AnalyzeService(ctx context.Context, service string) ([]*driftaggregates.DriftResult, error)
}

type CorrelationService interface {
	CorrelateService(ctx context.Context, service string, lookbackHours int) ([]corraggregates.CorrelationResult, error)
}

// Scheduler periodically sweeps every known service with drift analysis and
// deployment correlation.
type Scheduler struct {
	logger      *slog.Logger
	config      Configuration
	store       SLOStore
	drift       DriftService
	correlation CorrelationService
	cron        *cron.Cron
}

func New(logger *slog.Logger, config Configuration, store SLOStore, drift DriftService, correlation CorrelationService) *Scheduler {
	if config.LookbackHours == 0 {
		config.LookbackHours = 168
	}
	return &Scheduler{
		logger:      logger,
		config:      config,
		store:       store,
		drift:       drift,
		correlation: correlation,
		cron:        cron.New(),
	}
}

func (s *Scheduler) Start() error {
	if s.config.DriftSchedule != "" {
		_, err := s.cron.AddFunc(s.config.DriftSchedule, s.driftSweep)
		if err != nil {
			return fmt.Errorf("fail to schedule drift sweep: %w", err)
		}
	}
	if s.config.CorrelationSchedule != "" {
		_, err := s.cron.AddFunc(s.config.CorrelationSchedule, s.correlationSweep)
		if err != nil {
			return fmt.Errorf("fail to schedule correlation sweep: %w", err)
		}
	}
	s.cron.Start()
	s.logger.Info("scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) services(ctx context.Context) []string {
	slos, err := s.store.ListSLOs(ctx)
	if err != nil {
		s.logger.Error(fmt.Sprintf("fail to list SLOs for sweep: %s", err.Error()))
		return nil
	}
	seen := map[string]bool{}
	services := []string{}
	for _, sloDef := range slos {
		if !seen[sloDef.Service] {
			seen[sloDef.Service] = true
			services = append(services, sloDef.Service)
		}
	}
	return services
}

func (s *Scheduler) driftSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	for _, service := range s.services(ctx) {
		results, err := s.drift.AnalyzeService(ctx, service)
		if err != nil {
			s.logger.Error(fmt.Sprintf("drift sweep failed for service %s: %s", service, err.Error()))
			continue
		}
		for _, result := range results {
			if result.Severity == driftaggregates.SeverityWarn || result.Severity == driftaggregates.SeverityCritical {
				s.logger.Warn(result.Summary)
			} else {
				s.logger.Debug(result.Summary)
			}
		}
	}
}

func (s *Scheduler) correlationSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	for _, service := range s.services(ctx) {
		results, err := s.correlation.CorrelateService(ctx, service, s.config.LookbackHours)
		if err != nil {
			s.logger.Error(fmt.Sprintf("correlation sweep failed for service %s: %s", service, err.Error()))
			continue
		}
		for _, result := range results {
			if result.Confidence >= corraggregates.MediumConfidence {
				s.logger.Warn(fmt.Sprintf("deployment %s correlates with burn on %s/%s: confidence %.2f (%s)",
					result.DeploymentID, result.Service, result.SLO, result.Confidence, result.ConfidenceLabel()))
			}
		}
	}
}
