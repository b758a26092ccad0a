package drift

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rsionnach/nthlayer/pkg/drift/aggregates"
	"github.com/rsionnach/nthlayer/pkg/slo"
	sloaggregates "github.com/rsionnach/nthlayer/pkg/slo/aggregates"
)

type Store interface {
	GetBudgetSeries(ctx context.Context, sloID string, start time.Time, end time.Time) ([]aggregates.TimeSeriesPoint, error)
	GetSLOsByService(ctx context.Context, service string) ([]*sloaggregates.SLO, error)
}

// InsufficientDataError signals that the analysis window holds fewer than
// two budget measurements, so no trend can be fitted.
type InsufficientDataError struct {
	SLO        string
	DataPoints int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for SLO %s: %d measurements in window, at least 2 required", e.SLO, e.DataPoints)
}

type Service struct {
	logger      *slog.Logger
	store       Store
	policy      *slo.Policy
	patternOpts PatternOptions
}

func New(logger *slog.Logger, store Store, policy *slo.Policy) *Service {
	return &Service{
		logger:      logger,
		store:       store,
		policy:      policy,
		patternOpts: DefaultPatternOptions(),
	}
}
