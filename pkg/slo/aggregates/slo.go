package aggregates

import "time"

type SLO struct {
	ID          string
	Name        string `validate:"required"`
	Service     string `validate:"required"`
	Tier        Tier
	Description *string
	Labels      map[string]string
	CreatedAt   time.Time
	Objective   float64 `validate:"gt=0,lte=100"`
}

// Tier ranks how much a service matters when deciding drift urgency.
type Tier string

const (
	TierCritical Tier = "critical"
	TierStandard Tier = "standard"
	TierLow      Tier = "low"
)

// Normalize maps unknown tiers to the standard tier.
func (t Tier) Normalize() Tier {
	switch t {
	case TierCritical, TierStandard, TierLow:
		return t
	default:
		return TierStandard
	}
}

// Measurement is one budget-remaining observation for an SLO.
type Measurement struct {
	SLOID     string    `validate:"required"`
	Timestamp time.Time `validate:"required"`
	// BudgetRemaining is a fraction of the error budget still available, in [0,1].
	BudgetRemaining float64 `validate:"gte=0,lte=1"`
}
