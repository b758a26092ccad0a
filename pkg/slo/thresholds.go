package slo

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rsionnach/nthlayer/pkg/slo/aggregates"
)

const (
	secondsPerDay  = 86400.0
	secondsPerWeek = 604800.0
)

// ParseSlope converts a "-0.5%/week" style threshold string into a budget
// fraction per second. Supported units are "day" and "week".
func ParseSlope(input string) (float64, error) {
	trimmed := strings.TrimSpace(input)
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid slope threshold %q: expected <percent>/<unit>", input)
	}
	value := strings.TrimSpace(parts[0])
	if !strings.HasSuffix(value, "%") {
		return 0, fmt.Errorf("invalid slope threshold %q: value should end with %%", input)
	}
	percent, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid slope threshold %q: %w", input, err)
	}
	fraction := percent / 100
	switch strings.TrimSpace(parts[1]) {
	case "day":
		return fraction / secondsPerDay, nil
	case "week":
		return fraction / secondsPerWeek, nil
	default:
		return 0, fmt.Errorf("invalid slope threshold %q: unknown unit %s", input, parts[1])
	}
}

// ParseWindow converts a "30d" or "12h" style window string into a duration.
func ParseWindow(input string) (time.Duration, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, fmt.Errorf("empty analysis window")
	}
	unit := trimmed[len(trimmed)-1]
	value, err := strconv.ParseFloat(trimmed[:len(trimmed)-1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid analysis window %q: %w", input, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid analysis window %q: should be positive", input)
	}
	switch unit {
	case 'd':
		return time.Duration(value * float64(24*time.Hour)), nil
	case 'h':
		return time.Duration(value * float64(time.Hour)), nil
	case 'm':
		return time.Duration(value * float64(time.Minute)), nil
	default:
		return 0, fmt.Errorf("invalid analysis window %q: unknown unit %c", input, unit)
	}
}

// Thresholds holds the drift policy for one tier, with slopes already
// converted to budget fraction per second.
type Thresholds struct {
	Window        time.Duration
	WarnSlope     float64
	CriticalSlope float64
	WarnDays      float64
	CriticalDays  float64
	Enabled       bool
}

// ThresholdsConfig is the YAML facing shape of Thresholds, using the
// human threshold grammar.
type ThresholdsConfig struct {
	Window        string  `yaml:"window"`
	WarnSlope     string  `yaml:"warn-slope"`
	CriticalSlope string  `yaml:"critical-slope"`
	WarnDays      float64 `yaml:"warn-days"`
	CriticalDays  float64 `yaml:"critical-days"`
	Enabled       *bool   `yaml:"enabled"`
}

func (c ThresholdsConfig) Parse(defaults Thresholds) (Thresholds, error) {
	result := defaults
	if c.Window != "" {
		window, err := ParseWindow(c.Window)
		if err != nil {
			return Thresholds{}, err
		}
		result.Window = window
	}
	if c.WarnSlope != "" {
		slope, err := ParseSlope(c.WarnSlope)
		if err != nil {
			return Thresholds{}, err
		}
		result.WarnSlope = slope
	}
	if c.CriticalSlope != "" {
		slope, err := ParseSlope(c.CriticalSlope)
		if err != nil {
			return Thresholds{}, err
		}
		result.CriticalSlope = slope
	}
	if c.WarnDays != 0 {
		result.WarnDays = c.WarnDays
	}
	if c.CriticalDays != 0 {
		result.CriticalDays = c.CriticalDays
	}
	if c.Enabled != nil {
		result.Enabled = *c.Enabled
	}
	return result, nil
}

func mustSlope(input string) float64 {
	slope, err := ParseSlope(input)
	if err != nil {
		panic(err)
	}
	return slope
}

var defaultThresholds = map[aggregates.Tier]Thresholds{
	aggregates.TierCritical: {
		Window:        30 * 24 * time.Hour,
		WarnSlope:     mustSlope("-0.2%/week"),
		CriticalSlope: mustSlope("-0.5%/week"),
		WarnDays:      30,
		CriticalDays:  14,
		Enabled:       true,
	},
	aggregates.TierStandard: {
		Window:        30 * 24 * time.Hour,
		WarnSlope:     mustSlope("-0.5%/week"),
		CriticalSlope: mustSlope("-1.0%/week"),
		WarnDays:      30,
		CriticalDays:  14,
		Enabled:       true,
	},
	aggregates.TierLow: {
		Window:        14 * 24 * time.Hour,
		WarnSlope:     mustSlope("-1.0%/week"),
		CriticalSlope: mustSlope("-2.0%/week"),
		WarnDays:      21,
		CriticalDays:  7,
		Enabled:       false,
	},
}

// ThresholdsForTier returns the drift policy for a tier, falling back to
// the standard tier policy for unknown tiers.
func ThresholdsForTier(tier aggregates.Tier) Thresholds {
	return defaultThresholds[tier.Normalize()]
}

// Policy is an immutable tier policy table, built from defaults plus
// optional per-tier configuration overrides.
type Policy struct {
	thresholds map[aggregates.Tier]Thresholds
}

func NewPolicy(overrides map[string]ThresholdsConfig) (*Policy, error) {
	thresholds := make(map[aggregates.Tier]Thresholds, len(defaultThresholds))
	for tier, defaults := range defaultThresholds {
		thresholds[tier] = defaults
	}
	for name, override := range overrides {
		tier := aggregates.Tier(name)
		if tier.Normalize() != tier {
			return nil, fmt.Errorf("unknown tier %q in thresholds configuration", name)
		}
		parsed, err := override.Parse(thresholds[tier])
		if err != nil {
			return nil, err
		}
		thresholds[tier] = parsed
	}
	return &Policy{thresholds: thresholds}, nil
}

func (p *Policy) ForTier(tier aggregates.Tier) Thresholds {
	return p.thresholds[tier.Normalize()]
}
