package config

import (
	"github.com/rsionnach/nthlayer/internal/database"
	"github.com/rsionnach/nthlayer/internal/http"
	"github.com/rsionnach/nthlayer/internal/scheduler"
	"github.com/rsionnach/nthlayer/internal/traces"
	"github.com/rsionnach/nthlayer/pkg/correlation/aggregates"
	"github.com/rsionnach/nthlayer/pkg/slo"
)

// Analytics groups the tunables of the reliability analytics core.
type Analytics struct {
	// Thresholds overrides the per-tier drift policy, keyed by tier name.
	Thresholds map[string]slo.ThresholdsConfig
	// Correlation configures the burn-rate windows around deployments.
	Correlation aggregates.CorrelationWindow
	// Downstream statically declares which services each service can affect,
	// used when no dependency graph data is available.
	Downstream map[string][]string
}

type Configuration struct {
	HTTP      http.Configuration
	Database  database.Configuration
	Scheduler scheduler.Configuration
	Traces    traces.Configuration
	Analytics Analytics
}
