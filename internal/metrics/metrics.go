package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	driftAnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nthlayer",
			Name:      "drift_analyses_total",
			Help:      "Total number of drift analyses, partitioned by severity.",
		},
		[]string{"severity"},
	)

	correlationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nthlayer",
			Name:      "deployment_correlations_total",
			Help:      "Total number of deployment correlations, partitioned by confidence label.",
		},
		[]string{"confidence"},
	)

	correlationsPersistedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nthlayer",
			Name:      "deployment_correlations_persisted_total",
			Help:      "Correlation verdicts written back onto deployment records.",
		},
	)

	degradedOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nthlayer",
			Name:      "degraded_operations_total",
			Help:      "Fail-open side computations that degraded to a neutral value.",
		},
		[]string{"operation"},
	)
)

// Register attaches nthlayer collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		driftAnalysesTotal,
		correlationsTotal,
		correlationsPersistedTotal,
		degradedOperationsTotal,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

func ObserveDriftAnalysis(severity string) {
	driftAnalysesTotal.WithLabelValues(severity).Inc()
}

func ObserveCorrelation(confidenceLabel string) {
	correlationsTotal.WithLabelValues(confidenceLabel).Inc()
}

func ObserveCorrelationPersisted() {
	correlationsPersistedTotal.Inc()
}

func ObserveDegradedOperation(operation string) {
	degradedOperationsTotal.WithLabelValues(operation).Inc()
}
