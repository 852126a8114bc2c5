package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bissquit/incident-comms/internal/pkg/metrics"
)

var (
	catalogTemplates = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "catalog",
			Name:      "templates",
			Help:      "Templates currently in the catalog",
		},
	)

	catalogImports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "catalog",
			Name:      "imports_total",
			Help:      "Template imports by outcome",
		},
		[]string{"status"},
	)
)

func recordTemplates(n int) {
	catalogTemplates.Set(float64(n))
}

func recordImport(status string) {
	catalogImports.WithLabelValues(status).Inc()
}
