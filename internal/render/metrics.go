package render

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bissquit/incident-comms/internal/pkg/metrics"
)

var (
	rendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "render",
			Name:      "bodies_total",
			Help:      "Template bodies rendered by outcome",
		},
		[]string{"status"},
	)

	renderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "Time to render a template",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
		},
		[]string{"operation"},
	)
)

// recordRender records one rendered body.
func recordRender(status string) {
	rendersTotal.WithLabelValues(status).Inc()
}

// recordRenderDuration records how long a render operation took.
func recordRenderDuration(operation string, d time.Duration) {
	renderDuration.WithLabelValues(operation).Observe(d.Seconds())
}
