package lint

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bissquit/incident-comms/internal/domain"
	"github.com/bissquit/incident-comms/internal/pkg/metrics"
)

var (
	lintRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "lint",
			Name:      "runs_total",
			Help:      "Total lint passes",
		},
	)

	lintFindings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "lint",
			Name:      "findings_total",
			Help:      "Lint findings by rule and tier",
		},
		[]string{"rule", "tier"},
	)

	lintScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "lint",
			Name:      "score",
			Help:      "Distribution of template quality scores",
			Buckets:   []float64{50, 60, 70, 80, 90, 100},
		},
	)
)

func recordLintRun() {
	lintRuns.Inc()
}

func recordFindings(rule string, tier domain.Tier, count int) {
	lintFindings.WithLabelValues(rule, string(tier)).Add(float64(count))
}

func recordScore(score domain.Score) {
	lintScore.Observe(float64(score.Score))
}
