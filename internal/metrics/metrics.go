// Package metrics exposes Prometheus instruments for invocations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

const namespace = "newsrelay"

// Recorder counts invocations by exit reason and source.
type Recorder struct {
	runs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	published prometheus.Counter
}

var _ ports.RunRecorder = (*Recorder)(nil)

// NewRecorder registers the instruments on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	r := &Recorder{
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Invocations by exit reason and source",
			},
			[]string{"exit_reason", "source"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of invocations in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
			},
			[]string{"exit_reason"},
		),
		published: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_published_total",
			Help:      "Articles persisted",
		}),
	}

	for _, reason := range domain.ExitReasons {
		r.duration.WithLabelValues(string(reason))
	}
	return r
}

// RecordRun records one invocation result.
func (r *Recorder) RecordRun(result domain.RunResult) {
	source := result.SourceUsed
	if source == "" {
		source = "none"
	}
	r.runs.WithLabelValues(string(result.ExitReason), source).Inc()
	r.duration.WithLabelValues(string(result.ExitReason)).Observe(float64(result.DurationMs) / 1000)
	if result.ExitReason == domain.ExitPublished {
		r.published.Inc()
	}
}
