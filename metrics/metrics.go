package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once

	Observations    *prometheus.CounterVec
	Sessions        *prometheus.CounterVec
	SinkErrors      *prometheus.CounterVec
	SessionRuns     prometheus.Histogram
	SessionDuration prometheus.Histogram
)

// Init registers all collectors on a private registry. Safe to call repeatedly.
func Init(logger *logrus.Logger) {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		Observations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gesture_observations_total",
				Help: "Recognizer ticks fed into sessions",
			},
			[]string{"kind"}, // accepted | empty
		)
		Sessions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gesture_sessions_total",
				Help: "Completed sessions by outcome",
			},
			[]string{"outcome"},
		)
		SinkErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gesture_sink_errors_total",
				Help: "Failed summary deliveries per sink",
			},
			[]string{"sink"},
		)
		SessionRuns = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gesture_session_runs",
			Help:    "Collapsed runs per session",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		})
		SessionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gesture_session_duration_seconds",
			Help:    "Elapsed session time",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		})

		registry.MustRegister(Observations, Sessions, SinkErrors, SessionRuns, SessionDuration)
		if logger != nil {
			logger.Debug("metrics initialized")
		}
	})
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	Init(nil)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func ObserveTick(accepted bool) {
	if Observations == nil {
		return
	}
	kind := "empty"
	if accepted {
		kind = "accepted"
	}
	Observations.WithLabelValues(kind).Inc()
}

func SessionDone(outcome string, runs int, elapsed float64) {
	if Sessions == nil {
		return
	}
	Sessions.WithLabelValues(outcome).Inc()
	if outcome == "cancelled" {
		return
	}
	SessionRuns.Observe(float64(runs))
	SessionDuration.Observe(elapsed)
}

func SinkFailed(sink string) {
	if SinkErrors == nil {
		return
	}
	SinkErrors.WithLabelValues(sink).Inc()
}
