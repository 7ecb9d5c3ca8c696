package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests        *prometheus.CounterVec
	CounterPanics          prometheus.Counter
	CounterRecommendations *prometheus.CounterVec
	CounterSetsLogged      prometheus.Counter
	CounterImportedSession prometheus.Counter
	CounterRateLimited     prometheus.Counter

	// gauges
	GaugeRequestsInFlight prometheus.Gauge

	// histograms
	HistRequestDuration *prometheus.HistogramVec
}

// NewRegistry returns a registry with the Go runtime and process collectors
// plus any extra collectors (e.g. the pgxpool collector).
func NewRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}

func NewTestManager() *Manager {
	return NewManager("liftlog", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("liftlog", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "The total number of handled HTTP requests",
		}, []string{"method", "status"}),
		CounterPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "handler_panics_total",
			Help:      "The total number of recovered handler panics",
		}),
		CounterRecommendations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "recommendations_total",
			Help:      "Recommendations computed, by reason",
		}, []string{"reason"}),
		CounterSetsLogged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sets_logged_total",
			Help:      "The total number of logged sets",
		}),
		CounterImportedSession: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "imported_sessions_total",
			Help:      "Workout sessions created by imports",
		}),
		CounterRateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),
		GaugeRequestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_in_flight",
			Help:      "Requests currently being served",
		}),
		HistRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route"}),
	}
}
