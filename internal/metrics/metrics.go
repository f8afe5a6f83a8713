package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BreakerState tracks the current state per service
	// (0=closed, 1=open, 2=half-open).
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"service"},
	)

	// StateChanges counts state transitions by service, from and to state.
	StateChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breaker_state_changes_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"service", "from", "to"},
	)

	// CallsTotal counts protected calls by service and outcome
	// (success, failure, rejected).
	CallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breaker_calls_total",
			Help: "Total calls seen by circuit breakers",
		},
		[]string{"service", "outcome"},
	)

	// CallDuration observes the latency of admitted calls in seconds.
	CallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "breaker_call_duration_seconds",
			Help:    "Latency of calls executed through circuit breakers",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)
)

// Init registers all collectors with the default Prometheus registry.
// Must be called once at startup.
func Init() {
	prometheus.MustRegister(
		BreakerState,
		StateChanges,
		CallsTotal,
		CallDuration,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
