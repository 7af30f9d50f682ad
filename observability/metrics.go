// Package observability provides Prometheus metrics and OpenTelemetry
// tracing instrumentation (SPEC_FULL.md §4.J): every dispatcher
// operation and poll cycle emits a span and increments counters.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatcherRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frappy_dispatcher_requests_total",
			Help: "Total SECoP requests handled by the dispatcher",
		},
		[]string{"action", "status"}, // status: ok, error
	)

	dispatcherRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "frappy_dispatcher_request_duration_seconds",
			Help:    "SECoP request handling duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"action"},
	)

	pollCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frappy_poll_cycles_total",
			Help: "Total poller cycles executed per module",
		},
		[]string{"module", "status"}, // status: ok, error
	)

	pollCycleDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "frappy_poll_cycle_duration_seconds",
			Help:    "Poller cycle duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5},
		},
		[]string{"module"},
	)

	connectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "frappy_connections_active",
			Help: "Currently connected SECoP clients",
		},
	)

	subscriptionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "frappy_subscriptions_active",
			Help: "Currently active parameter subscriptions per module",
		},
		[]string{"module"},
	)
)

// RecordDispatcherRequest records one handled SECoP request.
func RecordDispatcherRequest(action, status string, durationSeconds float64) {
	dispatcherRequestsTotal.WithLabelValues(action, status).Inc()
	dispatcherRequestDurationSeconds.WithLabelValues(action).Observe(durationSeconds)
}

// RecordPollCycle records one poller tick for a module.
func RecordPollCycle(module, status string, durationSeconds float64) {
	pollCyclesTotal.WithLabelValues(module, status).Inc()
	pollCycleDurationSeconds.WithLabelValues(module).Observe(durationSeconds)
}

// ConnectionOpened/ConnectionClosed track the active connection gauge.
func ConnectionOpened() { connectionsActive.Inc() }
func ConnectionClosed() { connectionsActive.Dec() }

// SetSubscriptionCount reports the current subscriber count for module.
func SetSubscriptionCount(module string, n int) {
	subscriptionsActive.WithLabelValues(module).Set(float64(n))
}
