// Package observability holds the prometheus instrumentation for duplexd.
// Registration is idempotent so any entry point may call RegisterMetrics.
package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	sessionsOpened = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duplex",
			Subsystem: "session",
			Name:      "opened_total",
			Help:      "Sessions accepted since start.",
		},
		[]string{"server"},
	)
	sessionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "duplex",
			Subsystem: "session",
			Name:      "active",
			Help:      "Sessions currently bound.",
		},
		[]string{"server"},
	)
	requestsHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duplex",
			Subsystem: "protocol",
			Name:      "requests_total",
			Help:      "Inbound requests handled.",
		},
		[]string{"server", "command", "success"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "duplex",
			Subsystem: "protocol",
			Name:      "request_duration_seconds",
			Help:      "Inbound request handling duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"server", "command", "success"},
	)
	eventsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duplex",
			Subsystem: "protocol",
			Name:      "events_total",
			Help:      "Inbound events delivered to a handler.",
		},
		[]string{"server", "event"},
	)
	sessionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duplex",
			Subsystem: "session",
			Name:      "errors_total",
			Help:      "Errors surfaced by session error callbacks.",
		},
		[]string{"server"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			sessionsOpened, sessionsActive,
			requestsHandled, requestDuration,
			eventsReceived, sessionErrors,
		)
	})
}

func RecordSessionOpened(server string) {
	RegisterMetrics()
	sessionsOpened.WithLabelValues(server).Inc()
	sessionsActive.WithLabelValues(server).Inc()
}

func RecordSessionClosed(server string) {
	RegisterMetrics()
	sessionsActive.WithLabelValues(server).Dec()
}

func RecordRequest(server, command string, success bool, duration time.Duration) {
	RegisterMetrics()
	successLabel := strconv.FormatBool(success)
	requestsHandled.WithLabelValues(server, command, successLabel).Inc()
	requestDuration.WithLabelValues(server, command, successLabel).Observe(duration.Seconds())
}

func RecordEvent(server, event string) {
	RegisterMetrics()
	eventsReceived.WithLabelValues(server, event).Inc()
}

func RecordSessionError(server string) {
	RegisterMetrics()
	sessionErrors.WithLabelValues(server).Inc()
}
