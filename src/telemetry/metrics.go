// Package telemetry holds the Prometheus metrics of a Hastings node.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hastings"

var (
	// Registry holds every Hastings metric. It is served by MetricsHandler.
	Registry = prometheus.NewRegistry()

	// Ticks counts walk ticks by outcome: committed, rolled_back, error,
	// aborted.
	Ticks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "walk",
			Name:      "ticks_total",
			Help:      "Total number of discovery ticks, by outcome.",
		},
		[]string{"outcome"},
	)

	// TickDuration observes how long each walk tick took.
	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "walk",
			Name:      "tick_duration_seconds",
			Help:      "Time from proposal to evaluation of a candidate step.",
			// 10ms .. ~40s
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 13),
		},
	)

	// Probes counts probe resolutions: sent, responsive, unresponsive,
	// unmatched.
	Probes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "walk",
			Name:      "probes_total",
			Help:      "Probes sent and how they resolved.",
		},
		[]string{"result"},
	)

	// HistoryDepth is the number of mementos the walk can step back to.
	HistoryDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "walk",
			Name:      "history_depth",
			Help:      "Number of mementos held by the caretaker.",
		},
	)

	// PendingRequests is the number of probes awaiting a reply or expiry.
	PendingRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "correlation",
			Name:      "pending_requests",
			Help:      "Requests awaiting a reply or their deadline.",
		},
	)

	// RPCs counts inbound RPCs by command and status.
	RPCs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "rpcs_total",
			Help:      "Inbound RPCs served, by command and status.",
		},
		[]string{"command", "status"},
	)

	// RequestsTotal counts HTTP API requests by op and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"op", "status"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build info (constant 1, labeled by version).",
		},
		[]string{"version"},
	)

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

func init() {
	Registry.MustRegister(
		Ticks,
		TickDuration,
		Probes,
		HistoryDepth,
		PendingRequests,
		RPCs,
		RequestsTotal,
		buildInfo,
		uptime,
	)
}

// MetricsHandler exposes /metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SetBuildInfo should be called once at startup.
func SetBuildInfo(version string) {
	buildInfo.WithLabelValues(version).Set(1)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Instrument wraps an http.Handler to count requests under the provided "op"
// label.
func Instrument(op string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: 200}

		next.ServeHTTP(sw, r)

		class := strconv.Itoa(sw.status/100) + "xx"
		RequestsTotal.WithLabelValues(op, class).Inc()
	})
}
