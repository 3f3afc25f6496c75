// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "carmelita",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carmelita",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "carmelita",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	creditOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carmelita",
			Subsystem: "credits",
			Name:      "operations_total",
			Help:      "Credit ledger operations by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	creditsMoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carmelita",
			Subsystem: "credits",
			Name:      "moved_total",
			Help:      "Credits granted or redeemed.",
		},
		[]string{"kind"},
	)

	aiProbeUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "carmelita",
			Subsystem: "ai",
			Name:      "probe_up",
			Help:      "1 when the last AI health probe succeeded.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		creditOperations,
		creditsMoved,
		aiProbeUp,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordCreditOperation counts a ledger operation and, on success, the credits it moved.
func RecordCreditOperation(kind, outcome string, amount int64) {
	creditOperations.WithLabelValues(kind, outcome).Inc()
	if outcome == "success" && amount > 0 {
		creditsMoved.WithLabelValues(kind).Add(float64(amount))
	}
}

// SetAIProbe records the result of the latest AI health probe.
func SetAIProbe(ok bool) {
	if ok {
		aiProbeUp.Set(1)
		return
	}
	aiProbeUp.Set(0)
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if rec.status == http.StatusNotFound {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
