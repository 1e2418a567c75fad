package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	hostMetricsOnce sync.Once
	hostRegistry    *HostMetrics
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record RPC module activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "donex",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by module, method and outcome.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "donex",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by module, method, and error code.",
			}, []string{"module", "method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "donex",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "donex",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a JSON-RPC call. A zero code means success;
// any other value is the JSON-RPC error code returned to the client.
func (m *moduleMetrics) Observe(module, method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if code != 0 {
		outcome = "error"
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", code)).Inc()
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit" so dashboards
// and alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// HostMetrics captures contract call execution on the node.
type HostMetrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
	height  prometheus.Gauge
}

// Host returns the singleton metrics registry for the contract host.
func Host() *HostMetrics {
	hostMetricsOnce.Do(func() {
		hostRegistry = &HostMetrics{
			calls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "donex",
				Subsystem: "host",
				Name:      "calls_total",
				Help:      "Contract calls segmented by entry point and outcome.",
			}, []string{"entry", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "donex",
				Subsystem: "host",
				Name:      "call_duration_seconds",
				Help:      "Latency distribution for contract calls including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"entry"}),
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "donex",
				Subsystem: "host",
				Name:      "height",
				Help:      "Height of the last committed call.",
			}),
		}
		prometheus.MustRegister(hostRegistry.calls, hostRegistry.latency, hostRegistry.height)
	})
	return hostRegistry
}

// ObserveCall records a finished call. outcome should be a stable label such
// as "ok" or an error kind.
func (m *HostMetrics) ObserveCall(entry, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "ok"
	}
	m.calls.WithLabelValues(entry, outcome).Inc()
	m.latency.WithLabelValues(entry).Observe(duration.Seconds())
}

// SetHeight publishes the committed height.
func (m *HostMetrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
}
