package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics records latency and outcomes for payment gateway calls.
type GatewayMetrics struct {
	duration   *prometheus.HistogramVec
	success    *prometheus.CounterVec
	failure    *prometheus.CounterVec
	reconciled *prometheus.CounterVec
}

// NewGatewayMetrics registers the gateway metrics on the provided registerer.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mpesa_request_duration_seconds",
		Help:    "Duration of M-Pesa gateway calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mpesa_request_success",
		Help: "Successful M-Pesa gateway calls.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mpesa_request_failure",
		Help: "Failed M-Pesa gateway calls.",
	}, []string{"operation"})
	reconciled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_reconciled_total",
		Help: "Payments moved to a terminal status, by outcome.",
	}, []string{"status"})
	reg.MustRegister(duration, success, failure, reconciled)
	return &GatewayMetrics{
		duration:   duration,
		success:    success,
		failure:    failure,
		reconciled: reconciled,
	}
}

// ObserveDuration records the duration for the named gateway operation.
func (g *GatewayMetrics) ObserveDuration(operation string, duration time.Duration) {
	if g == nil || g.duration == nil {
		return
	}
	g.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (g *GatewayMetrics) IncSuccess(operation string) {
	if g == nil || g.success == nil {
		return
	}
	g.success.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (g *GatewayMetrics) IncFailure(operation string) {
	if g == nil || g.failure == nil {
		return
	}
	g.failure.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncReconciled counts a payment reaching the given terminal status.
func (g *GatewayMetrics) IncReconciled(status string) {
	if g == nil || g.reconciled == nil {
		return
	}
	g.reconciled.WithLabelValues(normalizeLabel(status)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
