// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-sessionsign.
//
// go-sessionsign is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for session token
// issuance, signing and verification, the active signing method, and the
// HTTP service.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all metrics
	Namespace = "sessionsign"

	// Label names
	LabelOperation  = "operation"
	LabelMethod     = "method"
	LabelStatus     = "status"
	LabelErrorType  = "error_type"
	LabelResult     = "result"
	LabelHTTPMethod = "http_method"
	LabelRoute      = "route"
	LabelStatusCode = "status_code"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Operation names
	OpGenerateToken = "generate_token"
	OpSign          = "sign"
	OpVerify        = "verify"
	OpSetMethod     = "set_method"
	OpPurge         = "purge"
)

var (
	// OperationsTotal counts signing operations by type, method, and status.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of signing operations by type, method, and status",
		},
		[]string{LabelOperation, LabelMethod, LabelStatus},
	)

	// OperationDuration tracks the duration of signing operations in seconds.
	// Token generation includes RSA key generation and dominates the upper buckets.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of signing operations in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{LabelOperation, LabelMethod},
	)

	// ErrorsTotal counts errors by operation, method, and error type.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation, method, and error type",
		},
		[]string{LabelOperation, LabelMethod, LabelErrorType},
	)

	// VerificationsTotal counts completed verifications by result.
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "verifications_total",
			Help:      "Total number of verifications by method and result",
		},
		[]string{LabelMethod, LabelResult},
	)

	// VerifyCandidates tracks how many stored keys a PKI verification tried.
	// Keys are never pruned implicitly, so this grows with token issuance.
	VerifyCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "verify_candidates",
			Help:      "Number of stored keys examined per verification",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// KeysPurgedTotal counts key pairs removed by explicit purges.
	KeysPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "keys_purged_total",
			Help:      "Total number of key pairs removed by purge",
		},
	)

	// ActiveMethod is 1 for the active signing method and 0 for the others.
	ActiveMethod = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_method",
			Help:      "Indicates the active signing method (1) and inactive methods (0)",
		},
		[]string{LabelMethod},
	)

	// HTTPRequestsTotal counts HTTP requests by method, route and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route and status code",
		},
		[]string{LabelHTTPMethod, LabelRoute, LabelStatusCode},
	)

	// HTTPRequestDuration tracks the duration of HTTP requests in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelHTTPMethod, LabelRoute},
	)

	// Goroutines tracks the current number of goroutines.
	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	// MemoryAllocBytes tracks the current bytes of allocated heap objects.
	MemoryAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_alloc_bytes",
			Help:      "Current bytes of allocated heap objects",
		},
	)

	// ServerUptime tracks the server uptime in seconds since startup.
	ServerUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "server_uptime_seconds",
			Help:      "Server uptime in seconds since startup",
		},
	)

	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

// RecordOperation records a signing operation with its duration and status.
//
// Example:
//
//	start := time.Now()
//	sig, err := backend.Sign(msg, user, token)
//	RecordOperation(OpSign, "pki", StatusFor(err), time.Since(start).Seconds())
func RecordOperation(operation, method, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, method, status).Inc()
	OperationDuration.WithLabelValues(operation, method).Observe(duration)
}

// RecordError records an error with the operation and method it occurred in.
// Error types should be short identifiers such as "invalid_token".
func RecordError(operation, method, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, method, errorType).Inc()
}

// RecordVerification records the outcome of a completed verification.
func RecordVerification(method string, valid bool) {
	if !enabled.Load() {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	VerificationsTotal.WithLabelValues(method, result).Inc()
}

// ObserveVerifyCandidates records the number of keys a verification examined.
func ObserveVerifyCandidates(n int) {
	if !enabled.Load() {
		return
	}
	VerifyCandidates.Observe(float64(n))
}

// AddKeysPurged adds n to the purged key counter.
func AddKeysPurged(n int) {
	if !enabled.Load() || n <= 0 {
		return
	}
	KeysPurgedTotal.Add(float64(n))
}

// SetActiveMethod marks active as the active method and every other known
// method as inactive.
func SetActiveMethod(active string, known []string) {
	if !enabled.Load() {
		return
	}
	for _, m := range known {
		ActiveMethod.WithLabelValues(m).Set(0)
	}
	if active != "" {
		ActiveMethod.WithLabelValues(active).Set(1)
	}
}

// RecordHTTPRequest records an HTTP request with its duration and status.
func RecordHTTPRequest(method, route, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration)
}

// StatusFor maps an error to StatusSuccess or StatusError.
func StatusFor(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
