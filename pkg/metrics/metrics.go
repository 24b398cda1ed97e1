// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-tcp-keystore.
//
// go-tcp-keystore is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for the keystore
// server: request counts and latencies per operation, connection gauges per
// transport, protocol failures and the number of key pairs held.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all keystore metrics
	Namespace = "keystore"

	LabelOperation  = "operation"
	LabelStatus     = "status"
	LabelTransport  = "transport"
	LabelReason     = "reason"
	LabelMethod     = "method"
	LabelStatusCode = "status_code"

	StatusSuccess = "success"
	StatusError   = "error"

	// Protocol failure reasons
	ReasonMalformed   = "malformed"
	ReasonUnknownOp   = "unknown_operation"
	ReasonFrameTooBig = "frame_too_large"
)

var (
	// RequestsTotal counts dispatched requests. A response carrying a domain
	// error is recorded with StatusError.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "requests_total",
			Help:      "Total number of keystore requests by operation and status",
		},
		[]string{LabelOperation, LabelStatus},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of keystore requests in seconds, excluding transport time",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{LabelOperation},
	)

	ActiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_connections",
			Help:      "Number of open client connections by transport",
		},
		[]string{LabelTransport},
	)

	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "connections_total",
			Help:      "Total number of accepted client connections by transport",
		},
		[]string{LabelTransport},
	)

	// ProtocolErrorsTotal counts frames that closed a connection because they
	// could not be decoded.
	ProtocolErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "protocol_errors_total",
			Help:      "Total number of undecodable frames by transport and reason",
		},
		[]string{LabelTransport, LabelReason},
	)

	KeysHeld = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "keys_held",
			Help:      "Number of key pairs held by the backend",
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP side-port requests by method and status code",
		},
		[]string{LabelMethod, LabelStatusCode},
	)

	GRPCStreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "grpc",
			Name:      "streams_total",
			Help:      "Total number of finished gRPC session streams by status code",
		},
		[]string{LabelStatusCode},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	MemoryAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_alloc_bytes",
			Help:      "Current bytes of allocated heap objects",
		},
	)

	ServerUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "server_uptime_seconds",
			Help:      "Server uptime in seconds since startup",
		},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

// RecordRequest records one dispatched request.
func RecordRequest(operation string, err error, seconds float64) {
	if !enabled.Load() {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	RequestsTotal.WithLabelValues(operation, status).Inc()
	RequestDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordProtocolError records a frame that could not be decoded.
func RecordProtocolError(transport, reason string) {
	if !enabled.Load() {
		return
	}
	ProtocolErrorsTotal.WithLabelValues(transport, reason).Inc()
}

// RecordHTTPRequest records an HTTP side-port request.
func RecordHTTPRequest(method, statusCode string) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
}

// SetKeysHeld sets the number of key pairs held.
func SetKeysHeld(n int) {
	if !enabled.Load() {
		return
	}
	KeysHeld.Set(float64(n))
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
