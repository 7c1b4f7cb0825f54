// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gate decision outcomes.
const (
	OutcomePublic       = "public"
	OutcomeAllowed      = "allowed"
	OutcomeAdmin        = "admin"
	OutcomeUnauthorized = "unauthorized"
	OutcomeForbidden    = "forbidden"
	OutcomeRateLimited  = "rate_limited"
	OutcomeBypassed     = "bypassed"
)

var (
	// Gate Metrics
	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarsgate_gate_decisions_total",
			Help: "Request gate decisions by outcome",
		},
		[]string{"outcome"},
	)

	// Admission Metrics
	AdmissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarsgate_admission_checks_total",
			Help: "Fixed-window admission checks by result",
		},
		[]string{"result"}, // "admitted", "rejected"
	)

	AdmissionWindows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tarsgate_admission_windows",
			Help: "Number of rate windows currently tracked",
		},
	)

	AdmissionWindowsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tarsgate_admission_windows_evicted_total",
			Help: "Idle rate windows removed by the sweeper",
		},
	)

	// Registry Metrics
	RegistryIdentities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tarsgate_registry_identities",
			Help: "Number of client identities in the registry",
		},
	)

	RegistryMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarsgate_registry_mutations_total",
			Help: "Registry mutations by operation",
		},
		[]string{"operation"},
	)

	RegistryPersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarsgate_registry_persist_failures_total",
			Help: "Registry persistence failures by stage",
		},
		[]string{"stage"}, // "journal", "meta", "file"
	)

	RegistryPersistDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tarsgate_registry_persist_duration_seconds",
			Help:    "Time spent writing the registry file",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	RegistryRenameFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tarsgate_registry_rename_fallbacks_total",
			Help: "Registry writes that fell back to non-atomic copy",
		},
	)

	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarsgate_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tarsgate_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tarsgate_http_active_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	HandlerPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tarsgate_http_handler_panics_total",
			Help: "Total number of panics recovered while serving requests",
		},
	)
)

// RecordGateDecision counts one gate decision.
func RecordGateDecision(outcome string) {
	GateDecisions.WithLabelValues(outcome).Inc()
}

// RecordAdmission counts one admission check.
func RecordAdmission(admitted bool) {
	if admitted {
		AdmissionChecks.WithLabelValues("admitted").Inc()
		return
	}
	AdmissionChecks.WithLabelValues("rejected").Inc()
}

// RecordHTTPRequest records request count and latency.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(active bool) {
	if active {
		HTTPActiveRequests.Inc()
	} else {
		HTTPActiveRequests.Dec()
	}
}
