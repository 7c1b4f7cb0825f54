// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

// Package metrics holds the Prometheus collectors for Tarsgate.
//
// Collectors are registered with the default registry through promauto and
// exposed by the API router on /metrics.
package metrics
