// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

/*
Package middleware provides HTTP infrastructure middleware in the
func(http.Handler) http.Handler form chi expects.

  - RequestID: assigns or propagates X-Request-ID and seeds the logging
    context with request and correlation ids.
  - PrometheusMetrics: request count, latency and in-flight gauge labelled by
    chi route pattern.

The router mounts RequestID first so every later log line, including gate
rejections, carries the request id.
*/
package middleware
