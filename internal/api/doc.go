// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

/*
Package api exposes Tarsgate over HTTP with the chi router.

Middleware, outermost first: request id, real IP, panic recovery, CORS,
per-IP flood guard (go-chi/httprate), security headers, Prometheus request
metrics and finally the request gate. The gate decides which of the routes
below a caller may reach.

Public (no credential):

	GET  /, /index          welcome
	GET  /health            status, registry size, journal state
	GET  /health/live       liveness
	GET  /health/ready      readiness

Protected (any registered client, counted against its per-minute limit):

	GET  /whoami            the resolved identity
	GET  /metrics           Prometheus exposition

Administrator namespace:

	POST   /clients                      create, 201 with credential
	POST   /client/create                same as POST /clients
	GET    /clients                      list (no credentials)
	GET    /clients/{id}                 get
	PUT    /clients/{id}                 update
	DELETE /clients/{id}                 delete, 204
	POST   /clients/{id}/rotateKey       new credential
	POST   /clients/{id}/setRateLimit    body {"limit": N}
	GET    /admin/audit                  recent audit events

Errors use the gate's payload: {status, error, message, path, timestamp}.
A mutation that succeeded in memory but failed to persist still returns its
success status, with a Warning header.
*/
package api
