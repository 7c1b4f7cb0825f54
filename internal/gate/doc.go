// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

/*
Package gate is the single enforcement point every HTTP request passes
through before reaching a handler.

For each request the Gate runs, in order:

 1. Public path check: exact paths and prefixes from the configuration skip
    every other step.
 2. Credential extraction from the configured header (X-API-Key by default).
    Missing or blank yields 401 "credential required".
 3. Identity resolution against the client registry and the configured
    administrator credentials. No match yields 401 "invalid credential".
 4. Privilege check with a casbin deny-override policy: clients are denied
    the administrator namespace (403 "administrator access required").
 5. Admission: clients are counted against their per-minute limit. Rejections
    are 429 with Retry-After. Administrators are not counted.
 6. The resolved Principal is attached to the request context and the next
    handler runs.

Every rejection is logged at warn level with the credential redacted,
counted in tarsgate_gate_decisions_total and recorded in the audit trail.
The response body is always:

	{"status":401,"error":"Unauthorized","message":"credential required","path":"/whoami","timestamp":"2026-03-01T12:00:00Z"}

Gate implements Interceptor, so it composes with other interceptors in a
Chain or mounts on a chi router through Middleware.
*/
package gate
