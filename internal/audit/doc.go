// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

/*
Package audit records security-relevant events: requests rejected by the gate
and administrative changes to the client registry.

Events are queued on a buffered channel and written by a single goroutine,
so logging never blocks request handling. The MemoryStore keeps a bounded
window of recent events that administrators can query over the API.

	logger := audit.NewLogger(audit.NewMemoryStore(10000), audit.Config{Enabled: true})
	defer logger.Close()

	logger.LogGateDenial(ctx, audit.EventTypeAuthzDenied, actor, source, "administrator access required")
*/
package audit
