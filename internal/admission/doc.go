// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

// Package admission bounds per-identity request rates with fixed one-minute
// windows.
//
// A window starts at the first request for a key and is reset by the first
// request at least one minute later; it is not a sliding average, so a burst
// straddling a reset can see up to twice the limit. State is process-local
// and is lost on restart.
package admission
