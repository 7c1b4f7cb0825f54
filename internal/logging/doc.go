// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

// Package logging provides centralized zerolog-based structured logging for Tarsgate.
//
// A single global logger is configured once at startup with Init and used
// everywhere through the level helpers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("addr", addr).Msg("Server starting")
//
// Request-scoped logging picks up the request and correlation ids placed on the
// context by the HTTP middleware:
//
//	logging.Ctx(r.Context()).Warn().Int("status", 403).Msg("administrator access required")
//
// Caller credentials must never be logged verbatim; use RedactCredential.
//
// The SlogHandler adapter lets slog-only libraries (the suture supervisor via
// sutureslog) write through the same zerolog sink.
package logging
