// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

// Package services adapts tarsgate components to suture.Service.
//
// HTTPServerService turns the blocking ListenAndServe into a context-aware
// Serve with bounded graceful shutdown. SweeperService evicts idle admission
// windows on a ticker.
package services
