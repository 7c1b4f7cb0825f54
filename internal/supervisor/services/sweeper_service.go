// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package services

import (
	"context"
	"time"

	"github.com/tomtom215/tarsgate/internal/logging"
)

// WindowSweeper discards admission windows idle for longer than idleTTL and
// reports how many were removed. *admission.Controller satisfies it.
type WindowSweeper interface {
	Sweep(idleTTL time.Duration) int
	Len() int
}

// SweeperService periodically evicts idle admission windows so the window
// table stays bounded by the set of active callers.
type SweeperService struct {
	windows  WindowSweeper
	idleTTL  time.Duration
	interval time.Duration
}

// NewSweeperService sweeps windows every interval. Non-positive values fall
// back to a one minute interval and a ten minute idle TTL.
func NewSweeperService(windows WindowSweeper, idleTTL, interval time.Duration) *SweeperService {
	if interval <= 0 {
		interval = time.Minute
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &SweeperService{windows: windows, idleTTL: idleTTL, interval: interval}
}

// Serve implements suture.Service.
func (s *SweeperService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *SweeperService) sweepOnce() {
	removed := s.windows.Sweep(s.idleTTL)
	if removed > 0 {
		logging.Debug().
			Int("removed", removed).
			Int("remaining", s.windows.Len()).
			Msg("Swept idle admission windows")
	}
}

func (s *SweeperService) String() string {
	return "admission-sweeper"
}
