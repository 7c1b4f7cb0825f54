// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package admission

import (
	"sync"
	"time"

	"github.com/tomtom215/tarsgate/internal/metrics"
)

// Window is the fixed counting interval.
const Window = time.Minute

// Key identifies whose requests a window counts. Registered identities use
// their registry id.
type Key int64

// SyntheticKey is the key for callers without a registry row.
const SyntheticKey Key = -1

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long until the current window resets.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if wait := d.ResetAt.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

type window struct {
	mu       sync.Mutex
	start    time.Time
	count    int
	lastSeen time.Time
	evicted  bool
}

// Controller counts requests per key in fixed one-minute windows.
//
// Check-and-increment for a key runs under that key's own lock, so callers
// for different keys only share the brief map lookup.
type Controller struct {
	mu      sync.RWMutex
	windows map[Key]*window
	now     func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates a Controller.
func New(opts ...Option) *Controller {
	c := &Controller{
		windows: make(map[Key]*window),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Allow records one request for key against limitPerMinute and reports
// whether it is admitted. Limits below 1 are treated as 1.
func (c *Controller) Allow(key Key, limitPerMinute int) Decision {
	limit := max(1, limitPerMinute)

	for {
		w := c.window(key)

		w.mu.Lock()
		if w.evicted {
			// Lost a race with the sweeper; take the replacement window.
			w.mu.Unlock()
			continue
		}

		now := c.now()
		if w.start.IsZero() || now.Sub(w.start) >= Window {
			w.start = now
			w.count = 0
		}
		w.lastSeen = now

		d := Decision{Limit: limit, ResetAt: w.start.Add(Window)}
		if w.count < limit {
			w.count++
			d.Allowed = true
			d.Remaining = limit - w.count
		}
		w.mu.Unlock()

		metrics.RecordAdmission(d.Allowed)
		return d
	}
}

func (c *Controller) window(key Key) *window {
	c.mu.RLock()
	w, ok := c.windows[key]
	c.mu.RUnlock()
	if ok {
		return w
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok = c.windows[key]; ok {
		return w
	}
	w = &window{}
	c.windows[key] = w
	metrics.AdmissionWindows.Set(float64(len(c.windows)))
	return w
}

// Forget drops the window for key, e.g. after its identity is removed.
func (c *Controller) Forget(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if w, ok := c.windows[key]; ok {
		w.mu.Lock()
		w.evicted = true
		w.mu.Unlock()
		delete(c.windows, key)
		metrics.AdmissionWindows.Set(float64(len(c.windows)))
	}
}

// Sweep removes windows that have seen no request for idleTTL and whose
// current interval has ended, and returns how many were removed. A removed
// window would have been reset by its next request anyway, so sweeping never
// changes an admission outcome.
func (c *Controller) Sweep(idleTTL time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, w := range c.windows {
		w.mu.Lock()
		if now.Sub(w.lastSeen) >= idleTTL && now.Sub(w.start) >= Window {
			w.evicted = true
			delete(c.windows, key)
			removed++
		}
		w.mu.Unlock()
	}

	if removed > 0 {
		metrics.AdmissionWindowsEvicted.Add(float64(removed))
		metrics.AdmissionWindows.Set(float64(len(c.windows)))
	}
	return removed
}

// Len returns the number of tracked windows.
func (c *Controller) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.windows)
}
