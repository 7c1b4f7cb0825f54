// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package api

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/tarsgate/internal/gate"
	"github.com/tomtom215/tarsgate/internal/logging"
	"github.com/tomtom215/tarsgate/internal/metrics"
)

// ChiMiddlewareConfig holds configuration for the chi middleware factories.
type ChiMiddlewareConfig struct {
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	CORSExposedHeaders []string
	CORSMaxAge         int // seconds

	// Per-IP flood guard evaluated before any credential check.
	FloodLimit    int
	FloodWindow   time.Duration
	FloodDisabled bool
}

// DefaultChiMiddlewareConfig returns a configuration with no CORS origins.
func DefaultChiMiddlewareConfig() *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{},
		CORSAllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", gate.DefaultHeaderName, "X-Request-ID"},
		CORSExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After", "Warning"},
		CORSMaxAge:         86400,

		FloodLimit:  600,
		FloodWindow: time.Minute,
	}
}

// ChiMiddleware provides chi-compatible middleware built from configuration.
type ChiMiddleware struct {
	config *ChiMiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewChiMiddleware creates the middleware factory.
func NewChiMiddleware(config *ChiMiddlewareConfig) *ChiMiddleware {
	if config == nil {
		config = DefaultChiMiddlewareConfig()
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: config.CORSAllowedOrigins,
		AllowedMethods: config.CORSAllowedMethods,
		AllowedHeaders: config.CORSAllowedHeaders,
		ExposedHeaders: config.CORSExposedHeaders,
		MaxAge:         config.CORSMaxAge,
	})

	return &ChiMiddleware{config: config, cors: corsHandler}
}

// CORS returns the go-chi/cors handler. It must be global so OPTIONS
// preflights are answered before the gate asks for a credential.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// FloodGuard limits requests per remote IP with go-chi/httprate. It bounds
// credential guessing and protects the gate itself; per-identity limits are
// enforced later by the gate. Requests whose path satisfies exempt are never
// counted or limited, so public endpoints stay reachable.
func (m *ChiMiddleware) FloodGuard(exempt func(path string) bool) func(http.Handler) http.Handler {
	if m.config.FloodDisabled || m.config.FloodLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	limit := httprate.Limit(
		m.config.FloodLimit,
		m.config.FloodWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logging.CtxWarn(r.Context()).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("IP flood limit exceeded")
			gate.WriteError(w, r, http.StatusTooManyRequests, "too many requests from this address")
		}),
	)
	if exempt == nil {
		return limit
	}

	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

// Recoverer turns a handler panic into a logged 500 with the standard JSON
// error body. http.ErrAbortHandler is re-panicked so net/http can abort the
// response.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel is panicked by value
				panic(rec)
			}

			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			logging.CtxErr(r.Context(), err).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Bytes("stack", debug.Stack()).
				Msg("Panic while serving request")
			metrics.HandlerPanics.Inc()

			if r.Header.Get("Connection") != "Upgrade" {
				gate.WriteError(w, r, http.StatusInternalServerError, gate.MessageInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// APISecurityHeaders adds headers that keep API responses out of frames,
// sniffers and caches.
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Cache-Control", "no-store")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
