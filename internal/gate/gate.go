// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package gate

import (
	"crypto/subtle"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/tarsgate/internal/admission"
	"github.com/tomtom215/tarsgate/internal/audit"
	"github.com/tomtom215/tarsgate/internal/config"
	"github.com/tomtom215/tarsgate/internal/logging"
	"github.com/tomtom215/tarsgate/internal/metrics"
	"github.com/tomtom215/tarsgate/internal/registry"
)

// DefaultHeaderName carries the caller credential unless configured otherwise.
const DefaultHeaderName = "X-API-Key"

// IdentityLookup resolves a credential to a registered identity.
type IdentityLookup interface {
	FindByCredential(credential string) (registry.Identity, bool)
}

// Admitter decides whether one more request fits in a caller's window.
type Admitter interface {
	Allow(key admission.Key, limitPerMinute int) admission.Decision
}

// Gate is the Interceptor every request passes through. It resolves the
// caller from the credential header, checks the admin namespace and applies
// per-identity admission.
type Gate struct {
	enabled        bool
	header         string
	publicPaths    map[string]struct{}
	publicPrefixes []string
	adminCreds     [][]byte

	identities IdentityLookup
	admitter   Admitter
	privileges *Privileges
	audit      *audit.Logger
	now        func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithAuditLogger records denials to l.
func WithAuditLogger(l *audit.Logger) Option {
	return func(g *Gate) { g.audit = l }
}

// WithClock replaces time.Now for error timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// New builds a gate from its policy. The policy is copied; later changes to
// cfg have no effect.
//
//nolint:gocritic // hugeParam: config passed by value to keep the gate immutable
func New(cfg config.GateConfig, identities IdentityLookup, admitter Admitter, opts ...Option) (*Gate, error) {
	privileges, err := NewPrivileges(cfg.AdminPaths, cfg.AdminPrefixes)
	if err != nil {
		return nil, err
	}

	g := &Gate{
		enabled:        cfg.Enabled,
		header:         cfg.HeaderName,
		publicPaths:    make(map[string]struct{}, len(cfg.PublicPaths)),
		publicPrefixes: append([]string(nil), cfg.PublicPrefixes...),
		identities:     identities,
		admitter:       admitter,
		privileges:     privileges,
		now:            time.Now,
	}
	if g.header == "" {
		g.header = DefaultHeaderName
	}
	for _, p := range cfg.PublicPaths {
		g.publicPaths[p] = struct{}{}
	}
	for _, c := range cfg.AdminCredentials {
		if c = strings.TrimSpace(c); c != "" {
			g.adminCreds = append(g.adminCreds, []byte(c))
		}
	}
	for _, opt := range opts {
		opt(g)
	}

	if !g.enabled {
		logging.Warn().Msg("Request gate is DISABLED: all requests are forwarded without authentication")
	}
	return g, nil
}

// HeaderName returns the credential header the gate reads.
func (g *Gate) HeaderName() string {
	return g.header
}

// IsPublic reports whether path is exempt from authentication and admission.
func (g *Gate) IsPublic(path string) bool {
	if _, ok := g.publicPaths[path]; ok {
		return true
	}
	for _, prefix := range g.publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Handle implements Interceptor.
func (g *Gate) Handle(w http.ResponseWriter, r *http.Request, next http.Handler) {
	path := r.URL.Path

	if !g.enabled {
		metrics.RecordGateDecision(metrics.OutcomeBypassed)
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), anonymousPrincipal())))
		return
	}

	if g.IsPublic(path) {
		metrics.RecordGateDecision(metrics.OutcomePublic)
		next.ServeHTTP(w, r)
		return
	}

	credential := strings.TrimSpace(r.Header.Get(g.header))
	if credential == "" {
		g.reject(w, r, rejection{
			status:  http.StatusUnauthorized,
			message: MessageCredentialRequired,
			outcome: metrics.OutcomeUnauthorized,
			event:   audit.EventTypeAuthFailure,
			actor:   audit.Actor{ID: "anonymous", Type: "anonymous"},
		})
		return
	}

	principal, ok := g.resolve(credential)
	if !ok {
		g.reject(w, r, rejection{
			status:     http.StatusUnauthorized,
			message:    MessageInvalidCredential,
			outcome:    metrics.OutcomeUnauthorized,
			event:      audit.EventTypeAuthFailure,
			actor:      audit.Actor{ID: "anonymous", Type: "anonymous"},
			credential: credential,
		})
		return
	}

	allowed, err := g.privileges.Allowed(principal.Role(), path)
	if err != nil {
		logging.CtxErr(r.Context(), err).Str("path", path).Msg("Privilege check failed")
		WriteError(w, r, http.StatusInternalServerError, MessageInternal)
		return
	}
	if !allowed {
		g.reject(w, r, rejection{
			status:     http.StatusForbidden,
			message:    MessageAdminRequired,
			outcome:    metrics.OutcomeForbidden,
			event:      audit.EventTypeAuthzDenied,
			actor:      actorFor(principal),
			credential: credential,
		})
		return
	}

	if principal.Admin {
		metrics.RecordGateDecision(metrics.OutcomeAdmin)
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		return
	}

	decision := g.admitter.Allow(admission.Key(principal.Identity.ID), principal.Identity.RequestsPerMinute)
	g.setRateHeaders(w, decision)
	if !decision.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision.RetryAfter(g.now()))))
		g.reject(w, r, rejection{
			status:     http.StatusTooManyRequests,
			message:    MessageRateLimited,
			outcome:    metrics.OutcomeRateLimited,
			event:      audit.EventTypeRateLimited,
			actor:      actorFor(principal),
			credential: credential,
		})
		return
	}

	metrics.RecordGateDecision(metrics.OutcomeAllowed)
	next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
}

// resolve matches credential against the administrator set and the registry.
// An administrator credential with a registry row keeps that row's identity.
func (g *Gate) resolve(credential string) (Principal, bool) {
	admin := g.isAdminCredential(credential)
	ident, found := g.identities.FindByCredential(credential)

	switch {
	case found:
		return Principal{Identity: ident, Admin: admin}, true
	case admin:
		return adminPrincipal(), true
	default:
		return Principal{}, false
	}
}

func (g *Gate) isAdminCredential(credential string) bool {
	candidate := []byte(credential)
	match := 0
	for _, key := range g.adminCreds {
		match |= subtle.ConstantTimeCompare(candidate, key)
	}
	return match == 1
}

func (g *Gate) setRateHeaders(w http.ResponseWriter, d admission.Decision) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

func retryAfterSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

type rejection struct {
	status     int
	message    string
	outcome    string
	event      audit.EventType
	actor      audit.Actor
	credential string
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, rej rejection) {
	metrics.RecordGateDecision(rej.outcome)

	event := logging.CtxWarn(r.Context()).
		Str("decision", rej.outcome).
		Int("status", rej.status).
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Str("remote_addr", r.RemoteAddr)
	if rej.credential != "" {
		event = event.Str("credential", logging.RedactCredential(rej.credential))
	}
	if rej.actor.Type != "anonymous" {
		event = event.Str("actor", rej.actor.ID)
	}
	event.Msg(rej.message)

	g.audit.LogGateDenial(r.Context(), rej.event, rej.actor, sourceFor(r), rej.message)

	writeErrorBody(w, r, NewErrorBody(rej.status, rej.message, r.URL.Path, g.now()))
}

func actorFor(p Principal) audit.Actor {
	actorType := "client"
	if p.Admin {
		actorType = "admin"
	}
	return audit.Actor{ID: p.ActorID(), Type: actorType, Name: p.Identity.Name}
}

func sourceFor(r *http.Request) audit.Source {
	return audit.Source{
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Path:      r.URL.Path,
		Method:    r.Method,
	}
}

// String describes the gate policy for startup logs.
func (g *Gate) String() string {
	return fmt.Sprintf("gate(enabled=%t header=%s public_paths=%d public_prefixes=%d admin_credentials=%d)",
		g.enabled, g.header, len(g.publicPaths), len(g.publicPrefixes), len(g.adminCreds))
}
