// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package gate

import (
	"context"
	"math"
	"strconv"

	"github.com/tomtom215/tarsgate/internal/admission"
	"github.com/tomtom215/tarsgate/internal/registry"
)

type contextKey string

const principalKey contextKey = "gate_principal"

// Roles evaluated by the privilege policy.
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// Principal is the caller a request was admitted for. Identity never
// carries the credential.
type Principal struct {
	Identity registry.Identity
	Admin    bool

	// Synthetic is set when no registry row backs the caller.
	Synthetic bool
}

// Role returns the policy role of the principal.
func (p Principal) Role() string {
	if p.Admin {
		return RoleAdmin
	}
	return RoleClient
}

// ActorID is the identifier used in audit records.
func (p Principal) ActorID() string {
	if p.Synthetic {
		return p.Identity.Name
	}
	return strconv.FormatInt(p.Identity.ID, 10)
}

// adminPrincipal is attached for administrator credentials that have no
// registry row.
func adminPrincipal() Principal {
	return Principal{
		Identity: registry.Identity{
			ID:                int64(admission.SyntheticKey),
			Name:              "admin",
			Contact:           "admin@tars.local",
			RequestsPerMinute: math.MaxInt32,
			MaxConcurrent:     math.MaxInt32,
		},
		Admin:     true,
		Synthetic: true,
	}
}

// anonymousPrincipal is attached to every request while the gate is disabled.
func anonymousPrincipal() Principal {
	return Principal{
		Identity: registry.Identity{
			ID:   int64(admission.SyntheticKey),
			Name: "anonymous",
		},
		Synthetic: true,
	}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	p.Identity.Credential = ""
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal attached by the gate.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
