// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/tarsgate/internal/admission"
	"github.com/tomtom215/tarsgate/internal/audit"
	"github.com/tomtom215/tarsgate/internal/gate"
	"github.com/tomtom215/tarsgate/internal/registry"
)

// Version is reported by the public endpoints. Set at build time with
// -ldflags "-X github.com/tomtom215/tarsgate/internal/api.Version=...".
var Version = "dev"

// ClientStore is the registry surface the handlers use.
type ClientStore interface {
	Get(id int64) (registry.Identity, bool)
	List() []registry.Identity
	Len() int
	JournalEnabled() bool
	Create(name, contact string) (registry.Identity, error)
	Update(in registry.Identity) (registry.Identity, error)
	Remove(id int64) (bool, error)
	RotateCredential(id int64) (string, error)
	SetRateLimit(id int64, limit int) (registry.Identity, error)
}

// WindowForgetter discards admission state for deleted identities.
type WindowForgetter interface {
	Forget(key admission.Key)
	Len() int
}

// Handler serves the public, protected and administrative endpoints.
type Handler struct {
	store     ClientStore
	windows   WindowForgetter
	audit     *audit.Logger
	startTime time.Time
}

// NewHandler creates the handler set. auditLogger may be nil.
func NewHandler(store ClientStore, windows WindowForgetter, auditLogger *audit.Logger) *Handler {
	return &Handler{
		store:     store,
		windows:   windows,
		audit:     auditLogger,
		startTime: time.Now(),
	}
}

// clientView is an identity as returned to administrators after creation:
// the credential is only shown by create and rotateKey.
type clientView struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Contact           string `json:"contact"`
	RequestsPerMinute int    `json:"requestsPerMinute"`
	MaxConcurrent     int    `json:"maxConcurrent"`
}

func viewOf(ident *registry.Identity) clientView {
	return clientView{
		ID:                ident.ID,
		Name:              ident.Name,
		Contact:           ident.Contact,
		RequestsPerMinute: ident.RequestsPerMinute,
		MaxConcurrent:     ident.MaxConcurrent,
	}
}

// recordChange writes a registry mutation to the audit trail, attributed to
// the principal the gate attached.
func (h *Handler) recordChange(r *http.Request, eventType audit.EventType, ident *registry.Identity, description string, metadata map[string]any) {
	if !h.audit.Enabled() {
		return
	}

	actor := audit.Actor{ID: "anonymous", Type: "anonymous"}
	if p, ok := gate.PrincipalFromContext(r.Context()); ok {
		actor = audit.Actor{ID: p.ActorID(), Type: gate.RoleClient, Name: p.Identity.Name}
		if p.Admin {
			actor.Type = gate.RoleAdmin
		}
	}

	target := audit.Target{ID: strconv.FormatInt(ident.ID, 10), Type: "client", Name: ident.Name}
	source := audit.Source{
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Path:      r.URL.Path,
		Method:    r.Method,
	}
	h.audit.LogClientChange(r.Context(), eventType, actor, target, source, description, metadata)
}
