// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes audit events.
type EventType string

const (
	// Gate rejections
	EventTypeAuthFailure  EventType = "auth.failure"
	EventTypeAuthzDenied  EventType = "authz.denied"
	EventTypeRateLimited  EventType = "rate_limit.exceeded"
	EventTypeGateDisabled EventType = "gate.disabled"

	// Registry mutations
	EventTypeClientCreated          EventType = "client.created"
	EventTypeClientUpdated          EventType = "client.updated"
	EventTypeClientDeleted          EventType = "client.deleted"
	EventTypeClientCredentialRotate EventType = "client.credential_rotated"
	EventTypeClientRateLimitChanged EventType = "client.rate_limit_changed"
)

// Severity indicates the importance of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Outcome indicates whether the audited action succeeded.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is a single security audit record.
type Event struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Type        EventType       `json:"type"`
	Severity    Severity        `json:"severity"`
	Outcome     Outcome         `json:"outcome"`
	Actor       Actor           `json:"actor"`
	Target      *Target         `json:"target,omitempty"`
	Source      Source          `json:"source"`
	Action      string          `json:"action"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	RequestID   string          `json:"request_id,omitempty"`
}

// Actor is who performed the action. Type is "client", "admin" or "anonymous".
type Actor struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Target is what the action was performed on.
type Target struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Source is where the request came from.
type Source struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent,omitempty"`
	Path      string `json:"path,omitempty"`
	Method    string `json:"method,omitempty"`
}

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event *Event) error
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
	Count(ctx context.Context, filter QueryFilter) (int64, error)
}

// QueryFilter selects events. Zero values match everything.
type QueryFilter struct {
	Types   []EventType `json:"types,omitempty"`
	ActorID string      `json:"actor_id,omitempty"`
	Since   *time.Time  `json:"since,omitempty"`
	Limit   int         `json:"limit,omitempty"`
}

// DefaultQueryFilter returns the 100 most recent events.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: 100}
}
