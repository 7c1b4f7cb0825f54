// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/tarsgate/internal/audit"
	"github.com/tomtom215/tarsgate/internal/gate"
	"github.com/tomtom215/tarsgate/internal/logging"
)

// maxAuditLimit caps one page of audit events.
const maxAuditLimit = 1000

type auditEventsResponse struct {
	Events []audit.Event `json:"events"`
	Count  int           `json:"count"`
}

// AuditEvents handles GET /admin/audit. Query parameters:
//
//	limit    1..1000, default 100
//	type     event type, repeatable
//	actor_id only events by this actor
//	since    RFC3339 lower bound
func (h *Handler) AuditEvents(w http.ResponseWriter, r *http.Request) {
	if !h.audit.Enabled() {
		respondError(w, r, http.StatusNotFound, "audit trail is disabled")
		return
	}

	q := r.URL.Query()
	filter := audit.DefaultQueryFilter()

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 || limit > maxAuditLimit {
			respondError(w, r, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		filter.Limit = limit
	}
	for _, t := range q["type"] {
		filter.Types = append(filter.Types, audit.EventType(t))
	}
	filter.ActorID = q.Get("actor_id")
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "since must be an RFC3339 timestamp")
			return
		}
		filter.Since = &since
	}

	events, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("Failed to query audit events")
		respondError(w, r, http.StatusInternalServerError, gate.MessageInternal)
		return
	}
	respondJSON(w, r, http.StatusOK, auditEventsResponse{Events: events, Count: len(events)})
}
