// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tarsgate/internal/admission"
	"github.com/tomtom215/tarsgate/internal/audit"
	"github.com/tomtom215/tarsgate/internal/logging"
	"github.com/tomtom215/tarsgate/internal/registry"
	"github.com/tomtom215/tarsgate/internal/validation"
)

type createClientRequest struct {
	Name    string `json:"name" validate:"notblank,max=200"`
	Contact string `json:"contact" validate:"notblank,email,max=320"`
}

type updateClientRequest struct {
	Name              string `json:"name" validate:"notblank,max=200"`
	Contact           string `json:"contact" validate:"omitempty,email,max=320"`
	Credential        string `json:"credential" validate:"omitempty,min=16,max=256"`
	RequestsPerMinute int    `json:"requestsPerMinute" validate:"omitempty,gt=0"`
	MaxConcurrent     int    `json:"maxConcurrent" validate:"omitempty,gt=0"`
}

type setRateLimitRequest struct {
	Limit int `json:"limit"`
}

type rotateKeyResponse struct {
	ID         int64  `json:"id"`
	Credential string `json:"credential"`
}

// clientID parses the {id} URL parameter. It writes a 400 and returns false
// when the parameter is not a positive integer.
func clientID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, http.StatusBadRequest, "client id must be a positive integer")
		return 0, false
	}
	return id, true
}

// CreateClient handles POST /clients and POST /client/create. The response
// is the only place besides rotateKey where the credential is returned.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "request body must be a JSON object with name and contact")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondError(w, r, http.StatusBadRequest, verr.Error())
		return
	}

	ident, err := h.store.Create(req.Name, req.Contact)
	if respondStoreError(w, r, "create", err) {
		return
	}

	logging.Ctx(r.Context()).Info().
		Int64("client_id", ident.ID).
		Str("name", ident.Name).
		Str("contact", logging.RedactContact(ident.Contact)).
		Msg("Client created")
	h.recordChange(r, audit.EventTypeClientCreated, &ident, "client created", map[string]any{
		"requestsPerMinute": ident.RequestsPerMinute,
		"maxConcurrent":     ident.MaxConcurrent,
	})

	w.Header().Set("Location", "/clients/"+strconv.FormatInt(ident.ID, 10))
	respondJSON(w, r, http.StatusCreated, ident)
}

// ListClients handles GET /clients.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	identities := h.store.List()
	views := make([]clientView, len(identities))
	for i := range identities {
		views[i] = viewOf(&identities[i])
	}
	respondJSON(w, r, http.StatusOK, views)
}

// GetClient handles GET /clients/{id}.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	ident, found := h.store.Get(id)
	if !found {
		respondError(w, r, http.StatusNotFound, "client "+strconv.FormatInt(id, 10)+" not found")
		return
	}
	respondJSON(w, r, http.StatusOK, viewOf(&ident))
}

// UpdateClient handles PUT /clients/{id}. Omitted contact, credential and
// limits keep their stored values.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	var req updateClientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "request body must be a JSON object")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondError(w, r, http.StatusBadRequest, verr.Error())
		return
	}

	updated, err := h.store.Update(registry.Identity{
		ID:                id,
		Name:              req.Name,
		Contact:           req.Contact,
		Credential:        req.Credential,
		RequestsPerMinute: req.RequestsPerMinute,
		MaxConcurrent:     req.MaxConcurrent,
	})
	if respondStoreError(w, r, "update", err) {
		return
	}

	h.recordChange(r, audit.EventTypeClientUpdated, &updated, "client updated", map[string]any{
		"credentialChanged": req.Credential != "",
	})
	respondJSON(w, r, http.StatusOK, viewOf(&updated))
}

// DeleteClient handles DELETE /clients/{id}. The identity's admission
// window is discarded with it.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	existing, found := h.store.Get(id)
	removed, err := h.store.Remove(id)
	if !removed && err == nil {
		respondError(w, r, http.StatusNotFound, "client "+strconv.FormatInt(id, 10)+" not found")
		return
	}
	if respondStoreError(w, r, "remove", err) {
		return
	}

	h.windows.Forget(admission.Key(id))
	if found {
		h.recordChange(r, audit.EventTypeClientDeleted, &existing, "client deleted", nil)
	}
	w.WriteHeader(http.StatusNoContent)
}

// RotateKey handles POST /clients/{id}/rotateKey.
func (h *Handler) RotateKey(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	credential, err := h.store.RotateCredential(id)
	if respondStoreError(w, r, "rotate_credential", err) {
		return
	}

	if ident, found := h.store.Get(id); found {
		h.recordChange(r, audit.EventTypeClientCredentialRotate, &ident, "client credential rotated", nil)
	}
	respondJSON(w, r, http.StatusOK, rotateKeyResponse{ID: id, Credential: credential})
}

// SetRateLimit handles POST /clients/{id}/setRateLimit with body {"limit": N}.
func (h *Handler) SetRateLimit(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	var req setRateLimitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	updated, err := h.store.SetRateLimit(id, req.Limit)
	if respondStoreError(w, r, "set_rate_limit", err) {
		return
	}

	h.recordChange(r, audit.EventTypeClientRateLimitChanged, &updated, "client rate limit changed", map[string]any{
		"requestsPerMinute": updated.RequestsPerMinute,
	})
	respondJSON(w, r, http.StatusOK, viewOf(&updated))
}
