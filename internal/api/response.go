// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tarsgate/internal/gate"
	"github.com/tomtom215/tarsgate/internal/logging"
	"github.com/tomtom215/tarsgate/internal/registry"
)

// persistWarning is sent in the Warning header when a mutation was applied
// in memory but could not be written to disk.
const persistWarning = `199 tarsgate "change applied but not persisted"`

// respondJSON writes data as JSON with the given status.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.CtxErr(r.Context(), err).Msg("Failed to encode JSON response")
	}
}

// respondError writes the structured error payload shared with the gate.
func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	gate.WriteError(w, r, status, message)
}

// respondStoreError maps a registry error to a response and reports whether
// the request is finished. Persistence failures are not finished: the
// mutation took effect, so the caller goes on to write its success response
// with a Warning header attached here.
func respondStoreError(w http.ResponseWriter, r *http.Request, op string, err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, registry.ErrPersistence) {
		logging.CtxErr(r.Context(), err).Str("operation", op).Msg("Registry change applied but not persisted")
		w.Header().Set("Warning", persistWarning)
		return false
	}

	var regErr *registry.Error
	if errors.As(err, &regErr) {
		switch {
		case errors.Is(err, registry.ErrInvalidArgument):
			respondError(w, r, http.StatusBadRequest, regErr.Message)
			return true
		case errors.Is(err, registry.ErrConflict):
			respondError(w, r, http.StatusConflict, regErr.Message)
			return true
		case errors.Is(err, registry.ErrNotFound):
			respondError(w, r, http.StatusNotFound, regErr.Message)
			return true
		}
	}

	logging.CtxErr(r.Context(), err).Str("operation", op).Msg("Registry operation failed")
	respondError(w, r, http.StatusInternalServerError, gate.MessageInternal)
	return true
}

// decodeJSON decodes a single JSON value from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// maxBodyBytes bounds administrative request bodies.
const maxBodyBytes = 64 << 10
