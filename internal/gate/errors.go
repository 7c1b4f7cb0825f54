// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package gate

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tarsgate/internal/logging"
)

// Rejection messages.
const (
	MessageCredentialRequired = "credential required"
	MessageInvalidCredential  = "invalid credential"
	MessageAdminRequired      = "administrator access required"
	MessageRateLimited        = "rate limit exceeded"
	MessageInternal           = "An unexpected error occurred"
)

// ErrorBody is the JSON payload of every rejected request.
type ErrorBody struct {
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// NewErrorBody builds the payload for status at the given time.
func NewErrorBody(status int, message, path string, at time.Time) ErrorBody {
	return ErrorBody{
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      path,
		Timestamp: at.UTC().Format(time.RFC3339),
	}
}

// WriteError writes the structured error payload for r.
func WriteError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeErrorBody(w, r, NewErrorBody(status, message, r.URL.Path, time.Now()))
}

func writeErrorBody(w http.ResponseWriter, r *http.Request, body ErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.Status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.CtxErr(r.Context(), err).Msg("Failed to encode error response")
	}
}
