// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/tarsgate/internal/gate"
)

type welcomeResponse struct {
	Service string `json:"service"`
	Message string `json:"message"`
	Version string `json:"version"`
}

// HealthStatus is the body of GET /health and GET /health/ready.
type HealthStatus struct {
	Status         string  `json:"status"`
	Version        string  `json:"version"`
	Uptime         float64 `json:"uptime_seconds"`
	Clients        int     `json:"clients"`
	RateWindows    int     `json:"rate_windows"`
	JournalEnabled bool    `json:"journal_enabled"`
	Timestamp      string  `json:"timestamp"`
}

type whoAmIResponse struct {
	Client clientView `json:"client"`
	Admin  bool       `json:"admin"`
}

// Welcome handles GET / and GET /index.
func (h *Handler) Welcome(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, welcomeResponse{
		Service: "tarsgate",
		Message: "Welcome to the TARS request gate",
		Version: Version,
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, h.healthStatus("healthy"))
}

// HealthLive handles GET /health/live. It only proves the process serves HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady handles GET /health/ready: the registry has been loaded and
// the gate can resolve credentials.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	respondJSON(w, r, http.StatusOK, h.healthStatus("ready"))
}

func (h *Handler) healthStatus(status string) HealthStatus {
	return HealthStatus{
		Status:         status,
		Version:        Version,
		Uptime:         time.Since(h.startTime).Seconds(),
		Clients:        h.store.Len(),
		RateWindows:    h.windows.Len(),
		JournalEnabled: h.store.JournalEnabled(),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}
}

// WhoAmI handles GET /whoami, a protected endpoint that echoes the identity
// the gate resolved. The credential is never included.
func (h *Handler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	p, ok := gate.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, gate.MessageCredentialRequired)
		return
	}
	respondJSON(w, r, http.StatusOK, whoAmIResponse{
		Client: viewOf(&p.Identity),
		Admin:  p.Admin,
	})
}
