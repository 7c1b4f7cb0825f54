// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/tarsgate/internal/gate"
	"github.com/tomtom215/tarsgate/internal/middleware"
)

// Router wires handlers, infrastructure middleware and the request gate.
type Router struct {
	handler       *Handler
	interceptor   gate.Interceptor
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. interceptor is normally a *gate.Gate.
func NewRouter(handler *Handler, interceptor gate.Interceptor, chiMW *ChiMiddleware) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		interceptor:   interceptor,
		chiMiddleware: chiMW,
	}
}

// SetupChi builds the HTTP handler. Every route, public ones included, sits
// behind the gate; public paths are recognised by the gate itself.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Applied to all routes, in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(router.chiMiddleware.FloodGuard(router.publicPath))
	r.Use(APISecurityHeaders())
	r.Use(middleware.PrometheusMetrics)
	r.Use(gate.Middleware(router.interceptor))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "method "+r.Method+" not allowed")
	})

	h := router.handler

	// Public
	r.Get("/", h.Welcome)
	r.Get("/index", h.Welcome)
	r.Get("/health", h.Health)
	r.Get("/health/live", h.HealthLive)
	r.Get("/health/ready", h.HealthReady)

	// Protected
	r.Get("/whoami", h.WhoAmI)
	r.Handle("/metrics", promhttp.Handler())

	// Administrator namespace
	r.Route("/clients", func(r chi.Router) {
		r.Get("/", h.ListClients)
		r.Post("/", h.CreateClient)
		r.Get("/{id}", h.GetClient)
		r.Put("/{id}", h.UpdateClient)
		r.Delete("/{id}", h.DeleteClient)
		r.Post("/{id}/rotateKey", h.RotateKey)
		r.Post("/{id}/setRateLimit", h.SetRateLimit)
	})
	r.Post("/client/create", h.CreateClient)
	r.Get("/admin/audit", h.AuditEvents)

	return r
}

// publicPath reports whether the interceptor lets path through without a
// credential. Interceptors that do not expose their public paths exempt
// nothing from the flood guard.
func (router *Router) publicPath(path string) bool {
	p, ok := router.interceptor.(interface{ IsPublic(path string) bool })
	return ok && p.IsPublic(path)
}
