// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package gate

import "net/http"

// Interceptor sees a request before the downstream handler. It either
// writes a response itself or calls next, possibly with a derived request.
type Interceptor interface {
	Handle(w http.ResponseWriter, r *http.Request, next http.Handler)
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(w http.ResponseWriter, r *http.Request, next http.Handler)

// Handle calls f(w, r, next).
func (f InterceptorFunc) Handle(w http.ResponseWriter, r *http.Request, next http.Handler) {
	f(w, r, next)
}

// Chain is an ordered list of interceptors. The first element runs first.
type Chain []Interceptor

// Then returns h wrapped by every interceptor in the chain.
func (c Chain) Then(h http.Handler) http.Handler {
	for i := len(c) - 1; i >= 0; i-- {
		h = bind(c[i], h)
	}
	return h
}

// Middleware adapts an Interceptor to the func(http.Handler) http.Handler
// form used by chi.
func Middleware(i Interceptor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return bind(i, next)
	}
}

func bind(i Interceptor, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i.Handle(w, r, next)
	})
}
