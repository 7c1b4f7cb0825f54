// Tarsgate - Client Registry and Request Gate
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarsgate

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tarsgate/internal/admission"
	"github.com/tomtom215/tarsgate/internal/audit"
	"github.com/tomtom215/tarsgate/internal/config"
	"github.com/tomtom215/tarsgate/internal/gate"
	"github.com/tomtom215/tarsgate/internal/registry"
)

const adminKey = "admin-key-0123456789abcdef"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type testServer struct {
	handler http.Handler
	store   *registry.Store
	windows *admission.Controller
	clock   *fakeClock
	auditor *audit.Logger
}

func gateConfig() config.GateConfig {
	return config.GateConfig{
		Enabled:          true,
		HeaderName:       "X-API-Key",
		PublicPaths:      []string{"/", "/index", "/health", "/health/live", "/health/ready"},
		PublicPrefixes:   []string{"/static/"},
		AdminCredentials: []string{adminKey},
		AdminPaths:       []string{"/clients"},
		AdminPrefixes:    []string{"/clients/", "/client/", "/admin/"},
	}
}

// newTestServer builds the full stack. wrap may replace the store seen by
// the handlers.
func newTestServer(t *testing.T, wrap func(*registry.Store) ClientStore) *testServer {
	t.Helper()
	mwCfg := DefaultChiMiddlewareConfig()
	mwCfg.FloodDisabled = true
	return newTestServerWithMiddleware(t, wrap, mwCfg)
}

func newTestServerWithMiddleware(t *testing.T, wrap func(*registry.Store) ClientStore, mwCfg *ChiMiddlewareConfig) *testServer {
	t.Helper()

	store, err := registry.Open(registry.Options{Path: filepath.Join(t.TempDir(), "clients.json")})
	if err != nil {
		t.Fatalf("registry.Open() error = %v", err)
	}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	windows := admission.New(admission.WithClock(clock.Now))
	auditor := audit.NewLogger(audit.NewMemoryStore(100), audit.Config{Enabled: true})
	t.Cleanup(func() { _ = auditor.Close() })

	g, err := gate.New(gateConfig(), store, windows, gate.WithAuditLogger(auditor), gate.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("gate.New() error = %v", err)
	}

	var clients ClientStore = store
	if wrap != nil {
		clients = wrap(store)
	}

	router := NewRouter(NewHandler(clients, windows, auditor), g, NewChiMiddleware(mwCfg))

	return &testServer{
		handler: router.SetupChi(),
		store:   store,
		windows: windows,
		clock:   clock,
		auditor: auditor,
	}
}

func (s *testServer) do(t *testing.T, method, path, credential, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("X-API-Key", credential)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func (s *testServer) createClient(t *testing.T, name, contact string) registry.Identity {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/clients", adminKey, `{"name":"`+name+`","contact":"`+contact+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create %s = %d: %s", name, rec.Code, rec.Body.String())
	}
	return decode[registry.Identity](t, rec)
}

func TestPublicEndpoints(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	for _, path := range []string{"/", "/index", "/health", "/health/live", "/health/ready"} {
		rec := s.do(t, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("GET %s: missing X-Request-ID", path)
		}
		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("GET %s: missing security headers", path)
		}
	}

	s.createClient(t, "Acme", "a@acme.com")
	health := decode[HealthStatus](t, s.do(t, http.MethodGet, "/health/ready", "", ""))
	if health.Status != "ready" || health.Clients != 1 || health.JournalEnabled {
		t.Errorf("ready = %+v", health)
	}
}

func TestProtectedEndpointsRequireCredential(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	for _, path := range []string{"/whoami", "/metrics", "/no-such-route"} {
		rec := s.do(t, http.MethodGet, path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without credential = %d, want 401", path, rec.Code)
		}
	}

	rec := s.do(t, http.MethodGet, "/whoami", "ffffffffffffffffffffffffffffffff", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown credential = %d, want 401", rec.Code)
	}
	body := decode[gate.ErrorBody](t, rec)
	if body.Message != gate.MessageInvalidCredential || body.Path != "/whoami" {
		t.Errorf("body = %+v", body)
	}
}

func TestCreateClient(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/clients", adminKey, `{"name":"Acme","contact":"a@acme.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[registry.Identity](t, rec)
	if created.ID != 1 || created.Name != "Acme" || len(created.Credential) != 32 ||
		created.RequestsPerMinute != registry.DefaultRequestsPerMinute || created.MaxConcurrent != registry.DefaultMaxConcurrent {
		t.Errorf("created = %+v", created)
	}
	if loc := rec.Header().Get("Location"); loc != "/clients/1" {
		t.Errorf("Location = %q", loc)
	}

	// The legacy path creates too.
	rec = s.do(t, http.MethodPost, "/client/create", adminKey, `{"name":"Globex","contact":"g@globex.com"}`)
	if rec.Code != http.StatusCreated || decode[registry.Identity](t, rec).ID != 2 {
		t.Errorf("POST /client/create = %d: %s", rec.Code, rec.Body.String())
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"duplicate name different case", `{"name":"ACME","contact":"other@acme.com"}`, http.StatusConflict},
		{"duplicate contact different case", `{"name":"Other","contact":"A@ACME.COM"}`, http.StatusConflict},
		{"blank name", `{"name":"  ","contact":"x@acme.com"}`, http.StatusBadRequest},
		{"blank contact", `{"name":"X","contact":""}`, http.StatusBadRequest},
		{"invalid email", `{"name":"X","contact":"not-an-email"}`, http.StatusBadRequest},
		{"malformed json", `{"name":`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/clients", adminKey, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			body := decode[gate.ErrorBody](t, rec)
			if body.Status != tt.want || body.Path != "/clients" || body.Message == "" {
				t.Errorf("error body = %+v", body)
			}
		})
	}

	if n := s.store.Len(); n != 2 {
		t.Errorf("store has %d clients, want 2", n)
	}
}

func TestClientCannotUseAdminNamespace(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)
	c := s.createClient(t, "Acme", "a@acme.com")

	requests := []struct{ method, path, body string }{
		{http.MethodGet, "/clients", ""},
		{http.MethodPost, "/clients", `{"name":"X","contact":"x@x.com"}`},
		{http.MethodPost, "/clients/1/setRateLimit", `{"limit":10}`},
		{http.MethodPost, "/clients/1/rotateKey", ""},
		{http.MethodGet, "/admin/audit", ""},
	}
	for _, req := range requests {
		rec := s.do(t, req.method, req.path, c.Credential, req.body)
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s %s as client = %d, want 403", req.method, req.path, rec.Code)
		}
	}
}

func TestGetAndListClients(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)
	s.createClient(t, "Acme", "a@acme.com")
	s.createClient(t, "Globex", "g@globex.com")

	rec := s.do(t, http.MethodGet, "/clients", adminKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "credential") {
		t.Errorf("list leaks credentials: %s", rec.Body.String())
	}
	list := decode[[]clientView](t, rec)
	if len(list) != 2 || list[0].Name != "Acme" || list[1].Name != "Globex" {
		t.Errorf("list = %+v", list)
	}

	tests := []struct {
		path string
		want int
	}{
		{"/clients/2", http.StatusOK},
		{"/clients/99", http.StatusNotFound},
		{"/clients/abc", http.StatusBadRequest},
		{"/clients/0", http.StatusBadRequest},
		{"/clients/-3", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := s.do(t, http.MethodGet, tt.path, adminKey, ""); rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
		}
	}
}

func TestSetRateLimitScenario(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)
	c := s.createClient(t, "Acme", "a@acme.com")

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"zero", "/clients/1/setRateLimit", `{"limit":0}`, http.StatusBadRequest},
		{"negative", "/clients/1/setRateLimit", `{"limit":-5}`, http.StatusBadRequest},
		{"non-numeric", "/clients/1/setRateLimit", `{"limit":"abc"}`, http.StatusBadRequest},
		{"missing", "/clients/1/setRateLimit", `{}`, http.StatusBadRequest},
		{"unknown id", "/clients/42/setRateLimit", `{"limit":25}`, http.StatusNotFound},
		{"valid", "/clients/1/setRateLimit", `{"limit":25}`, http.StatusOK},
	}
	for _, tt := range tests {
		if rec := s.do(t, http.MethodPost, tt.path, adminKey, tt.body); rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d: %s", tt.name, rec.Code, tt.want, rec.Body.String())
		}
	}

	got := decode[clientView](t, s.do(t, http.MethodGet, "/clients/1", adminKey, ""))
	if got.RequestsPerMinute != 25 {
		t.Errorf("requestsPerMinute = %d, want 25", got.RequestsPerMinute)
	}
	if ident, _ := s.store.Get(c.ID); ident.RequestsPerMinute != 25 {
		t.Errorf("store requestsPerMinute = %d", ident.RequestsPerMinute)
	}
}

func TestRateLimitScenario(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)
	c := s.createClient(t, "Acme", "a@acme.com")
	if rec := s.do(t, http.MethodPost, "/clients/1/setRateLimit", adminKey, `{"limit":1}`); rec.Code != http.StatusOK {
		t.Fatalf("setRateLimit = %d", rec.Code)
	}

	if rec := s.do(t, http.MethodGet, "/whoami", c.Credential, ""); rec.Code != http.StatusOK {
		t.Fatalf("first request = %d, want 200", rec.Code)
	}
	rec := s.do(t, http.MethodGet, "/whoami", c.Credential, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 without Retry-After")
	}

	s.clock.Advance(admission.Window)
	if rec := s.do(t, http.MethodGet, "/whoami", c.Credential, ""); rec.Code != http.StatusOK {
		t.Errorf("after window reset = %d, want 200", rec.Code)
	}
}

func TestWhoAmI(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)
	c := s.createClient(t, "Acme", "a@acme.com")

	rec := s.do(t, http.MethodGet, "/whoami", c.Credential, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), c.Credential) {
		t.Error("whoami leaks the credential")
	}
	got := decode[whoAmIResponse](t, rec)
	if got.Admin || got.Client.ID != c.ID || got.Client.Name != "Acme" {
		t.Errorf("whoami = %+v", got)
	}

	admin := decode[whoAmIResponse](t, s.do(t, http.MethodGet, "/whoami", adminKey, ""))
	if !admin.Admin || admin.Client.Name != "admin" {
		t.Errorf("admin whoami = %+v", admin)
	}
}

func TestRotateKey(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)
	c := s.createClient(t, "Acme", "a@acme.com")

	rec := s.do(t, http.MethodPost, "/clients/1/rotateKey", adminKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("rotate = %d", rec.Code)
	}
	rotated := decode[rotateKeyResponse](t, rec)
	if rotated.ID != c.ID || rotated.Credential == "" || rotated.Credential == c.Credential {
		t.Errorf("rotate = %+v", rotated)
	}

	if rec := s.do(t, http.MethodGet, "/whoami", c.Credential, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("old credential = %d, want 401", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/whoami", rotated.Credential, ""); rec.Code != http.StatusOK {
		t.Errorf("new credential = %d, want 200", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/clients/9/rotateKey", adminKey, ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown id = %d, want 404", rec.Code)
	}
}

func TestUpdateClient(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)
	s.createClient(t, "Acme", "a@acme.com")
	s.createClient(t, "Globex", "g@globex.com")

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"rename", "/clients/1", `{"name":"Acme Corp"}`, http.StatusOK},
		{"same name other case", "/clients/1", `{"name":"ACME CORP"}`, http.StatusOK},
		{"name taken", "/clients/1", `{"name":"globex"}`, http.StatusConflict},
		{"contact taken", "/clients/1", `{"name":"Acme","contact":"G@globex.com"}`, http.StatusConflict},
		{"blank name", "/clients/1", `{"name":""}`, http.StatusBadRequest},
		{"bad email", "/clients/1", `{"name":"Acme","contact":"nope"}`, http.StatusBadRequest},
		{"negative limit", "/clients/1", `{"name":"Acme","requestsPerMinute":-1}`, http.StatusBadRequest},
		{"unknown id", "/clients/77", `{"name":"Nobody"}`, http.StatusNotFound},
		{"limits", "/clients/2", `{"name":"Globex","requestsPerMinute":5,"maxConcurrent":2}`, http.StatusOK},
	}
	for _, tt := range tests {
		if rec := s.do(t, http.MethodPut, tt.path, adminKey, tt.body); rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d: %s", tt.name, rec.Code, tt.want, rec.Body.String())
		}
	}

	acme, _ := s.store.Get(1)
	if acme.Name != "ACME CORP" || acme.Contact != "a@acme.com" {
		t.Errorf("client 1 = %+v", acme)
	}
	globex, _ := s.store.Get(2)
	if globex.RequestsPerMinute != 5 || globex.MaxConcurrent != 2 {
		t.Errorf("client 2 = %+v", globex)
	}
}

func TestDeleteClient(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)
	c := s.createClient(t, "Acme", "a@acme.com")
	s.createClient(t, "Globex", "g@globex.com")

	s.do(t, http.MethodGet, "/whoami", c.Credential, "")
	if s.windows.Len() != 1 {
		t.Fatalf("windows = %d, want 1", s.windows.Len())
	}

	if rec := s.do(t, http.MethodDelete, "/clients/1", adminKey, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d, want 204", rec.Code)
	}
	if s.windows.Len() != 0 {
		t.Errorf("window not discarded after delete")
	}
	if rec := s.do(t, http.MethodDelete, "/clients/1", adminKey, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/whoami", c.Credential, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("deleted client credential = %d, want 401", rec.Code)
	}

	// Identifiers are never reissued.
	if next := s.createClient(t, "Initech", "i@initech.com"); next.ID != 3 {
		t.Errorf("new id = %d, want 3", next.ID)
	}
}

func TestRouteErrors(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/no-such-route", adminKey, "")
	if rec.Code != http.StatusNotFound || decode[gate.ErrorBody](t, rec).Status != http.StatusNotFound {
		t.Errorf("unknown route = %d: %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPatch, "/clients/1", adminKey, "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PATCH = %d, want 405", rec.Code)
	}
}

func TestAuditEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)
	c := s.createClient(t, "Acme", "a@acme.com")
	s.do(t, http.MethodGet, "/clients", c.Credential, "")
	s.do(t, http.MethodPost, "/clients/1/setRateLimit", adminKey, `{"limit":3}`)

	// Flush the async writer before querying.
	waitForEvents(t, s.auditor, 3)

	rec := s.do(t, http.MethodGet, "/admin/audit?type=client.created&type=authz.denied", adminKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("audit = %d", rec.Code)
	}
	resp := decode[auditEventsResponse](t, rec)
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2: %+v", resp.Count, resp.Events)
	}
	if resp.Events[0].Type != audit.EventTypeAuthzDenied || resp.Events[1].Type != audit.EventTypeClientCreated {
		t.Errorf("events = %+v", resp.Events)
	}
	if resp.Events[1].Actor.Type != gate.RoleAdmin || resp.Events[1].Target == nil || resp.Events[1].Target.Name != "Acme" {
		t.Errorf("created event = %+v", resp.Events[1])
	}

	for _, q := range []string{"limit=0", "limit=abc", "limit=5000", "since=yesterday"} {
		if rec := s.do(t, http.MethodGet, "/admin/audit?"+q, adminKey, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("?%s = %d, want 400", q, rec.Code)
		}
	}
}

func waitForEvents(t *testing.T, l *audit.Logger, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events, _ := l.Query(context.Background(), audit.QueryFilter{})
		if len(events) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("audit logger did not record %d events in time", n)
}

// faultyStore injects registry failures into selected operations.
type faultyStore struct {
	*registry.Store
	createErr error
	rotateErr error
	listPanic bool
}

func (f *faultyStore) List() []registry.Identity {
	if f.listPanic {
		panic("registry index corrupted")
	}
	return f.Store.List()
}

func (f *faultyStore) Create(name, contact string) (registry.Identity, error) {
	ident, err := f.Store.Create(name, contact)
	if err == nil && f.createErr != nil {
		return ident, f.createErr
	}
	return ident, err
}

func (f *faultyStore) RotateCredential(id int64) (string, error) {
	if f.rotateErr != nil {
		return "", f.rotateErr
	}
	return f.Store.RotateCredential(id)
}

func TestPersistenceFailureStillSucceedsWithWarning(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, func(store *registry.Store) ClientStore {
		return &faultyStore{Store: store, createErr: &registry.PersistenceError{Stage: "file", Path: "clients.json", Err: errors.New("disk full")}}
	})

	rec := s.do(t, http.MethodPost, "/clients", adminKey, `{"name":"Acme","contact":"a@acme.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if rec.Header().Get("Warning") == "" {
		t.Error("missing Warning header on unpersisted change")
	}
	if decode[registry.Identity](t, rec).Name != "Acme" || s.store.Len() != 1 {
		t.Error("in-memory change should be visible")
	}
}

func TestUnexpectedErrorIsGeneric(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, func(store *registry.Store) ClientStore {
		return &faultyStore{Store: store, rotateErr: errors.New("entropy source exhausted at /dev/urandom")}
	})
	s.createClient(t, "Acme", "a@acme.com")

	rec := s.do(t, http.MethodPost, "/clients/1/rotateKey", adminKey, "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decode[gate.ErrorBody](t, rec)
	if body.Message != gate.MessageInternal || strings.Contains(rec.Body.String(), "urandom") {
		t.Errorf("500 body leaks detail: %s", rec.Body.String())
	}
}

func TestFloodGuardExemptsPublicPaths(t *testing.T) {
	t.Parallel()
	mwCfg := DefaultChiMiddlewareConfig()
	mwCfg.FloodLimit = 3
	mwCfg.FloodWindow = time.Minute
	s := newTestServerWithMiddleware(t, nil, mwCfg)

	for i := range 5 {
		if rec := s.do(t, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
			t.Fatalf("GET /health #%d status = %d, want 200", i+1, rec.Code)
		}
	}

	for i := range 3 {
		if rec := s.do(t, http.MethodGet, "/whoami", "", ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("GET /whoami #%d status = %d, want 401", i+1, rec.Code)
		}
	}
	rec := s.do(t, http.MethodGet, "/whoami", "", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("GET /whoami past the flood limit status = %d, want 429", rec.Code)
	}
	if body := decode[gate.ErrorBody](t, rec); body.Status != http.StatusTooManyRequests {
		t.Errorf("error body status = %d, want 429", body.Status)
	}

	if rec := s.do(t, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("GET /health after flood limit status = %d, want 200", rec.Code)
	}
}

func TestPanicReturnsErrorBody(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, func(store *registry.Store) ClientStore {
		return &faultyStore{Store: store, listPanic: true}
	})

	rec := s.do(t, http.MethodGet, "/clients", adminKey, "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decode[gate.ErrorBody](t, rec)
	if body.Status != http.StatusInternalServerError || body.Message != gate.MessageInternal || body.Path != "/clients" {
		t.Errorf("error body = %+v", body)
	}
	if strings.Contains(rec.Body.String(), "corrupted") {
		t.Errorf("panic value leaked to client: %s", rec.Body.String())
	}

	// The server keeps serving after a recovered panic.
	if rec := s.do(t, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("GET /health after panic status = %d, want 200", rec.Code)
	}
}

func TestRecovererRepanicsAbortHandler(t *testing.T) {
	t.Parallel()
	h := Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler { //nolint:errorlint // sentinel is panicked by value
			t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/whoami", nil))
	t.Error("ServeHTTP returned without re-panicking")
}
