package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func TestRequestIDReusesWellFormedHeader(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123-def")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if seen != "abc-123-def" || rr.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected incoming id, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "bad id with spaces")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if len(seen) != 36 {
		t.Fatalf("expected generated uuid, got %q", seen)
	}
}

func TestCORSAllowsListedOrigins(t *testing.T) {
	h := CORS([]string{"https://homes.example", "http://localhost:3000/"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent || rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("preflight not allowed: %d %v", rr.Code, rr.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/contact", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected allow origin for unlisted origin")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("burst should allow two requests")
	}
	if rl.Allow("a") {
		t.Fatalf("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Fatalf("keys are limited independently")
	}
	now = now.Add(30 * time.Second)
	if !rl.Allow("a") {
		t.Fatalf("a token should refill after window/limit")
	}

	rr := httptest.NewRecorder()
	limited := NewRateLimiter(1, time.Minute)
	h := limited.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/contact", nil))
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/contact", nil))
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected 429, got %d", rr.Code)
	}

	if !NewRateLimiter(0, time.Minute).Allow("x") {
		t.Fatalf("zero limit disables limiting")
	}
}

type fakeSessions struct{}

func (fakeSessions) VerifySession(ctx context.Context, token string) (AdminIdentity, error) {
	if token == "good" {
		return AdminIdentity{SessionID: "s1", Username: "editor"}, nil
	}
	return AdminIdentity{}, errors.New("no session")
}

func TestAdminAuth(t *testing.T) {
	var who string
	h := AdminAuth("op-key", fakeSessions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := AdminFromContext(r.Context())
		who = id.Username
	}))

	cases := []struct {
		name   string
		setup  func(*http.Request)
		status int
		who    string
	}{
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AdminCookieName, Value: "good"}) }, http.StatusOK, "editor"},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusOK, "editor"},
		{"api key", func(r *http.Request) { r.Header.Set(AdminKeyHeader, "op-key") }, http.StatusOK, "api-key"},
		{"revoked", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AdminCookieName, Value: "gone"}) }, http.StatusUnauthorized, ""},
		{"wrong key", func(r *http.Request) { r.Header.Set(AdminKeyHeader, "nope") }, http.StatusUnauthorized, ""},
		{"nothing", func(r *http.Request) {}, http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		who = ""
		req := httptest.NewRequest(http.MethodGet, "/api/admin/me", nil)
		tc.setup(req)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != tc.status || who != tc.who {
			t.Fatalf("%s: got %d %q", tc.name, rr.Code, who)
		}
	}

	rr := httptest.NewRecorder()
	AdminAuth("", nil)(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when unconfigured, got %d", rr.Code)
	}
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics())
	r.Get("/api/property/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/property/abc", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("middleware must not alter status, got %d", rr.Code)
	}
}
