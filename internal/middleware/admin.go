package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"realty-backend/internal/transport"
)

const (
	AdminCookieName = "realty_admin"
	AdminKeyHeader  = "X-Admin-Key"
)

// AdminIdentity is the authenticated caller of an admin route.
type AdminIdentity struct {
	SessionID string `json:"sessionId,omitempty"`
	AdminID   string `json:"adminId,omitempty"`
	Username  string `json:"username"`
}

// SessionVerifier resolves an admin token to a live session.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (AdminIdentity, error)
}

type adminKey struct{}

func AdminFromContext(ctx context.Context) (AdminIdentity, bool) {
	id, ok := ctx.Value(adminKey{}).(AdminIdentity)
	return id, ok
}

func WithAdmin(ctx context.Context, id AdminIdentity) context.Context {
	return context.WithValue(ctx, adminKey{}, id)
}

// AdminToken reads the session token from the admin cookie or a Bearer header.
func AdminToken(r *http.Request) string {
	if cookie, err := r.Cookie(AdminCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// AdminAuth accepts the operator API key or a token whose session row still exists.
func AdminAuth(apiKey string, sessions SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" && sessions == nil {
				transport.WriteError(w, http.StatusServiceUnavailable, "admin auth not configured", nil)
				return
			}

			if key := r.Header.Get(AdminKeyHeader); apiKey != "" && key != "" &&
				subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
				next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), AdminIdentity{Username: "api-key"})))
				return
			}

			if sessions != nil {
				if token := AdminToken(r); token != "" {
					id, err := sessions.VerifySession(r.Context(), token)
					if err == nil {
						next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), id)))
						return
					}
				}
			}

			transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		})
	}
}
