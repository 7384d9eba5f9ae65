package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"realty-backend/internal/httpx"
	"realty-backend/internal/middleware"
	"realty-backend/internal/transport"
	"realty-backend/internal/validation"
)

type Handler struct {
	service      *Service
	val          *validation.Validator
	log          *slog.Logger
	cookieSecure bool
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger, cookieSecure bool) *Handler {
	return &Handler{
		service:      service,
		val:          val,
		log:          log,
		cookieSecure: cookieSecure,
	}
}

type loginResponse struct {
	Status    string    `json:"status"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
	Token     string    `json:"token"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req LoginRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin login: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("admin login: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	session, token, err := h.service.Login(ctx, req, r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			log.Warn("admin login: invalid credentials", slog.String("username", req.Username))
			transport.WriteError(w, http.StatusUnauthorized, "invalid credentials", nil)
		case errors.Is(err, ErrNotConfigured):
			log.Warn("admin login: not configured")
			transport.WriteError(w, http.StatusServiceUnavailable, "admin auth not configured", nil)
		default:
			log.Error("admin login: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	setSessionCookie(w, token, session.ExpiresAt, h.cookieSecure)
	log.Info("admin login: ok", slog.String("username", session.Username), slog.String("session_id", session.ID))
	transport.WriteJSON(w, http.StatusOK, loginResponse{
		Status:    "ok",
		Username:  session.Username,
		ExpiresAt: session.ExpiresAt,
		Token:     token,
	})
}

// Logout always clears the cookie; the session row is removed when the token still verifies.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if token := middleware.AdminToken(r); token != "" {
		if id, err := h.service.VerifySession(ctx, token); err == nil {
			if err := h.service.Logout(ctx, id.SessionID); err != nil {
				log.Error("admin logout: database error", slog.String("error", err.Error()))
				transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
				return
			}
			log.Info("admin logout: ok", slog.String("username", id.Username))
		}
	}

	clearSessionCookie(w, h.cookieSecure)
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.AdminFromContext(r.Context())
	if !ok {
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	transport.WriteJSON(w, http.StatusOK, id)
}

func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req CreateAdminRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin users create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("admin users create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	a, err := h.service.CreateAdmin(ctx, req)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			log.Warn("admin users create: username exists")
			transport.WriteError(w, http.StatusConflict, "username already exists", nil)
			return
		}
		log.Error("admin users create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin users create: ok", slog.String("username", a.Username))
	transport.WriteJSON(w, http.StatusCreated, a)
}

func setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
	})
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(-1 * time.Hour),
		MaxAge:   -1,
	})
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
