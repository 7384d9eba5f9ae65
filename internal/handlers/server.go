package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"realty-backend/internal/middleware"
	"realty-backend/internal/transport"
)

// Pinger is anything health can probe: the mongo client, the redis cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Server struct {
	Env     string
	Mongo   Pinger
	Cache   Pinger
	Log     *slog.Logger
	Started time.Time
}

type healthResponse struct {
	Status string            `json:"status"`
	Env    string            `json:"env"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks"`
}

// Health reports 503 only when mongo is unreachable; a down cache degrades to "degraded".
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status: "ok",
		Env:    s.Env,
		Uptime: time.Since(s.Started).Round(time.Second).String(),
		Checks: map[string]string{},
	}
	status := http.StatusOK

	if s.Mongo != nil {
		if err := s.Mongo.Ping(ctx); err != nil {
			log.Error("health: mongo unreachable", slog.String("error", err.Error()))
			resp.Checks["mongo"] = "down"
			resp.Status = "down"
			status = http.StatusServiceUnavailable
		} else {
			resp.Checks["mongo"] = "ok"
		}
	}
	if s.Cache != nil {
		if err := s.Cache.Ping(ctx); err != nil {
			log.Warn("health: cache unreachable", slog.String("error", err.Error()))
			resp.Checks["cache"] = "down"
			if resp.Status == "ok" {
				resp.Status = "degraded"
			}
		} else {
			resp.Checks["cache"] = "ok"
		}
	}

	transport.WriteJSON(w, status, resp)
}

func (s *Server) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return s.Log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return s.Log.With(slog.String("request_id", id))
	}
	return s.Log
}
