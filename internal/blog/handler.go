package blog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"realty-backend/internal/httpx"
	"realty-backend/internal/middleware"
	"realty-backend/internal/transport"
	"realty-backend/internal/validation"
)

type Handler struct {
	service *Service
	val     *validation.Validator
	log     *slog.Logger
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{
		service: service,
		val:     val,
		log:     log,
	}
}

func (h *Handler) PublicList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "blog public list", h.service.ListPublic)
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "admin blog list", h.service.ListAdmin)
}

type listFunc func(ctx context.Context, tag string, limit, offset int64) ([]Post, int64, error)

func (h *Handler) list(w http.ResponseWriter, r *http.Request, area string, fetch listFunc) {
	log := h.logWithRequest(r)
	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 12, 100)
	if err != nil {
		log.Warn(area+": invalid query", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	tag := r.URL.Query().Get("tag")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	posts, total, err := fetch(ctx, tag, limit, offset)
	if err != nil {
		log.Error(area+": database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info(area+": ok", slog.Int("count", len(posts)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  posts,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func (h *Handler) PublicGetBySlug(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	if slug == "" {
		log.Warn("blog public get: missing slug")
		transport.WriteError(w, http.StatusBadRequest, "missing slug", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	post, err := h.service.GetPublishedBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("blog public get: not found", slog.String("slug", slug))
			transport.WriteError(w, http.StatusNotFound, "blog post not found", nil)
			return
		}
		log.Error("blog public get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("blog public get: ok", slog.String("slug", slug))
	transport.WriteJSON(w, http.StatusOK, post)
}

func (h *Handler) AdminGetByID(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	post, err := h.service.GetAdminByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("admin blog get: not found", slog.String("post_id", id))
			transport.WriteError(w, http.StatusNotFound, "blog post not found", nil)
			return
		}
		log.Error("admin blog get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, post)
}

func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	req, ok := h.decode(w, r, log, "admin blog create")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	post, err := h.service.Create(ctx, req)
	if err != nil {
		h.writeWriteError(w, log, "admin blog create", err)
		return
	}

	log.Info("admin blog create: ok", slog.String("post_id", post.ID), slog.String("slug", post.Slug))
	transport.WriteJSON(w, http.StatusCreated, post)
}

func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("admin blog update: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	req, ok := h.decode(w, r, log, "admin blog update")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	post, err := h.service.Update(ctx, id, req)
	if err != nil {
		h.writeWriteError(w, log, "admin blog update", err)
		return
	}

	log.Info("admin blog update: ok", slog.String("post_id", id), slog.String("slug", post.Slug))
	transport.WriteJSON(w, http.StatusOK, post)
}

func (h *Handler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("admin blog delete: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.service.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("admin blog delete: not found", slog.String("post_id", id))
			transport.WriteError(w, http.StatusNotFound, "blog post not found", nil)
			return
		}
		log.Error("admin blog delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin blog delete: ok", slog.String("post_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, area string) (UpsertRequest, bool) {
	var req UpsertRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn(area + ": invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return UpsertRequest{}, false
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn(area + ": validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return UpsertRequest{}, false
	}
	return req, true
}

func (h *Handler) writeWriteError(w http.ResponseWriter, log *slog.Logger, area string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		log.Warn(area + ": not found")
		transport.WriteError(w, http.StatusNotFound, "blog post not found", nil)
	case errors.Is(err, ErrSlugExists):
		log.Warn(area + ": slug exists")
		transport.WriteError(w, http.StatusConflict, "slug already exists", nil)
	case errors.Is(err, ErrInvalidSlug):
		transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"slug": "invalid"})
	default:
		log.Error(area+": database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
	}
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
