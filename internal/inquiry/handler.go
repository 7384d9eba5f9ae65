package inquiry

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

// Contact stores an inquiry without pushing it to the CRM.
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "contact", false)
}

// SubmitForm stores an inquiry and pushes it to Zoho.
func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "zoho submit", true)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, area string, pushToCRM bool) {
	log := h.logWithRequest(r)

	var req CreateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn(area + ": invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	if err := h.val.Struct(req); err != nil {
		log.Warn(area + ": validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var (
		item Inquiry
		err  error
	)
	if pushToCRM {
		item, err = h.service.Submit(ctx, req)
	} else {
		item, err = h.service.Create(ctx, req)
	}
	if err != nil {
		if errors.Is(err, ErrInvalidSource) {
			transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"source": "oneof"})
			return
		}
		log.Error(area+": database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	go func(created Inquiry) {
		notifyCtx, notifyCancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer notifyCancel()
		if err := h.service.NotifyNew(notifyCtx, created); err != nil {
			h.log.Warn(area+": notification failed",
				slog.String("inquiry_id", created.ID),
				slog.String("error", err.Error()),
			)
		}
	}(item)

	log.Info(area+": ok",
		slog.String("inquiry_id", item.ID),
		slog.String("source", item.Source),
		slog.Bool("crm_synced", item.CRMSynced),
	)
	transport.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success":   true,
		"message":   "inquiry received",
		"id":        item.ID,
		"crmSynced": item.CRMSynced,
	})
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 20, 100)
	if err != nil {
		log.Warn("admin inquiries list: invalid query", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	filter := ListFilter{
		Status:   strings.TrimSpace(r.URL.Query().Get("status")),
		Source:   strings.TrimSpace(r.URL.Query().Get("source")),
		Unsynced: r.URL.Query().Get("unsynced") == "true",
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, total, err := h.service.ListAdmin(ctx, filter, limit, offset)
	if err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			transport.WriteError(w, http.StatusBadRequest, "invalid query", map[string]string{"status": "oneof"})
			return
		}
		if errors.Is(err, ErrInvalidSource) {
			transport.WriteError(w, http.StatusBadRequest, "invalid query", map[string]string{"source": "oneof"})
			return
		}
		log.Error("admin inquiries list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin inquiries list: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func (h *Handler) AdminGetByID(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	item, err := h.service.GetAdminByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("admin inquiries get: not found", slog.String("inquiry_id", id))
			transport.WriteError(w, http.StatusNotFound, "inquiry not found", nil)
			return
		}
		log.Error("admin inquiries get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin inquiries get: ok", slog.String("inquiry_id", id))
	transport.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req AdminStatusUpdateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin inquiries status: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	if err := h.val.Struct(req); err != nil {
		log.Warn("admin inquiries status: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	item, err := h.service.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("admin inquiries status: not found", slog.String("inquiry_id", id))
			transport.WriteError(w, http.StatusNotFound, "inquiry not found", nil)
			return
		}
		log.Error("admin inquiries status: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin inquiries status: ok", slog.String("inquiry_id", id), slog.String("status", item.Status))
	transport.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) AdminResync(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	item, err := h.service.Resync(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("admin inquiries resync: not found", slog.String("inquiry_id", id))
			transport.WriteError(w, http.StatusNotFound, "inquiry not found", nil)
			return
		}
		log.Warn("admin inquiries resync: crm error", slog.String("inquiry_id", id), slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadGateway, "crm sync failed", nil)
		return
	}

	log.Info("admin inquiries resync: ok", slog.String("inquiry_id", id))
	transport.WriteJSON(w, http.StatusOK, item)
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
