package property

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"realty-backend/internal/geo"
	"realty-backend/internal/httpx"
	"realty-backend/internal/matching"
	"realty-backend/internal/middleware"
	"realty-backend/internal/transport"
	"realty-backend/internal/validation"
)

type Handler struct {
	service    *Service
	backfiller *Backfiller
	val        *validation.Validator
	log        *slog.Logger
}

func NewHandler(service *Service, backfiller *Backfiller, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{
		service:    service,
		backfiller: backfiller,
		val:        val,
		log:        log,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	q, err := ParseQuery(r.URL.Query())
	if err != nil {
		log.Warn("properties list: invalid query", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	page, cached, err := h.service.Page(ctx, q)
	if err != nil {
		log.Error("properties list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if cached {
		w.Header().Set("X-Cache", "HIT")
	}

	log.Info("properties list: ok", slog.Int("count", len(page.Items)), slog.Int64("total", page.Total))
	transport.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	item, err := h.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("properties get: not found", slog.String("property_id", id))
			transport.WriteError(w, http.StatusNotFound, "property not found", nil)
			return
		}
		log.Error("properties get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("properties get: ok", slog.String("property_id", id))
	transport.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) FilterOptions(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	opts, err := h.service.FilterOptions(ctx)
	if err != nil {
		log.Error("filter options: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("filter options: ok", slog.Int("locations", len(opts.Locations)), slog.Int("configurations", len(opts.Configurations)))
	transport.WriteJSON(w, http.StatusOK, opts)
}

func (h *Handler) PriceRange(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pr, err := h.service.PriceRange(ctx)
	if err != nil {
		log.Error("price range: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("price range: ok")
	transport.WriteJSON(w, http.StatusOK, pr)
}

func (h *Handler) RadiusSearch(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	values := r.URL.Query()
	locations := httpx.SplitCSV(append(values["locations"], values["location"]...))
	if len(locations) == 0 {
		log.Warn("radius search: missing locations")
		transport.WriteError(w, http.StatusBadRequest, "locations required", nil)
		return
	}
	radius, err := geo.ParseRadius(values.Get("radius"))
	if err != nil {
		log.Warn("radius search: invalid radius", slog.String("radius", values.Get("radius")))
		transport.WriteError(w, http.StatusBadRequest, "invalid radius", map[string]string{"radius": "invalid"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	result, err := h.service.RadiusSearch(ctx, locations, radius)
	if err != nil {
		log.Error("radius search: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("radius search: ok",
		slog.Int("count", len(result.Items)),
		slog.Int("resolved", len(result.Resolved)),
		slog.Int("unresolved", len(result.Unresolved)),
	)
	transport.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) WizardMatches(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var raw matching.RawPreferences
	if r.Method == http.MethodPost {
		if err := httpx.DecodeJSON(r.Body, &raw); err != nil {
			log.Warn("wizard matches: invalid json")
			transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
			return
		}
	} else {
		values := r.URL.Query()
		raw = matching.RawPreferences{
			Budget:        values.Get("budget"),
			Possession:    firstNonEmpty(values.Get("possession"), values.Get("timeline")),
			Configuration: values.Get("configuration"),
			Locations:     httpx.SplitCSV(values["locations"]),
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := h.service.Match(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrInvalidPreferences) {
			log.Warn("wizard matches: invalid preferences", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusBadRequest, "invalid preferences", nil)
			return
		}
		log.Error("wizard matches: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("wizard matches: ok", slog.Int("count", len(result.Items)), slog.Int("total", result.Total))
	transport.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req UpsertRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin properties create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("admin properties create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	item, err := h.service.Create(ctx, req)
	if err != nil {
		log.Error("admin properties create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin properties create: ok", slog.String("property_id", item.ID))
	transport.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("admin properties update: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req UpsertRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin properties update: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("admin properties update: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	item, err := h.service.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("admin properties update: not found", slog.String("property_id", id))
			transport.WriteError(w, http.StatusNotFound, "property not found", nil)
			return
		}
		log.Error("admin properties update: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin properties update: ok", slog.String("property_id", id))
	transport.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.service.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("admin properties delete: not found", slog.String("property_id", id))
			transport.WriteError(w, http.StatusNotFound, "property not found", nil)
			return
		}
		log.Error("admin properties delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin properties delete: ok", slog.String("property_id", id))
	transport.WriteJSON(w, http.StatusOK, transport.StatusResponse{Status: "deleted"})
}

const backfillTimeout = 30 * time.Minute

// AdminBackfill starts a coordinate backfill detached from the request and
// answers 202; progress is read back through AdminBackfillStatus.
func (h *Handler) AdminBackfill(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	if h.backfiller == nil {
		transport.WriteError(w, http.StatusServiceUnavailable, "backfill not configured", nil)
		return
	}

	if err := h.backfiller.Start(backfillTimeout); err != nil {
		if errors.Is(err, ErrBackfillRunning) {
			log.Warn("admin properties backfill: already running")
			transport.WriteError(w, http.StatusConflict, "backfill already running", nil)
			return
		}
		log.Error("admin properties backfill: failed", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "backfill failed", nil)
		return
	}

	log.Info("admin properties backfill: started")
	transport.WriteJSON(w, http.StatusAccepted, transport.StatusResponse{Status: "started"})
}

type backfillStatus struct {
	Running bool            `json:"running"`
	Last    *BackfillReport `json:"last,omitempty"`
}

func (h *Handler) AdminBackfillStatus(w http.ResponseWriter, r *http.Request) {
	if h.backfiller == nil {
		transport.WriteError(w, http.StatusServiceUnavailable, "backfill not configured", nil)
		return
	}
	status := backfillStatus{Running: h.backfiller.Running()}
	if last, ok := h.backfiller.Last(); ok {
		status.Last = &last
	}
	transport.WriteJSON(w, http.StatusOK, status)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
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
