package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/replenish-erp/replenish-erp/internal/platform/httpx"
)

// Handler exposes the audit timeline over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the audit handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Get("/timeline", h.handleTimeline)
		r.Get("/export", h.handleExport)
	})
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Timeline(r.Context(), parseFilters(r))
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.ExportCSV(r.Context(), parseFilters(r))
	if err != nil {
		h.logger.Error("audit export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseFilters(r *http.Request) TimelineFilters {
	q := r.URL.Query()
	filters := TimelineFilters{
		Entity:   q.Get("entity"),
		EntityID: q.Get("entity_id"),
		Action:   q.Get("action"),
	}
	if v, err := strconv.ParseInt(q.Get("actor_id"), 10, 64); err == nil {
		filters.ActorID = v
	}
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		filters.Page = v
	}
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil {
		filters.PageSize = v
	}
	if v, err := time.Parse("2006-01-02", q.Get("from")); err == nil {
		filters.From = v
	}
	if v, err := time.Parse("2006-01-02", q.Get("to")); err == nil {
		filters.To = v.AddDate(0, 0, 1)
	}
	return filters
}
