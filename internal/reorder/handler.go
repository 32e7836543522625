package reorder

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/replenish-erp/replenish-erp/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reorder", func(r chi.Router) {
		r.Get("/suggestions", h.handleSuggestions)
		r.Post("/invalidate", h.handleInvalidate)
	})
}

func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	level := StockLevel(r.URL.Query().Get("level"))
	suggestions, err := h.service.Suggestions(r.Context(), level)
	if err != nil {
		h.logger.Error("reorder suggestions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": suggestions})
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Invalidate(r.Context()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
