package stock

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/replenish-erp/replenish-erp/internal/platform/httpx"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/stock", func(r chi.Router) {
		r.Get("/", h.handleAggregate)
		r.Get("/{productID}", h.handleAggregateOne)
		r.Post("/sync/{source}", h.handleIngest)
	})
}

func (h *Handler) handleAggregate(w http.ResponseWriter, r *http.Request) {
	var (
		items []Aggregated
		err   error
	)
	if raw := r.URL.Query().Get("product_ids"); raw != "" {
		ids, perr := parseIDList(raw)
		if perr != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid product_ids", perr.Error())
			return
		}
		items, err = h.service.Aggregate(r.Context(), ids)
	} else {
		items, err = h.service.AggregateAll(r.Context())
	}
	if err != nil {
		h.logger.Error("aggregate stock", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) handleAggregateOne(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "product id must be a positive integer")
		return
	}
	agg, err := h.service.AggregateOne(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, agg)
}

type ingestRequest struct {
	SyncedAt *time.Time `json:"synced_at"`
	Items    []struct {
		ProductID int64 `json:"product_id" validate:"required,gt=0"`
		Quantity  int64 `json:"quantity"`
		Reserved  int64 `json:"reserved" validate:"gte=0"`
	} `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	items := make([]FeedItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, FeedItem{ProductID: it.ProductID, Quantity: it.Quantity, Reserved: it.Reserved})
	}
	syncedAt := time.Time{}
	if req.SyncedAt != nil {
		syncedAt = *req.SyncedAt
	}
	count, err := h.service.Ingest(r.Context(), chi.URLParam(r, "source"), items, syncedAt)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ingested": count})
}

func parseIDList(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			return nil, strconv.ErrSyntax
		}
		ids = append(ids, id)
	}
	return ids, nil
}
