package products

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/replenish-erp/replenish-erp/internal/masterdata/shared"
	"github.com/replenish-erp/replenish-erp/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func respondWriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Show)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 10
	}

	filters := shared.ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  r.URL.Query().Get("search"),
		SortBy:  r.URL.Query().Get("sort"),
		SortDir: r.URL.Query().Get("dir"),
	}
	if raw := r.URL.Query().Get("active"); raw != "" {
		active := raw == "true" || raw == "1"
		filters.IsActive = &active
	}

	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list products failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "failed to load products")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total, "page": page, "limit": limit})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "product id must be numeric")
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "product not found")
			return
		}
		h.logger.Error("get product failed", "error", err, "id", id)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "failed to load product")
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

type productRequest struct {
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	Unit              string `json:"unit"`
	CriticalThreshold int64  `json:"critical_threshold"`
	LowStockThreshold int64  `json:"low_stock_threshold"`
	TargetStockLevel  int64  `json:"target_stock_level"`
	Active            *bool  `json:"active"`
}

func (req productRequest) toModel() Product {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return Product{
		SKU:               req.SKU,
		Name:              req.Name,
		Description:       req.Description,
		Unit:              req.Unit,
		CriticalThreshold: req.CriticalThreshold,
		LowStockThreshold: req.LowStockThreshold,
		TargetStockLevel:  req.TargetStockLevel,
		Active:            active,
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed JSON", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), req.toModel())
	if err != nil {
		respondWriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "product id must be numeric")
		return
	}
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed JSON", err.Error())
		return
	}
	if err := h.service.Update(r.Context(), id, req.toModel()); err != nil {
		respondWriteError(w, err)
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "failed to reload product")
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "product id must be numeric")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete product failed", "error", err, "id", id)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "failed to delete product")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}
