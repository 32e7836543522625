package suppliers

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

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Show)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Get("/products", h.ListMappings)
			r.Put("/products", h.SaveMapping)
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
		h.logger.Error("list suppliers failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "failed to load suppliers")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total, "page": page, "limit": limit})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "supplier id must be numeric")
		return
	}
	supplier, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "supplier not found")
			return
		}
		h.logger.Error("get supplier failed", "error", err, "id", id)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "failed to load supplier")
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

type supplierRequest struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Active  *bool  `json:"active"`
}

func (req supplierRequest) toModel() Supplier {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return Supplier{
		Code:    req.Code,
		Name:    req.Name,
		Address: req.Address,
		Email:   req.Email,
		Phone:   req.Phone,
		Active:  active,
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
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
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "supplier id must be numeric")
		return
	}
	var req supplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed JSON", err.Error())
		return
	}
	if err := h.service.Update(r.Context(), id, req.toModel()); err != nil {
		respondWriteError(w, err)
		return
	}
	supplier, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "failed to reload supplier")
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "supplier id must be numeric")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete supplier failed", "error", err, "id", id)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "failed to delete supplier")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func (h *Handler) ListMappings(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "supplier id must be numeric")
		return
	}
	mappings, err := h.service.ListMappings(r.Context(), id)
	if err != nil {
		h.logger.Error("list supplier products failed", "error", err, "id", id)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "failed to load supplier products")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": mappings})
}

type mappingRequest struct {
	ProductID    int64   `json:"product_id"`
	UnitCost     float64 `json:"unit_cost"`
	LeadTimeDays int     `json:"lead_time_days"`
	Preferred    bool    `json:"preferred"`
	Active       *bool   `json:"active"`
}

func (h *Handler) SaveMapping(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "supplier id must be numeric")
		return
	}
	var req mappingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed JSON", err.Error())
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	mapping, err := h.service.SaveMapping(r.Context(), ProductMapping{
		SupplierID:   id,
		ProductID:    req.ProductID,
		UnitCost:     req.UnitCost,
		LeadTimeDays: req.LeadTimeDays,
		Preferred:    req.Preferred,
		Active:       active,
	})
	if err != nil {
		respondWriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, mapping)
}
