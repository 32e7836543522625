package purchasing

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/replenish-erp/replenish-erp/internal/observability"
	"github.com/replenish-erp/replenish-erp/internal/platform/httpx"
	"github.com/replenish-erp/replenish-erp/internal/shared"
)

// Handler manages purchasing endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	bulk     *BulkCreator
	metrics  *observability.Metrics
	validate *validator.Validate
}

// NewHandler builds a Handler instance. metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, bulk *BulkCreator, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, bulk: bulk, metrics: metrics, validate: validator.New()}
}

// MountRoutes registers purchasing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/purchase-orders", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Post("/bulk-draft", h.handleBulkDraft)
		r.Get("/pending", h.handlePending)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Put("/", h.handleUpdateDraft)
			r.Post("/transition", h.handleTransition)
			r.Post("/receipts", h.handleReceive)
			r.Get("/receipts", h.handleListReceipts)
			r.Get("/history", h.handleHistory)
		})
	})
	r.Route("/unreceived-items", func(r chi.Router) {
		r.Get("/", h.handleListUnreceived)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetUnreceived)
			r.Post("/resolve", h.handleResolve)
			r.Post("/cancel", h.handleCancelUnreceived)
			r.Post("/follow-up", h.handleFollowUp)
		})
	})
}

type lineRequest struct {
	ProductID   int64   `json:"product_id" validate:"required,gt=0"`
	Quantity    int64   `json:"quantity" validate:"required,gt=0"`
	UnitCost    float64 `json:"unit_cost" validate:"gte=0"`
	DiscountPct float64 `json:"discount_pct" validate:"gte=0,lte=100"`
	TaxPct      float64 `json:"tax_pct" validate:"gte=0"`
}

type createOrderRequest struct {
	Number          string        `json:"number"`
	SupplierID      int64         `json:"supplier_id" validate:"required,gt=0"`
	Currency        string        `json:"currency" validate:"omitempty,len=3"`
	OrderDate       *time.Time    `json:"order_date"`
	ExpectedDate    *time.Time    `json:"expected_date"`
	Shipping        float64       `json:"shipping" validate:"gte=0"`
	Discount        float64       `json:"discount" validate:"gte=0"`
	Notes           string        `json:"notes"`
	PaymentTerms    string        `json:"payment_terms"`
	DeliveryAddress string        `json:"delivery_address"`
	ActorID         int64         `json:"actor_id"`
	Lines           []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

func buildLineInputs(lines []lineRequest) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineInput{
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			UnitCost:    l.UnitCost,
			DiscountPct: l.DiscountPct,
			TaxPct:      l.TaxPct,
		})
	}
	return out
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	po, err := h.service.Create(r.Context(), CreateOrderInput{
		Number:          req.Number,
		SupplierID:      req.SupplierID,
		Currency:        req.Currency,
		OrderDate:       timeOrZero(req.OrderDate),
		ExpectedDate:    timeOrZero(req.ExpectedDate),
		Shipping:        req.Shipping,
		Discount:        req.Discount,
		Notes:           req.Notes,
		PaymentTerms:    req.PaymentTerms,
		DeliveryAddress: req.DeliveryAddress,
		ActorID:         req.ActorID,
		Lines:           buildLineInputs(req.Lines),
	})
	if err != nil {
		h.logger.Error("create purchase order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	supplierID, _ := strconv.ParseInt(r.URL.Query().Get("supplier_id"), 10, 64)
	filters := ListFilters{
		Status:     Status(r.URL.Query().Get("status")),
		SupplierID: supplierID,
		Search:     r.URL.Query().Get("search"),
		SortBy:     r.URL.Query().Get("sort"),
		SortDir:    r.URL.Query().Get("dir"),
	}
	if from := r.URL.Query().Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filters.From = t
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filters.To = t
		}
	}
	items, total, err := h.service.List(r.Context(), limit, offset, filters)
	if err != nil {
		h.logger.Error("list purchase orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total, "limit": limit, "offset": offset})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	po, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

type updateDraftRequest struct {
	ExpectedDate    *time.Time    `json:"expected_date"`
	Shipping        float64       `json:"shipping" validate:"gte=0"`
	Discount        float64       `json:"discount" validate:"gte=0"`
	Notes           string        `json:"notes"`
	PaymentTerms    string        `json:"payment_terms"`
	DeliveryAddress string        `json:"delivery_address"`
	TrackingNumber  string        `json:"tracking_number"`
	ActorID         int64         `json:"actor_id"`
	Lines           []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var req updateDraftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	po, err := h.service.UpdateDraft(r.Context(), id, UpdateDraftInput{
		ExpectedDate:    timeOrZero(req.ExpectedDate),
		Shipping:        req.Shipping,
		Discount:        req.Discount,
		Notes:           req.Notes,
		PaymentTerms:    req.PaymentTerms,
		DeliveryAddress: req.DeliveryAddress,
		TrackingNumber:  req.TrackingNumber,
		ActorID:         req.ActorID,
		Lines:           buildLineInputs(req.Lines),
	})
	if err != nil {
		h.logger.Error("update draft order", slog.Int64("order_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

type transitionRequest struct {
	Status  string `json:"status" validate:"required"`
	ActorID int64  `json:"actor_id"`
	Notes   string `json:"notes"`
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var req transitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	po, err := h.service.Transition(r.Context(), id, Status(req.Status), req.ActorID, req.Notes)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

type receiveRequest struct {
	ReceivedAt     *time.Time `json:"received_at"`
	Notes          string     `json:"notes"`
	ActorID        int64      `json:"actor_id"`
	IdempotencyKey string     `json:"idempotency_key"`
	Lines          []struct {
		LineID   int64 `json:"line_id" validate:"required,gt=0"`
		Quantity int64 `json:"quantity" validate:"required,gt=0"`
	} `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var req receiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := ReceiveInput{
		OrderID:        id,
		ReceivedAt:     timeOrZero(req.ReceivedAt),
		Notes:          req.Notes,
		ActorID:        req.ActorID,
		IdempotencyKey: req.IdempotencyKey,
	}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, ReceiptLineInput{LineID: l.LineID, Quantity: l.Quantity})
	}
	receipt, err := h.service.Receive(r.Context(), input)
	if err != nil {
		h.logger.Warn("receive goods", slog.Int64("order_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ReceiptPosted()
	}
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	receipts, err := h.service.Receipts(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": receipts})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	entries, err := h.service.History(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.PendingQuantityByProduct(r.Context())
	if err != nil {
		h.logger.Error("pending by product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"pending": pending})
}

type bulkDraftRequest struct {
	ActorID    int64 `json:"actor_id"`
	Selections []struct {
		ProductID  int64 `json:"product_id" validate:"required,gt=0"`
		SupplierID int64 `json:"supplier_id" validate:"required,gt=0"`
		Quantity   int64 `json:"quantity" validate:"required,gt=0"`
	} `json:"selections" validate:"required,min=1,dive"`
}

func (h *Handler) handleBulkDraft(w http.ResponseWriter, r *http.Request) {
	var req bulkDraftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	selections := make([]Selection, 0, len(req.Selections))
	for _, sel := range req.Selections {
		selections = append(selections, Selection{ProductID: sel.ProductID, SupplierID: sel.SupplierID, Quantity: sel.Quantity})
	}
	result, err := h.bulk.CreateDrafts(r.Context(), selections, req.ActorID)
	if err != nil {
		h.logger.Error("bulk draft creation", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleListUnreceived(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	supplierID, _ := strconv.ParseInt(r.URL.Query().Get("supplier_id"), 10, 64)
	items, total, err := h.service.ListUnreceived(r.Context(), limit, offset, UnreceivedFilters{
		Status:     UnreceivedStatus(r.URL.Query().Get("status")),
		SupplierID: supplierID,
	})
	if err != nil {
		h.logger.Error("list unreceived items", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total, "limit": limit, "offset": offset})
}

func (h *Handler) handleGetUnreceived(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	item, err := h.service.GetUnreceived(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

type resolveRequest struct {
	ResolutionNotes string `json:"resolution_notes" validate:"required"`
	ResolvedBy      int64  `json:"resolved_by"`
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	h.closeUnreceived(w, r, (*Service).Resolve)
}

func (h *Handler) handleCancelUnreceived(w http.ResponseWriter, r *http.Request) {
	h.closeUnreceived(w, r, (*Service).CancelUnreceived)
}

func (h *Handler) closeUnreceived(w http.ResponseWriter, r *http.Request, op func(*Service, context.Context, ResolveInput) (UnreceivedItem, error)) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var req resolveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	item, err := op(h.service, r.Context(), ResolveInput{ItemID: id, ResolutionNotes: req.ResolutionNotes, ResolvedBy: req.ResolvedBy})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

type followUpRequest struct {
	ExpectedDate *time.Time `json:"expected_date"`
	FollowUpDate *time.Time `json:"follow_up_date"`
	ActorID      int64      `json:"actor_id"`
}

func (h *Handler) handleFollowUp(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var req followUpRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed JSON", err.Error())
		return
	}
	item, err := h.service.SetFollowUp(r.Context(), id, timeOrZero(req.ExpectedDate), timeOrZero(req.FollowUpDate), req.ActorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}
