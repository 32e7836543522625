package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/replenish-erp/replenish-erp/internal/audit"
	"github.com/replenish-erp/replenish-erp/internal/masterdata/products"
	"github.com/replenish-erp/replenish-erp/internal/masterdata/suppliers"
	"github.com/replenish-erp/replenish-erp/internal/observability"
	"github.com/replenish-erp/replenish-erp/internal/purchasing"
	"github.com/replenish-erp/replenish-erp/internal/reorder"
	"github.com/replenish-erp/replenish-erp/internal/stock"
	"github.com/replenish-erp/replenish-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	PurchasingHandler *purchasing.Handler
	StockHandler      *stock.Handler
	ReorderHandler    *reorder.Handler
	SuppliersHandler  *suppliers.Handler
	ProductsHandler   *products.Handler
	AuditHandler      *audit.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if params.PurchasingHandler != nil {
			params.PurchasingHandler.MountRoutes(api)
		}
		if params.StockHandler != nil {
			params.StockHandler.MountRoutes(api)
		}
		if params.ReorderHandler != nil {
			params.ReorderHandler.MountRoutes(api)
		}
		if params.SuppliersHandler != nil {
			params.SuppliersHandler.MountRoutes(api)
		}
		if params.ProductsHandler != nil {
			params.ProductsHandler.MountRoutes(api)
		}
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(api)
		}
		if params.JobHandler != nil {
			api.Route("/jobs", func(jr chi.Router) {
				params.JobHandler.MountRoutes(jr)
			})
		}
	})

	return r
}
