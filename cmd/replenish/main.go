package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/replenish-erp/replenish-erp/internal/app"
	"github.com/replenish-erp/replenish-erp/internal/audit"
	"github.com/replenish-erp/replenish-erp/internal/masterdata/products"
	"github.com/replenish-erp/replenish-erp/internal/masterdata/suppliers"
	"github.com/replenish-erp/replenish-erp/internal/notify"
	"github.com/replenish-erp/replenish-erp/internal/observability"
	"github.com/replenish-erp/replenish-erp/internal/platform/cache"
	"github.com/replenish-erp/replenish-erp/internal/platform/db"
	"github.com/replenish-erp/replenish-erp/internal/purchasing"
	"github.com/replenish-erp/replenish-erp/internal/reorder"
	"github.com/replenish-erp/replenish-erp/internal/shared"
	"github.com/replenish-erp/replenish-erp/internal/stock"
	"github.com/replenish-erp/replenish-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis connect", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("asynq client", slog.Any("error", err))
	}
	defer func() {
		if jobClient != nil {
			if err := jobClient.Close(); err != nil {
				logger.Warn("asynq client close", slog.Any("error", err))
			}
		}
	}()
	notifier := notify.NewNotifier(jobClient, logger)

	suggestionCache := reorder.NewCache(redisClient, cfg.SuggestionCacheTTL)
	if err := suggestionCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}

	supplierRepo := suppliers.NewRepository(dbpool)
	supplierService := suppliers.NewService(supplierRepo)
	supplierDirectory := suppliers.NewDirectoryAdapter(supplierService)

	productRepo := products.NewRepository(dbpool)
	productService := products.NewService(productRepo)
	productCatalog := products.NewCatalogAdapter(productService)

	purchasingRepo := purchasing.NewRepository(dbpool)
	purchasingService := purchasing.NewService(purchasingRepo, auditLogger, notifier, idempotencyStore, suggestionCache)
	bulkCreator := purchasing.NewBulkCreator(purchasingService, supplierDirectory)

	stockRepo := stock.NewRepository(dbpool)
	stockService := stock.NewService(stockRepo, suggestionCache, logger, cfg.AllowNegativeStock)
	stockLevels := stock.NewLevelsAdapter(stockService)

	reorderService := reorder.NewService(productCatalog, stockLevels, purchasingService, supplierDirectory, suggestionCache, logger)

	auditService := audit.NewService(audit.NewRepository(dbpool))

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		PurchasingHandler: purchasing.NewHandler(logger, purchasingService, bulkCreator, metrics),
		StockHandler:      stock.NewHandler(logger, stockService),
		ReorderHandler:    reorder.NewHandler(logger, reorderService),
		SuppliersHandler:  suppliers.NewHandler(logger, supplierService),
		ProductsHandler:   products.NewHandler(logger, productService),
		AuditHandler:      audit.NewHandler(logger, auditService),
		JobHandler:        jobs.NewHandler(inspector, jobClient, logger),
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
