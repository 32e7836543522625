package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/replenish-erp/replenish-erp/internal/app"
	"github.com/replenish-erp/replenish-erp/internal/integration"
	jobmetrics "github.com/replenish-erp/replenish-erp/internal/jobs"
	"github.com/replenish-erp/replenish-erp/internal/masterdata/products"
	"github.com/replenish-erp/replenish-erp/internal/masterdata/suppliers"
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
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	suggestionCache := reorder.NewCache(redisClient, cfg.SuggestionCacheTTL)

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	supplierRepo := suppliers.NewRepository(pool)
	supplierService := suppliers.NewService(supplierRepo)
	supplierDirectory := suppliers.NewDirectoryAdapter(supplierService)

	productRepo := products.NewRepository(pool)
	productService := products.NewService(productRepo)
	productCatalog := products.NewCatalogAdapter(productService)

	purchasingRepo := purchasing.NewRepository(pool)
	purchasingService := purchasing.NewService(purchasingRepo, auditLogger, nil, idempotencyStore, suggestionCache)

	stockRepo := stock.NewRepository(pool)
	stockService := stock.NewService(stockRepo, suggestionCache, logger, cfg.AllowNegativeStock)
	stockLevels := stock.NewLevelsAdapter(stockService)

	reorderService := reorder.NewService(productCatalog, stockLevels, purchasingService, supplierDirectory, suggestionCache, logger)

	metrics := jobmetrics.NewMetrics(nil)

	var providers []jobs.FeedProvider
	feedURLs := map[string]string{
		string(stock.SourceMain):  cfg.FeedURLMain,
		string(stock.SourceFBE):   cfg.FeedURLFBE,
		string(stock.SourceLocal): cfg.FeedURLLocal,
	}
	for source, url := range feedURLs {
		if url == "" {
			continue
		}
		providers = append(providers, integration.NewFeedClient(source, url, cfg.FeedTimeout))
	}

	refreshJob := jobs.NewStockRefreshJob(stockService, providers, logger, metrics)
	refreshJob.StaleAfter = cfg.StockStaleAfter
	scanJob := jobs.NewLowStockScanJob(reorderService, logger, metrics)
	cleanupJob := jobs.NewIdemCleanupJob(idempotencyStore, logger, metrics)

	refreshTask, err := jobs.NewStockRefreshTask()
	if err != nil {
		logger.Error("build stock refresh task", slog.Any("error", err))
		os.Exit(1)
	}
	scanTask, err := jobs.NewLowStockScanTask(true)
	if err != nil {
		logger.Error("build low stock scan task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewIdemCleanupTask(cfg.IdemRetention)
	if err != nil {
		logger.Error("build idempotency cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStockRefresh, Handler: refreshJob.Handle},
			{Type: jobs.TaskLowStockScan, Handler: scanJob.Handle},
			{Type: jobs.TaskIdemCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.StockRefreshCron, Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.LowStockScanCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.IdemCleanupCron, Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
