package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/quillbooks/quillbooks/internal/aging"
	"github.com/quillbooks/quillbooks/internal/app"
	"github.com/quillbooks/quillbooks/internal/catalog"
	"github.com/quillbooks/quillbooks/internal/inventory"
	"github.com/quillbooks/quillbooks/internal/invoicing"
	"github.com/quillbooks/quillbooks/internal/journal"
	"github.com/quillbooks/quillbooks/internal/payments"
	"github.com/quillbooks/quillbooks/internal/platform/cache"
	"github.com/quillbooks/quillbooks/internal/platform/db"
	"github.com/quillbooks/quillbooks/internal/recurring"
	"github.com/quillbooks/quillbooks/internal/shared"
	"github.com/quillbooks/quillbooks/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report caching disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	audit := shared.NewAuditLogger(pool)
	idem := shared.NewIdempotencyStore(pool)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, inventory.ServiceConfig{
		AllowNegativeStock: cfg.InventoryAllowNegative,
	})

	invoicingRepo := invoicing.NewRepository(pool)
	invoicingService := invoicing.NewService(invoicingRepo, inventoryService, audit)

	paymentsRepo := payments.NewRepository(pool)
	paymentsService := payments.NewService(paymentsRepo, audit)

	journalRepo := journal.NewRepository(pool)
	journalService := journal.NewService(journalRepo, audit)

	agingRepo := aging.NewRepository(pool)
	agingService := aging.NewService(agingRepo)
	agingCache := aging.NewCache(redisClient, cfg.ReportCacheTTL)

	recurringRepo := recurring.NewRepository(pool)
	recurringService := recurring.NewService(logger, recurringRepo, invoicingService, idem)

	var jobsClient *jobs.Client
	if redisClient != nil {
		jobsClient = jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := jobsClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalog.NewHandler(logger, catalogService),
		InventoryHandler: inventory.NewHandler(logger, inventoryService, inventoryRepo),
		InvoicingHandler: invoicing.NewHandler(logger, invoicingService),
		PaymentsHandler:  payments.NewHandler(logger, paymentsService),
		JournalHandler:   journal.NewHandler(logger, journalService),
		AgingHandler:     aging.NewHandler(logger, agingService, agingCache),
		RecurringHandler: recurring.NewHandler(logger, recurringService),
		JobsClient:       jobsClient,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
