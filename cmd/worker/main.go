package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/quillbooks/quillbooks/internal/app"
	"github.com/quillbooks/quillbooks/internal/inventory"
	"github.com/quillbooks/quillbooks/internal/invoicing"
	"github.com/quillbooks/quillbooks/internal/platform/db"
	"github.com/quillbooks/quillbooks/internal/recurring"
	"github.com/quillbooks/quillbooks/internal/shared"
	"github.com/quillbooks/quillbooks/jobs"
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	audit := shared.NewAuditLogger(pool)
	idem := shared.NewIdempotencyStore(pool)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, inventory.ServiceConfig{
		AllowNegativeStock: cfg.InventoryAllowNegative,
	})

	invoicingRepo := invoicing.NewRepository(pool)
	invoicingService := invoicing.NewService(invoicingRepo, inventoryService, audit)

	recurringRepo := recurring.NewRepository(pool)
	recurringService := recurring.NewService(logger, recurringRepo, invoicingService, idem)

	overdueTask, err := jobs.NewOverdueScanTask(jobs.OverdueScanPayload{})
	if err != nil {
		logger.Error("build overdue task", slog.Any("error", err))
		os.Exit(1)
	}
	recurringTask, err := jobs.NewRecurringRunTask(jobs.RecurringRunPayload{})
	if err != nil {
		logger.Error("build recurring task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Deps: jobs.Deps{
			Logger:    logger,
			Invoicing: invoicingService,
			Recurring: recurringService,
			Idem:      idem,
			Retention: cfg.IdempotencyRetention,
		},
		Cron: []jobs.CronRegistration{
			{Spec: "10 0 * * *", Task: overdueTask},
			{Spec: "30 0 * * *", Task: recurringTask},
			{Spec: "0 3 * * 0", Task: jobs.NewIdempotencyCleanupTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker shutdown complete")
}
