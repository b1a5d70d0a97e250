package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/quillbooks/quillbooks/internal/invoicing"
	"github.com/quillbooks/quillbooks/internal/recurring"
	"github.com/quillbooks/quillbooks/internal/shared"
)

// Deps carries the services the task handlers call into.
type Deps struct {
	Logger     *slog.Logger
	Invoicing  *invoicing.Service
	Recurring  *recurring.Service
	Idem       *shared.IdempotencyStore
	Retention  time.Duration
}

// HandleOverdueScan marks sent invoices past their due date as overdue.
func (d Deps) HandleOverdueScan(ctx context.Context, t *asynq.Task) error {
	var payload OverdueScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	changed, err := d.Invoicing.MarkOverdue(ctx, payload.AsOf)
	if err != nil {
		return err
	}
	d.Logger.Info("overdue scan", slog.Int64("invoices_marked", changed))
	return nil
}

// HandleRecurringRun issues invoices for every due recurring profile.
func (d Deps) HandleRecurringRun(ctx context.Context, t *asynq.Task) error {
	var payload RecurringRunPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	issued, err := d.Recurring.RunDue(ctx, payload.AsOf)
	if err != nil {
		return err
	}
	d.Logger.Info("recurring run", slog.Int("invoices_issued", issued))
	return nil
}

// HandleIdempotencyCleanup prunes keys past retention.
func (d Deps) HandleIdempotencyCleanup(ctx context.Context, t *asynq.Task) error {
	retention := d.Retention
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if err := d.Idem.Cleanup(ctx, retention); err != nil {
		return err
	}
	d.Logger.Info("idempotency cleanup", slog.Duration("retention", retention))
	return nil
}
