package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quillbooks/quillbooks/internal/aging"
	"github.com/quillbooks/quillbooks/internal/catalog"
	"github.com/quillbooks/quillbooks/internal/inventory"
	"github.com/quillbooks/quillbooks/internal/invoicing"
	"github.com/quillbooks/quillbooks/internal/journal"
	"github.com/quillbooks/quillbooks/internal/payments"
	"github.com/quillbooks/quillbooks/internal/platform/httpx"
	"github.com/quillbooks/quillbooks/internal/recurring"
	"github.com/quillbooks/quillbooks/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	CatalogHandler   *catalog.Handler
	InventoryHandler *inventory.Handler
	InvoicingHandler *invoicing.Handler
	PaymentsHandler  *payments.Handler
	JournalHandler   *journal.Handler
	AgingHandler     *aging.Handler
	RecurringHandler *recurring.Handler
	// JobsClient enables the on-demand job triggers. Nil when the queue
	// is unavailable; the trigger routes then answer 503.
	JobsClient *jobs.Client
}

// NewRouter constructs the chi.Router with QuillBooks defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		params.CatalogHandler.MountRoutes(r)
		params.InventoryHandler.MountRoutes(r)
		params.InvoicingHandler.MountRoutes(r)
		params.PaymentsHandler.MountRoutes(r)
		params.JournalHandler.MountRoutes(r)
		params.AgingHandler.MountRoutes(r)
		params.RecurringHandler.MountRoutes(r)
		mountJobTriggers(r, params.Logger, params.JobsClient)
	})

	return r
}

// mountJobTriggers registers on-demand equivalents of the cron tasks, so
// operators can run a scan without waiting for the schedule.
func mountJobTriggers(r chi.Router, logger *slog.Logger, client *jobs.Client) {
	trigger := func(name string, enqueue func(*http.Request) error) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			if client == nil {
				httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "job queue is not configured")
				return
			}
			if err := enqueue(req); err != nil {
				logger.Error("enqueue job", slog.String("task", name), slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Enqueue Failed", "")
				return
			}
			httpx.JSON(w, http.StatusAccepted, map[string]string{"task": name, "status": "queued"})
		}
	}
	r.Post("/admin/jobs/overdue-scan", trigger(jobs.TaskOverdueScan, func(req *http.Request) error {
		_, err := client.EnqueueOverdueScan(req.Context(), jobs.OverdueScanPayload{})
		return err
	}))
	r.Post("/admin/jobs/recurring-run", trigger(jobs.TaskRecurringRun, func(req *http.Request) error {
		_, err := client.EnqueueRecurringRun(req.Context(), jobs.RecurringRunPayload{})
		return err
	}))
}
