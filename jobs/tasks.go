// Package jobs defines the background task types and the Asynq worker that
// runs them.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOverdueScan flips sent invoices past due date to overdue.
	TaskOverdueScan = "invoices:overdue_scan"
	// TaskRecurringRun materializes invoices from due recurring profiles.
	TaskRecurringRun = "recurring:run"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// OverdueScanPayload parameterises an overdue scan.
type OverdueScanPayload struct {
	AsOf time.Time `json:"as_of"`
}

// NewOverdueScanTask constructs an Asynq task.
func NewOverdueScanTask(payload OverdueScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueScan, data), nil
}

// RecurringRunPayload parameterises a recurring-profile run.
type RecurringRunPayload struct {
	AsOf time.Time `json:"as_of"`
}

// NewRecurringRunTask constructs an Asynq task.
func NewRecurringRunTask(payload RecurringRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecurringRun, data), nil
}

// NewIdempotencyCleanupTask constructs an Asynq task without payload.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}
