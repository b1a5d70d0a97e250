package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Ledger entities that appear in the audit trail.
const (
	AuditEntityInvoice      = "invoice"
	AuditEntityPayment      = "payment"
	AuditEntityJournalEntry = "journal_entry"
)

// AuditLog is one row of the append-only audit trail. EntityID is the
// numeric id of the ledger record the action touched.
type AuditLog struct {
	Actor    Actor
	Action   string
	Entity   string
	EntityID int64
	Meta     map[string]any
	At       time.Time
}

// AuditLogger appends to audit_logs. Recording happens outside the business
// transaction; a failed audit write never rolls back the operation.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the entry. The actor defaults to the one on the context
// and the timestamp to the current time.
func (l *AuditLogger) Record(ctx context.Context, entry AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == 0 {
		return errors.New("audit log requires action, entity and entity id")
	}
	if entry.Actor == (Actor{}) {
		entry.Actor = ActorFromContext(ctx)
	}
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, actor_name, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.Actor.ID, entry.Actor.Name, entry.Action, entry.Entity, entry.EntityID, meta, entry.At)
	return err
}
