package aging

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillbooks/quillbooks/internal/shared"
)

// Repository provides read-only PostgreSQL queries for aging reports.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListOutstandingReceivables returns the unpaid balance of every sent or
// overdue invoice, keyed by its due date.
func (r *Repository) ListOutstandingReceivables(ctx context.Context) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT total - amount_paid, due_date
FROM invoices
WHERE status IN ('SENT', 'OVERDUE') AND amount_paid < total
ORDER BY due_date`)
	if err != nil {
		return nil, shared.Persistence("aging: list receivables", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Amount, &rec.ReferenceDate); err != nil {
			return nil, shared.Persistence("aging: scan receivable", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence("aging: list receivables", err)
	}
	return out, nil
}

// ListOpenPayables returns unsettled expenses keyed by their expense date.
func (r *Repository) ListOpenPayables(ctx context.Context) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT amount, date
FROM expenses
WHERE settled = FALSE
ORDER BY date`)
	if err != nil {
		return nil, shared.Persistence("aging: list payables", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Amount, &rec.ReferenceDate); err != nil {
			return nil, shared.Persistence("aging: scan payable", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence("aging: list payables", err)
	}
	return out, nil
}
