package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillbooks/quillbooks/internal/inventory"
	"github.com/quillbooks/quillbooks/internal/platform/db"
	"github.com/quillbooks/quillbooks/internal/shared"
)

// Repository provides PostgreSQL backed persistence for invoices.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

type txRepo struct {
	tx pgx.Tx
}

// Items exposes the same transaction to the inventory service.
func (t *txRepo) Items() inventory.ItemTx {
	return &inventory.PgItemTx{Tx: t.tx}
}

// NextInvoiceNumber draws the next value from the invoice sequence,
// zero-padded. The unique constraint on invoices.number backstops it.
func (t *txRepo) NextInvoiceNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&seq); err != nil {
		return "", shared.Persistence("invoicing: next number", err)
	}
	return fmt.Sprintf("INV-%06d", seq), nil
}

func (t *txRepo) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO invoices (number, customer_id, issue_date, due_date, status, subtotal, tax, total, amount_paid, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, NOW(), NOW()) RETURNING id`,
		inv.Number, inv.CustomerID, inv.IssueDate, inv.DueDate, string(inv.Status), inv.Subtotal, inv.Tax, inv.Total, inv.Notes).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrNumberConflict
		}
		return 0, shared.Persistence("invoicing: insert invoice", err)
	}
	return id, nil
}

func (t *txRepo) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	var inv Invoice
	err := t.tx.QueryRow(ctx, `SELECT id, number, customer_id, issue_date, due_date, status, subtotal, tax, total, amount_paid, notes, created_at, updated_at
FROM invoices WHERE id=$1 FOR UPDATE`, id).
		Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.IssueDate, &inv.DueDate, &inv.Status, &inv.Subtotal, &inv.Tax, &inv.Total, &inv.AmountPaid, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, shared.Persistence("invoicing: lock invoice", err)
	}
	return inv, nil
}

func (t *txRepo) UpdateInvoice(ctx context.Context, inv Invoice) error {
	_, err := t.tx.Exec(ctx, `UPDATE invoices SET issue_date=$1, due_date=$2, status=$3, subtotal=$4, tax=$5, total=$6, amount_paid=$7, notes=$8, updated_at=NOW() WHERE id=$9`,
		inv.IssueDate, inv.DueDate, string(inv.Status), inv.Subtotal, inv.Tax, inv.Total, inv.AmountPaid, inv.Notes, inv.ID)
	if err != nil {
		return shared.Persistence("invoicing: update invoice", err)
	}
	return nil
}

func (t *txRepo) DeleteInvoice(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM invoices WHERE id=$1`, id); err != nil {
		return shared.Persistence("invoicing: delete invoice", err)
	}
	return nil
}

func (t *txRepo) InsertLines(ctx context.Context, invoiceID int64, lines []LineItem) error {
	for _, line := range lines {
		if _, err := t.tx.Exec(ctx, `INSERT INTO invoice_lines (invoice_id, item_id, description, quantity, unit_price, line_total)
VALUES ($1, $2, $3, $4, $5, $6)`, invoiceID, line.ItemID, line.Description, line.Quantity, line.UnitPrice, line.LineTotal); err != nil {
			return shared.Persistence("invoicing: insert line", err)
		}
	}
	return nil
}

func (t *txRepo) ListLines(ctx context.Context, invoiceID int64) ([]LineItem, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, invoice_id, item_id, description, quantity, unit_price, line_total
FROM invoice_lines WHERE invoice_id=$1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, shared.Persistence("invoicing: list lines", err)
	}
	defer rows.Close()
	return scanLines(rows)
}

func (t *txRepo) DeleteLines(ctx context.Context, invoiceID int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id=$1`, invoiceID); err != nil {
		return shared.Persistence("invoicing: delete lines", err)
	}
	return nil
}

func (t *txRepo) CountAllocations(ctx context.Context, invoiceID int64) (int, error) {
	var count int
	if err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM payment_allocations WHERE invoice_id=$1`, invoiceID).Scan(&count); err != nil {
		return 0, shared.Persistence("invoicing: count allocations", err)
	}
	return count, nil
}

// GetInvoice fetches an invoice with its lines.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	var inv Invoice
	err := r.pool.QueryRow(ctx, `SELECT id, number, customer_id, issue_date, due_date, status, subtotal, tax, total, amount_paid, notes, created_at, updated_at
FROM invoices WHERE id=$1`, id).
		Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.IssueDate, &inv.DueDate, &inv.Status, &inv.Subtotal, &inv.Tax, &inv.Total, &inv.AmountPaid, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, shared.Persistence("invoicing: get invoice", err)
	}
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, item_id, description, quantity, unit_price, line_total
FROM invoice_lines WHERE invoice_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, shared.Persistence("invoicing: list lines", err)
	}
	defer rows.Close()
	lines, err := scanLines(rows)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines
	return &inv, nil
}

// ListInvoices returns invoices matching the filter, without lines.
func (r *Repository) ListInvoices(ctx context.Context, filter ListInvoicesFilter) ([]Invoice, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, number, customer_id, issue_date, due_date, status, subtotal, tax, total, amount_paid, notes, created_at, updated_at FROM invoices WHERE 1=1`
	args := []any{}
	idx := 1
	if filter.CustomerID != 0 {
		query += fmt.Sprintf(" AND customer_id=$%d", idx)
		args = append(args, filter.CustomerID)
		idx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status=$%d", idx)
		args = append(args, string(filter.Status))
		idx++
	}
	query += fmt.Sprintf(" ORDER BY issue_date DESC, id DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Persistence("invoicing: list invoices", err)
	}
	defer rows.Close()
	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.IssueDate, &inv.DueDate, &inv.Status, &inv.Subtotal, &inv.Tax, &inv.Total, &inv.AmountPaid, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, shared.Persistence("invoicing: scan invoice", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence("invoicing: list invoices", err)
	}
	return invoices, nil
}

// MarkOverdue flips past-due sent invoices with a balance to OVERDUE.
func (r *Repository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET status='OVERDUE', updated_at=NOW()
WHERE status='SENT' AND due_date < $1 AND amount_paid < total`, asOf)
	if err != nil {
		return 0, shared.Persistence("invoicing: mark overdue", err)
	}
	return tag.RowsAffected(), nil
}

func scanLines(rows pgx.Rows) ([]LineItem, error) {
	var lines []LineItem
	for rows.Next() {
		var line LineItem
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.ItemID, &line.Description, &line.Quantity, &line.UnitPrice, &line.LineTotal); err != nil {
			return nil, shared.Persistence("invoicing: scan line", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence("invoicing: scan lines", err)
	}
	return lines, nil
}
