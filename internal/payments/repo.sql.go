package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillbooks/quillbooks/internal/invoicing"
	"github.com/quillbooks/quillbooks/internal/platform/db"
	"github.com/quillbooks/quillbooks/internal/shared"
)

// Repository provides PostgreSQL backed persistence for payments.
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

func (t *txRepo) GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (invoicing.Invoice, error) {
	var inv invoicing.Invoice
	err := t.tx.QueryRow(ctx, `SELECT id, number, customer_id, issue_date, due_date, status, subtotal, tax, total, amount_paid
FROM invoices WHERE id=$1 FOR UPDATE`, invoiceID).
		Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.IssueDate, &inv.DueDate, &inv.Status, &inv.Subtotal, &inv.Tax, &inv.Total, &inv.AmountPaid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invoicing.Invoice{}, shared.NotFoundf("payments: invoice %d", invoiceID)
		}
		return invoicing.Invoice{}, shared.Persistence("payments: lock invoice", err)
	}
	return inv, nil
}

func (t *txRepo) NextPaymentNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('payment_number_seq')`).Scan(&seq); err != nil {
		return "", shared.Persistence("payments: next number", err)
	}
	return fmt.Sprintf("PAY-%06d", seq), nil
}

func (t *txRepo) InsertPayment(ctx context.Context, payment Payment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO payments (number, customer_id, date, amount, method, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING id`,
		payment.Number, payment.CustomerID, payment.Date, payment.Amount, payment.Method, payment.Note).Scan(&id)
	if err != nil {
		return 0, shared.Persistence("payments: insert payment", err)
	}
	return id, nil
}

func (t *txRepo) InsertAllocation(ctx context.Context, alloc Allocation) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO payment_allocations (payment_id, invoice_id, amount_applied)
VALUES ($1, $2, $3)`, alloc.PaymentID, alloc.InvoiceID, alloc.AmountApplied)
	if err != nil {
		return shared.Persistence("payments: insert allocation", err)
	}
	return nil
}

func (t *txRepo) UpdateInvoicePayment(ctx context.Context, invoiceID int64, amountPaid float64, status invoicing.InvoiceStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE invoices SET amount_paid=$1, status=$2, updated_at=NOW() WHERE id=$3`,
		amountPaid, string(status), invoiceID)
	if err != nil {
		return shared.Persistence("payments: update invoice", err)
	}
	return nil
}

// ListPayments returns payments, optionally filtered by customer.
func (r *Repository) ListPayments(ctx context.Context, customerID int64) ([]Payment, error) {
	query := `SELECT id, number, customer_id, date, amount, method, note, created_at FROM payments`
	args := []any{}
	if customerID != 0 {
		query += ` WHERE customer_id=$1`
		args = append(args, customerID)
	}
	query += ` ORDER BY date DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Persistence("payments: list payments", err)
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.Number, &p.CustomerID, &p.Date, &p.Amount, &p.Method, &p.Note, &p.CreatedAt); err != nil {
			return nil, shared.Persistence("payments: scan payment", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence("payments: list payments", err)
	}
	return out, nil
}

// ListForInvoice returns payments applied to one invoice.
func (r *Repository) ListForInvoice(ctx context.Context, invoiceID int64) ([]PaymentWithAllocation, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.number, p.customer_id, p.date, p.amount, p.method, p.note, p.created_at, a.invoice_id, a.amount_applied
FROM payments p JOIN payment_allocations a ON a.payment_id = p.id
WHERE a.invoice_id=$1 ORDER BY p.date, p.id`, invoiceID)
	if err != nil {
		return nil, shared.Persistence("payments: list for invoice", err)
	}
	defer rows.Close()
	var out []PaymentWithAllocation
	for rows.Next() {
		var p PaymentWithAllocation
		if err := rows.Scan(&p.ID, &p.Number, &p.CustomerID, &p.Date, &p.Amount, &p.Method, &p.Note, &p.CreatedAt, &p.InvoiceID, &p.AmountApplied); err != nil {
			return nil, shared.Persistence("payments: scan allocation", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence("payments: list for invoice", err)
	}
	return out, nil
}
