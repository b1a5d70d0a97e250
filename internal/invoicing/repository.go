package invoicing

import (
	"context"
	"time"

	"github.com/quillbooks/quillbooks/internal/inventory"
)

// TxRepository exposes the write operations used inside one lifecycle
// transaction. Items() returns the same transaction's stock surface so
// invoice and inventory writes are atomic together.
type TxRepository interface {
	NextInvoiceNumber(ctx context.Context) (string, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error)
	UpdateInvoice(ctx context.Context, inv Invoice) error
	DeleteInvoice(ctx context.Context, id int64) error
	InsertLines(ctx context.Context, invoiceID int64, lines []LineItem) error
	ListLines(ctx context.Context, invoiceID int64) ([]LineItem, error)
	DeleteLines(ctx context.Context, invoiceID int64) error
	CountAllocations(ctx context.Context, invoiceID int64) (int, error)
	Items() inventory.ItemTx
}

// RepositoryPort defines data access for the invoice lifecycle.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	ListInvoices(ctx context.Context, filter ListInvoicesFilter) ([]Invoice, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}
