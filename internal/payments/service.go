package payments

import (
	"context"
	"time"

	"github.com/quillbooks/quillbooks/internal/invoicing"
	"github.com/quillbooks/quillbooks/internal/shared"
)

// TxRepository exposes the writes of one payment transaction.
type TxRepository interface {
	GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (invoicing.Invoice, error)
	NextPaymentNumber(ctx context.Context) (string, error)
	InsertPayment(ctx context.Context, payment Payment) (int64, error)
	InsertAllocation(ctx context.Context, alloc Allocation) error
	UpdateInvoicePayment(ctx context.Context, invoiceID int64, amountPaid float64, status invoicing.InvoiceStatus) error
}

// RepositoryPort defines data access for the payment engine.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListPayments(ctx context.Context, customerID int64) ([]Payment, error)
	ListForInvoice(ctx context.Context, invoiceID int64) ([]PaymentWithAllocation, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service records payments and applies them against invoice balances.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Record inserts the payment, its allocation and the invoice's new paid
// amount and status as one atomic unit. The balance-due constraint is
// re-checked against the row-locked invoice inside the transaction, so two
// concurrent submissions cannot jointly overpay an invoice.
func (s *Service) Record(ctx context.Context, input RecordPaymentInput) (*Payment, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	var recorded Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, input.InvoiceID)
		if err != nil {
			return err
		}
		balanceDue := inv.BalanceDue()
		if shared.Round2(input.Amount) > balanceDue {
			return ErrExceedsBalance
		}
		number, err := tx.NextPaymentNumber(ctx)
		if err != nil {
			return err
		}
		payment := Payment{
			Number:     number,
			CustomerID: input.CustomerID,
			Date:       input.Date,
			Amount:     input.Amount,
			Method:     input.Method,
			Note:       input.Note,
		}
		paymentID, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		if err := tx.InsertAllocation(ctx, Allocation{
			PaymentID:     paymentID,
			InvoiceID:     inv.ID,
			AmountApplied: input.Amount,
		}); err != nil {
			return err
		}
		newPaid := shared.Round2(inv.AmountPaid + input.Amount)
		status := inv.Status
		if newPaid >= shared.Round2(inv.Total) {
			status = invoicing.StatusPaid
		}
		if err := tx.UpdateInvoicePayment(ctx, inv.ID, newPaid, status); err != nil {
			return err
		}
		payment.ID = paymentID
		recorded = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "payment.record",
			Entity:   shared.AuditEntityPayment,
			EntityID: recorded.ID,
			Meta: map[string]any{
				"number":     recorded.Number,
				"invoice_id": input.InvoiceID,
				"amount":     recorded.Amount,
			},
			At: s.now(),
		})
	}
	return &recorded, nil
}

// ListPayments returns payments, optionally for one customer.
func (s *Service) ListPayments(ctx context.Context, customerID int64) ([]Payment, error) {
	return s.repo.ListPayments(ctx, customerID)
}

// ListForInvoice returns the payments applied to one invoice.
func (s *Service) ListForInvoice(ctx context.Context, invoiceID int64) ([]PaymentWithAllocation, error) {
	if invoiceID == 0 {
		return nil, shared.Validationf("payments: invoice id required")
	}
	return s.repo.ListForInvoice(ctx, invoiceID)
}
