package payments

import (
	"time"

	"github.com/quillbooks/quillbooks/internal/shared"
)

// Payment records money received from a customer. Immutable once created.
type Payment struct {
	ID         int64     `json:"id"`
	Number     string    `json:"number"`
	CustomerID int64     `json:"customer_id"`
	Date       time.Time `json:"date"`
	Amount     float64   `json:"amount"`
	Method     string    `json:"method"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
}

// Allocation links one payment to one invoice with the applied amount.
// For any invoice, Σ allocations.amount_applied never exceeds invoice.total;
// the write path enforces this against the locked invoice row.
type Allocation struct {
	ID            int64   `json:"id"`
	PaymentID     int64   `json:"payment_id"`
	InvoiceID     int64   `json:"invoice_id"`
	AmountApplied float64 `json:"amount_applied"`
}

// RecordPaymentInput groups fields for recording a payment against an invoice.
type RecordPaymentInput struct {
	InvoiceID  int64
	CustomerID int64
	Amount     float64
	Date       time.Time
	Method     string
	Note       string
}

// Validate rejects statically bad input before any transaction begins. The
// balance-due check happens again inside the write transaction.
func (in RecordPaymentInput) Validate() error {
	if in.InvoiceID == 0 {
		return shared.Validationf("payments: invoice id required")
	}
	if in.CustomerID == 0 {
		return shared.Validationf("payments: customer required")
	}
	if in.Amount <= 0 {
		return shared.Validationf("payments: amount must be positive")
	}
	if in.Date.IsZero() {
		return shared.Validationf("payments: date required")
	}
	if in.Method == "" {
		return shared.Validationf("payments: method required")
	}
	return nil
}

// PaymentWithAllocation is a payment joined with its applied amount.
type PaymentWithAllocation struct {
	Payment
	InvoiceID     int64   `json:"invoice_id"`
	AmountApplied float64 `json:"amount_applied"`
}

// ErrExceedsBalance rejects a payment above the invoice's balance due.
var ErrExceedsBalance = shared.Validationf("payments: amount exceeds balance due")
