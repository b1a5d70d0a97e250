package invoicing

import (
	"time"

	"github.com/quillbooks/quillbooks/internal/shared"
)

// InvoiceStatus enumerates invoice lifecycle values.
type InvoiceStatus string

const (
	StatusDraft   InvoiceStatus = "DRAFT"
	StatusSent    InvoiceStatus = "SENT"
	StatusPaid    InvoiceStatus = "PAID"
	StatusOverdue InvoiceStatus = "OVERDUE"
)

// Invoice header. Invariants held by every write path:
// subtotal == Σ(line.quantity × line.unit_price), total == subtotal + tax,
// 0 ≤ amount_paid ≤ total, status == PAID ⟺ amount_paid ≥ total.
type Invoice struct {
	ID         int64         `json:"id"`
	Number     string        `json:"number"`
	CustomerID int64         `json:"customer_id"`
	IssueDate  time.Time     `json:"issue_date"`
	DueDate    time.Time     `json:"due_date"`
	Status     InvoiceStatus `json:"status"`
	Subtotal   float64       `json:"subtotal"`
	Tax        float64       `json:"tax"`
	Total      float64       `json:"total"`
	AmountPaid float64       `json:"amount_paid"`
	Notes      string        `json:"notes"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	Lines      []LineItem    `json:"lines,omitempty"`
}

// BalanceDue is total minus amount paid at cent precision.
func (inv Invoice) BalanceDue() float64 {
	return shared.Round2(inv.Total - inv.AmountPaid)
}

// LineItem belongs to exactly one invoice and is replaced wholesale on edit.
type LineItem struct {
	ID          int64   `json:"id"`
	InvoiceID   int64   `json:"invoice_id"`
	ItemID      int64   `json:"item_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

// ListInvoicesFilter narrows invoice listings.
type ListInvoicesFilter struct {
	CustomerID int64
	Status     InvoiceStatus
	Limit      int
	Offset     int
}

var (
	// ErrInvoiceNotFound indicates a missing invoice.
	ErrInvoiceNotFound = shared.NotFoundf("invoicing: invoice not found")
	// ErrInvoiceHasPayments blocks deletion while payment allocations exist.
	ErrInvoiceHasPayments = shared.Validationf("invoicing: invoice has recorded payments")
	// ErrTotalBelowPaid blocks an edit that would shrink the total under the
	// amount already paid.
	ErrTotalBelowPaid = shared.Consistencyf("invoicing: total cannot drop below amount paid")
	// ErrNumberConflict signals a duplicate invoice number; create retries.
	ErrNumberConflict = shared.Consistencyf("invoicing: invoice number already taken")
)
