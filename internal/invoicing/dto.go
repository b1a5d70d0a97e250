package invoicing

import (
	"time"

	"github.com/quillbooks/quillbooks/internal/shared"
)

// LineItemInput is one requested invoice line.
type LineItemInput struct {
	ItemID      int64
	Description string
	Quantity    float64
	UnitPrice   float64
}

// CreateInvoiceInput groups fields required to create an invoice.
type CreateInvoiceInput struct {
	CustomerID int64
	IssueDate  time.Time
	DueDate    time.Time
	Tax        float64
	Notes      string
	Draft      bool
	Lines      []LineItemInput
}

// Validate rejects bad input before any transaction begins.
func (in CreateInvoiceInput) Validate() error {
	if in.CustomerID == 0 {
		return shared.Validationf("invoicing: customer required")
	}
	if in.IssueDate.IsZero() || in.DueDate.IsZero() {
		return shared.Validationf("invoicing: issue and due dates required")
	}
	if in.DueDate.Before(in.IssueDate) {
		return shared.Validationf("invoicing: due date before issue date")
	}
	if in.Tax < 0 {
		return shared.Validationf("invoicing: tax must be >= 0")
	}
	return validateLines(in.Lines)
}

// EditInvoiceInput replaces dates, tax and the whole line set.
type EditInvoiceInput struct {
	InvoiceID int64
	IssueDate time.Time
	DueDate   time.Time
	Tax       float64
	Notes     string
	Lines     []LineItemInput
}

// Validate rejects bad input before any transaction begins.
func (in EditInvoiceInput) Validate() error {
	if in.InvoiceID == 0 {
		return shared.Validationf("invoicing: invoice id required")
	}
	if in.IssueDate.IsZero() || in.DueDate.IsZero() {
		return shared.Validationf("invoicing: issue and due dates required")
	}
	if in.DueDate.Before(in.IssueDate) {
		return shared.Validationf("invoicing: due date before issue date")
	}
	if in.Tax < 0 {
		return shared.Validationf("invoicing: tax must be >= 0")
	}
	return validateLines(in.Lines)
}

func validateLines(lines []LineItemInput) error {
	if len(lines) == 0 {
		return shared.Validationf("invoicing: at least one line item required")
	}
	for idx, line := range lines {
		if line.ItemID == 0 {
			return shared.Validationf("invoicing: line %d missing item", idx)
		}
		if line.Quantity <= 0 {
			return shared.Validationf("invoicing: line %d quantity must be positive", idx)
		}
		if line.UnitPrice < 0 {
			return shared.Validationf("invoicing: line %d price must be >= 0", idx)
		}
	}
	return nil
}

// computeTotals derives the header amounts from the line set.
func computeTotals(lines []LineItemInput, tax float64) (subtotal, total float64, out []LineItem) {
	out = make([]LineItem, 0, len(lines))
	for _, line := range lines {
		lineTotal := shared.Round2(line.Quantity * line.UnitPrice)
		subtotal += lineTotal
		out = append(out, LineItem{
			ItemID:      line.ItemID,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   lineTotal,
		})
	}
	subtotal = shared.Round2(subtotal)
	total = shared.Round2(subtotal + tax)
	return subtotal, total, out
}
