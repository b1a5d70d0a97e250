package invoicing

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/quillbooks/quillbooks/internal/inventory"
	"github.com/quillbooks/quillbooks/internal/shared"
)

// numberRetries bounds how often create retries after a number collision.
const numberRetries = 3

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates invoice create/edit/delete, owning line items and
// driving the inventory adjustment service.
type Service struct {
	repo  RepositoryPort
	stock *inventory.Service
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, stock *inventory.Service, audit AuditPort) *Service {
	return &Service{repo: repo, stock: stock, audit: audit, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create persists a new invoice with its lines and deducts stock for every
// product line, all in one transaction. A number collision under concurrent
// creation retries the whole transaction with a fresh sequence value.
func (s *Service) Create(ctx context.Context, input CreateInvoiceInput) (*Invoice, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	subtotal, total, lines := computeTotals(input.Lines, input.Tax)

	status := StatusSent
	if input.Draft {
		status = StatusDraft
	}

	var created Invoice
	var err error
	for attempt := 0; attempt < numberRetries; attempt++ {
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			number, err := tx.NextInvoiceNumber(ctx)
			if err != nil {
				return err
			}
			inv := Invoice{
				Number:     number,
				CustomerID: input.CustomerID,
				IssueDate:  input.IssueDate,
				DueDate:    input.DueDate,
				Status:     status,
				Subtotal:   subtotal,
				Tax:        input.Tax,
				Total:      total,
				Notes:      input.Notes,
			}
			id, err := tx.InsertInvoice(ctx, inv)
			if err != nil {
				return err
			}
			if err := tx.InsertLines(ctx, id, lines); err != nil {
				return err
			}
			if err := s.applyDeltas(ctx, tx, id, deductDeltas(lines)); err != nil {
				return err
			}
			inv.ID = id
			inv.Lines = withInvoiceID(lines, id)
			created = inv
			return nil
		})
		if !errors.Is(err, ErrNumberConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	s.record(ctx, "invoice.create", created.ID, map[string]any{
		"number": created.Number,
		"total":  created.Total,
	})
	return &created, nil
}

// Edit updates header fields, replaces the line set wholesale and applies the
// net stock delta between old and new lines. The net inventory effect always
// matches the invoice's current lines regardless of edit history.
func (s *Service) Edit(ctx context.Context, input EditInvoiceInput) (*Invoice, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	subtotal, total, lines := computeTotals(input.Lines, input.Tax)

	var edited Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, input.InvoiceID)
		if err != nil {
			return err
		}
		if shared.Round2(total) < shared.Round2(inv.AmountPaid) {
			return ErrTotalBelowPaid
		}
		oldLines, err := tx.ListLines(ctx, inv.ID)
		if err != nil {
			return err
		}

		inv.IssueDate = input.IssueDate
		inv.DueDate = input.DueDate
		inv.Tax = input.Tax
		inv.Subtotal = subtotal
		inv.Total = total
		inv.Notes = input.Notes
		inv.Status = nextStatus(inv)
		if err := tx.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, inv.ID); err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inv.ID, lines); err != nil {
			return err
		}
		if err := s.applyDeltas(ctx, tx, inv.ID, diffDeltas(oldLines, lines)); err != nil {
			return err
		}
		inv.Lines = withInvoiceID(lines, inv.ID)
		edited = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "invoice.edit", edited.ID, map[string]any{
		"number": edited.Number,
		"total":  edited.Total,
	})
	return &edited, nil
}

// Delete restores stock for every product line, removes the lines and the
// header. Deletion is refused while payment allocations reference the
// invoice; voiding the payments first is the caller's responsibility.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id == 0 {
		return shared.Validationf("invoicing: invoice id required")
	}
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		count, err := tx.CountAllocations(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrInvoiceHasPayments
		}
		lines, err := tx.ListLines(ctx, id)
		if err != nil {
			return err
		}
		if err := s.applyDeltas(ctx, tx, id, restoreDeltas(lines)); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteInvoice(ctx, id); err != nil {
			return err
		}
		number = inv.Number
		return nil
	})
	if err != nil {
		return err
	}
	s.record(ctx, "invoice.delete", id, map[string]any{"number": number})
	return nil
}

// Get returns an invoice with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	if id == 0 {
		return nil, shared.Validationf("invoicing: invoice id required")
	}
	return s.repo.GetInvoice(ctx, id)
}

// List returns invoices matching the filter, without lines.
func (s *Service) List(ctx context.Context, filter ListInvoicesFilter) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, filter)
}

// MarkOverdue flips sent invoices past their due date with an outstanding
// balance to OVERDUE and reports how many changed. Run by the worker.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	return s.repo.MarkOverdue(ctx, asOf)
}

// applyDeltas pushes per-item stock deltas through the inventory service
// inside the lifecycle transaction. Zero deltas are skipped. Item rows are
// locked in ascending id order; concurrent invoices sharing items then
// queue instead of deadlocking.
func (s *Service) applyDeltas(ctx context.Context, tx TxRepository, invoiceID int64, deltas map[int64]float64) error {
	itemIDs := make([]int64, 0, len(deltas))
	for itemID := range deltas {
		itemIDs = append(itemIDs, itemID)
	}
	slices.Sort(itemIDs)
	for _, itemID := range itemIDs {
		delta := deltas[itemID]
		if delta == 0 {
			continue
		}
		if _, err := s.stock.Apply(ctx, tx.Items(), itemID, delta, "invoice", invoiceID, ""); err != nil {
			return err
		}
	}
	return nil
}

// deductDeltas maps a line set to negative stock deltas.
func deductDeltas(lines []LineItem) map[int64]float64 {
	deltas := make(map[int64]float64, len(lines))
	for _, line := range lines {
		deltas[line.ItemID] -= line.Quantity
	}
	return deltas
}

// restoreDeltas maps a line set to positive stock deltas.
func restoreDeltas(lines []LineItem) map[int64]float64 {
	deltas := make(map[int64]float64, len(lines))
	for _, line := range lines {
		deltas[line.ItemID] += line.Quantity
	}
	return deltas
}

// diffDeltas nets old lines against new ones so only the difference touches
// stock: +old restores, -new deducts, unchanged items cancel out.
func diffDeltas(oldLines, newLines []LineItem) map[int64]float64 {
	deltas := make(map[int64]float64, len(oldLines)+len(newLines))
	for _, line := range oldLines {
		deltas[line.ItemID] += line.Quantity
	}
	for _, line := range newLines {
		deltas[line.ItemID] -= line.Quantity
	}
	return deltas
}

// nextStatus recomputes a header's status after its amounts changed.
func nextStatus(inv Invoice) InvoiceStatus {
	if shared.Round2(inv.AmountPaid) >= shared.Round2(inv.Total) {
		return StatusPaid
	}
	if inv.Status == StatusPaid {
		// A raised total reopened the balance.
		return StatusSent
	}
	return inv.Status
}

func withInvoiceID(lines []LineItem, invoiceID int64) []LineItem {
	out := make([]LineItem, len(lines))
	copy(out, lines)
	for i := range out {
		out[i].InvoiceID = invoiceID
	}
	return out
}

func (s *Service) record(ctx context.Context, action string, invoiceID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   shared.AuditEntityInvoice,
		EntityID: invoiceID,
		Meta:     meta,
		At:       s.now(),
	})
}
