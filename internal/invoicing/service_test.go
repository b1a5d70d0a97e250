package invoicing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quillbooks/quillbooks/internal/inventory"
	"github.com/quillbooks/quillbooks/internal/shared"
)

type memoryRepo struct {
	invoices    map[int64]Invoice
	lines       map[int64][]LineItem
	stock       map[int64]inventory.StockRow
	movements   []inventory.Movement
	allocations map[int64]int
	nextInvoice int64
	nextNumber  int64
	// conflictNumbers forces the first N inserts to collide, exercising
	// the retry loop.
	conflictInserts int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		invoices:    make(map[int64]Invoice),
		lines:       make(map[int64][]LineItem),
		stock:       make(map[int64]inventory.StockRow),
		allocations: make(map[int64]int),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	inv.Lines = append([]LineItem(nil), r.lines[id]...)
	return &inv, nil
}

func (r *memoryRepo) ListInvoices(ctx context.Context, filter ListInvoicesFilter) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range r.invoices {
		out = append(out, inv)
	}
	return out, nil
}

func (r *memoryRepo) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	var changed int64
	for id, inv := range r.invoices {
		if inv.Status == StatusSent && inv.DueDate.Before(asOf) && inv.AmountPaid < inv.Total {
			inv.Status = StatusOverdue
			r.invoices[id] = inv
			changed++
		}
	}
	return changed, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (tx *memoryTx) NextInvoiceNumber(ctx context.Context) (string, error) {
	tx.repo.nextNumber++
	return fmt.Sprintf("INV-%06d", tx.repo.nextNumber), nil
}

func (tx *memoryTx) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	if tx.repo.conflictInserts > 0 {
		tx.repo.conflictInserts--
		return 0, ErrNumberConflict
	}
	tx.repo.nextInvoice++
	inv.ID = tx.repo.nextInvoice
	tx.repo.invoices[inv.ID] = inv
	return inv.ID, nil
}

func (tx *memoryTx) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	inv, ok := tx.repo.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (tx *memoryTx) UpdateInvoice(ctx context.Context, inv Invoice) error {
	tx.repo.invoices[inv.ID] = inv
	return nil
}

func (tx *memoryTx) DeleteInvoice(ctx context.Context, id int64) error {
	delete(tx.repo.invoices, id)
	return nil
}

func (tx *memoryTx) InsertLines(ctx context.Context, invoiceID int64, lines []LineItem) error {
	stored := make([]LineItem, len(lines))
	copy(stored, lines)
	for i := range stored {
		stored[i].InvoiceID = invoiceID
	}
	tx.repo.lines[invoiceID] = append(tx.repo.lines[invoiceID], stored...)
	return nil
}

func (tx *memoryTx) ListLines(ctx context.Context, invoiceID int64) ([]LineItem, error) {
	out := make([]LineItem, len(tx.repo.lines[invoiceID]))
	copy(out, tx.repo.lines[invoiceID])
	return out, nil
}

func (tx *memoryTx) DeleteLines(ctx context.Context, invoiceID int64) error {
	delete(tx.repo.lines, invoiceID)
	return nil
}

func (tx *memoryTx) CountAllocations(ctx context.Context, invoiceID int64) (int, error) {
	return tx.repo.allocations[invoiceID], nil
}

func (tx *memoryTx) Items() inventory.ItemTx {
	return &memoryItemTx{repo: tx.repo}
}

type memoryItemTx struct {
	repo *memoryRepo
}

func (tx *memoryItemTx) GetStockForUpdate(ctx context.Context, itemID int64) (inventory.StockRow, error) {
	row, ok := tx.repo.stock[itemID]
	if !ok {
		return inventory.StockRow{}, shared.NotFoundf("inventory: item %d", itemID)
	}
	return row, nil
}

func (tx *memoryItemTx) UpdateStock(ctx context.Context, itemID int64, qty float64) error {
	row := tx.repo.stock[itemID]
	row.QtyOnHand = qty
	tx.repo.stock[itemID] = row
	return nil
}

func (tx *memoryItemTx) InsertMovement(ctx context.Context, mv inventory.Movement) error {
	tx.repo.movements = append(tx.repo.movements, mv)
	return nil
}

func newTestService(repo *memoryRepo) *Service {
	stock := inventory.NewService(stubInventoryRepo{}, inventory.ServiceConfig{})
	return NewService(repo, stock, nil)
}

// stubInventoryRepo is never used: the lifecycle always passes its own
// transaction into the stock service.
type stubInventoryRepo struct{}

func (stubInventoryRepo) WithTx(ctx context.Context, fn func(context.Context, inventory.ItemTx) error) error {
	panic("lifecycle must reuse its own transaction")
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func productLine(itemID int64, qty, price float64) LineItemInput {
	return LineItemInput{ItemID: itemID, Quantity: qty, UnitPrice: price}
}

func TestCreateComputesTotalsAndDeductsStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = inventory.StockRow{ItemID: 1, Kind: inventory.ItemKindProduct, QtyOnHand: 10}
	svc := newTestService(repo)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateInvoiceInput{
		CustomerID: 7,
		IssueDate:  date(2024, 1, 1),
		DueDate:    date(2024, 1, 31),
		Lines:      []LineItemInput{productLine(1, 3, 10.00)},
	})
	require.NoError(t, err)
	require.Equal(t, "INV-000001", inv.Number)
	require.Equal(t, StatusSent, inv.Status)
	require.InDelta(t, 30.00, inv.Subtotal, 0.001)
	require.InDelta(t, 30.00, inv.Total, 0.001)
	require.InDelta(t, 7.0, repo.stock[1].QtyOnHand, 0.0001)
	require.Len(t, repo.lines[inv.ID], 1)
}

func TestCreateLocksItemsInAscendingOrder(t *testing.T) {
	repo := newMemoryRepo()
	itemIDs := []int64{5, 2, 9, 1, 7, 4}
	lines := make([]LineItemInput, 0, len(itemIDs))
	for _, id := range itemIDs {
		repo.stock[id] = inventory.StockRow{ItemID: id, Kind: inventory.ItemKindProduct, QtyOnHand: 10}
		lines = append(lines, productLine(id, 1, 10))
	}
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInvoiceInput{
		CustomerID: 1,
		IssueDate:  date(2024, 1, 1),
		DueDate:    date(2024, 1, 31),
		Lines:      lines,
	})
	require.NoError(t, err)
	require.Len(t, repo.movements, len(itemIDs))
	locked := make([]int64, 0, len(repo.movements))
	for _, mv := range repo.movements {
		locked = append(locked, mv.ItemID)
	}
	require.Equal(t, []int64{1, 2, 4, 5, 7, 9}, locked)
}

func TestCreateDraftKeepsDraftStatus(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = inventory.StockRow{ItemID: 1, Kind: inventory.ItemKindProduct, QtyOnHand: 5}
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), CreateInvoiceInput{
		CustomerID: 1,
		IssueDate:  date(2024, 1, 1),
		DueDate:    date(2024, 1, 31),
		Draft:      true,
		Lines:      []LineItemInput{productLine(1, 1, 5)},
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, inv.Status)
}

func TestCreateAbortsWhollyOnStockUnderflow(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = inventory.StockRow{ItemID: 1, Kind: inventory.ItemKindProduct, QtyOnHand: 2}
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInvoiceInput{
		CustomerID: 1,
		IssueDate:  date(2024, 1, 1),
		DueDate:    date(2024, 1, 31),
		Lines:      []LineItemInput{productLine(1, 5, 10)},
	})
	require.ErrorIs(t, err, shared.ErrConsistency)
}

func TestCreateRetriesOnNumberConflict(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = inventory.StockRow{ItemID: 1, Kind: inventory.ItemKindProduct, QtyOnHand: 10}
	repo.conflictInserts = 2
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), CreateInvoiceInput{
		CustomerID: 1,
		IssueDate:  date(2024, 1, 1),
		DueDate:    date(2024, 1, 31),
		Lines:      []LineItemInput{productLine(1, 1, 10)},
	})
	require.NoError(t, err)
	// Two collisions burned two sequence values before the third stuck.
	require.Equal(t, "INV-000003", inv.Number)
}

func TestCreateGivesUpAfterRepeatedConflicts(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = inventory.StockRow{ItemID: 1, Kind: inventory.ItemKindProduct, QtyOnHand: 10}
	repo.conflictInserts = 10
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInvoiceInput{
		CustomerID: 1,
		IssueDate:  date(2024, 1, 1),
		DueDate:    date(2024, 1, 31),
		Lines:      []LineItemInput{productLine(1, 1, 10)},
	})
	require.ErrorIs(t, err, ErrNumberConflict)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInvoiceInput{
		IssueDate: date(2024, 1, 1), DueDate: date(2024, 1, 31),
		Lines: []LineItemInput{productLine(1, 1, 10)},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateInvoiceInput{
		CustomerID: 1, IssueDate: date(2024, 1, 1), DueDate: date(2024, 1, 31),
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateInvoiceInput{
		CustomerID: 1, IssueDate: date(2024, 1, 1), DueDate: date(2024, 1, 31),
		Lines: []LineItemInput{productLine(1, 0, 10)},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestEditAppliesOnlyTheNetStockDelta(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = inventory.StockRow{ItemID: 1, Kind: inventory.ItemKindProduct, QtyOnHand: 10}
	repo.stock[2] = inventory.StockRow{ItemID: 2, Kind: inventory.ItemKindProduct, QtyOnHand: 10}
	svc := newTestService(repo)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateInvoiceInput{
		CustomerID: 1,
		IssueDate:  date(2024, 1, 1),
		DueDate:    date(2024, 1, 31),
		Lines:      []LineItemInput{productLine(1, 3, 10), productLine(2, 2, 5)},
	})
	require.NoError(t, err)
	require.InDelta(t, 7.0, repo.stock[1].QtyOnHand, 0.0001)
	require.InDelta(t, 8.0, repo.stock[2].QtyOnHand, 0.0001)
	movesBefore := len(repo.movements)

	edited, err := svc.Edit(ctx, EditInvoiceInput{
		InvoiceID: inv.ID,
		IssueDate: date(2024, 1, 1),
		DueDate:   date(2024, 2, 15),
		Lines:     []LineItemInput{productLine(1, 5, 10), productLine(2, 2, 5)},
	})
	require.NoError(t, err)
	require.InDelta(t, 60.00, edited.Subtotal, 0.001)
	require.InDelta(t, 5.0, repo.stock[1].QtyOnHand, 0.0001)
	// Unchanged line produced no movement at all.
	require.InDelta(t, 8.0, repo.stock[2].QtyOnHand, 0.0001)
	require.Equal(t, movesBefore+1, len(repo.movements))
}

func TestEditMatchesDirectCreateWithFinalLines(t *testing.T) {
	lineSetA := []LineItemInput{productLine(1, 3, 10)}
	lineSetB := []LineItemInput{productLine(1, 1, 10), productLine(2, 4, 2.5)}

	viaEdit := newMemoryRepo()
	viaEdit.stock[1] = inventory.StockRow{ItemID: 1, Kind: inventory.ItemKindProduct, QtyOnHand: 20}
	viaEdit.stock[2] = inventory.StockRow{ItemID: 2, Kind: inventory.ItemKindProduct, QtyOnHand: 20}
	svcA := newTestService(viaEdit)
	ctx := context.Background()

	inv, err := svcA.Create(ctx, CreateInvoiceInput{
		CustomerID: 1, IssueDate: date(2024, 1, 1), DueDate: date(2024, 1, 31), Lines: lineSetA,
	})
	require.NoError(t, err)
	_, err = svcA.Edit(ctx, EditInvoiceInput{
		InvoiceID: inv.ID, IssueDate: date(2024, 1, 1), DueDate: date(2024, 1, 31), Lines: lineSetB,
	})
	require.NoError(t, err)

	direct := newMemoryRepo()
	direct.stock[1] = inventory.StockRow{ItemID: 1, Kind: inventory.ItemKindProduct, QtyOnHand: 20}
	direct.stock[2] = inventory.StockRow{ItemID: 2, Kind: inventory.ItemKindProduct, QtyOnHand: 20}
	svcB := newTestService(direct)
	_, err = svcB.Create(ctx, CreateInvoiceInput{
		CustomerID: 1, IssueDate: date(2024, 1, 1), DueDate: date(2024, 1, 31), Lines: lineSetB,
	})
	require.NoError(t, err)

	require.InDelta(t, direct.stock[1].QtyOnHand, viaEdit.stock[1].QtyOnHand, 0.0001)
	require.InDelta(t, direct.stock[2].QtyOnHand, viaEdit.stock[2].QtyOnHand, 0.0001)
}

func TestEditRefusesTotalBelowAmountPaid(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = inventory.StockRow{ItemID: 1, Kind: inventory.ItemKindProduct, QtyOnHand: 10}
	svc := newTestService(repo)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateInvoiceInput{
		CustomerID: 1, IssueDate: date(2024, 1, 1), DueDate: date(2024, 1, 31),
		Lines: []LineItemInput{productLine(1, 3, 10)},
	})
	require.NoError(t, err)

	stored := repo.invoices[inv.ID]
	stored.AmountPaid = 30
	stored.Status = StatusPaid
	repo.invoices[inv.ID] = stored

	_, err = svc.Edit(ctx, EditInvoiceInput{
		InvoiceID: inv.ID, IssueDate: date(2024, 1, 1), DueDate: date(2024, 1, 31),
		Lines: []LineItemInput{productLine(1, 1, 10)},
	})
	require.ErrorIs(t, err, shared.ErrConsistency)
}

func TestEditReopensPaidInvoiceWhenTotalRises(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = inventory.StockRow{ItemID: 1, Kind: inventory.ItemKindProduct, QtyOnHand: 10}
	svc := newTestService(repo)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateInvoiceInput{
		CustomerID: 1, IssueDate: date(2024, 1, 1), DueDate: date(2024, 1, 31),
		Lines: []LineItemInput{productLine(1, 3, 10)},
	})
	require.NoError(t, err)

	stored := repo.invoices[inv.ID]
	stored.AmountPaid = 30
	stored.Status = StatusPaid
	repo.invoices[inv.ID] = stored

	edited, err := svc.Edit(ctx, EditInvoiceInput{
		InvoiceID: inv.ID, IssueDate: date(2024, 1, 1), DueDate: date(2024, 1, 31),
		Lines: []LineItemInput{productLine(1, 5, 10)},
	})
	require.NoError(t, err)
	require.Equal(t, StatusSent, edited.Status)
	require.InDelta(t, 20.00, edited.BalanceDue(), 0.001)
}

func TestDeleteRestoresStockRoundTrip(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = inventory.StockRow{ItemID: 1, Kind: inventory.ItemKindProduct, QtyOnHand: 10}
	svc := newTestService(repo)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateInvoiceInput{
		CustomerID: 1, IssueDate: date(2024, 1, 1), DueDate: date(2024, 1, 31),
		Lines: []LineItemInput{productLine(1, 4, 12.5)},
	})
	require.NoError(t, err)
	require.InDelta(t, 6.0, repo.stock[1].QtyOnHand, 0.0001)

	require.NoError(t, svc.Delete(ctx, inv.ID))
	require.InDelta(t, 10.0, repo.stock[1].QtyOnHand, 0.0001)
	require.Empty(t, repo.lines[inv.ID])
	_, ok := repo.invoices[inv.ID]
	require.False(t, ok)
}

func TestDeleteRefusedWhileAllocationsExist(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = inventory.StockRow{ItemID: 1, Kind: inventory.ItemKindProduct, QtyOnHand: 10}
	svc := newTestService(repo)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateInvoiceInput{
		CustomerID: 1, IssueDate: date(2024, 1, 1), DueDate: date(2024, 1, 31),
		Lines: []LineItemInput{productLine(1, 2, 10)},
	})
	require.NoError(t, err)
	repo.allocations[inv.ID] = 1

	err = svc.Delete(ctx, inv.ID)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.InDelta(t, 8.0, repo.stock[1].QtyOnHand, 0.0001)
	_, ok := repo.invoices[inv.ID]
	require.True(t, ok)
}

func TestMarkOverdueFlipsSentPastDue(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = inventory.StockRow{ItemID: 1, Kind: inventory.ItemKindProduct, QtyOnHand: 10}
	svc := newTestService(repo)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateInvoiceInput{
		CustomerID: 1, IssueDate: date(2024, 1, 1), DueDate: date(2024, 1, 15),
		Lines: []LineItemInput{productLine(1, 1, 10)},
	})
	require.NoError(t, err)

	changed, err := svc.MarkOverdue(ctx, date(2024, 2, 1))
	require.NoError(t, err)
	require.Equal(t, int64(1), changed)
	require.Equal(t, StatusOverdue, repo.invoices[inv.ID].Status)
}
