package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillbooks/quillbooks/internal/platform/db"
	"github.com/quillbooks/quillbooks/internal/shared"
)

// Repository persists stock state in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, ItemTx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &PgItemTx{Tx: tx})
	})
}

// PgItemTx adapts a pgx transaction to the ItemTx surface. Other modules wrap
// their own transactions with it so stock writes share their atomicity.
type PgItemTx struct {
	Tx pgx.Tx
}

// GetStockForUpdate locks the item row and returns its stock view.
func (t *PgItemTx) GetStockForUpdate(ctx context.Context, itemID int64) (StockRow, error) {
	var row StockRow
	err := t.Tx.QueryRow(ctx, `SELECT id, type, stock_qty FROM items WHERE id=$1 FOR UPDATE`, itemID).
		Scan(&row.ItemID, &row.Kind, &row.QtyOnHand)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockRow{}, shared.NotFoundf("inventory: item %d", itemID)
		}
		return StockRow{}, shared.Persistence("inventory: lock item", err)
	}
	return row, nil
}

// UpdateStock writes the new on-hand quantity.
func (t *PgItemTx) UpdateStock(ctx context.Context, itemID int64, qty float64) error {
	_, err := t.Tx.Exec(ctx, `UPDATE items SET stock_qty=$1, updated_at=NOW() WHERE id=$2`, qty, itemID)
	if err != nil {
		return shared.Persistence("inventory: update stock", err)
	}
	return nil
}

// InsertMovement appends the movement trail row.
func (t *PgItemTx) InsertMovement(ctx context.Context, mv Movement) error {
	_, err := t.Tx.Exec(ctx, `INSERT INTO inventory_movements (item_id, delta, qty_after, ref_module, ref_id, note, posted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, mv.ItemID, mv.Delta, mv.QtyAfter, mv.RefModule, nullInt(mv.RefID), mv.Note, mv.PostedAt)
	if err != nil {
		return shared.Persistence("inventory: insert movement", err)
	}
	return nil
}

// ListMovements returns the movement trail for an item, newest first.
func (r *Repository) ListMovements(ctx context.Context, itemID int64, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, item_id, delta, qty_after, ref_module, COALESCE(ref_id, 0), note, posted_at
FROM inventory_movements WHERE item_id=$1 ORDER BY posted_at DESC, id DESC LIMIT $2`, itemID, limit)
	if err != nil {
		return nil, shared.Persistence("inventory: list movements", err)
	}
	defer rows.Close()
	var movements []Movement
	for rows.Next() {
		var mv Movement
		if err := rows.Scan(&mv.ID, &mv.ItemID, &mv.Delta, &mv.QtyAfter, &mv.RefModule, &mv.RefID, &mv.Note, &mv.PostedAt); err != nil {
			return nil, shared.Persistence("inventory: scan movement", err)
		}
		movements = append(movements, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence("inventory: list movements", err)
	}
	return movements, nil
}

func nullInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
