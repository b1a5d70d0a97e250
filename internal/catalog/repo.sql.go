package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillbooks/quillbooks/internal/shared"
)

// Repository provides PostgreSQL backed persistence for items.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateItem inserts a new item.
func (r *Repository) CreateItem(ctx context.Context, input CreateItemInput) (*Item, error) {
	var item Item
	err := r.pool.QueryRow(ctx, `INSERT INTO items (name, type, price, stock_qty, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
RETURNING id, created_at, updated_at`, input.Name, string(input.Type), input.Price, input.StockQty).
		Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, shared.Persistence("catalog: create item", err)
	}
	item.Name = input.Name
	item.Type = input.Type
	item.Price = input.Price
	item.StockQty = input.StockQty
	item.IsActive = true
	return &item, nil
}

// GetItem fetches an item by id.
func (r *Repository) GetItem(ctx context.Context, id int64) (*Item, error) {
	var item Item
	err := r.pool.QueryRow(ctx, `SELECT id, name, type, price, stock_qty, is_active, created_at, updated_at
FROM items WHERE id=$1`, id).
		Scan(&item.ID, &item.Name, &item.Type, &item.Price, &item.StockQty, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundf("catalog: item %d", id)
		}
		return nil, shared.Persistence("catalog: get item", err)
	}
	return &item, nil
}

// UpdateItem applies column updates to an item.
func (r *Repository) UpdateItem(ctx context.Context, id int64, updates map[string]any) error {
	set := ""
	args := []any{id}
	idx := 2
	for col, val := range updates {
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s=$%d", col, idx)
		args = append(args, val)
		idx++
	}
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`UPDATE items SET %s, updated_at=NOW() WHERE id=$1`, set), args...)
	if err != nil {
		return shared.Persistence("catalog: update item", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("catalog: item %d", id)
	}
	return nil
}

// ListItems returns items matching the filter.
func (r *Repository) ListItems(ctx context.Context, filter ListItemsFilter) ([]Item, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, name, type, price, stock_qty, is_active, created_at, updated_at FROM items WHERE 1=1`
	args := []any{}
	idx := 1
	if filter.Type != "" {
		query += fmt.Sprintf(" AND type=$%d", idx)
		args = append(args, string(filter.Type))
		idx++
	}
	if filter.IsActive != nil {
		query += fmt.Sprintf(" AND is_active=$%d", idx)
		args = append(args, *filter.IsActive)
		idx++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(" AND name ILIKE $%d", idx)
		args = append(args, "%"+filter.Search+"%")
		idx++
	}
	query += fmt.Sprintf(" ORDER BY name LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Persistence("catalog: list items", err)
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Type, &item.Price, &item.StockQty, &item.IsActive, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, shared.Persistence("catalog: scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence("catalog: list items", err)
	}
	return items, nil
}
