package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillbooks/quillbooks/internal/platform/db"
	"github.com/quillbooks/quillbooks/internal/shared"
)

// Repository provides PostgreSQL backed persistence for journal entries.
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

func (t *txRepo) NextEntryNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('journal_number_seq')`).Scan(&seq); err != nil {
		return "", shared.Persistence("journal: next number", err)
	}
	return fmt.Sprintf("JRN-%06d", seq), nil
}

func (t *txRepo) InsertEntry(ctx context.Context, entry Entry) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO journal_entries (number, source_id, date, reference, description, debit, credit, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW()) RETURNING id`,
		entry.Number, entry.SourceID, entry.Date, entry.Reference, entry.Description, entry.Debit, entry.Credit).Scan(&id)
	if err != nil {
		return 0, shared.Persistence("journal: insert entry", err)
	}
	return id, nil
}

func (t *txRepo) InsertLines(ctx context.Context, entryID int64, lines []Line) error {
	for _, line := range lines {
		_, err := t.tx.Exec(ctx, `INSERT INTO journal_lines (entry_id, account_id, debit, credit)
VALUES ($1, $2, $3, $4)`, entryID, line.AccountID, line.Debit, line.Credit)
		if err != nil {
			return shared.Persistence("journal: insert line", err)
		}
	}
	return nil
}

// GetEntry returns one entry with its lines.
func (r *Repository) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	var entry Entry
	err := r.pool.QueryRow(ctx, `SELECT id, number, source_id, date, reference, description, debit, credit, created_at
FROM journal_entries WHERE id=$1`, id).
		Scan(&entry.ID, &entry.Number, &entry.SourceID, &entry.Date, &entry.Reference, &entry.Description, &entry.Debit, &entry.Credit, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, shared.Persistence("journal: get entry", err)
	}
	rows, err := r.pool.Query(ctx, `SELECT id, entry_id, account_id, debit, credit
FROM journal_lines WHERE entry_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, shared.Persistence("journal: list lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit); err != nil {
			return nil, shared.Persistence("journal: scan line", err)
		}
		entry.Lines = append(entry.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence("journal: list lines", err)
	}
	return &entry, nil
}

// ListEntries returns entries matching the filter, newest first.
func (r *Repository) ListEntries(ctx context.Context, filter ListEntriesFilter) ([]Entry, error) {
	query := `SELECT id, number, source_id, date, reference, description, debit, credit, created_at FROM journal_entries WHERE 1=1`
	args := []any{}
	idx := 1
	if !filter.From.IsZero() {
		query += fmt.Sprintf(" AND date >= $%d", idx)
		args = append(args, filter.From)
		idx++
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(" AND date <= $%d", idx)
		args = append(args, filter.To)
		idx++
	}
	query += fmt.Sprintf(" ORDER BY date DESC, id DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, filter.Limit, filter.Offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Persistence("journal: list entries", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.ID, &entry.Number, &entry.SourceID, &entry.Date, &entry.Reference, &entry.Description, &entry.Debit, &entry.Credit, &entry.CreatedAt); err != nil {
			return nil, shared.Persistence("journal: scan entry", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence("journal: list entries", err)
	}
	return out, nil
}
