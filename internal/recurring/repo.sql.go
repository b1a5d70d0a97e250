package recurring

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillbooks/quillbooks/internal/platform/db"
	"github.com/quillbooks/quillbooks/internal/shared"
)

// Repository provides PostgreSQL backed persistence for recurring profiles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertProfile persists a profile and its lines in one transaction.
func (r *Repository) InsertProfile(ctx context.Context, profile Profile) (*Profile, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO recurring_profiles (customer_id, frequency, due_in_days, tax, notes, status, next_run_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING id, created_at, updated_at`,
			profile.CustomerID, string(profile.Frequency), profile.DueInDays, profile.Tax, profile.Notes, string(profile.Status), profile.NextRunAt).
			Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
		if err != nil {
			return shared.Persistence("recurring: insert profile", err)
		}
		for i := range profile.Lines {
			line := &profile.Lines[i]
			line.ProfileID = profile.ID
			err = tx.QueryRow(ctx, `INSERT INTO recurring_profile_lines (profile_id, item_id, description, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				line.ProfileID, line.ItemID, line.Description, line.Quantity, line.UnitPrice).Scan(&line.ID)
			if err != nil {
				return shared.Persistence("recurring: insert line", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetProfile returns one profile with its lines.
func (r *Repository) GetProfile(ctx context.Context, id int64) (*Profile, error) {
	var profile Profile
	err := r.pool.QueryRow(ctx, `SELECT id, customer_id, frequency, due_in_days, tax, notes, status, next_run_at, created_at, updated_at
FROM recurring_profiles WHERE id=$1`, id).
		Scan(&profile.ID, &profile.CustomerID, &profile.Frequency, &profile.DueInDays, &profile.Tax, &profile.Notes, &profile.Status, &profile.NextRunAt, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, shared.Persistence("recurring: get profile", err)
	}
	lines, err := r.listLines(ctx, id)
	if err != nil {
		return nil, err
	}
	profile.Lines = lines
	return &profile, nil
}

// ListProfiles returns every profile without lines.
func (r *Repository) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, customer_id, frequency, due_in_days, tax, notes, status, next_run_at, created_at, updated_at
FROM recurring_profiles ORDER BY id`)
	if err != nil {
		return nil, shared.Persistence("recurring: list profiles", err)
	}
	defer rows.Close()
	return scanProfiles(rows)
}

// ListDue returns active profiles due at or before asOf, with lines.
func (r *Repository) ListDue(ctx context.Context, asOf time.Time) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, customer_id, frequency, due_in_days, tax, notes, status, next_run_at, created_at, updated_at
FROM recurring_profiles WHERE status='ACTIVE' AND next_run_at <= $1 ORDER BY next_run_at`, asOf)
	if err != nil {
		return nil, shared.Persistence("recurring: list due", err)
	}
	defer rows.Close()
	profiles, err := scanProfiles(rows)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		lines, err := r.listLines(ctx, profiles[i].ID)
		if err != nil {
			return nil, err
		}
		profiles[i].Lines = lines
	}
	return profiles, nil
}

// SetStatus updates a profile's status.
func (r *Repository) SetStatus(ctx context.Context, id int64, status ProfileStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE recurring_profiles SET status=$1, updated_at=NOW() WHERE id=$2`, string(status), id)
	if err != nil {
		return shared.Persistence("recurring: set status", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// AdvanceNextRun moves a profile's schedule forward.
func (r *Repository) AdvanceNextRun(ctx context.Context, id int64, nextRunAt time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE recurring_profiles SET next_run_at=$1, updated_at=NOW() WHERE id=$2`, nextRunAt, id)
	if err != nil {
		return shared.Persistence("recurring: advance next run", err)
	}
	return nil
}

func (r *Repository) listLines(ctx context.Context, profileID int64) ([]ProfileLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, profile_id, item_id, description, quantity, unit_price
FROM recurring_profile_lines WHERE profile_id=$1 ORDER BY id`, profileID)
	if err != nil {
		return nil, shared.Persistence("recurring: list lines", err)
	}
	defer rows.Close()
	var out []ProfileLine
	for rows.Next() {
		var line ProfileLine
		if err := rows.Scan(&line.ID, &line.ProfileID, &line.ItemID, &line.Description, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, shared.Persistence("recurring: scan line", err)
		}
		out = append(out, line)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence("recurring: list lines", err)
	}
	return out, nil
}

func scanProfiles(rows pgx.Rows) ([]Profile, error) {
	var out []Profile
	for rows.Next() {
		var profile Profile
		if err := rows.Scan(&profile.ID, &profile.CustomerID, &profile.Frequency, &profile.DueInDays, &profile.Tax, &profile.Notes, &profile.Status, &profile.NextRunAt, &profile.CreatedAt, &profile.UpdatedAt); err != nil {
			return nil, shared.Persistence("recurring: scan profile", err)
		}
		out = append(out, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Persistence("recurring: list profiles", err)
	}
	return out, nil
}
