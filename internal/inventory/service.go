package inventory

import (
	"context"
	"math"
	"time"

	"github.com/quillbooks/quillbooks/internal/shared"
)

// ItemTx is the transactional surface the adjustment service needs. The
// invoicing lifecycle passes its own transaction's view so invoice writes and
// stock writes commit or roll back together.
type ItemTx interface {
	GetStockForUpdate(ctx context.Context, itemID int64) (StockRow, error)
	UpdateStock(ctx context.Context, itemID int64, qty float64) error
	InsertMovement(ctx context.Context, mv Movement) error
}

// RepositoryPort lets the service open its own transaction for standalone
// corrections.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, ItemTx) error) error
}

// Service applies signed quantity deltas to stock-tracked items.
type Service struct {
	repo     RepositoryPort
	allowNeg bool
	now      func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
}

// NewService builds Service.
func NewService(repo RepositoryPort, cfg ServiceConfig) *Service {
	return &Service{repo: repo, allowNeg: cfg.AllowNegativeStock, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Apply adjusts one item inside the caller's transaction. Service-type items
// are untracked: the call is a no-op and reports no movement. Calls are
// symmetric by construction: +q then -q for the same item nets to zero.
func (s *Service) Apply(ctx context.Context, tx ItemTx, itemID int64, delta float64, refModule string, refID int64, note string) (*Movement, error) {
	if itemID == 0 {
		return nil, shared.Validationf("inventory: item id required")
	}
	if delta == 0 {
		return nil, ErrZeroDelta
	}
	row, err := tx.GetStockForUpdate(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if row.Kind != ItemKindProduct {
		return nil, nil
	}
	newQty := row.QtyOnHand + delta
	if math.Abs(newQty) < 1e-9 {
		newQty = 0
	}
	if !s.allowNeg && newQty < 0 {
		return nil, ErrNegativeStock
	}
	if err := tx.UpdateStock(ctx, itemID, newQty); err != nil {
		return nil, err
	}
	mv := Movement{
		ItemID:    itemID,
		Delta:     delta,
		QtyAfter:  newQty,
		RefModule: refModule,
		RefID:     refID,
		Note:      note,
		PostedAt:  s.now().UTC(),
	}
	if err := tx.InsertMovement(ctx, mv); err != nil {
		return nil, err
	}
	return &mv, nil
}

// Adjust posts a manual correction in its own transaction.
func (s *Service) Adjust(ctx context.Context, input AdjustmentInput) (*Movement, error) {
	if input.ItemID == 0 {
		return nil, shared.Validationf("inventory: item id required")
	}
	if input.Delta == 0 {
		return nil, ErrZeroDelta
	}
	var result *Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx ItemTx) error {
		mv, err := s.Apply(ctx, tx, input.ItemID, input.Delta, "adjustment", 0, input.Note)
		if err != nil {
			return err
		}
		if mv == nil {
			return shared.Validationf("inventory: item %d is not stock tracked", input.ItemID)
		}
		result = mv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
