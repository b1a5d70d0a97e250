package inventory

import (
	"time"

	"github.com/quillbooks/quillbooks/internal/shared"
)

// ItemKind mirrors the item master's type column as seen by stock logic.
type ItemKind string

const (
	ItemKindProduct ItemKind = "PRODUCT"
	ItemKindService ItemKind = "SERVICE"
)

// StockRow is the slice of an item the adjustment service reads and writes.
type StockRow struct {
	ItemID   int64
	Kind     ItemKind
	QtyOnHand float64
}

// Movement records one signed stock change with its originating document.
type Movement struct {
	ID        int64
	ItemID    int64
	Delta     float64
	QtyAfter  float64
	RefModule string
	RefID     int64
	Note      string
	PostedAt  time.Time
}

// AdjustmentInput describes a manual stock correction.
type AdjustmentInput struct {
	ItemID int64
	Delta  float64
	Note   string
}

// ErrNegativeStock is returned when an adjustment would drive a product's
// on-hand quantity below zero and negative stock is not allowed.
var ErrNegativeStock = shared.Consistencyf("inventory: stock cannot go negative")

// ErrZeroDelta indicates a no-op delta.
var ErrZeroDelta = shared.Validationf("inventory: delta must be non zero")
