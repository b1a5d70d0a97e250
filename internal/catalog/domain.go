package catalog

import (
	"time"
)

// ItemType distinguishes stock-tracked products from untracked services.
type ItemType string

const (
	ItemTypeProduct ItemType = "PRODUCT"
	ItemTypeService ItemType = "SERVICE"
)

// Item is a sellable product or service shared by many invoices. StockQty is
// meaningful only for products and is mutated exclusively through the
// inventory service.
type Item struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      ItemType  `json:"type"`
	Price     float64   `json:"price"`
	StockQty  float64   `json:"stock_qty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateItemInput groups fields for creating an item.
type CreateItemInput struct {
	Name     string
	Type     ItemType
	Price    float64
	StockQty float64
}

// UpdateItemInput groups updatable fields. Stock is absent on purpose.
type UpdateItemInput struct {
	Name     *string
	Price    *float64
	IsActive *bool
}

// ListItemsFilter narrows item listings.
type ListItemsFilter struct {
	Type     ItemType
	IsActive *bool
	Search   string
	Limit    int
	Offset   int
}
