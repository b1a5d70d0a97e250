package catalog

import (
	"context"

	"github.com/quillbooks/quillbooks/internal/shared"
)

// RepositoryPort defines data access methods for the item master.
type RepositoryPort interface {
	CreateItem(ctx context.Context, input CreateItemInput) (*Item, error)
	GetItem(ctx context.Context, id int64) (*Item, error)
	UpdateItem(ctx context.Context, id int64, updates map[string]any) error
	ListItems(ctx context.Context, filter ListItemsFilter) ([]Item, error)
}

// Service handles item master business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateItem registers a new product or service item.
func (s *Service) CreateItem(ctx context.Context, input CreateItemInput) (*Item, error) {
	if input.Name == "" {
		return nil, shared.Validationf("catalog: item name required")
	}
	if input.Type != ItemTypeProduct && input.Type != ItemTypeService {
		return nil, shared.Validationf("catalog: item type must be PRODUCT or SERVICE")
	}
	if input.Price < 0 {
		return nil, shared.Validationf("catalog: price must be >= 0")
	}
	if input.Type == ItemTypeService && input.StockQty != 0 {
		return nil, shared.Validationf("catalog: service items carry no stock")
	}
	if input.StockQty < 0 {
		return nil, shared.Validationf("catalog: opening stock must be >= 0")
	}
	return s.repo.CreateItem(ctx, input)
}

// GetItem returns one item.
func (s *Service) GetItem(ctx context.Context, id int64) (*Item, error) {
	if id == 0 {
		return nil, shared.Validationf("catalog: item id required")
	}
	return s.repo.GetItem(ctx, id)
}

// UpdateItem changes name, price or active flag. Stock changes go through the
// inventory service only.
func (s *Service) UpdateItem(ctx context.Context, id int64, input UpdateItemInput) (*Item, error) {
	if id == 0 {
		return nil, shared.Validationf("catalog: item id required")
	}
	updates := make(map[string]any)
	if input.Name != nil {
		if *input.Name == "" {
			return nil, shared.Validationf("catalog: item name required")
		}
		updates["name"] = *input.Name
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, shared.Validationf("catalog: price must be >= 0")
		}
		updates["price"] = *input.Price
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateItem(ctx, id, updates); err != nil {
			return nil, err
		}
	}
	return s.repo.GetItem(ctx, id)
}

// ListItems returns items matching the filter.
func (s *Service) ListItems(ctx context.Context, filter ListItemsFilter) ([]Item, error) {
	return s.repo.ListItems(ctx, filter)
}
