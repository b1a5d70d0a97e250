package aging

import (
	"context"
	"time"
)

// RepositoryPort defines the read-only queries behind the aging reports.
type RepositoryPort interface {
	ListOutstandingReceivables(ctx context.Context) ([]Record, error)
	ListOpenPayables(ctx context.Context) ([]Record, error)
}

// Service builds aging schedules for receivables and payables.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Receivables ages outstanding invoice balances by due date.
func (s *Service) Receivables(ctx context.Context, asOf time.Time) (Schedule, error) {
	records, err := s.repo.ListOutstandingReceivables(ctx)
	if err != nil {
		return Schedule{}, err
	}
	return Classify(asOf, records), nil
}

// Payables ages open expenses. Expenses have no due date of their own and
// are treated as due on their expense date.
func (s *Service) Payables(ctx context.Context, asOf time.Time) (Schedule, error) {
	records, err := s.repo.ListOpenPayables(ctx)
	if err != nil {
		return Schedule{}, err
	}
	return Classify(asOf, records), nil
}
