package recurring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quillbooks/quillbooks/internal/invoicing"
	"github.com/quillbooks/quillbooks/internal/shared"
)

// RepositoryPort defines data access for recurring profiles.
type RepositoryPort interface {
	InsertProfile(ctx context.Context, profile Profile) (*Profile, error)
	GetProfile(ctx context.Context, id int64) (*Profile, error)
	ListProfiles(ctx context.Context) ([]Profile, error)
	ListDue(ctx context.Context, asOf time.Time) ([]Profile, error)
	SetStatus(ctx context.Context, id int64, status ProfileStatus) error
	AdvanceNextRun(ctx context.Context, id int64, nextRunAt time.Time) error
}

// Issuer creates invoices from profile templates.
type Issuer interface {
	Create(ctx context.Context, input invoicing.CreateInvoiceInput) (*invoicing.Invoice, error)
}

// IdempotencyPort guards against double materialization.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// CreateProfileInput groups fields for a new profile.
type CreateProfileInput struct {
	CustomerID int64
	Frequency  Frequency
	DueInDays  int
	Tax        float64
	Notes      string
	StartAt    time.Time
	Lines      []invoicing.LineItemInput
}

// Service manages profiles and issues invoices when they come due.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	issuer Issuer
	idem   IdempotencyPort
}

// NewService builds Service.
func NewService(logger *slog.Logger, repo RepositoryPort, issuer Issuer, idem IdempotencyPort) *Service {
	return &Service{logger: logger, repo: repo, issuer: issuer, idem: idem}
}

// CreateProfile validates and persists a profile with its lines.
func (s *Service) CreateProfile(ctx context.Context, input CreateProfileInput) (*Profile, error) {
	if input.CustomerID == 0 {
		return nil, shared.Validationf("recurring: customer required")
	}
	if !input.Frequency.valid() {
		return nil, shared.Validationf("recurring: unknown frequency %q", input.Frequency)
	}
	if input.DueInDays < 0 {
		return nil, shared.Validationf("recurring: due_in_days must be >= 0")
	}
	if input.Tax < 0 {
		return nil, shared.Validationf("recurring: tax must be >= 0")
	}
	if len(input.Lines) == 0 {
		return nil, shared.Validationf("recurring: at least one line required")
	}
	lines := make([]ProfileLine, 0, len(input.Lines))
	for idx, line := range input.Lines {
		if line.ItemID == 0 {
			return nil, shared.Validationf("recurring: line %d missing item", idx)
		}
		if line.Quantity <= 0 {
			return nil, shared.Validationf("recurring: line %d quantity must be positive", idx)
		}
		if line.UnitPrice < 0 {
			return nil, shared.Validationf("recurring: line %d price must be >= 0", idx)
		}
		lines = append(lines, ProfileLine{
			ItemID:      line.ItemID,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}
	startAt := input.StartAt
	if startAt.IsZero() {
		startAt = time.Now()
	}
	return s.repo.InsertProfile(ctx, Profile{
		CustomerID: input.CustomerID,
		Frequency:  input.Frequency,
		DueInDays:  input.DueInDays,
		Tax:        input.Tax,
		Notes:      input.Notes,
		Status:     ProfileStatusActive,
		NextRunAt:  startAt,
		Lines:      lines,
	})
}

// GetProfile returns one profile with its lines.
func (s *Service) GetProfile(ctx context.Context, id int64) (*Profile, error) {
	if id == 0 {
		return nil, shared.Validationf("recurring: profile id required")
	}
	return s.repo.GetProfile(ctx, id)
}

// ListProfiles returns all profiles.
func (s *Service) ListProfiles(ctx context.Context) ([]Profile, error) {
	return s.repo.ListProfiles(ctx)
}

// Pause stops a profile from materializing until resumed.
func (s *Service) Pause(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, ProfileStatusPaused)
}

// Resume reactivates a paused profile.
func (s *Service) Resume(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, ProfileStatusActive)
}

func (s *Service) setStatus(ctx context.Context, id int64, status ProfileStatus) error {
	if id == 0 {
		return shared.Validationf("recurring: profile id required")
	}
	return s.repo.SetStatus(ctx, id, status)
}

// RunDue materializes an invoice for every active profile whose next run is
// at or before asOf, then advances its schedule. Each profile and run date
// is guarded by an idempotency key, so a rerun of the same day cannot
// double-issue. One failing profile does not stop the rest.
func (s *Service) RunDue(ctx context.Context, asOf time.Time) (int, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	profiles, err := s.repo.ListDue(ctx, asOf)
	if err != nil {
		return 0, err
	}
	issued := 0
	for _, profile := range profiles {
		if err := s.materialize(ctx, profile, asOf); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				// The key exists, so this run date was already issued.
				// Advance the schedule anyway or the profile stalls on
				// the same date forever.
				if aerr := s.repo.AdvanceNextRun(ctx, profile.ID, profile.Frequency.Advance(profile.NextRunAt)); aerr != nil {
					s.logger.Error("advance recurring schedule",
						slog.Int64("profile_id", profile.ID),
						slog.Any("error", aerr))
				}
				continue
			}
			s.logger.Error("materialize recurring invoice",
				slog.Int64("profile_id", profile.ID),
				slog.Any("error", err))
			continue
		}
		issued++
	}
	return issued, nil
}

func (s *Service) materialize(ctx context.Context, profile Profile, asOf time.Time) error {
	runDate := profile.NextRunAt
	key := fmt.Sprintf("recurring:%d:%s", profile.ID, runDate.Format("2006-01-02"))
	if err := s.idem.CheckAndInsert(ctx, key, "recurring"); err != nil {
		return err
	}
	lines := make([]invoicing.LineItemInput, 0, len(profile.Lines))
	for _, line := range profile.Lines {
		lines = append(lines, invoicing.LineItemInput{
			ItemID:      line.ItemID,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}
	_, err := s.issuer.Create(ctx, invoicing.CreateInvoiceInput{
		CustomerID: profile.CustomerID,
		IssueDate:  runDate,
		DueDate:    runDate.AddDate(0, 0, profile.DueInDays),
		Tax:        profile.Tax,
		Notes:      profile.Notes,
		Lines:      lines,
	})
	if err != nil {
		// Release the key so the next run can retry this profile.
		_ = s.idem.Delete(ctx, key)
		return err
	}
	return s.repo.AdvanceNextRun(ctx, profile.ID, profile.Frequency.Advance(runDate))
}
