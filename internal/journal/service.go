package journal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quillbooks/quillbooks/internal/shared"
)

// TxRepository exposes the writes of one posting transaction.
type TxRepository interface {
	NextEntryNumber(ctx context.Context) (string, error)
	InsertEntry(ctx context.Context, entry Entry) (int64, error)
	InsertLines(ctx context.Context, entryID int64, lines []Line) error
}

// RepositoryPort defines data access for journal postings.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetEntry(ctx context.Context, id int64) (*Entry, error)
	ListEntries(ctx context.Context, filter ListEntriesFilter) ([]Entry, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service posts journal entries under the double-entry invariant.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// Post validates and persists a journal entry atomically. The debit and
// credit totals are checked before the transaction begins; a validation
// failure leaves storage untouched.
func (s *Service) Post(ctx context.Context, input PostingInput) (*Entry, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	var debit, credit float64
	lines := make([]Line, 0, len(input.Lines))
	for _, line := range input.Lines {
		debit += line.Debit
		credit += line.Credit
		lines = append(lines, Line{
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
		})
	}
	entry := Entry{
		SourceID:    uuid.New(),
		Date:        input.Date,
		Reference:   input.Reference,
		Description: input.Description,
		Debit:       shared.Round2(debit),
		Credit:      shared.Round2(credit),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextEntryNumber(ctx)
		if err != nil {
			return err
		}
		entry.Number = number
		id, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		return tx.InsertLines(ctx, id, lines)
	})
	if err != nil {
		return nil, err
	}
	entry.Lines = lines
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "journal.post",
			Entity:   shared.AuditEntityJournalEntry,
			EntityID: entry.ID,
			Meta: map[string]any{
				"number": entry.Number,
				"debit":  entry.Debit,
				"credit": entry.Credit,
			},
			At: s.now(),
		})
	}
	return &entry, nil
}

// Get returns one entry with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Entry, error) {
	if id == 0 {
		return nil, shared.Validationf("journal: entry id required")
	}
	return s.repo.GetEntry(ctx, id)
}

// List returns entries matching the filter.
func (s *Service) List(ctx context.Context, filter ListEntriesFilter) ([]Entry, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.ListEntries(ctx, filter)
}
