package journal

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quillbooks/quillbooks/internal/shared"
)

// Entry captures one manual journal posting. SourceID identifies the
// posting event itself and stays stable across exports.
type Entry struct {
	ID          int64     `json:"id"`
	Number      string    `json:"number"`
	SourceID    uuid.UUID `json:"source_id"`
	Date        time.Time `json:"date"`
	Reference   string    `json:"reference"`
	Description string    `json:"description"`
	Debit       float64   `json:"debit"`
	Credit      float64   `json:"credit"`
	CreatedAt   time.Time `json:"created_at"`
	Lines       []Line    `json:"lines,omitempty"`
}

// Line stores a debit or credit amount for an account. A line carries
// either a debit or a credit, never both.
type Line struct {
	ID        int64   `json:"id"`
	EntryID   int64   `json:"entry_id"`
	AccountID int64   `json:"account_id"`
	Debit     float64 `json:"debit"`
	Credit    float64 `json:"credit"`
}

// UnbalancedError rejects an entry whose debit and credit totals differ.
// It carries both sums so callers can report the discrepancy.
type UnbalancedError struct {
	Debit  float64
	Credit float64
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("journal: entry unbalanced: debit %.2f != credit %.2f", e.Debit, e.Credit)
}

// Unwrap classifies the rejection as a validation failure.
func (e *UnbalancedError) Unwrap() error {
	return shared.ErrValidation
}

// ErrEntryNotFound signals a missing journal entry.
var ErrEntryNotFound = shared.NotFoundf("journal: entry not found")
