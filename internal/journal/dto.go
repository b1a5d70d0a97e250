package journal

import (
	"fmt"
	"time"

	"github.com/quillbooks/quillbooks/internal/shared"
)

// PostingLineInput describes a journal line for a posting request.
type PostingLineInput struct {
	AccountID int64
	Debit     float64
	Credit    float64
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	Date        time.Time
	Reference   string
	Description string
	Lines       []PostingLineInput
}

// Validate ensures posting input meets minimum criteria. The balance check
// is the hard precondition: an unbalanced entry never reaches storage.
func (in PostingInput) Validate() error {
	if in.Date.IsZero() {
		return shared.Validationf("journal: date required")
	}
	if len(in.Lines) < 2 {
		return shared.Validationf("journal: at least two lines required")
	}
	var debit, credit float64
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return shared.Validationf("journal: line %d missing account", idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return shared.Validationf("journal: line %d negative amount", idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return shared.Validationf("journal: line %d cannot be both debit and credit", idx)
		}
		debit += line.Debit
		credit += line.Credit
	}
	debit = shared.Round2(debit)
	credit = shared.Round2(credit)
	if fmt.Sprintf("%.2f", debit) != fmt.Sprintf("%.2f", credit) {
		return &UnbalancedError{Debit: debit, Credit: credit}
	}
	if debit <= 0 {
		return shared.Validationf("journal: entry amounts must be positive")
	}
	return nil
}

// ListEntriesFilter narrows journal listings.
type ListEntriesFilter struct {
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}
