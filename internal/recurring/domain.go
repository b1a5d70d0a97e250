// Package recurring materializes invoices from recurring profiles.
package recurring

import (
	"time"

	"github.com/quillbooks/quillbooks/internal/shared"
)

// Frequency enumerates how often a profile issues an invoice.
type Frequency string

const (
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyYearly    Frequency = "YEARLY"
)

// ProfileStatus enumerates profile lifecycle values.
type ProfileStatus string

const (
	ProfileStatusActive ProfileStatus = "ACTIVE"
	ProfileStatusPaused ProfileStatus = "PAUSED"
)

// Profile is a template from which concrete invoices are periodically
// materialized. It mirrors an invoice header minus the issued amounts.
type Profile struct {
	ID         int64         `json:"id"`
	CustomerID int64         `json:"customer_id"`
	Frequency  Frequency     `json:"frequency"`
	DueInDays  int           `json:"due_in_days"`
	Tax        float64       `json:"tax"`
	Notes      string        `json:"notes"`
	Status     ProfileStatus `json:"status"`
	NextRunAt  time.Time     `json:"next_run_at"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	Lines      []ProfileLine `json:"lines,omitempty"`
}

// ProfileLine is one templated invoice line.
type ProfileLine struct {
	ID          int64   `json:"id"`
	ProfileID   int64   `json:"profile_id"`
	ItemID      int64   `json:"item_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Advance returns the run date after from for the given frequency.
func (f Frequency) Advance(from time.Time) time.Time {
	switch f {
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return from.AddDate(0, 1, 0)
	case FrequencyQuarterly:
		return from.AddDate(0, 3, 0)
	case FrequencyYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

func (f Frequency) valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// ErrProfileNotFound signals a missing profile.
var ErrProfileNotFound = shared.NotFoundf("recurring: profile not found")
