// Package aging partitions dated monetary records into fixed day-range
// buckets relative to an as-of date.
package aging

import (
	"time"

	"github.com/quillbooks/quillbooks/internal/shared"
)

// Bucket labels. Every record lands in exactly one bucket.
const (
	BucketCurrent = "Current"
	Bucket1To30   = "1-30 Days"
	Bucket31To60  = "31-60 Days"
	Bucket61To90  = "61-90 Days"
	Bucket91Plus  = "91+ Days"
)

// Record is a dated amount to be aged, such as an invoice balance or an
// open expense.
type Record struct {
	Amount        float64   `json:"amount"`
	ReferenceDate time.Time `json:"reference_date"`
}

// Schedule summarises totals by aging periods. Total always equals the sum
// of the five buckets.
type Schedule struct {
	AsOf     time.Time `json:"as_of"`
	Current  float64   `json:"current"`
	Days30   float64   `json:"days_1_30"`
	Days60   float64   `json:"days_31_60"`
	Days90   float64   `json:"days_61_90"`
	Days91Up float64   `json:"days_91_plus"`
	Total    float64   `json:"total"`
}

// BucketFor returns the bucket label for a reference date at an as-of date.
func BucketFor(asOf, ref time.Time) string {
	switch days := DaysBetween(ref, asOf); {
	case days <= 0:
		return BucketCurrent
	case days <= 30:
		return Bucket1To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return Bucket91Plus
	}
}

// DaysBetween counts whole calendar days from one date to another,
// ignoring the time-of-day component. Crossing midnight counts as one day
// regardless of the hours involved.
func DaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// Classify partitions records into the schedule's buckets.
func Classify(asOf time.Time, records []Record) Schedule {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	schedule := Schedule{AsOf: asOf}
	for _, rec := range records {
		switch BucketFor(asOf, rec.ReferenceDate) {
		case BucketCurrent:
			schedule.Current += rec.Amount
		case Bucket1To30:
			schedule.Days30 += rec.Amount
		case Bucket31To60:
			schedule.Days60 += rec.Amount
		case Bucket61To90:
			schedule.Days90 += rec.Amount
		default:
			schedule.Days91Up += rec.Amount
		}
	}
	schedule.Current = shared.Round2(schedule.Current)
	schedule.Days30 = shared.Round2(schedule.Days30)
	schedule.Days60 = shared.Round2(schedule.Days60)
	schedule.Days90 = shared.Round2(schedule.Days90)
	schedule.Days91Up = shared.Round2(schedule.Days91Up)
	schedule.Total = shared.Round2(schedule.Current + schedule.Days30 + schedule.Days60 + schedule.Days90 + schedule.Days91Up)
	return schedule
}
