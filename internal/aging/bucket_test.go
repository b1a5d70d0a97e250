package aging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBucketForBoundaries(t *testing.T) {
	asOf := day(2024, 3, 1)

	cases := []struct {
		ref    time.Time
		bucket string
	}{
		{day(2024, 3, 1), BucketCurrent},
		{day(2024, 3, 15), BucketCurrent},
		{day(2024, 2, 29), Bucket1To30},
		{day(2024, 1, 31), Bucket1To30},
		{day(2024, 1, 30), Bucket31To60},
		{day(2024, 1, 1), Bucket31To60},
		{day(2023, 12, 31), Bucket61To90},
		{day(2023, 12, 2), Bucket61To90},
		{day(2023, 12, 1), Bucket91Plus},
		{day(2023, 6, 1), Bucket91Plus},
	}
	for _, tc := range cases {
		require.Equal(t, tc.bucket, BucketFor(asOf, tc.ref), "ref=%s", tc.ref.Format("2006-01-02"))
	}
}

func TestBucketFor46DaysOverdue(t *testing.T) {
	asOf := day(2024, 3, 1)
	due := day(2024, 1, 15)
	require.Equal(t, 46, DaysBetween(due, asOf))
	require.Equal(t, Bucket31To60, BucketFor(asOf, due))
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	from := time.Date(2024, 1, 15, 23, 30, 0, 0, time.UTC)
	to := time.Date(2024, 1, 16, 0, 10, 0, 0, time.UTC)
	require.Equal(t, 1, DaysBetween(from, to))
	require.Equal(t, -1, DaysBetween(to, from))
	require.Equal(t, 0, DaysBetween(from, from))
}

func TestClassifyPartitionsEveryRecord(t *testing.T) {
	asOf := day(2024, 3, 1)
	records := []Record{
		{Amount: 100, ReferenceDate: day(2024, 3, 10)},  // current
		{Amount: 200, ReferenceDate: day(2024, 2, 20)},  // 1-30
		{Amount: 300, ReferenceDate: day(2024, 1, 15)},  // 31-60
		{Amount: 400, ReferenceDate: day(2023, 12, 15)}, // 61-90
		{Amount: 500, ReferenceDate: day(2023, 10, 1)},  // 91+
	}

	schedule := Classify(asOf, records)
	require.InDelta(t, 100.0, schedule.Current, 0.001)
	require.InDelta(t, 200.0, schedule.Days30, 0.001)
	require.InDelta(t, 300.0, schedule.Days60, 0.001)
	require.InDelta(t, 400.0, schedule.Days90, 0.001)
	require.InDelta(t, 500.0, schedule.Days91Up, 0.001)
	require.InDelta(t, 1500.0, schedule.Total, 0.001)
}

func TestClassifyBucketsSumToGrandTotal(t *testing.T) {
	asOf := day(2024, 6, 1)
	var records []Record
	var grand float64
	for i := 0; i < 200; i++ {
		amount := float64(i)*1.13 + 0.07
		records = append(records, Record{
			Amount:        amount,
			ReferenceDate: asOf.AddDate(0, 0, -i+20),
		})
		grand += amount
	}

	schedule := Classify(asOf, records)
	sum := schedule.Current + schedule.Days30 + schedule.Days60 + schedule.Days90 + schedule.Days91Up
	require.InDelta(t, schedule.Total, sum, 0.001)
	require.InDelta(t, grand, schedule.Total, 0.05)
}

func TestClassifyEmptyRecords(t *testing.T) {
	schedule := Classify(day(2024, 3, 1), nil)
	require.Zero(t, schedule.Total)
	require.Zero(t, schedule.Current)
}
