package aging

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	receivables []Record
	payables    []Record
}

func (r *memoryRepo) ListOutstandingReceivables(ctx context.Context) ([]Record, error) {
	return r.receivables, nil
}

func (r *memoryRepo) ListOpenPayables(ctx context.Context) ([]Record, error) {
	return r.payables, nil
}

func TestReceivablesSchedule(t *testing.T) {
	repo := &memoryRepo{receivables: []Record{
		{Amount: 100, ReferenceDate: day(2024, 1, 15)},
		{Amount: 50, ReferenceDate: day(2024, 3, 10)},
	}}
	svc := NewService(repo)

	schedule, err := svc.Receivables(context.Background(), day(2024, 3, 1))
	require.NoError(t, err)
	require.InDelta(t, 100.0, schedule.Days60, 0.001)
	require.InDelta(t, 50.0, schedule.Current, 0.001)
	require.InDelta(t, 150.0, schedule.Total, 0.001)
}

func TestPayablesTreatedAsImmediatelyDue(t *testing.T) {
	repo := &memoryRepo{payables: []Record{
		{Amount: 240, ReferenceDate: day(2024, 1, 16)},
	}}
	svc := NewService(repo)

	schedule, err := svc.Payables(context.Background(), day(2024, 3, 1))
	require.NoError(t, err)
	require.InDelta(t, 240.0, schedule.Days60, 0.001)
	require.InDelta(t, 240.0, schedule.Total, 0.001)
}

func TestCacheFetchPopulatesAndReuses(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	builds := 0
	loader := func(ctx context.Context) (Schedule, error) {
		builds++
		return Schedule{AsOf: day(2024, 3, 1), Current: 42, Total: 42}, nil
	}

	first, err := cache.Fetch(ctx, "aging:test:2024-03-01", loader)
	require.NoError(t, err)
	require.InDelta(t, 42.0, first.Total, 0.001)
	require.Equal(t, 1, builds)

	second, err := cache.Fetch(ctx, "aging:test:2024-03-01", loader)
	require.NoError(t, err)
	require.InDelta(t, 42.0, second.Total, 0.001)
	require.Equal(t, 1, builds)

	// Past the TTL the snapshot expires and the loader runs again.
	srv.FastForward(2 * time.Minute)
	_, err = cache.Fetch(ctx, "aging:test:2024-03-01", loader)
	require.NoError(t, err)
	require.Equal(t, 2, builds)
}

func TestCacheNilClientCallsLoader(t *testing.T) {
	cache := NewCache(nil, time.Minute)
	schedule, err := cache.Fetch(context.Background(), "k", func(ctx context.Context) (Schedule, error) {
		return Schedule{Total: 7}, nil
	})
	require.NoError(t, err)
	require.InDelta(t, 7.0, schedule.Total, 0.001)
}

func TestWriteScheduleCSV(t *testing.T) {
	schedule := Schedule{
		AsOf:    day(2024, 3, 1),
		Current: 1250.5,
		Days60:  100,
		Total:   1350.5,
	}
	var buf bytes.Buffer
	require.NoError(t, WriteScheduleCSV(&buf, "Receivables Aging", schedule))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "Report,Receivables Aging\n"))
	require.Contains(t, out, "As Of,2024-03-01")
	require.Contains(t, out, "Current,\"1,250.50\"")
	require.Contains(t, out, "31-60 Days,100.00")
	require.Contains(t, out, "Total,\"1,350.50\"")
}
