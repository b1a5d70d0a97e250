package recurring

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quillbooks/quillbooks/internal/invoicing"
	"github.com/quillbooks/quillbooks/internal/shared"
)

type memoryRepo struct {
	nextID     int64
	profiles   map[int64]*Profile
	advanceErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{profiles: map[int64]*Profile{}}
}

func (r *memoryRepo) InsertProfile(ctx context.Context, profile Profile) (*Profile, error) {
	r.nextID++
	profile.ID = r.nextID
	r.profiles[profile.ID] = &profile
	return &profile, nil
}

func (r *memoryRepo) GetProfile(ctx context.Context, id int64) (*Profile, error) {
	profile, ok := r.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

func (r *memoryRepo) ListProfiles(ctx context.Context) ([]Profile, error) {
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, *p)
	}
	return out, nil
}

func (r *memoryRepo) ListDue(ctx context.Context, asOf time.Time) ([]Profile, error) {
	var due []Profile
	for _, p := range r.profiles {
		if p.Status == ProfileStatusActive && !p.NextRunAt.After(asOf) {
			due = append(due, *p)
		}
	}
	return due, nil
}

func (r *memoryRepo) SetStatus(ctx context.Context, id int64, status ProfileStatus) error {
	profile, ok := r.profiles[id]
	if !ok {
		return ErrProfileNotFound
	}
	profile.Status = status
	return nil
}

func (r *memoryRepo) AdvanceNextRun(ctx context.Context, id int64, nextRunAt time.Time) error {
	if r.advanceErr != nil {
		err := r.advanceErr
		r.advanceErr = nil
		return err
	}
	profile, ok := r.profiles[id]
	if !ok {
		return ErrProfileNotFound
	}
	profile.NextRunAt = nextRunAt
	return nil
}

type memoryIssuer struct {
	created []invoicing.CreateInvoiceInput
	err     error
}

func (i *memoryIssuer) Create(ctx context.Context, input invoicing.CreateInvoiceInput) (*invoicing.Invoice, error) {
	if i.err != nil {
		return nil, i.err
	}
	i.created = append(i.created, input)
	return &invoicing.Invoice{ID: int64(len(i.created)), CustomerID: input.CustomerID}, nil
}

type memoryIdem struct {
	keys    map[string]bool
	deleted []string
}

func newMemoryIdem() *memoryIdem {
	return &memoryIdem{keys: map[string]bool{}}
}

func (i *memoryIdem) CheckAndInsert(ctx context.Context, key, module string) error {
	if i.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	i.keys[key] = true
	return nil
}

func (i *memoryIdem) Delete(ctx context.Context, key string) error {
	delete(i.keys, key)
	i.deleted = append(i.deleted, key)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func activeProfile(repo *memoryRepo, freq Frequency, nextRun time.Time) *Profile {
	profile, _ := repo.InsertProfile(context.Background(), Profile{
		CustomerID: 7,
		Frequency:  freq,
		DueInDays:  14,
		Tax:        0,
		Status:     ProfileStatusActive,
		NextRunAt:  nextRun,
		Lines: []ProfileLine{
			{ItemID: 1, Description: "Retainer", Quantity: 1, UnitPrice: 500},
		},
	})
	return profile
}

func TestRunDueIssuesInvoiceAndAdvancesSchedule(t *testing.T) {
	repo := newMemoryRepo()
	issuer := &memoryIssuer{}
	idem := newMemoryIdem()
	svc := NewService(testLogger(), repo, issuer, idem)

	runDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	profile := activeProfile(repo, FrequencyMonthly, runDate)

	issued, err := svc.RunDue(context.Background(), runDate)
	require.NoError(t, err)
	require.Equal(t, 1, issued)
	require.Len(t, issuer.created, 1)

	created := issuer.created[0]
	require.Equal(t, int64(7), created.CustomerID)
	require.Equal(t, runDate, created.IssueDate)
	require.Equal(t, runDate.AddDate(0, 0, 14), created.DueDate)
	require.Len(t, created.Lines, 1)
	require.InDelta(t, 500.0, created.Lines[0].UnitPrice, 0.001)

	stored, err := repo.GetProfile(context.Background(), profile.ID)
	require.NoError(t, err)
	require.Equal(t, runDate.AddDate(0, 1, 0), stored.NextRunAt)
}

func TestRunDueSkipsAlreadyMaterializedProfiles(t *testing.T) {
	repo := newMemoryRepo()
	issuer := &memoryIssuer{}
	idem := newMemoryIdem()
	svc := NewService(testLogger(), repo, issuer, idem)

	runDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	profile := activeProfile(repo, FrequencyWeekly, runDate)
	idem.keys["recurring:1:2024-03-01"] = true

	issued, err := svc.RunDue(context.Background(), runDate)
	require.NoError(t, err)
	require.Zero(t, issued)
	require.Empty(t, issuer.created)

	stored, err := repo.GetProfile(context.Background(), profile.ID)
	require.NoError(t, err)
	require.Equal(t, runDate.AddDate(0, 0, 7), stored.NextRunAt, "a handled run date still advances the schedule")
}

func TestRunDueRecoversAfterFailedScheduleAdvance(t *testing.T) {
	repo := newMemoryRepo()
	issuer := &memoryIssuer{}
	idem := newMemoryIdem()
	svc := NewService(testLogger(), repo, issuer, idem)

	runDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	profile := activeProfile(repo, FrequencyMonthly, runDate)
	repo.advanceErr = errors.New("connection reset")

	// The invoice is issued but the schedule advance fails, leaving the
	// idempotency key behind with next_run_at frozen.
	issued, err := svc.RunDue(context.Background(), runDate)
	require.NoError(t, err)
	require.Zero(t, issued)
	require.Len(t, issuer.created, 1)

	stored, err := repo.GetProfile(context.Background(), profile.ID)
	require.NoError(t, err)
	require.Equal(t, runDate, stored.NextRunAt)

	// The next run hits the key, does not double-issue March and unfreezes
	// the schedule.
	issued, err = svc.RunDue(context.Background(), runDate)
	require.NoError(t, err)
	require.Zero(t, issued)
	require.Len(t, issuer.created, 1)

	stored, err = repo.GetProfile(context.Background(), profile.ID)
	require.NoError(t, err)
	require.Equal(t, runDate.AddDate(0, 1, 0), stored.NextRunAt)

	// April materializes normally.
	april := runDate.AddDate(0, 1, 0)
	issued, err = svc.RunDue(context.Background(), april)
	require.NoError(t, err)
	require.Equal(t, 1, issued)
	require.Len(t, issuer.created, 2)
	require.Equal(t, april, issuer.created[1].IssueDate)
}

func TestRunDueReleasesKeyWhenIssuingFails(t *testing.T) {
	repo := newMemoryRepo()
	issuer := &memoryIssuer{err: errors.New("item out of stock")}
	idem := newMemoryIdem()
	svc := NewService(testLogger(), repo, issuer, idem)

	runDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	profile := activeProfile(repo, FrequencyMonthly, runDate)

	issued, err := svc.RunDue(context.Background(), runDate)
	require.NoError(t, err)
	require.Zero(t, issued)
	require.Equal(t, []string{"recurring:1:2024-03-01"}, idem.deleted)

	stored, err := repo.GetProfile(context.Background(), profile.ID)
	require.NoError(t, err)
	require.Equal(t, runDate, stored.NextRunAt)

	// Retry after the failure is fixed.
	issuer.err = nil
	issued, err = svc.RunDue(context.Background(), runDate)
	require.NoError(t, err)
	require.Equal(t, 1, issued)
}

func TestRunDueIgnoresPausedAndFutureProfiles(t *testing.T) {
	repo := newMemoryRepo()
	issuer := &memoryIssuer{}
	idem := newMemoryIdem()
	svc := NewService(testLogger(), repo, issuer, idem)

	runDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	paused := activeProfile(repo, FrequencyMonthly, runDate)
	require.NoError(t, svc.Pause(context.Background(), paused.ID))
	activeProfile(repo, FrequencyMonthly, runDate.AddDate(0, 0, 5))

	issued, err := svc.RunDue(context.Background(), runDate)
	require.NoError(t, err)
	require.Zero(t, issued)
	require.Empty(t, issuer.created)
}

func TestCreateProfileValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(testLogger(), repo, &memoryIssuer{}, newMemoryIdem())
	ctx := context.Background()

	valid := CreateProfileInput{
		CustomerID: 1,
		Frequency:  FrequencyMonthly,
		DueInDays:  30,
		Lines:      []invoicing.LineItemInput{{ItemID: 1, Quantity: 1, UnitPrice: 10}},
	}

	cases := []struct {
		name   string
		mutate func(in *CreateProfileInput)
	}{
		{"missing customer", func(in *CreateProfileInput) { in.CustomerID = 0 }},
		{"unknown frequency", func(in *CreateProfileInput) { in.Frequency = "DAILY" }},
		{"negative due days", func(in *CreateProfileInput) { in.DueInDays = -1 }},
		{"negative tax", func(in *CreateProfileInput) { in.Tax = -0.1 }},
		{"no lines", func(in *CreateProfileInput) { in.Lines = nil }},
		{"line missing item", func(in *CreateProfileInput) { in.Lines[0].ItemID = 0 }},
		{"line zero quantity", func(in *CreateProfileInput) { in.Lines[0].Quantity = 0 }},
		{"line negative price", func(in *CreateProfileInput) { in.Lines[0].UnitPrice = -5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			input.Lines = []invoicing.LineItemInput{valid.Lines[0]}
			tc.mutate(&input)
			_, err := svc.CreateProfile(ctx, input)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}

	profile, err := svc.CreateProfile(ctx, valid)
	require.NoError(t, err)
	require.Equal(t, ProfileStatusActive, profile.Status)
	require.False(t, profile.NextRunAt.IsZero())
}

func TestFrequencyAdvance(t *testing.T) {
	from := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		freq Frequency
		want time.Time
	}{
		{FrequencyWeekly, time.Date(2024, 2, 7, 0, 0, 0, 0, time.UTC)},
		{FrequencyMonthly, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
		{FrequencyQuarterly, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{FrequencyYearly, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.freq.Advance(from), string(tc.freq))
	}
}
