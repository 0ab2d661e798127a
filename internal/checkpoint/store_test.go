package checkpoint

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bova-research/dcatlas/pkg/geocode"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := New(dbPath, 24*time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// --- Runs ---

func TestStore_CreateAndGetRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "datacenters.csv")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "datacenters.csv", got.Input)
	assert.Nil(t, got.Summary)
}

func TestStore_CompleteRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "datacenters.csv")
	require.NoError(t, err)

	sum := &RunSummary{
		Total:      100,
		Kept:       80,
		Geocoded:   12,
		Secret:     5,
		Dropped:    3,
		ByProvider: map[string]int{"census": 10, "google": 2},
	}
	require.NoError(t, st.CompleteRun(ctx, run.ID, sum))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusComplete, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 80, got.Summary.Kept)
	assert.Equal(t, 10, got.Summary.ByProvider["census"])
}

func TestStore_CompleteRun_NotFound(t *testing.T) {
	st := newTestStore(t)

	err := st.CompleteRun(context.Background(), "no-such-run", &RunSummary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStore_FailRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "datacenters.csv")
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
}

func TestStore_LatestRun_Empty(t *testing.T) {
	st := newTestStore(t)

	run, err := st.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestStore_ResumableRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first, err := st.CreateRun(ctx, "datacenters.csv")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, first.ID, &RunSummary{}))

	second, err := st.CreateRun(ctx, "datacenters.csv")
	require.NoError(t, err)

	got, err := st.ResumableRun(ctx, "datacenters.csv")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)

	// Other inputs have nothing to resume.
	got, err = st.ResumableRun(ctx, "other.csv")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_ListRuns(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for range 3 {
		_, err := st.CreateRun(ctx, "datacenters.csv")
		require.NoError(t, err)
	}

	runs, err := st.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

// --- Resolutions ---

func TestStore_MarkResolvedAndFetch(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "datacenters.csv")
	require.NoError(t, err)

	require.NoError(t, st.MarkResolved(ctx, run.ID, Resolution{RecordID: "dc-1", Outcome: OutcomeKept}))
	require.NoError(t, st.MarkResolved(ctx, run.ID, Resolution{RecordID: "dc-2", Outcome: OutcomeDropped, Detail: "outside_conus"}))

	res, err := st.Resolutions(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, OutcomeKept, res["dc-1"].Outcome)
	assert.Equal(t, "outside_conus", res["dc-2"].Detail)
}

func TestStore_MarkResolved_Replaces(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "datacenters.csv")
	require.NoError(t, err)

	require.NoError(t, st.MarkResolved(ctx, run.ID, Resolution{RecordID: "dc-1", Outcome: OutcomeSecret}))
	require.NoError(t, st.MarkResolved(ctx, run.ID, Resolution{RecordID: "dc-1", Outcome: OutcomeKept}))

	res, err := st.Resolutions(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, OutcomeKept, res["dc-1"].Outcome)
}

func TestStore_CountOutcomes(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "datacenters.csv")
	require.NoError(t, err)

	require.NoError(t, st.MarkResolved(ctx, run.ID, Resolution{RecordID: "dc-1", Outcome: OutcomeKept}))
	require.NoError(t, st.MarkResolved(ctx, run.ID, Resolution{RecordID: "dc-2", Outcome: OutcomeKept}))
	require.NoError(t, st.MarkResolved(ctx, run.ID, Resolution{RecordID: "dc-3", Outcome: OutcomeDropped}))

	counts, err := st.CountOutcomes(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[OutcomeKept])
	assert.Equal(t, 1, counts[OutcomeDropped])
}

// --- Geocode cache ---

func TestStore_GeocodeCache_PutAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	want := &geocode.Result{
		Latitude:  39.0438,
		Longitude: -77.4874,
		Source:    "census",
		Quality:   "rooftop",
		Matched:   true,
	}
	require.NoError(t, st.PutGeocode(ctx, "key-1", want))

	got, ok, err := st.GetGeocode(ctx, "key-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Latitude, got.Latitude)
	assert.Equal(t, "census", got.Source)
}

func TestStore_GeocodeCache_Missing(t *testing.T) {
	st := newTestStore(t)

	_, ok, err := st.GetGeocode(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_GeocodeCache_NegativeResult(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutGeocode(ctx, "key-miss", &geocode.Result{Matched: false, Source: "cascade"}))

	got, ok, err := st.GetGeocode(ctx, "key-miss")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.Matched)
}

func TestStore_GeocodeCache_Expired(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := New(dbPath, -1*time.Hour) // everything written is already expired
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	require.NoError(t, st.PutGeocode(ctx, "key-old", &geocode.Result{Matched: true}))

	_, ok, err := st.GetGeocode(ctx, "key-old")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := st.PruneExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_GeocodeCache_Overwrite(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutGeocode(ctx, "key-ow", &geocode.Result{Matched: false}))
	require.NoError(t, st.PutGeocode(ctx, "key-ow", &geocode.Result{Matched: true, Source: "google"}))

	got, ok, err := st.GetGeocode(ctx, "key-ow")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Matched)
	assert.Equal(t, "google", got.Source)
}
