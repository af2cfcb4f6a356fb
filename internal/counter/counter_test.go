package counter

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"feedwarden/internal/components/telemetry"
	"feedwarden/internal/kv"

	"github.com/google/go-cmp/cmp"
	"github.com/mazen160/go-random"
	"github.com/stretchr/testify/require"
)

type fakeTime struct {
	now time.Time
}

func (f *fakeTime) Now() time.Time {
	return f.now
}

// weekday tokens make the rollover tests read like "Mon" -> "Tue".
func weekday(t time.Time) string {
	return t.Weekday().String()[:3]
}

var monday = time.Date(2024, time.August, 26, 9, 0, 0, 0, time.UTC)

type failingStore struct {
	*kv.Memory
	failWrites bool
	failReads  bool
}

func (f *failingStore) Read(key string) (string, bool, error) {
	if f.failReads {
		return "", false, errors.New("io error")
	}
	return f.Memory.Read(key)
}

func (f *failingStore) Write(key, value string) error {
	if f.failWrites {
		return errors.New("disk full")
	}
	return f.Memory.Write(key, value)
}

func newTestStore(t *testing.T, backing kv.Store, clock *fakeTime, daily bool) (*Store, *telemetry.Recorder) {
	t.Helper()
	tel := &telemetry.Recorder{}
	return NewStore(backing, Options{
		DailyReset: daily,
		Time:       clock,
		Window:     weekday,
		Tel:        tel,
	}), tel
}

func persisted(t *testing.T, backing kv.Store) Snapshot {
	t.Helper()
	raw, ok, err := backing.Read(DefaultKey)
	require.NoError(t, err)
	require.True(t, ok, "snapshot was never persisted")
	var snapshot Snapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &snapshot))
	return snapshot
}

func TestIncrementPersistsEveryCall(t *testing.T) {
	backing := kv.NewMemory()
	store, _ := newTestStore(t, backing, &fakeTime{now: monday}, true)

	require.Equal(t, 0, store.Get("a"))
	for i := 1; i <= 5; i++ {
		n, err := store.Increment("a")
		require.NoError(t, err)
		require.Equal(t, i, n)
		require.Equal(t, i, persisted(t, backing).Counts["a"])
	}
	require.Equal(t, 5, store.Get("a"))
	require.Equal(t, 0, store.Get("b"))
}

func TestIncrementRandomIds(t *testing.T) {
	backing := kv.NewMemory()
	store, _ := newTestStore(t, backing, &fakeTime{now: monday}, true)

	expected := map[string]int{}
	for range 20 {
		id, err := random.String(11)
		require.NoError(t, err)
		for j := range 3 {
			n, err := store.Increment(id)
			require.NoError(t, err)
			require.Equal(t, j+1, n)
		}
		expected[id] = 3
	}

	diff := cmp.Diff(expected, persisted(t, backing).Counts)
	require.Empty(t, diff)
}

func TestExcludeIdempotent(t *testing.T) {
	once := kv.NewMemory()
	twice := kv.NewMemory()
	clock := &fakeTime{now: monday}

	a, _ := newTestStore(t, once, clock, true)
	require.NoError(t, a.Exclude("x"))

	b, _ := newTestStore(t, twice, clock, true)
	require.NoError(t, b.Exclude("x"))
	require.NoError(t, b.Exclude("x"))

	require.Empty(t, cmp.Diff(persisted(t, once), persisted(t, twice)))
	require.True(t, b.IsExcluded("x"))

	require.NoError(t, a.Unexclude("x"))
	require.NoError(t, b.Unexclude("x"))
	require.NoError(t, b.Unexclude("x"))
	require.Empty(t, cmp.Diff(persisted(t, once), persisted(t, twice)))
	require.False(t, b.IsExcluded("x"))
	require.Equal(t, []string{}, persisted(t, twice).Excluded)
}

func seed(t *testing.T, backing kv.Store, snapshot Snapshot) {
	t.Helper()
	serialized, err := json.Marshal(snapshot)
	require.NoError(t, err)
	require.NoError(t, backing.Write(DefaultKey, string(serialized)))
}

func TestRollover(t *testing.T) {
	backing := kv.NewMemory()
	seed(t, backing, Snapshot{
		WindowKey: "Mon",
		Counts:    map[string]int{"a": 2},
		Excluded:  []string{"x"},
	})

	store, _ := newTestStore(t, backing, &fakeTime{now: monday.Add(24 * time.Hour)}, true)

	require.Equal(t, 0, store.Get("a"))
	require.True(t, store.IsExcluded("x"))

	snapshot := persisted(t, backing)
	require.Equal(t, "Tue", snapshot.WindowKey)
	require.Empty(t, snapshot.Counts)
	require.Equal(t, []string{"x"}, snapshot.Excluded)
}

func TestRolloverOncePerChange(t *testing.T) {
	backing := kv.NewMemory()
	seed(t, backing, Snapshot{WindowKey: "Mon", Counts: map[string]int{"a": 2}})

	clock := &fakeTime{now: monday.Add(24 * time.Hour)}
	store, _ := newTestStore(t, backing, clock, true)

	require.True(t, store.Rollover())
	writes := backing.Writes()
	require.False(t, store.Rollover())
	store.Get("a")
	store.IsExcluded("a")
	require.Equal(t, writes, backing.Writes())

	n, err := store.Increment("a")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	clock.now = clock.now.Add(24 * time.Hour)
	require.Equal(t, 0, store.Get("a"))
	require.Equal(t, "Wed", persisted(t, backing).WindowKey)
}

func TestRolloverDisabled(t *testing.T) {
	backing := kv.NewMemory()
	seed(t, backing, Snapshot{WindowKey: "Mon", Counts: map[string]int{"a": 2}})

	store, _ := newTestStore(t, backing, &fakeTime{now: monday.Add(24 * time.Hour)}, false)
	require.False(t, store.Rollover())
	require.Equal(t, 2, store.Get("a"))

	n, err := store.Increment("a")
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, "Mon", persisted(t, backing).WindowKey)
}

func TestCorruptSnapshotRecovers(t *testing.T) {
	backing := kv.NewMemory()
	require.NoError(t, backing.Write(DefaultKey, "{not json"))

	store, tel := newTestStore(t, backing, &fakeTime{now: monday}, true)
	require.Equal(t, 0, store.Get("a"))
	require.False(t, store.IsExcluded("a"))

	reports := tel.Find(telemetry.KindBroken, report_store_corrupt)
	require.Len(t, reports, 1)
	require.ErrorIs(t, reports[0].Params[0].(error), ErrStorageCorrupt)

	n, err := store.Increment("a")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, persisted(t, backing).Counts["a"])
}

func TestStorageErrorsDoNotBlock(t *testing.T) {
	backing := &failingStore{Memory: kv.NewMemory(), failReads: true, failWrites: true}
	store, tel := newTestStore(t, backing, &fakeTime{now: monday}, true)

	require.Equal(t, 0, store.Get("a"))
	n, err := store.Increment("a")
	require.Error(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, store.Get("a"))

	require.NotEmpty(t, tel.Find(telemetry.KindBroken, report_store_read))
	require.NotEmpty(t, tel.Find(telemetry.KindBroken, report_store_persist))
}

func TestResetKeepsExclusions(t *testing.T) {
	backing := kv.NewMemory()
	store, _ := newTestStore(t, backing, &fakeTime{now: monday}, true)

	_, err := store.Increment("a")
	require.NoError(t, err)
	_, err = store.Increment("b")
	require.NoError(t, err)
	require.NoError(t, store.Exclude("x"))

	require.NoError(t, store.Reset("a"))
	require.Equal(t, 0, store.Get("a"))
	require.Equal(t, 1, store.Get("b"))

	require.NoError(t, store.ResetAll())
	snapshot := store.Snapshot()
	require.Empty(t, snapshot.Counts)
	require.Equal(t, []string{"x"}, snapshot.Excluded)
}

func TestLoadedLazilyOnce(t *testing.T) {
	backing := kv.NewMemory()
	store, _ := newTestStore(t, backing, &fakeTime{now: monday}, true)

	seed(t, backing, Snapshot{WindowKey: "Mon", Counts: map[string]int{"a": 4}})
	require.Equal(t, 4, store.Get("a"))

	// writes behind the store's back are not observed after the first access
	seed(t, backing, Snapshot{WindowKey: "Mon", Counts: map[string]int{"a": 9}})
	require.Equal(t, 4, store.Get("a"))
}

func TestCurrentWindowTokenDefaultsToDay(t *testing.T) {
	store := NewStore(kv.NewMemory(), Options{Time: &fakeTime{now: monday}})
	require.Equal(t, "2024-08-26", store.CurrentWindowToken())
}
