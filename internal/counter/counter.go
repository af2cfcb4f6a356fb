// Package counter keeps the persisted per-item impression counts and the
// excluded ("not interested") set. Counts live in a rollover window, the
// excluded set survives every rollover.
package counter

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"feedwarden/internal/assert"
	"feedwarden/internal/components/chrono"
	"feedwarden/internal/components/telemetry"
	"feedwarden/internal/kv"
)

const (
	report_store_read    = "store.read"
	report_store_corrupt = "store.corrupt"
	report_store_persist = "store.persist"
	report_store_rolled  = "store.rollover"
)

const DefaultKey = "feedwarden.snapshot"

// ErrStorageCorrupt is reported when the persisted snapshot cannot be parsed.
// It is never returned, the store recovers with an empty snapshot instead.
var ErrStorageCorrupt = errors.New("stored snapshot is corrupt")

// Snapshot is the persisted record.
type Snapshot struct {
	WindowKey string         `json:"window_key"`
	Counts    map[string]int `json:"counts"`
	Excluded  []string       `json:"excluded"`
}

type Options struct {
	// the kv key the snapshot is stored at, defaults to DefaultKey.
	Key string
	// clear counts whenever the window token changes.
	DailyReset bool
	Time       chrono.TimeAPI
	// Window derives the window token from the current time, defaults to chrono.DayToken.
	Window func(time.Time) string
	Tel    telemetry.API
}

// Store is the CounterStore. It is safe for concurrent use although the
// engine only ever calls it from the scheduler.
type Store struct {
	mu     sync.Mutex
	kv     kv.Store
	key    string
	daily  bool
	time   chrono.TimeAPI
	window func(time.Time) string
	tel    telemetry.API

	loaded    bool
	windowKey string
	counts    map[string]int
	excluded  map[string]struct{}
}

func NewStore(store kv.Store, opts Options) *Store {
	assert.NotNil(store)

	s := &Store{
		kv:     store,
		key:    opts.Key,
		daily:  opts.DailyReset,
		time:   opts.Time,
		window: opts.Window,
		tel:    opts.Tel,
	}
	if s.key == "" {
		s.key = DefaultKey
	}
	if s.time == nil {
		s.time = chrono.NewStandardTime(nil)
	}
	if s.window == nil {
		s.window = chrono.DayToken
	}
	if s.tel == nil {
		s.tel = telemetry.Nop{}
	}
	s.tel = telemetry.NewScopedAPI("counter", s.tel)
	return s
}

// CurrentWindowToken derives the window token from the clock at call time.
func (s *Store) CurrentWindowToken() string {
	return s.window(s.time.Now())
}

func (s *Store) reset(windowKey string) {
	s.windowKey = windowKey
	s.counts = map[string]int{}
	if s.excluded == nil {
		s.excluded = map[string]struct{}{}
	}
}

// load reads the snapshot the first time the store is accessed.
func (s *Store) load() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.excluded = nil
	s.reset(s.CurrentWindowToken())

	raw, ok, err := s.kv.Read(s.key)
	if err != nil {
		s.tel.ReportBroken(report_store_read, err, s.key)
		return
	}
	if !ok {
		return
	}

	var snapshot Snapshot
	err = json.Unmarshal([]byte(raw), &snapshot)
	if err != nil {
		s.tel.ReportBroken(report_store_corrupt, fmt.Errorf("%w: %w", ErrStorageCorrupt, err), s.key)
		return
	}

	s.windowKey = snapshot.WindowKey
	if snapshot.Counts != nil {
		s.counts = snapshot.Counts
	}
	for _, id := range snapshot.Excluded {
		s.excluded[id] = struct{}{}
	}
}

// access loads the snapshot and rolls it over when the window changed,
// it must be called with the lock held.
func (s *Store) access() {
	s.load()
	s.rollover()
}

func (s *Store) rollover() bool {
	if !s.daily {
		return false
	}
	token := s.CurrentWindowToken()
	if token == s.windowKey {
		return false
	}
	previous := s.windowKey
	s.reset(token)
	s.tel.ReportDebug(report_store_rolled, previous, token)
	_ = s.persist()
	return true
}

func (s *Store) snapshot() Snapshot {
	excluded := slices.Sorted(maps.Keys(s.excluded))
	if excluded == nil {
		excluded = []string{}
	}
	return Snapshot{
		WindowKey: s.windowKey,
		Counts:    maps.Clone(s.counts),
		Excluded:  excluded,
	}
}

func (s *Store) persist() error {
	serialized, err := json.Marshal(s.snapshot())
	if err != nil {
		s.tel.ReportBroken(report_store_persist, err, s.key)
		return err
	}
	err = s.kv.Write(s.key, string(serialized))
	if err != nil {
		s.tel.ReportBroken(report_store_persist, err, s.key)
		return err
	}
	return nil
}

// Rollover rolls the counts over if the window changed since the last access,
// it reports whether a rollover happened.
func (s *Store) Rollover() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	return s.rollover()
}

// Get returns the count of id in the current window, 0 if absent.
func (s *Store) Get(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access()
	return s.counts[id]
}

// Increment adds one to the count of id, persists, and returns the new count.
// The in-memory count is updated even when persisting fails.
func (s *Store) Increment(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access()
	s.counts[id]++
	return s.counts[id], s.persist()
}

func (s *Store) IsExcluded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access()
	_, ok := s.excluded[id]
	return ok
}

// Exclude adds id to the excluded set and persists.
func (s *Store) Exclude(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access()
	s.excluded[id] = struct{}{}
	return s.persist()
}

// Unexclude removes id from the excluded set and persists.
func (s *Store) Unexclude(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access()
	delete(s.excluded, id)
	return s.persist()
}

// Reset forgets the count of id in the current window.
func (s *Store) Reset(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access()
	delete(s.counts, id)
	return s.persist()
}

// ResetAll forgets every count in the current window, exclusions are kept.
func (s *Store) ResetAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access()
	s.counts = map[string]int{}
	return s.persist()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access()
	return s.snapshot()
}
