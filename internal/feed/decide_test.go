package feed

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeCounters struct {
	counts     map[string]int
	excluded   map[string]bool
	increments int
	err        error
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{counts: map[string]int{}, excluded: map[string]bool{}}
}

func (f *fakeCounters) Get(id string) int {
	return f.counts[id]
}

func (f *fakeCounters) Increment(id string) (int, error) {
	f.increments++
	f.counts[id]++
	return f.counts[id], f.err
}

func (f *fakeCounters) IsExcluded(id string) bool {
	return f.excluded[id]
}

func TestDecide(t *testing.T) {
	cases := []struct {
		name      string
		count     int
		excluded  bool
		threshold int
		expect    Decision
		increment bool
	}{
		{name: "first sighting", threshold: 3, expect: Decision{Kind: Annotated, Count: 1}, increment: true},
		{name: "below threshold", count: 1, threshold: 3, expect: Decision{Kind: Annotated, Count: 2}, increment: true},
		{name: "at threshold minus one", count: 2, threshold: 3, expect: Decision{Kind: Hidden}},
		{name: "past threshold", count: 7, threshold: 3, expect: Decision{Kind: Hidden}},
		{name: "excluded", threshold: 3, excluded: true, expect: Decision{Kind: Hidden}},
		{name: "excluded with counting disabled", threshold: 0, excluded: true, expect: Decision{Kind: Hidden}},
		{name: "disabled", count: 50, threshold: 0, expect: Decision{Kind: Visible}},
		{name: "threshold one hides everything", threshold: 1, expect: Decision{Kind: Hidden}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			counters := newFakeCounters()
			counters.counts["abc"] = c.count
			counters.excluded["abc"] = c.excluded

			decision, err := Decide(counters, "abc", c.threshold)
			require.NoError(t, err)
			require.Equal(t, c.expect, decision)
			if c.increment {
				require.Equal(t, 1, counters.increments)
				require.Equal(t, c.count+1, counters.counts["abc"])
			} else {
				require.Equal(t, 0, counters.increments)
				require.Equal(t, c.count, counters.counts["abc"])
			}
		})
	}
}

func TestDecidePersistFailureKeepsDecision(t *testing.T) {
	counters := newFakeCounters()
	counters.err = errors.New("quota exceeded")

	decision, err := Decide(counters, "abc", 3)
	require.Error(t, err)
	require.Equal(t, Decision{Kind: Annotated, Count: 1}, decision)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "hidden", Hidden.String())
	require.Equal(t, "attached", Attached.String())
}
