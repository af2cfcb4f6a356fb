package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDomain(t *testing.T) {
	cases := map[string]string{
		"https://www.Pinterest.com/": "pinterest.com",
		"  quora.com ":               "quora.com",
		"http://example.org":         "example.org",
		"":                           "",
	}
	for in, expected := range cases {
		require.Equal(t, expected, NormalizeDomain(in), in)
	}
}

func TestMatchDomain(t *testing.T) {
	blocked := []string{"pinterest.com", "", "www.quora.com"}
	require.True(t, MatchDomain("https://www.pinterest.com/pin/1", blocked))
	require.True(t, MatchDomain("https://QUORA.com/What-is", blocked))
	require.False(t, MatchDomain("https://example.com/", blocked))
	require.False(t, MatchDomain("https://example.com/", nil))
}

func TestClosest(t *testing.T) {
	best, score, ok := Closest("dQw4w9WgXcQ", []string{"abcdefghijk", "dQw4w9WgXcq", "zzz"})
	require.True(t, ok)
	require.Equal(t, "dQw4w9WgXcq", best)
	require.InDelta(t, 1.0, score, 0.001)

	_, _, ok = Closest("x", nil)
	require.False(t, ok)
}

func TestMatchName(t *testing.T) {
	require.True(t, MatchName("Not  Interested", []string{"notinterested"}))
	require.False(t, MatchName("Undo", []string{"notinterested"}))
}
