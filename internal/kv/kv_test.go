package kv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingStore struct {
	*Memory
	reads    int
	failNext bool
}

func (c *countingStore) Read(key string) (string, bool, error) {
	c.reads++
	return c.Memory.Read(key)
}

func (c *countingStore) Write(key, value string) error {
	if c.failNext {
		c.failNext = false
		return errors.New("disk full")
	}
	return c.Memory.Write(key, value)
}

func TestMemory(t *testing.T) {
	m := NewMemory()

	_, ok, err := m.Read("missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.Write("a", "1"))
	require.NoError(t, m.Write("a", "2"))
	value, ok, err := m.Read("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", value)
	require.Equal(t, 2, m.Writes())
}

func TestCachedReadsThrough(t *testing.T) {
	inner := &countingStore{Memory: NewMemory()}
	require.NoError(t, inner.Memory.Write("a", "1"))

	cached, err := NewCached(inner, 8)
	require.NoError(t, err)

	for range 3 {
		value, ok, err := cached.Read("a")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "1", value)
	}
	require.Equal(t, 1, inner.reads)

	_, ok, err := cached.Read("missing")
	require.NoError(t, err)
	require.False(t, ok)
	_, _, _ = cached.Read("missing")
	require.Equal(t, 2, inner.reads)
}

func TestCachedWriteFailureInvalidates(t *testing.T) {
	inner := &countingStore{Memory: NewMemory()}
	cached, err := NewCached(inner, 8)
	require.NoError(t, err)

	require.NoError(t, cached.Write("a", "1"))
	inner.failNext = true
	require.Error(t, cached.Write("a", "2"))

	value, ok, err := cached.Read("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", value)
}
