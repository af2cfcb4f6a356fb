package kvconfig

import (
	"context"
	"path/filepath"
	"testing"

	"feedwarden/internal/kv"

	"github.com/stretchr/testify/require"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()

	table := []struct {
		name   string
		config Struct
	}{
		{name: "memory", config: Struct{Driver: DriverMemory}},
		{name: "default sqlite", config: Struct{File: filepath.Join(t.TempDir(), "a.db")}},
		{name: "cached sqlite", config: Struct{Driver: DriverSqlite, File: filepath.Join(t.TempDir(), "b.db"), CacheSize: 16}},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			store, closer, err := row.config.Open(ctx)
			require.NoError(t, err)
			defer closer()

			require.NoError(t, store.Write("k", "v"))
			value, ok, err := store.Read("k")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "v", value)
		})
	}
}

func TestOpenCachedWrapsStore(t *testing.T) {
	store, closer, err := Struct{Driver: DriverMemory, CacheSize: 4}.Open(context.Background())
	require.NoError(t, err)
	defer closer()
	require.IsType(t, &kv.Cached{}, store)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, _, err := Struct{Driver: "etcd"}.Open(context.Background())
	require.ErrorContains(t, err, "etcd")

	_, _, err = Struct{Driver: DriverSqlite}.Open(context.Background())
	require.Error(t, err)

	_, _, err = Struct{Driver: DriverS3}.Open(context.Background())
	require.ErrorContains(t, err, "bucket")
}
