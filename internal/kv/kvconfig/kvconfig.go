package kvconfig

import (
	"context"
	"fmt"

	"feedwarden/internal/kv"
	"feedwarden/internal/kv/pgkv"
	"feedwarden/internal/kv/s3kv"
	"feedwarden/internal/kv/sqlkv"
)

const (
	DriverMemory   = "memory"
	DriverSqlite   = "sqlite"
	DriverLibsql   = "libsql"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
)

// Struct selects and configures the persisted key-value store.
type Struct struct {
	// one of memory, sqlite, libsql, postgres, s3. defaults to sqlite.
	Driver string `json:"driver" yaml:"driver"`
	// the sqlite database file, used by the sqlite driver.
	File string `json:"file" yaml:"file"`
	// the connection url, used by the libsql and postgres drivers.
	Url       string `json:"url" yaml:"url"`
	AuthToken string `json:"auth_token" yaml:"auth_token"`
	// the bucket settings, used by the s3 driver. credentials fall back to
	// the default aws chain.
	Bucket          string `json:"bucket" yaml:"bucket"`
	Region          string `json:"region" yaml:"region"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	PathStyle       bool   `json:"path_style" yaml:"path_style"`
	Prefix          string `json:"prefix" yaml:"prefix"`
	AccessKeyId     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	// the number of keys kept in the read cache, 0 disables the cache.
	CacheSize int `json:"cache_size" yaml:"cache_size"`
}

func (config Struct) driver() string {
	if config.Driver == "" {
		return DriverSqlite
	}
	return config.Driver
}

// Open returns the configured store and a function releasing its resources.
func (config Struct) Open(ctx context.Context) (kv.Store, func() error, error) {
	store, closer, err := config.open(ctx)
	if err != nil {
		return nil, nil, err
	}
	if config.CacheSize > 0 {
		cached, err := kv.NewCached(store, config.CacheSize)
		if err != nil {
			closer()
			return nil, nil, err
		}
		return cached, closer, nil
	}
	return store, closer, nil
}

func (config Struct) open(ctx context.Context) (kv.Store, func() error, error) {
	noop := func() error { return nil }

	switch config.driver() {
	case DriverMemory:
		return kv.NewMemory(), noop, nil
	case DriverSqlite:
		db, err := sqlkv.OpenSqlite(config.File)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		store, err := sqlkv.New(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil
	case DriverLibsql:
		db, err := sqlkv.OpenLibsql(config.Url, config.AuthToken)
		if err != nil {
			return nil, nil, fmt.Errorf("open libsql: %w", err)
		}
		store, err := sqlkv.New(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil
	case DriverPostgres:
		store, err := pgkv.Open(ctx, config.Url)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case DriverS3:
		store, err := s3kv.New(ctx, s3kv.Config{
			Bucket:          config.Bucket,
			Region:          config.Region,
			Endpoint:        config.Endpoint,
			PathStyle:       config.PathStyle,
			Prefix:          config.Prefix,
			AccessKeyID:     config.AccessKeyId,
			SecretAccessKey: config.SecretAccessKey,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open s3: %w", err)
		}
		return store, noop, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", config.Driver)
}
