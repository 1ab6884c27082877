// Package backend opens the configured kv.Store implementation.
package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"quiz-desk/internal/kv"
	"quiz-desk/internal/kv/postgres"
	"quiz-desk/internal/kv/sqlite"
)

type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

type Options struct {
	Driver       Driver
	SQLitePath   string
	PostgresDSN  string
	PollInterval time.Duration
}

func Open(ctx context.Context, opts Options) (kv.Store, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(string(opts.Driver)))) {
	case DriverMemory:
		return kv.NewMemoryStore(), nil
	case DriverSQLite, "":
		store, err := sqlite.NewStore(opts.SQLitePath, opts.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case DriverPostgres:
		if strings.TrimSpace(opts.PostgresDSN) == "" {
			return nil, fmt.Errorf("postgres driver requires a dsn")
		}
		store, err := postgres.NewStore(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", opts.Driver)
	}
}
