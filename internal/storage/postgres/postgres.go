package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// connectProbeTimeout bounds the post-dial ping so a dead DSN fails the
// service boot quickly instead of hanging it.
const connectProbeTimeout = 5 * time.Second

// Pool is the shared pgx connection pool handed to every
// Postgres-backed store.
type Pool struct {
	*pgxpool.Pool
}

// NewPool opens a pool for the given DSN and probes it once. The
// snapshot workload is one periodic writer plus occasional readers, so
// the pool keeps the pgx defaults.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, connectProbeTimeout)
	defer cancel()
	if err := pool.Ping(probeCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("probe postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// isNotFoundError reports whether err is pgx's no-rows result.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
