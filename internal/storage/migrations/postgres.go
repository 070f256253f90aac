package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"solana-tx-monitor/internal/storage/postgres"
)

//go:embed postgres/*.sql
var postgresFS embed.FS

// RunPostgresMigrations applies the embedded snapshot-store schema in
// lexical filename order. Every migration is written to be idempotent,
// so rerunning on each service boot is safe.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := fs.Glob(postgresFS, "postgres/*.sql")
	if err != nil {
		return fmt.Errorf("list postgres migrations: %w", err)
	}
	sort.Strings(files)

	for _, name := range files {
		ddl, err := fs.ReadFile(postgresFS, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		stmt := strings.TrimSpace(string(ddl))
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}
