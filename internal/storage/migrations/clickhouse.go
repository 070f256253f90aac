package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"sort"
	"strings"

	chstore "solana-tx-monitor/internal/storage/clickhouse"
)

//go:embed clickhouse/*.sql
var clickhouseFS embed.FS

// RunClickhouseMigrations bootstraps the archive database named by the
// DSN, applies the embedded schema, and returns a connection bound to
// that database for the caller to keep.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := archiveDatabase(dsn)
	if err != nil {
		return nil, err
	}
	if err := ensureDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse %s: %w", dbName, err)
	}
	if err := applyClickhouseSchema(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// ensureDatabase creates the target database over a default-database
// connection, the only way in before the target exists.
func ensureDatabase(ctx context.Context, dsn, dbName string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+dbName); err != nil {
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return nil
}

func applyClickhouseSchema(ctx context.Context, conn *chstore.Conn) error {
	files, err := fs.Glob(clickhouseFS, "clickhouse/*.sql")
	if err != nil {
		return fmt.Errorf("list clickhouse migrations: %w", err)
	}
	sort.Strings(files)

	for _, name := range files {
		ddl, err := fs.ReadFile(clickhouseFS, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		stmts, err := clickhouseStatements(string(ddl))
		if err != nil {
			return fmt.Errorf("split %s: %w", name, err)
		}
		// The native driver runs one statement per Exec.
		for _, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply %s: %w", name, err)
			}
		}
	}
	return nil
}

// clickhouseStatements splits a migration file into statements on
// semicolons, dropping blank lines and -- comments first. A semicolon
// inside a single-quoted literal is rejected rather than parsed; the
// schema files here use none, and the scanner treats the doubled ''
// escape as two quote toggles, which nets out correctly.
func clickhouseStatements(input string) ([]string, error) {
	var kept []string
	for _, line := range strings.Split(input, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var (
		stmts   []string
		current strings.Builder
		inQuote bool
	)
	for _, r := range strings.Join(kept, "\n") {
		switch {
		case r == '\'':
			inQuote = !inQuote
			current.WriteRune(r)
		case r == ';' && inQuote:
			return nil, fmt.Errorf("semicolon inside string literal")
		case r == ';':
			if s := strings.TrimSpace(current.String()); s != "" {
				stmts = append(stmts, s)
			}
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// archiveDatabase extracts the database name from the DSN path.
func archiveDatabase(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "", fmt.Errorf("clickhouse dsn %q names no database", dsn)
	}
	return name, nil
}
