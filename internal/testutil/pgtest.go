// Package testutil provides shared test infrastructure for integration tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	_ "github.com/lib/pq"
)

// PGTest connects to the database named by POSTGRES_URL, applies the
// repository's migrations, and returns the connection plus a cleanup
// function that truncates every application table. Tests that need a
// real database call this first and are skipped when POSTGRES_URL is
// not set:
//
//	db, cleanup := testutil.PGTest(t)
//	defer cleanup()
func PGTest(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		t.Skip("POSTGRES_URL not set, skipping integration test")
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		t.Fatalf("pgtest: open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		t.Fatalf("pgtest: connect to database: %v", err)
	}

	ctx := context.Background()
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		t.Fatalf("pgtest: %v", err)
	}

	return db, func() {
		resetTables(ctx, db)
		_ = db.Close()
	}
}

// applyMigrations executes the Up section of every .sql file under the
// repository's migrations/ directory, in filename order. The files are
// written for goose, so everything from the "-- +goose Down" marker on
// is discarded.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := os.ReadFile(file) // #nosec G304 -- path from the repo's migrations dir
		if err != nil {
			return fmt.Errorf("read %s: %w", filepath.Base(file), err)
		}
		stmt := string(data)
		if i := strings.Index(stmt, "-- +goose Down"); i >= 0 {
			stmt = stmt[:i]
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply %s: %w", filepath.Base(file), err)
		}
	}
	return nil
}

// migrationsDir walks up from the test's working directory until it
// finds the repository-level migrations/ directory.
func migrationsDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no migrations/ directory above %s", dir)
		}
		dir = parent
	}
}

// resetTables truncates every table in the public schema so the next
// test starts from a clean slate. Best effort; failures here only mean
// the next run inherits rows.
func resetTables(ctx context.Context, db *sql.DB) {
	rows, err := db.QueryContext(ctx, `
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		  AND tablename NOT LIKE 'pg_%'
		  AND tablename NOT LIKE 'sql_%'
	`)
	if err != nil {
		return
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			tables = append(tables, name)
		}
	}
	if len(tables) == 0 {
		return
	}
	stmt := "TRUNCATE " + strings.Join(tables, ", ") + " CASCADE" // #nosec G202 -- names from pg_tables
	_, _ = db.ExecContext(ctx, stmt)
}
