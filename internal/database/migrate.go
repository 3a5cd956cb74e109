package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies every embedded migration in file-name order.  The
// statements use CREATE TABLE IF NOT EXISTS so running it against an
// already initialized database is a no-op.
func Migrate(ctx context.Context, db *sql.DB) (int, error) {
	return MigrateFS(ctx, db, migrationFS, "migrations")
}

// MigrateFS applies the *.sql scripts found in dir of fsys and returns the
// number of statements executed.
func MigrateFS(ctx context.Context, db *sql.DB, fsys fs.FS, dir string) (int, error) {
	names, err := fs.Glob(fsys, dir+"/*.sql")
	if err != nil {
		return 0, err
	}
	sort.Strings(names)

	applied := 0
	for _, name := range names {
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return applied, fmt.Errorf("read %s: %w", name, err)
		}
		for _, stmt := range SplitStatements(string(body)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return applied, fmt.Errorf("%s: %w", name, err)
			}
			applied++
		}
	}
	return applied, nil
}

// SplitStatements breaks a SQL script into individual statements on
// semicolons.  The driver runs without multiStatements, so each one is
// executed separately.  Line comments are dropped.
func SplitStatements(script string) []string {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	var out []string
	for _, part := range strings.Split(b.String(), ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
