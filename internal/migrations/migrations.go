// Package migrations embeds the schema and applies it in file-name order.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed *.sql
var files embed.FS

// Names lists the embedded migration files in apply order.
func Names() ([]string, error) {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Pending returns the migrations not yet recorded in schema_migrations.
func Pending(ctx context.Context, db *pgxpool.Pool) ([]string, error) {
	if err := ensureTable(ctx, db); err != nil {
		return nil, err
	}
	names, err := Names()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range names {
		var done bool
		err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name).Scan(&done)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", name, err)
		}
		if !done {
			out = append(out, name)
		}
	}
	return out, nil
}

// Apply runs every pending migration, each in its own transaction, and
// returns the names it applied.
func Apply(ctx context.Context, db *pgxpool.Pool) ([]string, error) {
	pending, err := Pending(ctx, db)
	if err != nil {
		return nil, err
	}
	var applied []string
	for _, name := range pending {
		b, err := files.ReadFile(name)
		if err != nil {
			return applied, fmt.Errorf("read file %s: %w", name, err)
		}
		err = pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(b)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("failed to apply %s: %w", name, err)
		}
		applied = append(applied, name)
	}
	return applied, nil
}

func ensureTable(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name       TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	return err
}
