package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/newhook/remedy/internal/logging"
	"github.com/newhook/remedy/internal/signal"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	upMarker   = "-- +up"
	downMarker = "-- +down"
)

// Migration is one versioned schema change. Files are named
// "<version>_<name>.sql" with "-- +up" and "-- +down" sections.
type Migration struct {
	Version string
	Name    string
	UpSQL   string
	DownSQL string
}

// RunMigrations applies every pending embedded migration.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return RunMigrationsForFS(ctx, db, migrationsFS)
}

// RunMigrationsForFS applies every pending migration found in fsys, in
// version order. Each migration runs in its own transaction.
func RunMigrationsForFS(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := MigrationStatus(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}
	migrations, err := LoadMigrations(fsys)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, m := range migrations {
		if slices.Contains(applied, m.Version) {
			continue
		}
		logging.Info("applying migration", "version", m.Version, "name", m.Name)
		err := signal.Critical(func() error {
			return inTx(ctx, db, m.UpSQL, func(tx *sql.Tx) error {
				_, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.Version)
				return err
			})
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.Version, err)
		}
	}
	return nil
}

// RollbackMigration reverts the most recently applied embedded migration.
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	return RollbackMigrationForFS(ctx, db, migrationsFS)
}

// RollbackMigrationForFS reverts the most recently applied migration.
func RollbackMigrationForFS(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	var version string
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.New("no migrations to rollback")
	}
	if err != nil {
		return fmt.Errorf("failed to get last migration: %w", err)
	}

	migrations, err := LoadMigrations(fsys)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	i := slices.IndexFunc(migrations, func(m Migration) bool { return m.Version == version })
	if i < 0 {
		return fmt.Errorf("migration %s not found", version)
	}
	m := migrations[i]
	if strings.TrimSpace(m.DownSQL) == "" {
		return fmt.Errorf("migration %s has no down script", version)
	}

	logging.Info("rolling back migration", "version", m.Version, "name", m.Name)
	return signal.Critical(func() error {
		return inTx(ctx, db, m.DownSQL, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", version)
			return err
		})
	})
}

// MigrationStatus returns applied versions in order. A database that has
// never been migrated reports none.
func MigrationStatus(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// LoadMigrations reads every .sql file in fsys, sorted by version.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	var migrations []Migration
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".sql" {
			return nil
		}

		version, name, ok := strings.Cut(strings.TrimSuffix(path.Base(p), ".sql"), "_")
		if !ok {
			return fmt.Errorf("invalid migration filename: %s", p)
		}
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		up, down := sections(string(content))
		migrations = append(migrations, Migration{Version: version, Name: name, UpSQL: up, DownSQL: down})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(migrations, func(a, b Migration) int { return strings.Compare(a.Version, b.Version) })
	return migrations, nil
}

// sections splits a migration file at its markers. Text before "-- +up"
// belongs to neither section.
func sections(content string) (up, down string) {
	var upLines, downLines []string
	var target *[]string
	for _, line := range strings.Split(content, "\n") {
		switch trimmed := strings.TrimSpace(line); {
		case strings.HasPrefix(trimmed, upMarker):
			target = &upLines
		case strings.HasPrefix(trimmed, downMarker):
			target = &downLines
		case target != nil:
			*target = append(*target, line)
		}
	}
	return strings.Join(upLines, "\n"), strings.Join(downLines, "\n")
}

func inTx(ctx context.Context, db *sql.DB, script string, after func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute statement: %w", err)
		}
	}
	if err := after(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// splitStatements splits a script on semicolons that are outside quotes
// and comments.
func splitStatements(script string) []string {
	var (
		out     []string
		cur     strings.Builder
		quote   byte
		line    bool
		block   bool
		pending = func() {
			if s := strings.TrimSpace(cur.String()); !onlyComments(s) {
				out = append(out, s)
			}
			cur.Reset()
		}
	)

	for i := 0; i < len(script); i++ {
		c := script[i]
		var next byte
		if i+1 < len(script) {
			next = script[i+1]
		}

		switch {
		case line:
			line = c != '\n'
		case block:
			if c == '*' && next == '/' {
				cur.WriteByte(c)
				i++
				c = next
				block = false
			}
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '-' && next == '-':
			line = true
		case c == '/' && next == '*':
			block = true
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == ';':
			pending()
			continue
		}
		cur.WriteByte(c)
	}
	pending()
	return out
}

func onlyComments(stmt string) bool {
	for _, l := range strings.Split(stmt, "\n") {
		if l = strings.TrimSpace(l); l != "" && !strings.HasPrefix(l, "--") {
			return false
		}
	}
	return true
}
