package db

import (
	"database/sql"
	"embed"
	"path"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/logger"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

const migrationsDir = "sqlite/migrations"

// Migrate applies embedded migrations that are not yet recorded in
// schema_migrations, in file name order. A nil logger is silent.
func Migrate(db *sql.DB, log *zap.SugaredLogger) error {
	log = logger.OrNop(log)

	files, err := migrationFiles()
	if err != nil {
		return err
	}

	applied := 0
	for _, name := range files {
		version, _, _ := strings.Cut(name, "_")

		done, err := isApplied(db, version)
		if err != nil {
			return errors.Wrapf(err, "check %s", name)
		}
		if done {
			log.Debugw("Migration already applied", "migration", name)
			continue
		}

		log.Debugw("Applying migration", "migration", name, "version", version)
		if err := apply(db, name, version); err != nil {
			return err
		}
		applied++
	}

	log.Debugw("Usage database schema ready", "migrations", len(files), "applied", applied)
	return nil
}

// migrationFiles lists the embedded .sql files sorted by name; 000 creates
// schema_migrations and therefore sorts first.
func migrationFiles() ([]string, error) {
	entries, err := migrations.ReadDir(migrationsDir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	slices.Sort(files)
	return files, nil
}

// isApplied reports whether version is recorded. Before 000 has run the
// table does not exist, which only migration 000 may tolerate.
func isApplied(db *sql.DB, version string) (bool, error) {
	var exists bool
	err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version).Scan(&exists)
	if err != nil {
		if version == "000" {
			return false, nil
		}
		return false, errors.Wrap(err, "schema_migrations table missing")
	}
	return exists, nil
}

// apply runs one migration and records it in the same transaction
func apply(db *sql.DB, name, version string) error {
	// embed.FS paths always use forward slashes
	script, err := migrations.ReadFile(path.Join(migrationsDir, name))
	if err != nil {
		return errors.Wrapf(err, "read %s", name)
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrapf(err, "begin tx for %s", name)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(script)); err != nil {
		return errors.Wrapf(err, "execute %s", name)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return errors.Wrapf(err, "record %s", name)
	}
	return errors.Wrapf(tx.Commit(), "commit %s", name)
}
