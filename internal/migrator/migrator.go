// Package migrator implements the schema migrator of spec.md §4.8: compares
// the compiled-in software_version_number to the catalog's
// database_version_number and, when an upgrade is authorized, drains the
// pending-log in the current version's format and applies each
// pgbackman_{n}.sql file in (db_version, sw_version] in ascending order,
// each in its own transaction.
package migrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pgbackman/pgbackman/internal/catalog"
	"github.com/pgbackman/pgbackman/internal/logging"
	"github.com/pgbackman/pgbackman/internal/pendinglog"
	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// Comparison classifies the relationship between the compiled-in software
// version and the catalog's recorded database version.
type Comparison int

const (
	// Current means software and database versions match; proceed.
	Current Comparison = iota
	// NeedsUpgrade means software is ahead of the database; an upgrade may
	// be authorized.
	NeedsUpgrade
	// TooNew means the database is ahead of the software; refuse to run.
	TooNew
)

// Compare classifies softwareVersion against databaseVersion.
func Compare(softwareVersion, databaseVersion int) Comparison {
	switch {
	case softwareVersion == databaseVersion:
		return Current
	case softwareVersion > databaseVersion:
		return NeedsUpgrade
	default:
		return TooNew
	}
}

// Migrator applies pending schema upgrades.
type Migrator struct {
	store             *catalog.Store
	databaseSourceDir string
	pendingUpdatesDir string
}

// New builds a Migrator.
func New(store *catalog.Store, databaseSourceDir, pendingUpdatesDir string) *Migrator {
	return &Migrator{store: store, databaseSourceDir: databaseSourceDir, pendingUpdatesDir: pendingUpdatesDir}
}

// CheckAndMigrate runs the version comparison: in daemon mode (authorize
// false), a NeedsUpgrade result is refused; in interactive/CLI mode
// (authorize true, already confirmed by the operator), it drains the
// pending-log and applies every intervening migration file. A TooNew
// database always refuses regardless of authorize.
func (m *Migrator) CheckAndMigrate(ctx context.Context, softwareVersion int, authorize bool) error {
	dbVersion, err := m.store.DatabaseVersionNumber(ctx)
	if err != nil {
		return err
	}

	switch Compare(softwareVersion, dbVersion) {
	case Current:
		return nil
	case TooNew:
		return pgerr.New(pgerr.KindVersionMismatch,
			fmt.Sprintf("database version %d is newer than software version %d; refusing to run", dbVersion, softwareVersion))
	case NeedsUpgrade:
		if !authorize {
			return pgerr.New(pgerr.KindVersionMismatch,
				fmt.Sprintf("database version %d is behind software version %d; upgrade not authorized", dbVersion, softwareVersion))
		}
		return m.upgrade(ctx, dbVersion, softwareVersion)
	default:
		return pgerr.New(pgerr.KindUnknown, "unreachable version comparison result")
	}
}

func (m *Migrator) upgrade(ctx context.Context, from, to int) error {
	if _, err := pendinglog.Drain(m.pendingUpdatesDir, func(row catalog.BackupCatalog) error {
		_, insertErr := m.store.InsertBackupCatalog(ctx, row)
		return insertErr
	}); err != nil {
		return fmt.Errorf("drain pending-log before upgrade: %w", err)
	}

	files, err := resolveMigrationFiles(m.databaseSourceDir, from, to)
	if err != nil {
		return err
	}

	for n := from + 1; n <= to; n++ {
		path := files[n]
		if err := m.applyOne(ctx, path); err != nil {
			return fmt.Errorf("apply %s: %w", path, err)
		}
		if err := m.store.SetDatabaseVersionNumber(ctx, n); err != nil {
			return fmt.Errorf("record database version %d: %w", n, err)
		}
		logging.Info().Int("version", n).Msg("schema migration applied")
	}
	return nil
}

// resolveMigrationFiles locates {database_source_dir}/pgbackman_{n}.sql for
// every n in (from, to], refusing before applying anything if any file is
// missing.
func resolveMigrationFiles(databaseSourceDir string, from, to int) (map[int]string, error) {
	files := make(map[int]string, to-from)
	for n := from + 1; n <= to; n++ {
		path := filepath.Join(databaseSourceDir, fmt.Sprintf("pgbackman_%d.sql", n))
		if _, err := os.Stat(path); err != nil {
			return nil, pgerr.Wrap(pgerr.KindVersionMismatch,
				fmt.Sprintf("missing migration file for version %d", n), err)
		}
		files[n] = path
	}
	return files, nil
}

func (m *Migrator) applyOne(ctx context.Context, path string) error {
	sqlBytes, err := os.ReadFile(path)
	if err != nil {
		return pgerr.Wrap(pgerr.KindFilesystem, "read migration file", err)
	}

	tx, err := m.store.Pool().Begin(ctx)
	if err != nil {
		return pgerr.Classify("begin migration transaction", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, string(sqlBytes)); err != nil {
		return pgerr.Classify("execute migration sql", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return pgerr.Classify("commit migration transaction", err)
	}
	return nil
}
