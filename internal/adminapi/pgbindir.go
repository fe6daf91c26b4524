package adminapi

import (
	"context"

	"github.com/pgbackman/pgbackman/internal/catalog"
	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// RegisterBackupServerPgBinDir registers a version-specific pg_dump bin_dir
// for a backup server. PgMajorVersion must be positive — use
// RegisterBackupServerDefaultPgBinDir for the server-wide fallback.
func (a *API) RegisterBackupServerPgBinDir(ctx context.Context, b catalog.BackupServerPgBinDir) error {
	if b.PgMajorVersion <= 0 {
		return pgerr.New(pgerr.KindValidation, "pg_major_version must be positive; use the default variant for version 0")
	}
	if b.BinDir == "" {
		return pgerr.New(pgerr.KindValidation, "bin_dir is required")
	}
	return a.store.RegisterBackupServerPgBinDir(ctx, b)
}

// UpdateBackupServerPgBinDir is register's idempotent counterpart; both
// paths resolve to the same upsert in the catalog layer.
func (a *API) UpdateBackupServerPgBinDir(ctx context.Context, b catalog.BackupServerPgBinDir) error {
	return a.RegisterBackupServerPgBinDir(ctx, b)
}

// DeleteBackupServerPgBinDir removes a version-specific bin_dir row.
func (a *API) DeleteBackupServerPgBinDir(ctx context.Context, serverID int64, pgMajorVersion int) error {
	if pgMajorVersion <= 0 {
		return pgerr.New(pgerr.KindValidation, "pg_major_version must be positive; use the default variant for version 0")
	}
	return a.store.DeleteBackupServerPgBinDir(ctx, serverID, pgMajorVersion)
}

// RegisterBackupServerDefaultPgBinDir registers the server-wide fallback
// bin_dir (PgMajorVersion 0).
func (a *API) RegisterBackupServerDefaultPgBinDir(ctx context.Context, serverID int64, binDir, description string) error {
	if binDir == "" {
		return pgerr.New(pgerr.KindValidation, "bin_dir is required")
	}
	return a.store.RegisterBackupServerPgBinDir(ctx, catalog.BackupServerPgBinDir{
		BackupServerID: serverID, PgMajorVersion: 0, BinDir: binDir, Description: description,
	})
}

// UpdateBackupServerDefaultPgBinDir is register's idempotent counterpart.
func (a *API) UpdateBackupServerDefaultPgBinDir(ctx context.Context, serverID int64, binDir, description string) error {
	return a.RegisterBackupServerDefaultPgBinDir(ctx, serverID, binDir, description)
}

// DeleteBackupServerDefaultPgBinDir removes the server-wide fallback row.
func (a *API) DeleteBackupServerDefaultPgBinDir(ctx context.Context, serverID int64) error {
	return a.store.DeleteBackupServerPgBinDir(ctx, serverID, 0)
}

// ShowBackupServerDefaultConfiguredVersions lists every bin_dir row
// (version-specific and default) configured for serverID.
func (a *API) ShowBackupServerDefaultConfiguredVersions(ctx context.Context, serverID int64) ([]catalog.BackupServerPgBinDir, error) {
	return a.store.ShowBackupServerPgBinDirs(ctx, serverID)
}
