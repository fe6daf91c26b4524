package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// RegisterBackupServerPgBinDir inserts or updates the bin_dir for a
// (BackupServerID, PgMajorVersion) pair. PgMajorVersion == 0 registers the
// server's default bin_dir, used when no version-specific row matches.
func (s *Store) RegisterBackupServerPgBinDir(ctx context.Context, b BackupServerPgBinDir) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO backup_server_pgbindir (backup_server_id, pg_major_version, bin_dir, description)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (backup_server_id, pg_major_version)
		DO UPDATE SET bin_dir = EXCLUDED.bin_dir, description = EXCLUDED.description`,
		b.BackupServerID, b.PgMajorVersion, b.BinDir, b.Description)
	return pgerr.Classify("register backup server pgbindir", err)
}

// DeleteBackupServerPgBinDir removes a (BackupServerID, PgMajorVersion) row.
func (s *Store) DeleteBackupServerPgBinDir(ctx context.Context, serverID int64, pgMajorVersion int) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM backup_server_pgbindir WHERE backup_server_id = $1 AND pg_major_version = $2`,
		serverID, pgMajorVersion)
	return pgerr.Classify("delete backup server pgbindir", err)
}

// ShowBackupServerPgBinDirs returns every configured bin_dir row for
// serverID, including the default (PgMajorVersion == 0) row if present.
func (s *Store) ShowBackupServerPgBinDirs(ctx context.Context, serverID int64) ([]BackupServerPgBinDir, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT backup_server_id, pg_major_version, bin_dir, description
		FROM backup_server_pgbindir WHERE backup_server_id = $1
		ORDER BY pg_major_version`, serverID)
	if err != nil {
		return nil, pgerr.Classify("show backup server pgbindirs", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (BackupServerPgBinDir, error) {
		var b BackupServerPgBinDir
		err := row.Scan(&b.BackupServerID, &b.PgMajorVersion, &b.BinDir, &b.Description)
		return b, err
	})
}

// ResolveBinDir returns the bin_dir to use for dumping a cluster running
// pgMajorVersion on serverID, falling back to that server's default
// (PgMajorVersion == 0) row when no version-specific row exists. Returns
// pgerr.KindNotFound when neither exists, so the executor can surface a
// clear "no pg_dump configured for this server" error instead of a raw
// pgx.ErrNoRows.
func (s *Store) ResolveBinDir(ctx context.Context, serverID int64, pgMajorVersion int) (string, error) {
	var binDir string
	err := s.pool.QueryRow(ctx, `
		SELECT bin_dir FROM backup_server_pgbindir
		WHERE backup_server_id = $1 AND pg_major_version = $2`,
		serverID, pgMajorVersion,
	).Scan(&binDir)
	if err == nil {
		return binDir, nil
	}
	if pgErr := pgerr.Classify("resolve pg bin dir", err); pgerr.Is(pgErr, pgerr.KindNotFound) {
		err = s.pool.QueryRow(ctx, `
			SELECT bin_dir FROM backup_server_pgbindir
			WHERE backup_server_id = $1 AND pg_major_version = 0`, serverID,
		).Scan(&binDir)
		if err != nil {
			return "", pgerr.Wrap(pgerr.KindNotFound, "no default pg_dump bin_dir configured for backup server", err)
		}
		return binDir, nil
	}
	return "", pgerr.Classify("resolve pg bin dir", err)
}
