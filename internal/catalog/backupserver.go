package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// RegisterBackupServer inserts a new BackupServer. Unique by
// (Hostname, Domain); a duplicate is reported as KindConstraint.
func (s *Store) RegisterBackupServer(ctx context.Context, bs BackupServer) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO backup_server (hostname, domain, status, remarks)
		VALUES ($1, $2, $3, $4)
		RETURNING server_id`,
		bs.Hostname, bs.Domain, bs.Status, bs.Remarks,
	).Scan(&id)
	if err != nil {
		return 0, pgerr.Classify("register backup server", err)
	}
	return id, nil
}

// UpdateBackupServer updates the mutable fields of an existing BackupServer.
func (s *Store) UpdateBackupServer(ctx context.Context, bs BackupServer) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE backup_server SET status = $2, remarks = $3 WHERE server_id = $1`,
		bs.ID, bs.Status, bs.Remarks,
	)
	if err != nil {
		return pgerr.Classify("update backup server", err)
	}
	if tag.RowsAffected() == 0 {
		return pgerr.New(pgerr.KindNotFound, "backup server not found")
	}
	return nil
}

// DeleteBackupServer removes a BackupServer. Fails with KindConstraint if
// any BackupDefinition still references it, per spec.md's invariant.
func (s *Store) DeleteBackupServer(ctx context.Context, id int64) error {
	var refs int
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM backup_definition WHERE backup_server_id = $1`, id,
	).Scan(&refs); err != nil {
		return pgerr.Classify("check backup server references", err)
	}
	if refs > 0 {
		return pgerr.New(pgerr.KindConstraint, "backup server has referencing backup definitions")
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM backup_server WHERE server_id = $1`, id)
	if err != nil {
		return pgerr.Classify("delete backup server", err)
	}
	if tag.RowsAffected() == 0 {
		// Idempotent delete: not-found is treated as success per spec.md §7.
		return nil
	}
	return nil
}

// ShowBackupServers returns every registered BackupServer.
func (s *Store) ShowBackupServers(ctx context.Context) ([]BackupServer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT server_id, hostname, domain, status, remarks, registered
		FROM backup_server ORDER BY server_id`)
	if err != nil {
		return nil, pgerr.Classify("show backup servers", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (BackupServer, error) {
		var bs BackupServer
		err := row.Scan(&bs.ID, &bs.Hostname, &bs.Domain, &bs.Status, &bs.Remarks, &bs.CreatedAt)
		return bs, err
	})
}

// BackupServerByFQDN resolves a BackupServer by "hostname.domain", as used
// by the control daemon at startup to find its own server_id.
func (s *Store) BackupServerByFQDN(ctx context.Context, fqdn string) (BackupServer, error) {
	var bs BackupServer
	err := s.pool.QueryRow(ctx, `
		SELECT server_id, hostname, domain, status, remarks, registered
		FROM backup_server WHERE hostname || '.' || domain = $1`, fqdn,
	).Scan(&bs.ID, &bs.Hostname, &bs.Domain, &bs.Status, &bs.Remarks, &bs.CreatedAt)
	if err != nil {
		return BackupServer{}, pgerr.Classify("resolve backup server by fqdn", err)
	}
	return bs, nil
}

// BackupServerByID resolves a BackupServer by its primary key.
func (s *Store) BackupServerByID(ctx context.Context, id int64) (BackupServer, error) {
	var bs BackupServer
	err := s.pool.QueryRow(ctx, `
		SELECT server_id, hostname, domain, status, remarks, registered
		FROM backup_server WHERE server_id = $1`, id,
	).Scan(&bs.ID, &bs.Hostname, &bs.Domain, &bs.Status, &bs.Remarks, &bs.CreatedAt)
	if err != nil {
		return BackupServer{}, pgerr.Classify("resolve backup server by id", err)
	}
	return bs, nil
}

// BackupServerConfig returns the key-value config parameters attached to a
// BackupServer. Each node's pgnode_crontab_file is not one of them: it is
// read from the pgsql node's config (PgSQLNodeConfig).
func (s *Store) BackupServerConfig(ctx context.Context, serverID int64) (map[string]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, value FROM backup_server_config WHERE server_id = $1`, serverID)
	if err != nil {
		return nil, pgerr.Classify("show backup server config", err)
	}
	defer rows.Close()

	cfg := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, pgerr.Classify("scan backup server config", err)
		}
		cfg[k] = v
	}
	return cfg, rows.Err()
}

// UpdateBackupServerConfig upserts a single config key for a BackupServer.
func (s *Store) UpdateBackupServerConfig(ctx context.Context, serverID int64, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO backup_server_config (server_id, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (server_id, key) DO UPDATE SET value = EXCLUDED.value`,
		serverID, key, value,
	)
	return pgerr.Classify("update backup server config", err)
}
