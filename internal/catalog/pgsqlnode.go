package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// RegisterPgSQLNode inserts a new PgSQLNode. Unique by (Hostname, Domain).
func (s *Store) RegisterPgSQLNode(ctx context.Context, n PgSQLNode) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO pgsql_node (hostname, domain, port, admin_user, status, remarks)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING node_id`,
		n.Hostname, n.Domain, n.Port, n.AdminUser, n.Status, n.Remarks,
	).Scan(&id)
	if err != nil {
		return 0, pgerr.Classify("register pgsql node", err)
	}
	return id, nil
}

// UpdatePgSQLNode updates the mutable fields of an existing PgSQLNode.
func (s *Store) UpdatePgSQLNode(ctx context.Context, n PgSQLNode) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE pgsql_node SET port = $2, admin_user = $3, status = $4, remarks = $5
		WHERE node_id = $1`,
		n.ID, n.Port, n.AdminUser, n.Status, n.Remarks,
	)
	if err != nil {
		return pgerr.Classify("update pgsql node", err)
	}
	if tag.RowsAffected() == 0 {
		return pgerr.New(pgerr.KindNotFound, "pgsql node not found")
	}
	return nil
}

// DeletePgSQLNode removes a PgSQLNode. Fails with KindConstraint if any
// BackupDefinition still references it.
func (s *Store) DeletePgSQLNode(ctx context.Context, id int64) error {
	var refs int
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM backup_definition WHERE pgsql_node_id = $1`, id,
	).Scan(&refs); err != nil {
		return pgerr.Classify("check pgsql node references", err)
	}
	if refs > 0 {
		return pgerr.New(pgerr.KindConstraint, "pgsql node has referencing backup definitions")
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM pgsql_node WHERE node_id = $1`, id); err != nil {
		return pgerr.Classify("delete pgsql node", err)
	}
	return nil
}

// ShowPgSQLNodes returns every registered PgSQLNode.
func (s *Store) ShowPgSQLNodes(ctx context.Context) ([]PgSQLNode, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT node_id, hostname, domain, port, admin_user, status, remarks, registered
		FROM pgsql_node ORDER BY node_id`)
	if err != nil {
		return nil, pgerr.Classify("show pgsql nodes", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (PgSQLNode, error) {
		var n PgSQLNode
		err := row.Scan(&n.ID, &n.Hostname, &n.Domain, &n.Port, &n.AdminUser, &n.Status, &n.Remarks, &n.CreatedAt)
		return n, err
	})
}

// PgSQLNodeByID resolves a PgSQLNode by its primary key, as used by the
// executor to turn a backup/snapshot/restore definition's node_id into the
// host/port/admin_user needed to invoke pg_dump/pg_restore.
func (s *Store) PgSQLNodeByID(ctx context.Context, id int64) (PgSQLNode, error) {
	var n PgSQLNode
	err := s.pool.QueryRow(ctx, `
		SELECT node_id, hostname, domain, port, admin_user, status, remarks, registered
		FROM pgsql_node WHERE node_id = $1`, id,
	).Scan(&n.ID, &n.Hostname, &n.Domain, &n.Port, &n.AdminUser, &n.Status, &n.Remarks, &n.CreatedAt)
	if err != nil {
		return PgSQLNode{}, pgerr.Classify("resolve pgsql node by id", err)
	}
	return n, nil
}

// PgSQLNodeConfig returns the key-value config parameters attached to a node,
// including the defaults used for new definitions registered against it.
func (s *Store) PgSQLNodeConfig(ctx context.Context, nodeID int64) (map[string]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, value FROM pgsql_node_config WHERE node_id = $1`, nodeID)
	if err != nil {
		return nil, pgerr.Classify("show pgsql node config", err)
	}
	defer rows.Close()

	cfg := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, pgerr.Classify("scan pgsql node config", err)
		}
		cfg[k] = v
	}
	return cfg, rows.Err()
}

// UpdatePgSQLNodeConfig upserts a single config key for a PgSQLNode.
func (s *Store) UpdatePgSQLNodeConfig(ctx context.Context, nodeID int64, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pgsql_node_config (node_id, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (node_id, key) DO UPDATE SET value = EXCLUDED.value`,
		nodeID, key, value,
	)
	return pgerr.Classify("update pgsql node config", err)
}

// DatabasesOnNode lists every database reported by the PgSQL instance,
// used by the Admin API's bulk dbname expansion (#all_databases# etc).
// This table is populated out-of-band (by a node-side probe outside this
// specification's scope); the catalog simply records the most recent
// report.
func (s *Store) DatabasesOnNode(ctx context.Context, nodeID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT dbname FROM pgsql_node_database WHERE node_id = $1 ORDER BY dbname`, nodeID)
	if err != nil {
		return nil, pgerr.Classify("list databases on node", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, pgerr.Classify("scan database name", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
