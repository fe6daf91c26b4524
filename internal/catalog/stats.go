package catalog

import (
	"context"

	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// NodeStatsFor computes NodeStats for a single pgsql node, keyed by node id
// per the show_pgsql_node_stats Open Question resolution (see DESIGN.md).
// Neither this method nor the Admin API looks a node up by hostname.
func (s *Store) NodeStatsFor(ctx context.Context, nodeID int64) (NodeStats, error) {
	stats := NodeStats{PgSQLNodeID: nodeID}

	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM backup_definition WHERE pgsql_node_id = $1`, nodeID,
	).Scan(&stats.DefinitionCount)
	if err != nil {
		return NodeStats{}, pgerr.Classify("count node backup definitions", err)
	}

	err = s.pool.QueryRow(ctx,
		`SELECT count(*) FROM snapshot_definition WHERE pgsql_node_id = $1`, nodeID,
	).Scan(&stats.SnapshotCount)
	if err != nil {
		return NodeStats{}, pgerr.Classify("count node snapshot definitions", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT max(finished) FROM backup_catalog
		WHERE pgsql_node_id = $1 AND execution_status = $2 AND NOT deleted`,
		nodeID, ExecutionSucceeded,
	).Scan(&stats.LastSuccessfulAt)
	if err != nil {
		return NodeStats{}, pgerr.Classify("find node last successful backup", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT max(finished) FROM backup_catalog
		WHERE pgsql_node_id = $1 AND execution_status = $2`,
		nodeID, ExecutionError,
	).Scan(&stats.LastErrorAt)
	if err != nil {
		return NodeStats{}, pgerr.Classify("find node last backup error", err)
	}

	return stats, nil
}

// ServerStatsFor computes ServerStats for a single backup server.
func (s *Store) ServerStatsFor(ctx context.Context, serverID int64) (ServerStats, error) {
	stats := ServerStats{BackupServerID: serverID}

	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM backup_definition WHERE backup_server_id = $1`, serverID,
	).Scan(&stats.DefinitionCount)
	if err != nil {
		return ServerStats{}, pgerr.Classify("count server backup definitions", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT count(*), coalesce(sum(dump_file_size + globals_file_size + indexes_file_size), 0)
		FROM backup_catalog WHERE backup_server_id = $1 AND NOT deleted`,
		serverID,
	).Scan(&stats.CatalogRowCount, &stats.TotalBytes)
	if err != nil {
		return ServerStats{}, pgerr.Classify("aggregate server catalog stats", err)
	}

	return stats, nil
}

// PgBackManStats is the cluster-wide summary returned by show_pgbackman_stats.
type PgBackManStats struct {
	BackupServerCount    int
	PgSQLNodeCount       int
	ActiveDefinitionCount int
	StoppedDefinitionCount int
	PendingJobCount      int
	TotalCatalogBytes    int64
}

// PgBackManWideStats aggregates across the whole catalog.
func (s *Store) PgBackManWideStats(ctx context.Context) (PgBackManStats, error) {
	var st PgBackManStats

	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM backup_server`).Scan(&st.BackupServerCount); err != nil {
		return PgBackManStats{}, pgerr.Classify("count backup servers", err)
	}
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM pgsql_node`).Scan(&st.PgSQLNodeCount); err != nil {
		return PgBackManStats{}, pgerr.Classify("count pgsql nodes", err)
	}
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM backup_definition WHERE job_status = $1`, JobActive,
	).Scan(&st.ActiveDefinitionCount); err != nil {
		return PgBackManStats{}, pgerr.Classify("count active definitions", err)
	}
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM backup_definition WHERE job_status = $1`, JobStopped,
	).Scan(&st.StoppedDefinitionCount); err != nil {
		return PgBackManStats{}, pgerr.Classify("count stopped definitions", err)
	}
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM job_queue`).Scan(&st.PendingJobCount); err != nil {
		return PgBackManStats{}, pgerr.Classify("count pending jobs", err)
	}
	if err := s.pool.QueryRow(ctx, `
		SELECT coalesce(sum(dump_file_size + globals_file_size + indexes_file_size), 0)
		FROM backup_catalog WHERE NOT deleted`,
	).Scan(&st.TotalCatalogBytes); err != nil {
		return PgBackManStats{}, pgerr.Classify("sum catalog bytes", err)
	}

	return st, nil
}
