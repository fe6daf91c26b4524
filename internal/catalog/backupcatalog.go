package catalog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// InsertBackupCatalog appends a BackupCatalog row. The executor calls this
// after a dump attempt; on failure (database unreachable) the executor
// instead appends the same data to a pending-log file (internal/pendinglog)
// and calls InsertBackupCatalog later during drain.
func (s *Store) InsertBackupCatalog(ctx context.Context, row BackupCatalog) (int64, error) {
	var bckID int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO backup_catalog
			(def_id, snapshot_id, backup_server_id, pgsql_node_id, dbname, started, finished, duration,
			 dump_file, dump_file_size, dump_log_file, globals_file, globals_file_size, globals_log_file,
			 indexes_file, indexes_file_size, indexes_log_file, execution_status, return_code, error_msg,
			 pg_dump_release, role_list)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
		RETURNING bck_id`,
		row.DefID, row.SnapshotID, row.BackupServerID, row.PgSQLNodeID, row.Dbname, row.Started, row.Finished, row.Duration,
		row.DumpFile, row.DumpFileSize, row.DumpLogFile, row.GlobalsFile, row.GlobalsFileSize, row.GlobalsLogFile,
		row.IndexesFile, row.IndexesFileSize, row.IndexesLogFile, row.ExecutionStatus, row.ReturnCode, row.ErrorMsg,
		row.PgDumpRelease, row.RoleList,
	).Scan(&bckID)
	if err != nil {
		return 0, pgerr.Classify("insert backup catalog row", err)
	}
	return bckID, nil
}

// ShowBackupCatalog returns non-deleted BackupCatalog rows, optionally
// filtered by def_id (pass 0 for no filter).
func (s *Store) ShowBackupCatalog(ctx context.Context, defID int64) ([]BackupCatalog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT bck_id, def_id, snapshot_id, backup_server_id, pgsql_node_id, dbname, started, finished, duration,
		       dump_file, dump_file_size, dump_log_file, globals_file, globals_file_size, globals_log_file,
		       indexes_file, indexes_file_size, indexes_log_file, execution_status, return_code, error_msg,
		       pg_dump_release, role_list, alerted_ts, deleted
		FROM backup_catalog
		WHERE NOT deleted AND ($1 = 0 OR def_id = $1)
		ORDER BY finished DESC`, defID)
	if err != nil {
		return nil, pgerr.Classify("show backup catalog", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, scanBackupCatalog)
}

// BackupDetails returns a single BackupCatalog row by bck_id.
func (s *Store) BackupDetails(ctx context.Context, bckID int64) (BackupCatalog, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT bck_id, def_id, snapshot_id, backup_server_id, pgsql_node_id, dbname, started, finished, duration,
		       dump_file, dump_file_size, dump_log_file, globals_file, globals_file_size, globals_log_file,
		       indexes_file, indexes_file_size, indexes_log_file, execution_status, return_code, error_msg,
		       pg_dump_release, role_list, alerted_ts, deleted
		FROM backup_catalog WHERE bck_id = $1`, bckID)

	var bc BackupCatalog
	err := row.Scan(&bc.BckID, &bc.DefID, &bc.SnapshotID, &bc.BackupServerID, &bc.PgSQLNodeID, &bc.Dbname,
		&bc.Started, &bc.Finished, &bc.Duration,
		&bc.DumpFile, &bc.DumpFileSize, &bc.DumpLogFile, &bc.GlobalsFile, &bc.GlobalsFileSize, &bc.GlobalsLogFile,
		&bc.IndexesFile, &bc.IndexesFileSize, &bc.IndexesLogFile, &bc.ExecutionStatus, &bc.ReturnCode, &bc.ErrorMsg,
		&bc.PgDumpRelease, &bc.RoleList, &bc.AlertedAt, &bc.Deleted)
	if err != nil {
		return BackupCatalog{}, pgerr.Classify("show backup details", err)
	}
	return bc, nil
}

// EmptyBackupCatalogs returns BackupDefinitions with zero non-deleted
// BackupCatalog rows.
func (s *Store) EmptyBackupCatalogs(ctx context.Context) ([]BackupDefinition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT d.def_id, d.backup_server_id, d.pgsql_node_id, d.dbname, d.minute, d.hour, d.dom, d.month, d.dow,
		       d.code, d.encryption, d.retention_period, d.retention_redundancy,
		       d.extra_parameters, d.job_status, d.remarks, d.created, d.updated
		FROM backup_definition d
		LEFT JOIN backup_catalog c ON c.def_id = d.def_id AND NOT c.deleted
		WHERE c.bck_id IS NULL
		ORDER BY d.def_id`)
	if err != nil {
		return nil, pgerr.Classify("show empty backup catalogs", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (BackupDefinition, error) {
		var d BackupDefinition
		err := row.Scan(&d.DefID, &d.BackupServerID, &d.PgSQLNodeID, &d.Dbname,
			&d.Schedule.Minute, &d.Schedule.Hour, &d.Schedule.DayOfMonth, &d.Schedule.Month, &d.Schedule.Weekday,
			&d.Code, &d.Encryption, &d.RetentionPeriod, &d.RetentionRedundancy,
			&d.ExtraParameters, &d.JobStatus, &d.Remarks, &d.CreatedAt, &d.UpdatedAt)
		return d, err
	})
}

// UnalertedErrors returns BackupCatalog rows with ExecutionStatus ERROR and
// a nil AlertedAt, consumed by the alerts loop.
func (s *Store) UnalertedErrors(ctx context.Context) ([]BackupCatalog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT bck_id, def_id, snapshot_id, backup_server_id, pgsql_node_id, dbname, started, finished, duration,
		       dump_file, dump_file_size, dump_log_file, globals_file, globals_file_size, globals_log_file,
		       indexes_file, indexes_file_size, indexes_log_file, execution_status, return_code, error_msg,
		       pg_dump_release, role_list, alerted_ts, deleted
		FROM backup_catalog WHERE execution_status = $1 AND alerted_ts IS NULL
		ORDER BY bck_id`, ExecutionError)
	if err != nil {
		return nil, pgerr.Classify("list unalerted errors", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, scanBackupCatalog)
}

// AckAlert sets alerted_ts on a BackupCatalog row, suppressing re-delivery.
func (s *Store) AckAlert(ctx context.Context, bckID int64, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE backup_catalog SET alerted_ts = $2 WHERE bck_id = $1`, bckID, at)
	return pgerr.Classify("ack alert", err)
}

// MarkBackupCatalogDeleted marks a row deleted (not removed) after its
// artifact has been unlinked by a DELETE_ARTIFACT job, per spec.md §3's
// invariant that a deleted artifact implies a deleted (not removed) row.
func (s *Store) MarkBackupCatalogDeleted(ctx context.Context, bckID int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE backup_catalog SET deleted = true WHERE bck_id = $1`, bckID)
	return pgerr.Classify("mark backup catalog deleted", err)
}

// RetentionCandidates returns non-deleted SUCCEEDED rows for defID ordered
// by Finished descending (most recent first), for the maintenance loop's
// retention-redundancy/retention-period evaluation.
func (s *Store) RetentionCandidates(ctx context.Context, defID int64) ([]BackupCatalog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT bck_id, def_id, snapshot_id, backup_server_id, pgsql_node_id, dbname, started, finished, duration,
		       dump_file, dump_file_size, dump_log_file, globals_file, globals_file_size, globals_log_file,
		       indexes_file, indexes_file_size, indexes_log_file, execution_status, return_code, error_msg,
		       pg_dump_release, role_list, alerted_ts, deleted
		FROM backup_catalog
		WHERE def_id = $1 AND execution_status = $2 AND NOT deleted
		ORDER BY finished DESC`, defID, ExecutionSucceeded)
	if err != nil {
		return nil, pgerr.Classify("list retention candidates", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, scanBackupCatalog)
}

// DefinitionIDsWithCatalogRows returns every distinct def_id with at least
// one non-deleted BackupCatalog row, iterated by the maintenance loop.
func (s *Store) DefinitionIDsWithCatalogRows(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT def_id FROM backup_catalog WHERE NOT deleted AND def_id IS NOT NULL ORDER BY def_id`)
	if err != nil {
		return nil, pgerr.Classify("list definitions with catalog rows", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, pgerr.Classify("scan definition id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanBackupCatalog(row pgx.CollectableRow) (BackupCatalog, error) {
	var bc BackupCatalog
	err := row.Scan(&bc.BckID, &bc.DefID, &bc.SnapshotID, &bc.BackupServerID, &bc.PgSQLNodeID, &bc.Dbname,
		&bc.Started, &bc.Finished, &bc.Duration,
		&bc.DumpFile, &bc.DumpFileSize, &bc.DumpLogFile, &bc.GlobalsFile, &bc.GlobalsFileSize, &bc.GlobalsLogFile,
		&bc.IndexesFile, &bc.IndexesFileSize, &bc.IndexesLogFile, &bc.ExecutionStatus, &bc.ReturnCode, &bc.ErrorMsg,
		&bc.PgDumpRelease, &bc.RoleList, &bc.AlertedAt, &bc.Deleted)
	return bc, err
}
