package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pgbackman/pgbackman/internal/catalog/jobqueue"
	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// RegisterBackupDefinition inserts a BackupDefinition and, in the same
// transaction, enqueues a CRONTAB job for its (BackupServerID, PgSQLNodeID),
// per spec.md §4.1's "every mutating operation is a single transaction that
// also inserts the corresponding JobQueue row(s)" rule.
func (s *Store) RegisterBackupDefinition(ctx context.Context, d BackupDefinition) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, pgerr.Classify("begin register backup definition", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var defID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO backup_definition
			(backup_server_id, pgsql_node_id, dbname, minute, hour, dom, month, dow,
			 code, encryption, retention_period, retention_redundancy,
			 extra_parameters, job_status, remarks)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING def_id`,
		d.BackupServerID, d.PgSQLNodeID, d.Dbname,
		d.Schedule.Minute, d.Schedule.Hour, d.Schedule.DayOfMonth, d.Schedule.Month, d.Schedule.Weekday,
		d.Code, d.Encryption, d.RetentionPeriod, d.RetentionRedundancy,
		d.ExtraParameters, d.JobStatus, d.Remarks,
	).Scan(&defID)
	if err != nil {
		return 0, pgerr.Classify("insert backup definition", err)
	}

	if err := jobqueue.EnqueueCrontab(ctx, tx, d.BackupServerID, d.PgSQLNodeID); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, pgerr.Classify("commit register backup definition", err)
	}
	return defID, nil
}

// UpdateBackupDefinition updates an existing BackupDefinition and enqueues a
// fresh CRONTAB job for its (server, node) pair.
func (s *Store) UpdateBackupDefinition(ctx context.Context, d BackupDefinition) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return pgerr.Classify("begin update backup definition", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `
		UPDATE backup_definition SET
			minute=$2, hour=$3, dom=$4, month=$5, dow=$6,
			encryption=$7, retention_period=$8, retention_redundancy=$9,
			extra_parameters=$10, job_status=$11, remarks=$12, code=$13, updated=now()
		WHERE def_id = $1`,
		d.DefID, d.Schedule.Minute, d.Schedule.Hour, d.Schedule.DayOfMonth, d.Schedule.Month, d.Schedule.Weekday,
		d.Encryption, d.RetentionPeriod, d.RetentionRedundancy,
		d.ExtraParameters, d.JobStatus, d.Remarks, d.Code,
	)
	if err != nil {
		return pgerr.Classify("update backup definition", err)
	}
	if tag.RowsAffected() == 0 {
		return pgerr.New(pgerr.KindNotFound, "backup definition not found")
	}

	if err := jobqueue.EnqueueCrontab(ctx, tx, d.BackupServerID, d.PgSQLNodeID); err != nil {
		return err
	}
	return pgerr.Classify("commit update backup definition", tx.Commit(ctx))
}

// DeleteBackupDefinitionByID deletes a BackupDefinition by def_id. If
// forceDeletion is false and the definition has BackupCatalog rows, the
// delete is refused with KindConstraint. If forceDeletion is true, all
// referenced BackupCatalog rows are expired (their artifacts scheduled for
// deletion) atomically with the definition row itself.
func (s *Store) DeleteBackupDefinitionByID(ctx context.Context, defID int64, forceDeletion bool) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return pgerr.Classify("begin delete backup definition", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var serverID, nodeID int64
	err = tx.QueryRow(ctx,
		`SELECT backup_server_id, pgsql_node_id FROM backup_definition WHERE def_id = $1`, defID,
	).Scan(&serverID, &nodeID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil // idempotent delete
		}
		return pgerr.Classify("lookup backup definition", err)
	}

	var rowCount int
	if err := tx.QueryRow(ctx,
		`SELECT count(*) FROM backup_catalog WHERE def_id = $1 AND NOT deleted`, defID,
	).Scan(&rowCount); err != nil {
		return pgerr.Classify("count catalog rows for definition", err)
	}

	if rowCount > 0 {
		if !forceDeletion {
			return pgerr.New(pgerr.KindConstraint, "backup definition has catalog rows; use force-deletion")
		}
		rows, err := tx.Query(ctx,
			`SELECT bck_id, dump_file, dump_log_file, globals_file, globals_log_file, indexes_file, indexes_log_file
			 FROM backup_catalog WHERE def_id = $1 AND NOT deleted`, defID)
		if err != nil {
			return pgerr.Classify("list catalog rows for force-deletion", err)
		}
		type artifactRow struct {
			bckID int64
			paths []string
		}
		var toDelete []artifactRow
		for rows.Next() {
			var ar artifactRow
			var dumpFile, dumpLog, globalsFile, globalsLog, indexesFile, indexesLog string
			if err := rows.Scan(&ar.bckID, &dumpFile, &dumpLog, &globalsFile, &globalsLog, &indexesFile, &indexesLog); err != nil {
				rows.Close()
				return pgerr.Classify("scan catalog row for force-deletion", err)
			}
			for _, p := range []string{dumpFile, dumpLog, globalsFile, globalsLog, indexesFile, indexesLog} {
				if p != "" {
					ar.paths = append(ar.paths, p)
				}
			}
			toDelete = append(toDelete, ar)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return pgerr.Classify("iterate catalog rows for force-deletion", err)
		}

		for _, ar := range toDelete {
			if err := jobqueue.EnqueueDeleteArtifact(ctx, tx, serverID, ar.bckID, ar.paths); err != nil {
				return err
			}
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM backup_definition WHERE def_id = $1`, defID); err != nil {
		return pgerr.Classify("delete backup definition", err)
	}

	if err := jobqueue.EnqueueCrontab(ctx, tx, serverID, nodeID); err != nil {
		return err
	}
	return pgerr.Classify("commit delete backup definition", tx.Commit(ctx))
}

// DeleteBackupDefinitionByDBName deletes every BackupDefinition matching
// (serverID, nodeID, dbname), applying the same force-deletion semantics as
// DeleteBackupDefinitionByID to each match. Unified with the id variant per
// the Open Question resolution in DESIGN.md.
func (s *Store) DeleteBackupDefinitionByDBName(ctx context.Context, serverID, nodeID int64, dbname string, forceDeletion bool) error {
	rows, err := s.pool.Query(ctx,
		`SELECT def_id FROM backup_definition WHERE backup_server_id = $1 AND pgsql_node_id = $2 AND dbname = $3`,
		serverID, nodeID, dbname)
	if err != nil {
		return pgerr.Classify("lookup backup definitions by dbname", err)
	}
	var defIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return pgerr.Classify("scan backup definition id", err)
		}
		defIDs = append(defIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return pgerr.Classify("iterate backup definitions by dbname", err)
	}

	for _, id := range defIDs {
		if err := s.DeleteBackupDefinitionByID(ctx, id, forceDeletion); err != nil {
			return err
		}
	}
	return nil
}

// ShowBackupDefinitions returns every BackupDefinition, optionally filtered
// by backup server and/or node (pass 0 to mean "no filter" on that axis).
func (s *Store) ShowBackupDefinitions(ctx context.Context, serverID, nodeID int64) ([]BackupDefinition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT def_id, backup_server_id, pgsql_node_id, dbname, minute, hour, dom, month, dow,
		       code, encryption, retention_period, retention_redundancy,
		       extra_parameters, job_status, remarks, created, updated
		FROM backup_definition
		WHERE ($1 = 0 OR backup_server_id = $1) AND ($2 = 0 OR pgsql_node_id = $2)
		ORDER BY def_id`, serverID, nodeID)
	if err != nil {
		return nil, pgerr.Classify("show backup definitions", err)
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

// ActiveBackupDefinitionsFor returns every ACTIVE BackupDefinition for
// (serverID, nodeID) in def_id ascending order, which is the exact order
// the control daemon uses to emit crontab lines (spec.md §4.3).
func (s *Store) ActiveBackupDefinitionsFor(ctx context.Context, serverID, nodeID int64) ([]BackupDefinition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT def_id, backup_server_id, pgsql_node_id, dbname, minute, hour, dom, month, dow,
		       code, encryption, retention_period, retention_redundancy,
		       extra_parameters, job_status, remarks, created, updated
		FROM backup_definition
		WHERE backup_server_id = $1 AND pgsql_node_id = $2 AND job_status = $3
		ORDER BY def_id ASC`, serverID, nodeID, JobActive)
	if err != nil {
		return nil, pgerr.Classify("list active backup definitions", err)
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

// ActiveBackupDefinitionsForNode returns every ACTIVE BackupDefinition on
// nodeID regardless of backup server, for spec.md §4.1's
// #databases_without_backup_definitions# macro: a database is "already
// covered" if any backup server runs an active definition against it, not
// just the one server the current registration targets.
func (s *Store) ActiveBackupDefinitionsForNode(ctx context.Context, nodeID int64) ([]BackupDefinition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT def_id, backup_server_id, pgsql_node_id, dbname, minute, hour, dom, month, dow,
		       code, encryption, retention_period, retention_redundancy,
		       extra_parameters, job_status, remarks, created, updated
		FROM backup_definition
		WHERE pgsql_node_id = $1 AND job_status = $2
		ORDER BY def_id ASC`, nodeID, JobActive)
	if err != nil {
		return nil, pgerr.Classify("list active backup definitions for node", err)
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

// BackupDefinitionByID looks up a single BackupDefinition, used by the
// maintenance loop to read its retention_period/retention_redundancy before
// walking its catalog rows.
func (s *Store) BackupDefinitionByID(ctx context.Context, defID int64) (BackupDefinition, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT def_id, backup_server_id, pgsql_node_id, dbname, minute, hour, dom, month, dow,
		       code, encryption, retention_period, retention_redundancy,
		       extra_parameters, job_status, remarks, created, updated
		FROM backup_definition WHERE def_id = $1`, defID)

	var d BackupDefinition
	err := row.Scan(&d.DefID, &d.BackupServerID, &d.PgSQLNodeID, &d.Dbname,
		&d.Schedule.Minute, &d.Schedule.Hour, &d.Schedule.DayOfMonth, &d.Schedule.Month, &d.Schedule.Weekday,
		&d.Code, &d.Encryption, &d.RetentionPeriod, &d.RetentionRedundancy,
		&d.ExtraParameters, &d.JobStatus, &d.Remarks, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return BackupDefinition{}, pgerr.Classify("lookup backup definition", err)
	}
	return d, nil
}

// MoveBackupDefinitions reassigns definitions from fromServerID to
// toServerID, filtered by the list-valued nodeIDFilter/dbnameFilter/defIDFilter
// arguments. Each filter accepts nil or empty to mean "no filter on this
// axis"; a dbnameFilter containing the CLI's "all"/"*"/"" wildcard
// spellings (confirmed against original_source/'s do_move_backup_definition)
// is translated to nil here as well. Enqueues a CRONTAB
// regeneration for both the old and new server for every affected (node)
// pair, per spec.md §4.1.
func (s *Store) MoveBackupDefinitions(ctx context.Context, fromServerID, toServerID int64, nodeIDFilter []int64, dbnameFilter []string, defIDFilter []int64) ([]int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, pgerr.Classify("begin move backup definitions", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
		SELECT def_id, pgsql_node_id FROM backup_definition
		WHERE backup_server_id = $1
		  AND ($2::bigint[] IS NULL OR pgsql_node_id = ANY($2))
		  AND ($3::text[] IS NULL OR dbname = ANY($3))
		  AND ($4::bigint[] IS NULL OR def_id = ANY($4))`
	rows, err := tx.Query(ctx, query, fromServerID, nilIfEmptyInts(nodeIDFilter), nilIfWildcardStrs(dbnameFilter), nilIfEmptyInts(defIDFilter))
	if err != nil {
		return nil, pgerr.Classify("select backup definitions to move", err)
	}

	type match struct {
		defID  int64
		nodeID int64
	}
	var matches []match
	for rows.Next() {
		var m match
		if err := rows.Scan(&m.defID, &m.nodeID); err != nil {
			rows.Close()
			return nil, pgerr.Classify("scan move candidate", err)
		}
		matches = append(matches, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, pgerr.Classify("iterate move candidates", err)
	}

	affectedNodes := map[int64]bool{}
	var movedIDs []int64
	for _, m := range matches {
		if _, err := tx.Exec(ctx,
			`UPDATE backup_definition SET backup_server_id = $1, updated = now() WHERE def_id = $2`,
			toServerID, m.defID,
		); err != nil {
			return nil, pgerr.Classify("move backup definition", err)
		}
		movedIDs = append(movedIDs, m.defID)
		affectedNodes[m.nodeID] = true
	}

	for nodeID := range affectedNodes {
		if err := jobqueue.EnqueueCrontab(ctx, tx, fromServerID, nodeID); err != nil {
			return nil, err
		}
		if err := jobqueue.EnqueueCrontab(ctx, tx, toServerID, nodeID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, pgerr.Classify("commit move backup definitions", err)
	}
	return movedIDs, nil
}

func isWildcardFilter(filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == "all" || f == "*" || f == "" {
			return true
		}
	}
	return false
}

func nilIfWildcardStrs(filter []string) []string {
	if isWildcardFilter(filter) {
		return nil
	}
	return filter
}

func nilIfEmptyInts(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	return ids
}
