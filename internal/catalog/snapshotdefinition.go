package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pgbackman/pgbackman/internal/catalog/jobqueue"
	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// RegisterSnapshotDefinition inserts a SnapshotDefinition in WAITING status
// and enqueues an AT_SNAPSHOT job for the control daemon to install.
func (s *Store) RegisterSnapshotDefinition(ctx context.Context, snap SnapshotDefinition) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, pgerr.Classify("begin register snapshot definition", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO snapshot_definition
			(backup_server_id, pgsql_node_id, dbname, at_time, tag, code, encryption,
			 retention_period, pg_dump_release, extra_parameters, status, remarks)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING snapshot_id`,
		snap.BackupServerID, snap.PgSQLNodeID, snap.Dbname, snap.At, snap.Tag, snap.Code, snap.Encryption,
		snap.RetentionPeriod, snap.PgDumpRelease, snap.ExtraParameters, StatusWaiting, snap.Remarks,
	).Scan(&id)
	if err != nil {
		return 0, pgerr.Classify("insert snapshot definition", err)
	}

	if err := jobqueue.EnqueueATSnapshot(ctx, tx, snap.BackupServerID, id); err != nil {
		return 0, err
	}
	return id, pgerr.Classify("commit register snapshot definition", tx.Commit(ctx))
}

// TransitionSnapshotDefined marks a snapshot DEFINED after the control
// daemon successfully installs its AT job.
func (s *Store) TransitionSnapshotDefined(ctx context.Context, snapshotID int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE snapshot_definition SET status = $2 WHERE snapshot_id = $1`, snapshotID, StatusDefined)
	return pgerr.Classify("transition snapshot to defined", err)
}

// TransitionSnapshotError marks a snapshot ERROR after a permanent AT
// install failure (bad timestamp, missing binary).
func (s *Store) TransitionSnapshotError(ctx context.Context, snapshotID int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE snapshot_definition SET status = $2 WHERE snapshot_id = $1`, snapshotID, StatusError)
	return pgerr.Classify("transition snapshot to error", err)
}

// ShowSnapshotDefinitions returns every SnapshotDefinition.
func (s *Store) ShowSnapshotDefinitions(ctx context.Context) ([]SnapshotDefinition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT snapshot_id, backup_server_id, pgsql_node_id, dbname, at_time, tag, code,
		       encryption, retention_period, pg_dump_release, extra_parameters, status, remarks, created
		FROM snapshot_definition ORDER BY snapshot_id`)
	if err != nil {
		return nil, pgerr.Classify("show snapshot definitions", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SnapshotDefinition, error) {
		var sd SnapshotDefinition
		err := row.Scan(&sd.SnapshotID, &sd.BackupServerID, &sd.PgSQLNodeID, &sd.Dbname, &sd.At, &sd.Tag, &sd.Code,
			&sd.Encryption, &sd.RetentionPeriod, &sd.PgDumpRelease, &sd.ExtraParameters, &sd.Status, &sd.Remarks, &sd.CreatedAt)
		return sd, err
	})
}

// SnapshotDefinitionByID looks up a single SnapshotDefinition, used by the
// executor to resolve a --snapshot-id=N flag into dump parameters.
func (s *Store) SnapshotDefinitionByID(ctx context.Context, snapshotID int64) (SnapshotDefinition, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT snapshot_id, backup_server_id, pgsql_node_id, dbname, at_time, tag, code,
		       encryption, retention_period, pg_dump_release, extra_parameters, status, remarks, created
		FROM snapshot_definition WHERE snapshot_id = $1`, snapshotID)

	var sd SnapshotDefinition
	err := row.Scan(&sd.SnapshotID, &sd.BackupServerID, &sd.PgSQLNodeID, &sd.Dbname, &sd.At, &sd.Tag, &sd.Code,
		&sd.Encryption, &sd.RetentionPeriod, &sd.PgDumpRelease, &sd.ExtraParameters, &sd.Status, &sd.Remarks, &sd.CreatedAt)
	if err != nil {
		return SnapshotDefinition{}, pgerr.Classify("lookup snapshot definition", err)
	}
	return sd, nil
}

// SnapshotsInProgress returns SnapshotDefinitions that are WAITING or
// DEFINED (i.e. not yet resolved to a terminal BackupCatalog row).
func (s *Store) SnapshotsInProgress(ctx context.Context) ([]SnapshotDefinition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT snapshot_id, backup_server_id, pgsql_node_id, dbname, at_time, tag, code,
		       encryption, retention_period, pg_dump_release, extra_parameters, status, remarks, created
		FROM snapshot_definition WHERE status IN ($1, $2) ORDER BY snapshot_id`,
		StatusWaiting, StatusDefined)
	if err != nil {
		return nil, pgerr.Classify("show snapshots in progress", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SnapshotDefinition, error) {
		var sd SnapshotDefinition
		err := row.Scan(&sd.SnapshotID, &sd.BackupServerID, &sd.PgSQLNodeID, &sd.Dbname, &sd.At, &sd.Tag, &sd.Code,
			&sd.Encryption, &sd.RetentionPeriod, &sd.PgDumpRelease, &sd.ExtraParameters, &sd.Status, &sd.Remarks, &sd.CreatedAt)
		return sd, err
	})
}
