package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pgbackman/pgbackman/internal/catalog/jobqueue"
	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// RegisterRestoreDefinition inserts a RestoreDefinition in WAITING status
// and enqueues an AT_RESTORE job. The caller (Admin API) has already checked
// that RenamedDbname does not exist on the target. RolesToRestore is stored
// as given; neither this method nor the Admin API removes roles that already
// exist on the target.
func (s *Store) RegisterRestoreDefinition(ctx context.Context, r RestoreDefinition) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, pgerr.Classify("begin register restore definition", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO restore_definition
			(at_time, source_bck_id, target_server_id, target_node_id, target_dbname,
			 renamed_dbname, extra_parameters, roles_to_restore, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING restore_id`,
		r.At, r.SourceBckID, r.TargetServerID, r.TargetNodeID, r.TargetDbname,
		r.RenamedDbname, r.ExtraParameters, r.RolesToRestore, StatusWaiting,
	).Scan(&id)
	if err != nil {
		return 0, pgerr.Classify("insert restore definition", err)
	}

	if err := jobqueue.EnqueueATRestore(ctx, tx, r.TargetServerID, id); err != nil {
		return 0, err
	}
	return id, pgerr.Classify("commit register restore definition", tx.Commit(ctx))
}

// TransitionRestoreDefined marks a restore DEFINED.
func (s *Store) TransitionRestoreDefined(ctx context.Context, restoreID int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE restore_definition SET status = $2 WHERE restore_id = $1`, restoreID, StatusDefined)
	return pgerr.Classify("transition restore to defined", err)
}

// TransitionRestoreError marks a restore ERROR.
func (s *Store) TransitionRestoreError(ctx context.Context, restoreID int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE restore_definition SET status = $2 WHERE restore_id = $1`, restoreID, StatusError)
	return pgerr.Classify("transition restore to error", err)
}

// DatabaseExistsOnNode reports whether dbname is already present on nodeID,
// used to enforce the RenamedDbname-must-not-exist invariant.
func (s *Store) DatabaseExistsOnNode(ctx context.Context, nodeID int64, dbname string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM pgsql_node_database WHERE node_id = $1 AND dbname = $2)`,
		nodeID, dbname,
	).Scan(&exists)
	if err != nil {
		return false, pgerr.Classify("check database exists on node", err)
	}
	return exists, nil
}

// RestoreDefinitionByID looks up a single RestoreDefinition, used by the
// executor to resolve a --restore-id=N flag into restore parameters.
func (s *Store) RestoreDefinitionByID(ctx context.Context, restoreID int64) (RestoreDefinition, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT restore_id, at_time, source_bck_id, target_server_id, target_node_id,
		       target_dbname, renamed_dbname, extra_parameters, roles_to_restore, status, created
		FROM restore_definition WHERE restore_id = $1`, restoreID)

	var r RestoreDefinition
	err := row.Scan(&r.RestoreID, &r.At, &r.SourceBckID, &r.TargetServerID, &r.TargetNodeID,
		&r.TargetDbname, &r.RenamedDbname, &r.ExtraParameters, &r.RolesToRestore, &r.Status, &r.CreatedAt)
	if err != nil {
		return RestoreDefinition{}, pgerr.Classify("lookup restore definition", err)
	}
	return r, nil
}

// ShowRestoreDefinitions returns every RestoreDefinition.
func (s *Store) ShowRestoreDefinitions(ctx context.Context) ([]RestoreDefinition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT restore_id, at_time, source_bck_id, target_server_id, target_node_id,
		       target_dbname, renamed_dbname, extra_parameters, roles_to_restore, status, created
		FROM restore_definition ORDER BY restore_id`)
	if err != nil {
		return nil, pgerr.Classify("show restore definitions", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RestoreDefinition, error) {
		var r RestoreDefinition
		err := row.Scan(&r.RestoreID, &r.At, &r.SourceBckID, &r.TargetServerID, &r.TargetNodeID,
			&r.TargetDbname, &r.RenamedDbname, &r.ExtraParameters, &r.RolesToRestore, &r.Status, &r.CreatedAt)
		return r, err
	})
}

// RestoresInProgress returns RestoreDefinitions that are WAITING or DEFINED.
func (s *Store) RestoresInProgress(ctx context.Context) ([]RestoreDefinition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT restore_id, at_time, source_bck_id, target_server_id, target_node_id,
		       target_dbname, renamed_dbname, extra_parameters, roles_to_restore, status, created
		FROM restore_definition WHERE status IN ($1, $2) ORDER BY restore_id`,
		StatusWaiting, StatusDefined)
	if err != nil {
		return nil, pgerr.Classify("show restores in progress", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RestoreDefinition, error) {
		var r RestoreDefinition
		err := row.Scan(&r.RestoreID, &r.At, &r.SourceBckID, &r.TargetServerID, &r.TargetNodeID,
			&r.TargetDbname, &r.RenamedDbname, &r.ExtraParameters, &r.RolesToRestore, &r.Status, &r.CreatedAt)
		return r, err
	})
}
