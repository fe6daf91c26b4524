package catalog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// InsertRestoreCatalog appends a RestoreCatalog row. Unlike
// InsertBackupCatalog, a failure here is not spooled to the pending log:
// the executor's RunRestore returns the error and the row is not recorded.
func (s *Store) InsertRestoreCatalog(ctx context.Context, row RestoreCatalog) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO restore_catalog (restore_id, started, finished, duration, execution_status, return_code, error_msg)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING restore_cat_id`,
		row.RestoreID, row.Started, row.Finished, row.Duration, row.ExecutionStatus, row.ReturnCode, row.ErrorMsg,
	).Scan(&id)
	if err != nil {
		return 0, pgerr.Classify("insert restore catalog row", err)
	}
	return id, nil
}

// ShowRestoreCatalog returns RestoreCatalog rows, optionally filtered by
// restore_id (pass 0 for no filter).
func (s *Store) ShowRestoreCatalog(ctx context.Context, restoreID int64) ([]RestoreCatalog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT restore_cat_id, restore_id, started, finished, duration, execution_status, return_code, error_msg, alerted_ts
		FROM restore_catalog
		WHERE $1 = 0 OR restore_id = $1
		ORDER BY finished DESC`, restoreID)
	if err != nil {
		return nil, pgerr.Classify("show restore catalog", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, scanRestoreCatalog)
}

// RestoreDetails returns a single RestoreCatalog row by restore_cat_id.
func (s *Store) RestoreDetails(ctx context.Context, restoreCatID int64) (RestoreCatalog, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT restore_cat_id, restore_id, started, finished, duration, execution_status, return_code, error_msg, alerted_ts
		FROM restore_catalog WHERE restore_cat_id = $1`, restoreCatID)

	var rc RestoreCatalog
	err := row.Scan(&rc.RestoreCatID, &rc.RestoreID, &rc.Started, &rc.Finished, &rc.Duration,
		&rc.ExecutionStatus, &rc.ReturnCode, &rc.ErrorMsg, &rc.AlertedAt)
	if err != nil {
		return RestoreCatalog{}, pgerr.Classify("show restore details", err)
	}
	return rc, nil
}

// UnalertedRestoreErrors returns RestoreCatalog rows with ExecutionStatus
// ERROR and a nil AlertedAt, consumed by the alerts loop.
func (s *Store) UnalertedRestoreErrors(ctx context.Context) ([]RestoreCatalog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT restore_cat_id, restore_id, started, finished, duration, execution_status, return_code, error_msg, alerted_ts
		FROM restore_catalog WHERE execution_status = $1 AND alerted_ts IS NULL
		ORDER BY restore_cat_id`, ExecutionError)
	if err != nil {
		return nil, pgerr.Classify("list unalerted restore errors", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, scanRestoreCatalog)
}

// AckRestoreAlert sets alerted_ts on a RestoreCatalog row, suppressing
// re-delivery.
func (s *Store) AckRestoreAlert(ctx context.Context, restoreCatID int64, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE restore_catalog SET alerted_ts = $2 WHERE restore_cat_id = $1`, restoreCatID, at)
	return pgerr.Classify("ack restore alert", err)
}

// PruneOldRestoreCatalog deletes RestoreCatalog rows older than olderThan,
// called by the maintenance loop — restores have no retention policy of
// their own, just a fixed housekeeping window (spec.md §4.5).
func (s *Store) PruneOldRestoreCatalog(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM restore_catalog WHERE finished < $1`, olderThan)
	if err != nil {
		return 0, pgerr.Classify("prune old restore catalog", err)
	}
	return tag.RowsAffected(), nil
}

func scanRestoreCatalog(row pgx.CollectableRow) (RestoreCatalog, error) {
	var rc RestoreCatalog
	err := row.Scan(&rc.RestoreCatID, &rc.RestoreID, &rc.Started, &rc.Finished, &rc.Duration,
		&rc.ExecutionStatus, &rc.ReturnCode, &rc.ErrorMsg, &rc.AlertedAt)
	return rc, err
}
