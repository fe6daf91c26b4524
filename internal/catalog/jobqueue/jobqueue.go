// Package jobqueue implements the job queue protocol described in spec.md
// §4.2: a table of deferred work, addressed to a backup server, consumed by
// that server's control daemon with at-least-once delivery and
// per-(backup_server, pgsql_node) ordering.
package jobqueue

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// Kind identifies the action a Job represents.
type Kind string

const (
	// KindCrontab requests a full crontab regeneration for (ServerID, NodeID).
	// A later CRONTAB job for the same pair supersedes (coalesces with) an
	// earlier one still queued.
	KindCrontab Kind = "CRONTAB"
	// KindATSnapshot requests installing an at(1) job for a SnapshotDefinition.
	KindATSnapshot Kind = "AT_SNAPSHOT"
	// KindATRestore requests installing an at(1) job for a RestoreDefinition.
	KindATRestore Kind = "AT_RESTORE"
	// KindDeleteArtifact requests unlinking artifact files and retiring a
	// catalog row, emitted by the maintenance loop.
	KindDeleteArtifact Kind = "DELETE_ARTIFACT"
)

// Job is one row of the queue.
type Job struct {
	JobID          int64
	BackupServerID int64
	PgSQLNodeID    *int64 // nil for jobs not scoped to a single node
	Kind           Kind
	Payload        json.RawMessage
	RegisteredAt   string // ISO-8601 text; ordering uses JobID, not this field
}

// CrontabPayload is the payload of a KindCrontab job.
type CrontabPayload struct {
	BackupServerID int64 `json:"backup_server_id"`
	PgSQLNodeID    int64 `json:"pgsql_node_id"`
}

// ATPayload is the payload of KindATSnapshot/KindATRestore jobs.
type ATPayload struct {
	ID int64 `json:"id"` // snapshot_id or restore_id
}

// DeleteArtifactPayload is the payload of a KindDeleteArtifact job.
type DeleteArtifactPayload struct {
	BckID int64    `json:"bck_id"`
	Paths []string `json:"paths"`
}

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, so callers can
// enqueue a job either standalone or as part of a larger transaction (the
// Admin API always does the latter, per spec.md's "every mutating operation
// is a single transaction" rule).
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EnqueueCrontab inserts a CRONTAB job for (serverID, nodeID). Coalescing of
// duplicate CRONTAB jobs for the same pair happens at dequeue time (the
// control daemon recomputes the whole crontab from current state regardless
// of how many CRONTAB rows accumulated), so this simply inserts.
func EnqueueCrontab(ctx context.Context, q Querier, serverID, nodeID int64) error {
	payload, _ := json.Marshal(CrontabPayload{BackupServerID: serverID, PgSQLNodeID: nodeID})
	_, err := q.Exec(ctx, `
		INSERT INTO job_queue (backup_server_id, pgsql_node_id, kind, payload)
		VALUES ($1, $2, $3, $4)`,
		serverID, nodeID, KindCrontab, payload,
	)
	return pgerr.Classify("enqueue crontab job", err)
}

// EnqueueATSnapshot inserts an AT_SNAPSHOT job.
func EnqueueATSnapshot(ctx context.Context, q Querier, serverID int64, snapshotID int64) error {
	payload, _ := json.Marshal(ATPayload{ID: snapshotID})
	_, err := q.Exec(ctx, `
		INSERT INTO job_queue (backup_server_id, pgsql_node_id, kind, payload)
		VALUES ($1, NULL, $2, $3)`,
		serverID, KindATSnapshot, payload,
	)
	return pgerr.Classify("enqueue at_snapshot job", err)
}

// EnqueueATRestore inserts an AT_RESTORE job.
func EnqueueATRestore(ctx context.Context, q Querier, serverID int64, restoreID int64) error {
	payload, _ := json.Marshal(ATPayload{ID: restoreID})
	_, err := q.Exec(ctx, `
		INSERT INTO job_queue (backup_server_id, pgsql_node_id, kind, payload)
		VALUES ($1, NULL, $2, $3)`,
		serverID, KindATRestore, payload,
	)
	return pgerr.Classify("enqueue at_restore job", err)
}

// EnqueueDeleteArtifact inserts a DELETE_ARTIFACT job.
func EnqueueDeleteArtifact(ctx context.Context, q Querier, serverID, bckID int64, paths []string) error {
	payload, _ := json.Marshal(DeleteArtifactPayload{BckID: bckID, Paths: paths})
	_, err := q.Exec(ctx, `
		INSERT INTO job_queue (backup_server_id, pgsql_node_id, kind, payload)
		VALUES ($1, NULL, $2, $3)`,
		serverID, KindDeleteArtifact, payload,
	)
	return pgerr.Classify("enqueue delete_artifact job", err)
}

// FetchForServer returns every job addressed to serverID, ordered by JobID
// ascending so that per-(server, node) registration order is preserved.
func FetchForServer(ctx context.Context, q Querier, serverID int64) ([]Job, error) {
	rows, err := q.Query(ctx, `
		SELECT job_id, backup_server_id, pgsql_node_id, kind, payload, registered_ts::text
		FROM job_queue WHERE backup_server_id = $1 ORDER BY job_id ASC`, serverID)
	if err != nil {
		return nil, pgerr.Classify("fetch job queue", err)
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Job, error) {
		var j Job
		err := row.Scan(&j.JobID, &j.BackupServerID, &j.PgSQLNodeID, &j.Kind, &j.Payload, &j.RegisteredAt)
		return j, err
	})
}

// GroupByNode partitions jobs by PgSQLNodeID, preserving each group's
// relative order. Jobs with a nil PgSQLNodeID (AT_* and DELETE_ARTIFACT
// jobs) are grouped under key 0 and processed independently per job, not as
// a crontab-regeneration batch.
func GroupByNode(jobs []Job) map[int64][]Job {
	groups := make(map[int64][]Job)
	for _, j := range jobs {
		key := int64(0)
		if j.PgSQLNodeID != nil {
			key = *j.PgSQLNodeID
		}
		groups[key] = append(groups[key], j)
	}
	return groups
}

// Ack deletes a job row after it has been successfully processed. Because
// delivery is at-least-once, Ack is only called after the side effect
// (crontab write, AT install, artifact unlink) is durable.
func Ack(ctx context.Context, q Querier, jobID int64) error {
	_, err := q.Exec(ctx, `DELETE FROM job_queue WHERE job_id = $1`, jobID)
	return pgerr.Classify("ack job", err)
}

// PruneOrphaned deletes job rows whose target backup server or pgsql node no
// longer exists, called by the maintenance loop.
func PruneOrphaned(ctx context.Context, q Querier) (int64, error) {
	tag, err := q.Exec(ctx, `
		DELETE FROM job_queue
		WHERE backup_server_id NOT IN (SELECT server_id FROM backup_server)
		   OR (pgsql_node_id IS NOT NULL AND pgsql_node_id NOT IN (SELECT node_id FROM pgsql_node))`)
	if err != nil {
		return 0, pgerr.Classify("prune orphaned jobs", err)
	}
	return tag.RowsAffected(), nil
}
