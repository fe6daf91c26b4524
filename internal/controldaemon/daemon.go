package controldaemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pgbackman/pgbackman/internal/catalog"
	"github.com/pgbackman/pgbackman/internal/catalog/jobqueue"
	"github.com/pgbackman/pgbackman/internal/logging"
	"github.com/pgbackman/pgbackman/internal/pendinglog"
	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// Daemon is the suture.Service implementation for one backup server's
// control daemon. Serve resolves the server's identity, drains the
// pending-log, then polls the JobQueue until ctx is cancelled.
type Daemon struct {
	store             *catalog.Store
	fqdn              string
	pollInterval      time.Duration
	pendingUpdatesDir string
	crontabPathFor    func(nodeID int64) (string, error)
	executorPath      string
	name              string

	serverID int64
}

// New builds a Daemon. crontabPathFor resolves a node's configured crontab
// file path (stored per-node as pgnode_crontab_file, read through
// catalog.PgSQLNodeConfig by the caller's closure).
func New(store *catalog.Store, fqdn string, pollInterval time.Duration, pendingUpdatesDir, executorPath string,
	crontabPathFor func(nodeID int64) (string, error)) *Daemon {
	return &Daemon{
		store: store, fqdn: fqdn, pollInterval: pollInterval,
		pendingUpdatesDir: pendingUpdatesDir, executorPath: executorPath,
		crontabPathFor: crontabPathFor, name: "control-daemon[" + fqdn + "]",
	}
}

// String implements fmt.Stringer, used by suture to identify the service in
// log messages.
func (d *Daemon) String() string { return d.name }

// Serve implements suture.Service.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx = logging.ContextWithLogger(ctx, logging.WithDaemon("control"))

	server, err := d.store.BackupServerByFQDN(ctx, d.fqdn)
	if err != nil {
		return fmt.Errorf("resolve backup server %q: %w", d.fqdn, err)
	}
	d.serverID = server.ID

	if err := d.drainPendingLog(ctx); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("pending-log drain failed at startup")
	}

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	backoff := d.pollInterval
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.tick(ctx); err != nil {
				if pgerr.Is(err, pgerr.KindDatabaseUnavailable) {
					backoff = nextBackoff(backoff)
					logging.Ctx(ctx).Warn().Err(err).Dur("backoff", backoff).Msg("catalog unreachable, backing off")
					time.Sleep(backoff)
					continue
				}
				logging.Ctx(ctx).Error().Err(err).Msg("control daemon tick failed")
			} else {
				backoff = d.pollInterval
			}
		}
	}
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	const cap = 5 * time.Minute
	if next > cap {
		return cap
	}
	return next
}

func (d *Daemon) drainPendingLog(ctx context.Context) error {
	_, err := pendinglog.Drain(d.pendingUpdatesDir, func(row catalog.BackupCatalog) error {
		_, insertErr := d.store.InsertBackupCatalog(ctx, row)
		return insertErr
	})
	return err
}

// tick fetches every job addressed to this server, groups by node, and
// dispatches each group. Jobs for distinct nodes are processed
// independently; within a node's group, jobs are handled in fetch order
// (registration order), per spec.md §4.2's ordering guarantee.
func (d *Daemon) tick(ctx context.Context) error {
	jobs, err := jobqueue.FetchForServer(ctx, d.store.Pool(), d.serverID)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	for nodeID, group := range jobqueue.GroupByNode(jobs) {
		if err := d.processNodeGroup(ctx, nodeID, group); err != nil {
			logging.Ctx(ctx).Error().Err(err).Int64("pgsql_node_id", nodeID).Msg("job group processing failed")
		}
	}
	return nil
}

func (d *Daemon) processNodeGroup(ctx context.Context, nodeID int64, jobs []jobqueue.Job) error {
	release, err := d.acquireAdvisoryLock(ctx, d.serverID, nodeID)
	if err != nil {
		return err
	}
	defer release()

	for _, job := range jobs {
		jobCtx := logging.ContextWithJobID(ctx, job.JobID)
		if err := d.processJob(jobCtx, job); err != nil {
			logging.Ctx(jobCtx).Error().Err(err).Str("kind", string(job.Kind)).Msg("job failed, left in queue for retry")
			continue
		}
		if err := jobqueue.Ack(ctx, d.store.Pool(), job.JobID); err != nil {
			logging.Ctx(jobCtx).Error().Err(err).Msg("failed to ack processed job")
		}
	}
	return nil
}

func (d *Daemon) processJob(ctx context.Context, job jobqueue.Job) error {
	switch job.Kind {
	case jobqueue.KindCrontab:
		return d.regenerateCrontab(ctx, job)
	case jobqueue.KindATSnapshot:
		return d.installATSnapshot(ctx, job)
	case jobqueue.KindATRestore:
		return d.installATRestore(ctx, job)
	case jobqueue.KindDeleteArtifact:
		return d.deleteArtifact(ctx, job)
	default:
		return pgerr.New(pgerr.KindValidation, "unknown job kind \""+string(job.Kind)+"\"")
	}
}

// acquireAdvisoryLock serializes crontab regeneration for (serverID, nodeID)
// across concurrent workers, per spec.md §5. Released by calling the
// returned func, which must run in the same session/transaction the lock
// was taken in (pg_advisory_lock is session-scoped).
func (d *Daemon) acquireAdvisoryLock(ctx context.Context, serverID, nodeID int64) (release func(), err error) {
	conn, err := d.store.Pool().Acquire(ctx)
	if err != nil {
		return nil, pgerr.Classify("acquire connection for advisory lock", err)
	}
	key := advisoryLockKey(serverID, nodeID)
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, key); err != nil {
		conn.Release()
		return nil, pgerr.Classify("acquire advisory lock", err)
	}
	return func() {
		conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, key) //nolint:errcheck
		conn.Release()
	}, nil
}

// advisoryLockKey combines serverID and nodeID into Postgres's single
// bigint advisory-lock key space.
func advisoryLockKey(serverID, nodeID int64) int64 {
	return (serverID << 32) ^ (nodeID & 0xffffffff)
}

func decodePayload(job jobqueue.Job, v any) error {
	if err := json.Unmarshal(job.Payload, v); err != nil {
		return pgerr.Wrap(pgerr.KindValidation, "decode job payload", err)
	}
	return nil
}

func (d *Daemon) regenerateCrontab(ctx context.Context, job jobqueue.Job) error {
	var payload jobqueue.CrontabPayload
	if err := decodePayload(job, &payload); err != nil {
		return err
	}

	defs, err := d.store.ActiveBackupDefinitionsFor(ctx, payload.BackupServerID, payload.PgSQLNodeID)
	if err != nil {
		return err
	}

	path, err := d.crontabPathFor(payload.PgSQLNodeID)
	if err != nil {
		return err
	}

	content := RenderCrontab(defs, d.executorPath, time.Now())
	return WriteCrontabAtomic(path, content)
}

func (d *Daemon) installATSnapshot(ctx context.Context, job jobqueue.Job) error {
	var payload jobqueue.ATPayload
	if err := decodePayload(job, &payload); err != nil {
		return err
	}

	snaps, err := d.store.ShowSnapshotDefinitions(ctx)
	if err != nil {
		return err
	}
	var snap *catalog.SnapshotDefinition
	for i := range snaps {
		if snaps[i].SnapshotID == payload.ID {
			snap = &snaps[i]
			break
		}
	}
	if snap == nil {
		return nil // already removed; at-least-once delivery, treat as done
	}

	if err := installAtJob(ctx, snap.At, fmt.Sprintf("%s --snapshot-id=%d", d.executorPath, snap.SnapshotID)); err != nil {
		return d.store.TransitionSnapshotError(ctx, snap.SnapshotID)
	}
	return d.store.TransitionSnapshotDefined(ctx, snap.SnapshotID)
}

func (d *Daemon) installATRestore(ctx context.Context, job jobqueue.Job) error {
	var payload jobqueue.ATPayload
	if err := decodePayload(job, &payload); err != nil {
		return err
	}

	restores, err := d.store.ShowRestoreDefinitions(ctx)
	if err != nil {
		return err
	}
	var restore *catalog.RestoreDefinition
	for i := range restores {
		if restores[i].RestoreID == payload.ID {
			restore = &restores[i]
			break
		}
	}
	if restore == nil {
		return nil
	}

	if err := installAtJob(ctx, restore.At, fmt.Sprintf("%s --restore-id=%d", d.executorPath, restore.RestoreID)); err != nil {
		return d.store.TransitionRestoreError(ctx, restore.RestoreID)
	}
	return d.store.TransitionRestoreDefined(ctx, restore.RestoreID)
}

func (d *Daemon) deleteArtifact(ctx context.Context, job jobqueue.Job) error {
	var payload jobqueue.DeleteArtifactPayload
	if err := decodePayload(job, &payload); err != nil {
		return err
	}

	for _, path := range payload.Paths {
		if err := removeIfExists(path); err != nil {
			return pgerr.Wrap(pgerr.KindFilesystem, "unlink artifact "+path, err)
		}
	}
	return d.store.MarkBackupCatalogDeleted(ctx, payload.BckID)
}

// installAtJob installs an at(1) job for the given time running command.
// atq is probed first, and each queued job's body inspected via `at -c`,
// so that a retry of an at-least-once AT_SNAPSHOT/AT_RESTORE job (spec.md
// §4.2) never installs a second at(1) entry for the same command — doing
// so would fire the executor twice for the same snapshot/restore id.
func installAtJob(ctx context.Context, at time.Time, command string) error {
	queued, err := queuedAtJobNumbers(ctx)
	if err != nil {
		return pgerr.Wrap(pgerr.KindExternalProcess, "probe atq", err)
	}
	for _, jobNum := range queued {
		already, err := atJobAlreadyQueued(ctx, jobNum, command)
		if err != nil {
			// A job may legitimately disappear between atq and at -c (it
			// fired in the meantime); inspecting it failing is not fatal to
			// the install we're about to attempt.
			continue
		}
		if already {
			return nil
		}
	}

	cmd := exec.CommandContext(ctx, "at", at.Format("15:04 2006-01-02"))
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return pgerr.Wrap(pgerr.KindExternalProcess, "open at stdin", err)
	}
	if err := cmd.Start(); err != nil {
		return pgerr.Wrap(pgerr.KindExternalProcess, "start at", err)
	}
	fmt.Fprintln(stdin, command)
	stdin.Close()
	if err := cmd.Wait(); err != nil {
		return pgerr.Wrap(pgerr.KindExternalProcess, "install at job", err)
	}
	return nil
}

// queuedAtJobNumbers returns the job numbers atq reports as still pending.
func queuedAtJobNumbers(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, "atq").Output()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			// Empty queue: atq exits non-zero on some implementations.
			return nil, nil
		}
		return nil, err
	}
	return parseAtqJobNumbers(out), nil
}

// parseAtqJobNumbers extracts job numbers from atq output, one per line,
// taking the first whitespace-separated field (e.g. "3\tWed Aug 5 03:00:00
// 2026 a root" -> "3").
func parseAtqJobNumbers(out []byte) []string {
	var nums []string
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 {
			nums = append(nums, fields[0])
		}
	}
	return nums
}

// atJobAlreadyQueued reports whether the at(1) job jobNum's spooled script
// body contains command, meaning it would run the same executor invocation
// a fresh install of command would.
func atJobAlreadyQueued(ctx context.Context, jobNum, command string) (bool, error) {
	body, err := exec.CommandContext(ctx, "at", "-c", jobNum).Output()
	if err != nil {
		return false, err
	}
	return atJobBodyMatches(body, command), nil
}

// atJobBodyMatches reports whether a spooled at(1) job's script body
// contains command verbatim.
func atJobBodyMatches(body []byte, command string) bool {
	return bytes.Contains(body, []byte(command))
}

func removeIfExists(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
