// Package executor runs pg_dump/pg_dumpall/pg_restore on behalf of a
// scheduled job, per spec.md §4.4. It is invoked by the local scheduler
// (cron for recurring BackupDefinitions, at(1) for one-shot Snapshot/Restore
// Definitions) as a short-lived process, one invocation per job.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/pgbackman/pgbackman/internal/catalog"
	"github.com/pgbackman/pgbackman/internal/logging"
	"github.com/pgbackman/pgbackman/internal/pendinglog"
	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// Executor runs dumps and restores and records their outcome in the
// catalog, falling back to the pending-log spool when the catalog is
// unreachable.
type Executor struct {
	store             *catalog.Store
	rootBackupPartition string
	pendingUpdatesDir string
	pauseRecoveryOnSlave bool
}

// New builds an Executor.
func New(store *catalog.Store, rootBackupPartition, pendingUpdatesDir string, pauseRecoveryOnSlave bool) *Executor {
	return &Executor{
		store:                store,
		rootBackupPartition:  rootBackupPartition,
		pendingUpdatesDir:    pendingUpdatesDir,
		pauseRecoveryOnSlave: pauseRecoveryOnSlave,
	}
}

// DumpParams is everything RunDump needs, resolved from the catalog ahead
// of invoking pg_dump.
type DumpParams struct {
	DefID, SnapshotID           *int64
	BackupServerID, PgSQLNodeID int64
	NodeFQDN, Dbname            string
	NodeHost                    string
	NodePort                    int
	NodeAdminUser               string
	Code                        catalog.BackupCode
	Encryption                  bool
	PgDumpRelease               string
	ExtraParameters             string
	IsHotStandby                bool
}

// RunDump resolves the pg_dump binary, executes it, and records the result.
// Exit code mirrors the underlying utility's, per spec.md §4.4 point 6.
func (e *Executor) RunDump(ctx context.Context, p DumpParams) (int, error) {
	pgMajor := majorVersionOf(p.PgDumpRelease)
	binDir, err := e.store.ResolveBinDir(ctx, p.BackupServerID, pgMajor)
	if err != nil {
		return 1, err
	}

	if e.pauseRecoveryOnSlave && p.IsHotStandby {
		logging.Info().Str("dbname", p.Dbname).Msg("node is a hot standby; dumping without pausing recovery")
	}

	started := time.Now()
	dir := e.artifactDir(p.NodeFQDN, p.Dbname, started)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 1, pgerr.Wrap(pgerr.KindFilesystem, "create artifact directory", err)
	}

	idSuffix := idSuffixFor(p.DefID, p.SnapshotID)
	dumpFile := filepath.Join(dir, idSuffix+".dump")
	dumpLogFile := filepath.Join(dir, idSuffix+".dump.log")
	globalsFile := filepath.Join(dir, idSuffix+".globals")
	globalsLogFile := filepath.Join(dir, idSuffix+".globals.log")

	env := pgEnv(p.NodeHost, p.NodePort, p.NodeAdminUser)

	_, globalsErr, _ := runCommand(ctx, filepath.Join(binDir, "pg_dumpall"),
		[]string{"--globals-only", "--file=" + globalsFile}, env, globalsLogFile)

	var dumpArgs []string
	switch p.Code {
	case catalog.CodeCluster:
		dumpArgs = []string{"--file=" + dumpFile, "--format=custom"}
	case catalog.CodeSchema:
		dumpArgs = []string{"--schema-only", "--dbname=" + p.Dbname, "--file=" + dumpFile, "--format=custom"}
	case catalog.CodeData:
		dumpArgs = []string{"--data-only", "--dbname=" + p.Dbname, "--file=" + dumpFile, "--format=custom"}
	default: // CodeFull
		dumpArgs = []string{"--dbname=" + p.Dbname, "--file=" + dumpFile, "--format=custom"}
	}
	if p.ExtraParameters != "" {
		dumpArgs = append(dumpArgs, p.ExtraParameters)
	}

	returnCode, execErr, stderr := runCommand(ctx, filepath.Join(binDir, pgDumpBinary(p.Code)), dumpArgs, env, dumpLogFile)

	if p.Encryption && execErr == nil {
		if err := encryptFile(ctx, dumpFile); err != nil {
			execErr = err
		} else {
			dumpFile += ".gpg"
		}
	}

	finished := time.Now()
	status := catalog.ExecutionSucceeded
	errMsg := ""
	if execErr != nil || globalsErr != nil {
		status = catalog.ExecutionError
		errMsg = stderr
		if errMsg == "" && execErr != nil {
			errMsg = execErr.Error()
		}
		if globalsErr != nil {
			errMsg = "globals dump: " + globalsErr.Error() + "; " + errMsg
		}
	}

	row := catalog.BackupCatalog{
		DefID: p.DefID, SnapshotID: p.SnapshotID,
		BackupServerID: p.BackupServerID, PgSQLNodeID: p.PgSQLNodeID, Dbname: p.Dbname,
		Started: started, Finished: finished, Duration: finished.Sub(started),
		DumpFile: fileOrEmpty(dumpFile), DumpFileSize: sizeOf(dumpFile), DumpLogFile: dumpLogFile,
		GlobalsFile: fileOrEmpty(globalsFile), GlobalsFileSize: sizeOf(globalsFile), GlobalsLogFile: globalsLogFile,
		ExecutionStatus: status, ReturnCode: returnCode, ErrorMsg: errMsg,
		PgDumpRelease: p.PgDumpRelease,
	}

	if _, insertErr := e.store.InsertBackupCatalog(ctx, row); insertErr != nil {
		if pgerr.Is(insertErr, pgerr.KindDatabaseUnavailable) {
			if spoolErr := pendinglog.Append(e.pendingUpdatesDir, p.PgSQLNodeID, row); spoolErr != nil {
				return returnCode, spoolErr
			}
			logging.Warn().Int64("pgsql_node_id", p.PgSQLNodeID).Msg("catalog unreachable, spooled to pending-log")
		} else {
			return returnCode, insertErr
		}
	}

	return returnCode, nil
}

func (e *Executor) artifactDir(nodeFQDN, dbname string, at time.Time) string {
	return filepath.Join(e.rootBackupPartition, nodeFQDN, dbname,
		fmt.Sprintf("%04d", at.Year()), fmt.Sprintf("%02d", at.Month()), fmt.Sprintf("%02d", at.Day()))
}

func idSuffixFor(defID, snapshotID *int64) string {
	switch {
	case defID != nil:
		return fmt.Sprintf("%d", *defID)
	case snapshotID != nil:
		return fmt.Sprintf("snap%d", *snapshotID)
	default:
		return "unknown"
	}
}

func pgDumpBinary(code catalog.BackupCode) string {
	if code == catalog.CodeCluster {
		return "pg_dumpall"
	}
	return "pg_dump"
}

func pgEnv(host string, port int, user string) []string {
	return []string{
		"PGHOST=" + host,
		"PGPORT=" + fmt.Sprintf("%d", port),
		"PGUSER=" + user,
	}
}

// runCommand executes name with args and env, capturing combined
// stdout+stderr to logFile (alongside the artifact, per spec.md §4.4) and
// returning the process's exit code, any invocation error, and the
// full captured stderr for catalog error_msg population.
func runCommand(ctx context.Context, name string, args []string, env []string, logFile string) (int, error, string) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	combined := stdout.String() + stderr.String()
	if writeErr := os.WriteFile(logFile, []byte(combined), 0o640); writeErr != nil {
		logging.Error().Err(writeErr).Str("log_file", logFile).Msg("failed to write executor log file")
	}

	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	} else if err != nil {
		code = 1
	}
	return code, err, stderr.String()
}

func encryptFile(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, "gpg", "--batch", "--yes", "--encrypt", "--default-recipient-self", path)
	if err := cmd.Run(); err != nil {
		return pgerr.Wrap(pgerr.KindExternalProcess, "gpg encryption failed", err)
	}
	return os.Remove(path)
}

func fileOrEmpty(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func sizeOf(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func majorVersionOf(release string) int {
	if release == "" {
		return 0
	}
	var major int
	if _, err := fmt.Sscanf(release, "%d", &major); err != nil {
		return 0
	}
	return major
}
