// Package pendinglog implements the on-disk spool the executor falls back
// to when a dump completes but the catalog database is unreachable, and the
// drain that ingests those files: the control daemon runs it once on
// startup, and the migrator runs it before a schema upgrade (spec.md §4.6).
package pendinglog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pgbackman/pgbackman/internal/catalog"
	"github.com/pgbackman/pgbackman/internal/logging"
	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// fieldCount is the number of ::-separated fields a valid line has.
const fieldCount = 24

// filePrefix identifies a pending-log file by name, scoped to one pgsql node.
const filePrefix = "backup_jobs_pending_log_updates_nodeid"

// FileName returns the spool filename for nodeID, rooted at dir.
func FileName(dir string, nodeID int64) string {
	return filepath.Join(dir, fmt.Sprintf("%s%d", filePrefix, nodeID))
}

// Append writes one 24-field line to the pending-log file for (dir, nodeID),
// creating it if necessary. Called by the executor when InsertBackupCatalog
// fails with KindDatabaseUnavailable.
func Append(dir string, nodeID int64, row catalog.BackupCatalog) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return pgerr.Wrap(pgerr.KindFilesystem, "create pending-log directory", err)
	}

	f, err := os.OpenFile(FileName(dir, nodeID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return pgerr.Wrap(pgerr.KindFilesystem, "open pending-log file", err)
	}
	defer f.Close()

	if _, err := f.WriteString(encode(row) + "\n"); err != nil {
		return pgerr.Wrap(pgerr.KindFilesystem, "append to pending-log file", err)
	}
	return f.Sync()
}

func encode(r catalog.BackupCatalog) string {
	defID, snapshotID := "", ""
	if r.DefID != nil {
		defID = strconv.FormatInt(*r.DefID, 10)
	}
	if r.SnapshotID != nil {
		snapshotID = strconv.FormatInt(*r.SnapshotID, 10)
	}

	fields := []string{
		defID,
		strconv.Itoa(os.Getpid()),
		strconv.FormatInt(r.BackupServerID, 10),
		strconv.FormatInt(r.PgSQLNodeID, 10),
		r.Dbname,
		r.Started.Format(time.RFC3339),
		r.Finished.Format(time.RFC3339),
		r.Duration.String(),
		r.DumpFile,
		strconv.FormatInt(r.DumpFileSize, 10),
		r.DumpLogFile,
		r.GlobalsFile,
		strconv.FormatInt(r.GlobalsFileSize, 10),
		r.GlobalsLogFile,
		r.IndexesFile,
		strconv.FormatInt(r.IndexesFileSize, 10),
		r.IndexesLogFile,
		string(r.ExecutionStatus),
		strconv.Itoa(r.ReturnCode),
		r.ErrorMsg,
		r.PgDumpRelease,
		snapshotID,
		strings.Join(r.RoleList, " "),
		"",
	}
	return strings.Join(fields, "::")
}

// decode parses one line into a BackupCatalog row. It returns an error
// (never panics) on any field-count or integer-parse failure, per spec.md's
// "lines not satisfying the 24-field rule are rejected without consuming
// the file" rule.
func decode(line string) (catalog.BackupCatalog, error) {
	fields := strings.Split(line, "::")
	if len(fields) != fieldCount {
		return catalog.BackupCatalog{}, pgerr.New(pgerr.KindValidation,
			fmt.Sprintf("pending-log line has %d fields, want %d", len(fields), fieldCount))
	}

	var bc catalog.BackupCatalog
	var err error

	if fields[0] != "" {
		defID, parseErr := strconv.ParseInt(fields[0], 10, 64)
		if parseErr != nil {
			return catalog.BackupCatalog{}, pgerr.Wrap(pgerr.KindValidation, "parse def_id", parseErr)
		}
		bc.DefID = &defID
	}
	if fields[21] != "" {
		snapshotID, parseErr := strconv.ParseInt(fields[21], 10, 64)
		if parseErr != nil {
			return catalog.BackupCatalog{}, pgerr.Wrap(pgerr.KindValidation, "parse snapshot_id", parseErr)
		}
		bc.SnapshotID = &snapshotID
	}
	if bc.DefID == nil && bc.SnapshotID == nil {
		return catalog.BackupCatalog{}, pgerr.New(pgerr.KindValidation, "pending-log line has neither def_id nor snapshot_id")
	}

	if bc.BackupServerID, err = strconv.ParseInt(fields[2], 10, 64); err != nil {
		return catalog.BackupCatalog{}, pgerr.Wrap(pgerr.KindValidation, "parse backup_server_id", err)
	}
	if bc.PgSQLNodeID, err = strconv.ParseInt(fields[3], 10, 64); err != nil {
		return catalog.BackupCatalog{}, pgerr.Wrap(pgerr.KindValidation, "parse pgsql_node_id", err)
	}
	bc.Dbname = fields[4]

	if bc.Started, err = time.Parse(time.RFC3339, fields[5]); err != nil {
		return catalog.BackupCatalog{}, pgerr.Wrap(pgerr.KindValidation, "parse started", err)
	}
	if bc.Finished, err = time.Parse(time.RFC3339, fields[6]); err != nil {
		return catalog.BackupCatalog{}, pgerr.Wrap(pgerr.KindValidation, "parse finished", err)
	}
	if bc.Duration, err = time.ParseDuration(fields[7]); err != nil {
		return catalog.BackupCatalog{}, pgerr.Wrap(pgerr.KindValidation, "parse duration", err)
	}

	bc.DumpFile = fields[8]
	if bc.DumpFileSize, err = strconv.ParseInt(fields[9], 10, 64); err != nil {
		return catalog.BackupCatalog{}, pgerr.Wrap(pgerr.KindValidation, "parse dump_file_size", err)
	}
	bc.DumpLogFile = fields[10]
	bc.GlobalsFile = fields[11]
	if bc.GlobalsFileSize, err = strconv.ParseInt(fields[12], 10, 64); err != nil {
		return catalog.BackupCatalog{}, pgerr.Wrap(pgerr.KindValidation, "parse globals_file_size", err)
	}
	bc.GlobalsLogFile = fields[13]
	bc.IndexesFile = fields[14]
	if bc.IndexesFileSize, err = strconv.ParseInt(fields[15], 10, 64); err != nil {
		return catalog.BackupCatalog{}, pgerr.Wrap(pgerr.KindValidation, "parse indexes_file_size", err)
	}
	bc.IndexesLogFile = fields[16]
	bc.ExecutionStatus = catalog.ExecutionStatus(fields[17])
	if bc.ReturnCode, err = strconv.Atoi(fields[18]); err != nil {
		return catalog.BackupCatalog{}, pgerr.Wrap(pgerr.KindValidation, "parse return_code", err)
	}
	bc.ErrorMsg = fields[19]
	bc.PgDumpRelease = fields[20]
	if fields[22] != "" {
		bc.RoleList = strings.Split(fields[22], " ")
	}

	return bc, nil
}

// DrainResult summarizes one file's processing.
type DrainResult struct {
	Path       string
	LinesOK    int
	LinesBad   int
	FileDeleted bool
}

// Drain reads every pending-log file under dir, inserts each well-formed
// line via insert, and unlinks the file only when every line in it
// succeeded — matching spec.md §4.6 and the TESTABLE PROPERTIES idempotency
// requirement (re-running Drain on an already-empty dir is a no-op).
func Drain(dir string, insert func(catalog.BackupCatalog) error) ([]DrainResult, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, pgerr.Wrap(pgerr.KindFilesystem, "read pending-log directory", err)
	}

	var results []DrainResult
	for _, entry := range entries {
		if entry.IsDir() || !strings.Contains(entry.Name(), filePrefix) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		result, err := drainFile(path, insert)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

func drainFile(path string, insert func(catalog.BackupCatalog) error) (DrainResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return DrainResult{}, pgerr.Wrap(pgerr.KindFilesystem, "open pending-log file", err)
	}
	defer f.Close()

	result := DrainResult{Path: path}
	scanner := bufio.NewScanner(f)
	allOK := true
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		row, decodeErr := decode(line)
		if decodeErr != nil {
			logging.Error().Str("file", path).Err(decodeErr).Msg("pending-log line rejected")
			result.LinesBad++
			allOK = false
			continue
		}
		if insertErr := insert(row); insertErr != nil {
			logging.Error().Str("file", path).Err(insertErr).Msg("pending-log insert failed, leaving file in place")
			result.LinesBad++
			allOK = false
			continue
		}
		result.LinesOK++
	}
	if err := scanner.Err(); err != nil {
		return result, pgerr.Wrap(pgerr.KindFilesystem, "scan pending-log file", err)
	}

	if allOK && result.LinesOK > 0 {
		if err := os.Remove(path); err != nil {
			return result, pgerr.Wrap(pgerr.KindFilesystem, "remove drained pending-log file", err)
		}
		result.FileDeleted = true
	}
	return result, nil
}
