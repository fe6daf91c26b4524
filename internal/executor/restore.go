package executor

import (
	"context"
	"path/filepath"
	"time"

	"github.com/pgbackman/pgbackman/internal/catalog"
)

// RestoreParams is everything RunRestore needs, resolved ahead of
// invoking pg_restore.
type RestoreParams struct {
	RestoreID                    int64
	DumpFile                     string
	TargetServerID, TargetNodeID int64
	TargetHost                   string
	TargetPort                   int
	TargetAdminUser              string
	TargetDbname                 string
	ExtraParameters              string
}

// RunRestore restores DumpFile into TargetDbname via pg_restore, recording
// the outcome as a RestoreCatalog row.
func (e *Executor) RunRestore(ctx context.Context, p RestoreParams) (int, error) {
	binDir, err := e.store.ResolveBinDir(ctx, p.TargetServerID, 0)
	if err != nil {
		return 1, err
	}

	started := time.Now()
	logFile := p.DumpFile + ".restore.log"
	env := pgEnv(p.TargetHost, p.TargetPort, p.TargetAdminUser)

	args := []string{"--dbname=" + p.TargetDbname, "--no-owner", "--no-acl"}
	if p.ExtraParameters != "" {
		args = append(args, p.ExtraParameters)
	}
	args = append(args, p.DumpFile)

	returnCode, execErr, stderr := runCommand(ctx, filepath.Join(binDir, "pg_restore"), args, env, logFile)
	finished := time.Now()

	status := catalog.ExecutionSucceeded
	errMsg := ""
	if execErr != nil {
		status = catalog.ExecutionError
		errMsg = stderr
		if errMsg == "" {
			errMsg = execErr.Error()
		}
	}

	_, insertErr := e.store.InsertRestoreCatalog(ctx, catalog.RestoreCatalog{
		RestoreID: p.RestoreID, Started: started, Finished: finished, Duration: finished.Sub(started),
		ExecutionStatus: status, ReturnCode: returnCode, ErrorMsg: errMsg,
	})
	if insertErr != nil {
		return returnCode, insertErr
	}
	return returnCode, nil
}
