// Command pgbackman is the operator CLI: every register/update/delete/show
// operation of spec.md §6 is available both as a one-shot non-interactive
// invocation (exit 0 on success, 1 on error) and as a line in the
// interactive shell (which never exits on a command error).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pgbackman/pgbackman/internal/adminapi"
	"github.com/pgbackman/pgbackman/internal/catalog"
	"github.com/pgbackman/pgbackman/internal/config"
	"github.com/pgbackman/pgbackman/internal/logging"
)

// session carries the interactive shell's per-invocation state: the
// default backup server id (no command sets it; the shell's "set" command
// only changes output_format), the current output format, and command
// history. Kept as explicit state
// here rather than the source's global mutable module variables.
type session struct {
	store                 *catalog.Store
	api                   *adminapi.API
	ctx                   context.Context
	format                OutputFormat
	defaultBackupServerID int64
	history               []string
}

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pgbackman: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := logging.ContextWithNewOperationID(context.Background())
	store, err := catalog.Open(ctx, cfg.Catalog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pgbackman: failed to connect to catalog: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	sess := &session{
		store:  store,
		api:    adminapi.New(store),
		ctx:    ctx,
		format: FormatTable,
	}

	if len(os.Args) > 1 {
		root := newRootCmd(sess, cfg)
		root.SetArgs(os.Args[1:])
		if err := root.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	runShell(sess, cfg)
}
