// Command executor is the short-lived process invoked by cron (for a
// recurring BackupDefinition) or at(1) (for a one-shot SnapshotDefinition or
// RestoreDefinition), per spec.md §4.4. It resolves exactly one of
// --def-id, --snapshot-id, --restore-id into the parameters required to
// invoke pg_dump/pg_dumpall/pg_restore, runs it, records the outcome in the
// catalog (or the pending-log if the catalog is unreachable), and exits
// with the underlying utility's return code.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pgbackman/pgbackman/internal/catalog"
	"github.com/pgbackman/pgbackman/internal/config"
	"github.com/pgbackman/pgbackman/internal/executor"
	"github.com/pgbackman/pgbackman/internal/logging"
)

func main() {
	defID := flag.Int64("def-id", 0, "run the recurring BackupDefinition with this id")
	snapshotID := flag.Int64("snapshot-id", 0, "run the SnapshotDefinition with this id")
	restoreID := flag.Int64("restore-id", 0, "run the RestoreDefinition with this id")
	flag.Parse()

	set := 0
	for _, v := range []int64{*defID, *snapshotID, *restoreID} {
		if v != 0 {
			set++
		}
	}
	if set != 1 {
		fmt.Fprintln(os.Stderr, "executor: exactly one of --def-id, --snapshot-id, --restore-id is required")
		os.Exit(2)
	}

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		fmt.Fprintf(os.Stderr, "executor: failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx := context.Background()
	store, err := catalog.Open(ctx, cfg.Catalog)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open catalog store")
	}
	defer store.Close()

	exec := executor.New(store, cfg.Executor.RootBackupPartition, cfg.ControlDaemon.PendingUpdatesDir,
		cfg.Server.PauseRecoveryProcessOnSlave)

	var code int
	switch {
	case *defID != 0:
		p, rerr := resolveDefinitionDump(ctx, store, *defID)
		if rerr != nil {
			logging.Fatal().Err(rerr).Int64("def_id", *defID).Msg("failed to resolve backup definition")
		}
		code, err = exec.RunDump(ctx, p)
	case *snapshotID != 0:
		p, rerr := resolveSnapshotDump(ctx, store, *snapshotID)
		if rerr != nil {
			logging.Fatal().Err(rerr).Int64("snapshot_id", *snapshotID).Msg("failed to resolve snapshot definition")
		}
		code, err = exec.RunDump(ctx, p)
	case *restoreID != 0:
		p, rerr := resolveRestore(ctx, store, *restoreID)
		if rerr != nil {
			logging.Fatal().Err(rerr).Int64("restore_id", *restoreID).Msg("failed to resolve restore definition")
		}
		code, err = exec.RunRestore(ctx, p)
	}
	if err != nil {
		logging.Error().Err(err).Msg("executor run failed")
	}
	os.Exit(code)
}

// resolveDefinitionDump turns a recurring BackupDefinition into DumpParams.
func resolveDefinitionDump(ctx context.Context, store *catalog.Store, defID int64) (executor.DumpParams, error) {
	def, err := store.BackupDefinitionByID(ctx, defID)
	if err != nil {
		return executor.DumpParams{}, err
	}
	node, nodeCfg, err := nodeAndConfig(ctx, store, def.PgSQLNodeID)
	if err != nil {
		return executor.DumpParams{}, err
	}
	fqdn := node.Hostname + "." + node.Domain
	return executor.DumpParams{
		DefID:           &def.DefID,
		BackupServerID:  def.BackupServerID,
		PgSQLNodeID:     def.PgSQLNodeID,
		NodeFQDN:        fqdn,
		Dbname:          def.Dbname,
		NodeHost:        fqdn,
		NodePort:        node.Port,
		NodeAdminUser:   node.AdminUser,
		Code:            def.Code,
		Encryption:      def.Encryption,
		ExtraParameters: def.ExtraParameters,
		IsHotStandby:    nodeCfg["is_hot_standby"] == "true",
	}, nil
}

// resolveSnapshotDump turns a one-shot SnapshotDefinition into DumpParams.
func resolveSnapshotDump(ctx context.Context, store *catalog.Store, snapshotID int64) (executor.DumpParams, error) {
	snap, err := store.SnapshotDefinitionByID(ctx, snapshotID)
	if err != nil {
		return executor.DumpParams{}, err
	}
	node, nodeCfg, err := nodeAndConfig(ctx, store, snap.PgSQLNodeID)
	if err != nil {
		return executor.DumpParams{}, err
	}
	fqdn := node.Hostname + "." + node.Domain
	return executor.DumpParams{
		SnapshotID:      &snap.SnapshotID,
		BackupServerID:  snap.BackupServerID,
		PgSQLNodeID:     snap.PgSQLNodeID,
		NodeFQDN:        fqdn,
		Dbname:          snap.Dbname,
		NodeHost:        fqdn,
		NodePort:        node.Port,
		NodeAdminUser:   node.AdminUser,
		Code:            snap.Code,
		Encryption:      snap.Encryption,
		PgDumpRelease:   snap.PgDumpRelease,
		ExtraParameters: snap.ExtraParameters,
		IsHotStandby:    nodeCfg["is_hot_standby"] == "true",
	}, nil
}

// resolveRestore turns a RestoreDefinition into RestoreParams. The source
// artifact path is read off the BackupCatalog row it points at; the actual
// target database name is RenamedDbname when set, else TargetDbname, per
// the RestoreDefinition invariant in spec.md §3.
func resolveRestore(ctx context.Context, store *catalog.Store, restoreID int64) (executor.RestoreParams, error) {
	r, err := store.RestoreDefinitionByID(ctx, restoreID)
	if err != nil {
		return executor.RestoreParams{}, err
	}
	source, err := store.BackupDetails(ctx, r.SourceBckID)
	if err != nil {
		return executor.RestoreParams{}, err
	}
	node, err := store.PgSQLNodeByID(ctx, r.TargetNodeID)
	if err != nil {
		return executor.RestoreParams{}, err
	}
	fqdn := node.Hostname + "." + node.Domain

	targetDbname := r.TargetDbname
	if r.RenamedDbname != "" {
		targetDbname = r.RenamedDbname
	}

	return executor.RestoreParams{
		RestoreID:       r.RestoreID,
		DumpFile:        source.DumpFile,
		TargetServerID:  r.TargetServerID,
		TargetNodeID:    r.TargetNodeID,
		TargetHost:      fqdn,
		TargetPort:      node.Port,
		TargetAdminUser: node.AdminUser,
		TargetDbname:    targetDbname,
		ExtraParameters: r.ExtraParameters,
	}, nil
}

func nodeAndConfig(ctx context.Context, store *catalog.Store, nodeID int64) (catalog.PgSQLNode, map[string]string, error) {
	node, err := store.PgSQLNodeByID(ctx, nodeID)
	if err != nil {
		return catalog.PgSQLNode{}, nil, err
	}
	nodeCfg, err := store.PgSQLNodeConfig(ctx, nodeID)
	if err != nil {
		return catalog.PgSQLNode{}, nil, err
	}
	return node, nodeCfg, nil
}
