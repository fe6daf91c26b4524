package adminapi

import (
	"context"
	"strings"
	"time"

	"github.com/pgbackman/pgbackman/internal/catalog"
	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// RegisterSnapshotDefinition validates input and registers a one-shot
// SnapshotDefinition.
func (a *API) RegisterSnapshotDefinition(ctx context.Context, in RegisterSnapshotDefinitionInput) (int64, error) {
	code := catalog.BackupCode(strings.ToUpper(in.Code))
	if err := validateCode(code); err != nil {
		return 0, err
	}
	if err := validatePgDumpRelease(in.PgDumpRelease); err != nil {
		return 0, err
	}
	at, err := time.Parse(time.RFC3339, in.At)
	if err != nil {
		return 0, pgerr.Wrap(pgerr.KindValidation, "invalid at_time \""+in.At+"\"", err)
	}
	if !at.After(time.Now()) {
		return 0, pgerr.New(pgerr.KindValidation, "at_time must be in the future")
	}
	retention, err := parseDuration(in.RetentionPeriod)
	if err != nil {
		return 0, err
	}

	return a.store.RegisterSnapshotDefinition(ctx, catalog.SnapshotDefinition{
		BackupServerID: in.BackupServerID, PgSQLNodeID: in.PgSQLNodeID, Dbname: in.Dbname,
		At: at, Tag: in.Tag, Code: code, Encryption: in.Encryption,
		RetentionPeriod: retention, PgDumpRelease: in.PgDumpRelease,
		ExtraParameters: in.ExtraParameters, Remarks: in.Remarks,
	})
}

// ShowSnapshotDefinitions lists every SnapshotDefinition.
func (a *API) ShowSnapshotDefinitions(ctx context.Context) ([]catalog.SnapshotDefinition, error) {
	return a.store.ShowSnapshotDefinitions(ctx)
}

// ShowSnapshotsInProgress lists WAITING/DEFINED SnapshotDefinitions.
func (a *API) ShowSnapshotsInProgress(ctx context.Context) ([]catalog.SnapshotDefinition, error) {
	return a.store.SnapshotsInProgress(ctx)
}

// RegisterRestoreDefinition validates input, enforcing the invariant that
// RenamedDbname (if set) must not already exist on the target node, and
// registers a one-shot RestoreDefinition. RolesToRestore is passed through
// unchanged; it is not checked against the roles present on the target.
func (a *API) RegisterRestoreDefinition(ctx context.Context, in RegisterRestoreDefinitionInput) (int64, error) {
	at, err := time.Parse(time.RFC3339, in.At)
	if err != nil {
		return 0, pgerr.Wrap(pgerr.KindValidation, "invalid at_time \""+in.At+"\"", err)
	}
	if !at.After(time.Now()) {
		return 0, pgerr.New(pgerr.KindValidation, "at_time must be in the future")
	}

	targetDbname := in.TargetDbname
	if in.RenamedDbname != "" {
		targetDbname = in.RenamedDbname
		exists, err := a.store.DatabaseExistsOnNode(ctx, in.TargetNodeID, in.RenamedDbname)
		if err != nil {
			return 0, err
		}
		if exists {
			return 0, pgerr.New(pgerr.KindValidation, "renamed_dbname \""+in.RenamedDbname+"\" already exists on target node")
		}
	}

	return a.store.RegisterRestoreDefinition(ctx, catalog.RestoreDefinition{
		At: at, SourceBckID: in.SourceBckID, TargetServerID: in.TargetServerID, TargetNodeID: in.TargetNodeID,
		TargetDbname: targetDbname, RenamedDbname: in.RenamedDbname,
		ExtraParameters: in.ExtraParameters, RolesToRestore: in.RolesToRestore,
	})
}

// ShowRestoreDefinitions lists every RestoreDefinition.
func (a *API) ShowRestoreDefinitions(ctx context.Context) ([]catalog.RestoreDefinition, error) {
	return a.store.ShowRestoreDefinitions(ctx)
}

// ShowRestoresInProgress lists WAITING/DEFINED RestoreDefinitions.
func (a *API) ShowRestoresInProgress(ctx context.Context) ([]catalog.RestoreDefinition, error) {
	return a.store.RestoresInProgress(ctx)
}

// ShowBackupCatalog lists BackupCatalog rows, 0 meaning "no filter".
func (a *API) ShowBackupCatalog(ctx context.Context, defID int64) ([]catalog.BackupCatalog, error) {
	return a.store.ShowBackupCatalog(ctx, defID)
}

// ShowRestoreCatalog lists RestoreCatalog rows, 0 meaning "no filter".
func (a *API) ShowRestoreCatalog(ctx context.Context, restoreID int64) ([]catalog.RestoreCatalog, error) {
	return a.store.ShowRestoreCatalog(ctx, restoreID)
}

// ShowBackupDetails returns a single BackupCatalog row.
func (a *API) ShowBackupDetails(ctx context.Context, bckID int64) (catalog.BackupCatalog, error) {
	return a.store.BackupDetails(ctx, bckID)
}

// ShowRestoreDetails returns a single RestoreCatalog row.
func (a *API) ShowRestoreDetails(ctx context.Context, restoreCatID int64) (catalog.RestoreCatalog, error) {
	return a.store.RestoreDetails(ctx, restoreCatID)
}

// ShowPgBackManStats returns the cluster-wide summary.
func (a *API) ShowPgBackManStats(ctx context.Context) (catalog.PgBackManStats, error) {
	return a.store.PgBackManWideStats(ctx)
}

// ShowBackupServerStats returns per-backup-server statistics.
func (a *API) ShowBackupServerStats(ctx context.Context, serverID int64) (catalog.ServerStats, error) {
	return a.store.ServerStatsFor(ctx, serverID)
}

// ShowPgSQLNodeStats returns per-node statistics, keyed by node id per the
// show_pgsql_node_stats Open Question resolution (DESIGN.md).
func (a *API) ShowPgSQLNodeStats(ctx context.Context, nodeID int64) (catalog.NodeStats, error) {
	return a.store.NodeStatsFor(ctx, nodeID)
}
