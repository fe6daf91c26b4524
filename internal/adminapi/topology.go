package adminapi

import (
	"context"

	"github.com/pgbackman/pgbackman/internal/catalog"
	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// RegisterBackupServer validates and registers a BackupServer.
func (a *API) RegisterBackupServer(ctx context.Context, s catalog.BackupServer) (int64, error) {
	if s.Hostname == "" || s.Domain == "" {
		return 0, pgerr.New(pgerr.KindValidation, "hostname and domain are required")
	}
	if s.Status == "" {
		s.Status = catalog.ServerRunning
	}
	if s.Status != catalog.ServerRunning && s.Status != catalog.ServerStopped {
		return 0, pgerr.New(pgerr.KindValidation, "status must be RUNNING or STOPPED")
	}
	return a.store.RegisterBackupServer(ctx, s)
}

// UpdateBackupServer validates and updates a BackupServer.
func (a *API) UpdateBackupServer(ctx context.Context, s catalog.BackupServer) error {
	if s.Status != "" && s.Status != catalog.ServerRunning && s.Status != catalog.ServerStopped {
		return pgerr.New(pgerr.KindValidation, "status must be RUNNING or STOPPED")
	}
	return a.store.UpdateBackupServer(ctx, s)
}

// DeleteBackupServer deletes a BackupServer, refused with KindConstraint if
// it still has BackupDefinitions.
func (a *API) DeleteBackupServer(ctx context.Context, id int64) error {
	return a.store.DeleteBackupServer(ctx, id)
}

// ShowBackupServers lists every BackupServer.
func (a *API) ShowBackupServers(ctx context.Context) ([]catalog.BackupServer, error) {
	return a.store.ShowBackupServers(ctx)
}

// RegisterPgSQLNode validates and registers a PgSQLNode.
func (a *API) RegisterPgSQLNode(ctx context.Context, n catalog.PgSQLNode) (int64, error) {
	if n.Hostname == "" || n.Domain == "" {
		return 0, pgerr.New(pgerr.KindValidation, "hostname and domain are required")
	}
	if n.Port <= 0 || n.Port > 65535 {
		return 0, pgerr.New(pgerr.KindValidation, "port must be in [1,65535]")
	}
	if n.AdminUser == "" {
		return 0, pgerr.New(pgerr.KindValidation, "admin_user is required")
	}
	if n.Status == "" {
		n.Status = catalog.NodeRunning
	}
	if n.Status != catalog.NodeRunning && n.Status != catalog.NodeDown {
		return 0, pgerr.New(pgerr.KindValidation, "status must be RUNNING or DOWN")
	}
	return a.store.RegisterPgSQLNode(ctx, n)
}

// UpdatePgSQLNode validates and updates a PgSQLNode.
func (a *API) UpdatePgSQLNode(ctx context.Context, n catalog.PgSQLNode) error {
	if n.Status != "" && n.Status != catalog.NodeRunning && n.Status != catalog.NodeDown {
		return pgerr.New(pgerr.KindValidation, "status must be RUNNING or DOWN")
	}
	return a.store.UpdatePgSQLNode(ctx, n)
}

// DeletePgSQLNode deletes a PgSQLNode.
func (a *API) DeletePgSQLNode(ctx context.Context, id int64) error {
	return a.store.DeletePgSQLNode(ctx, id)
}

// ShowPgSQLNodes lists every PgSQLNode.
func (a *API) ShowPgSQLNodes(ctx context.Context) ([]catalog.PgSQLNode, error) {
	return a.store.ShowPgSQLNodes(ctx)
}

// DeleteBackupDefinitionByID deletes a BackupDefinition, accepting the
// "force-deletion" positional token the id-variant command historically
// took.
func (a *API) DeleteBackupDefinitionByID(ctx context.Context, defID int64, forceDeletion bool) error {
	return a.store.DeleteBackupDefinitionByID(ctx, defID, forceDeletion)
}

// DeleteBackupDefinitionByDBName deletes every BackupDefinition matching
// (serverID, nodeID, dbname). Unified with the id variant's force-deletion
// handling per the Open Question resolution recorded in DESIGN.md: both
// commands now accept the same boolean, instead of the dbname variant's
// original interactive 'y'/'n' prompt.
func (a *API) DeleteBackupDefinitionByDBName(ctx context.Context, serverID, nodeID int64, dbname string, forceDeletion bool) error {
	return a.store.DeleteBackupDefinitionByDBName(ctx, serverID, nodeID, dbname, forceDeletion)
}

// ShowBackupDefinitions lists BackupDefinitions, 0 meaning "no filter" on
// either axis.
func (a *API) ShowBackupDefinitions(ctx context.Context, serverID, nodeID int64) ([]catalog.BackupDefinition, error) {
	return a.store.ShowBackupDefinitions(ctx, serverID, nodeID)
}

// ShowEmptyBackupCatalogs lists BackupDefinitions with zero catalog rows.
func (a *API) ShowEmptyBackupCatalogs(ctx context.Context) ([]catalog.BackupDefinition, error) {
	return a.store.EmptyBackupCatalogs(ctx)
}

// ShowDatabasesWithoutBackupDefinitions expands the
// #databases_without_backup_definitions# macro for nodeID directly, for the
// show_databases_without_backup_definitions CLI command.
func (a *API) ShowDatabasesWithoutBackupDefinitions(ctx context.Context, nodeID int64) ([]string, error) {
	return a.ExpandDbname(ctx, nodeID, macroWithoutBackupDefinitions, nil)
}

// MoveBackupDefinitionsInput collects move_backup_definition's raw,
// wildcard-permitting CLI arguments.
type MoveBackupDefinitionsInput struct {
	FromServerID int64
	ToServerID   int64
	// NodeIDs, Dbnames, DefIDs: empty/nil means "no filter on this axis";
	// Dbnames containing "all"/"*"/"" also means no filter, per
	// original_source's do_move_backup_definition.
	NodeIDs []int64
	Dbnames []string
	DefIDs  []int64
}

// MoveBackupDefinitions rejects a move onto the same server and passes the
// filters unchanged to the catalog layer, which applies the wildcard
// conventions.
func (a *API) MoveBackupDefinitions(ctx context.Context, in MoveBackupDefinitionsInput) ([]int64, error) {
	if in.FromServerID == in.ToServerID {
		return nil, pgerr.New(pgerr.KindValidation, "from_server and to_server must differ")
	}
	return a.store.MoveBackupDefinitions(ctx, in.FromServerID, in.ToServerID, in.NodeIDs, in.Dbnames, in.DefIDs)
}

// RegisterSnapshotDefinitionInput collects register_snapshot_definition's
// raw input.
type RegisterSnapshotDefinitionInput struct {
	BackupServerID  int64
	PgSQLNodeID     int64
	Dbname          string
	At              string // RFC3339 timestamp
	Tag             string
	Code            string
	Encryption      bool
	RetentionPeriod string
	PgDumpRelease   string
	ExtraParameters string
	Remarks         string
}

// RegisterRestoreDefinitionInput collects register_restore_definition's raw
// input.
type RegisterRestoreDefinitionInput struct {
	At              string
	SourceBckID     int64
	TargetServerID  int64
	TargetNodeID    int64
	TargetDbname    string
	RenamedDbname   string
	ExtraParameters string
	RolesToRestore  []string
}
