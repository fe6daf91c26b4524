// Package catalog implements the coordination engine's authoritative data
// model — BackupServer, PgSQLNode, BackupDefinition, SnapshotDefinition,
// RestoreDefinition, BackupCatalog, RestoreCatalog, and BackupServerPgBinDir
// — backed by a PostgreSQL catalog store reached through pgx/v5 + pgxpool.
// The job queue protocol lives in the catalog/jobqueue sub-package since it
// is consumed by a different set of callers (control daemons) than the
// entity tables themselves.
package catalog

import "time"

// ServerStatus is the lifecycle state of a BackupServer.
type ServerStatus string

const (
	ServerRunning ServerStatus = "RUNNING"
	ServerStopped ServerStatus = "STOPPED"
)

// NodeStatus is the lifecycle state of a PgSQLNode.
type NodeStatus string

const (
	NodeRunning NodeStatus = "RUNNING"
	NodeDown    NodeStatus = "DOWN"
)

// BackupCode identifies what a BackupDefinition or SnapshotDefinition dumps.
// CLUSTER means every database in the instance; FULL is schema+data+globals
// for one database; SCHEMA is schema+globals only; DATA is data only.
type BackupCode string

const (
	CodeCluster BackupCode = "CLUSTER"
	CodeFull    BackupCode = "FULL"
	CodeSchema  BackupCode = "SCHEMA"
	CodeData    BackupCode = "DATA"
)

// JobStatus toggles whether a recurring BackupDefinition is materialized
// into the crontab.
type JobStatus string

const (
	JobActive  JobStatus = "ACTIVE"
	JobStopped JobStatus = "STOPPED"
)

// DefinitionStatus is the lifecycle of a one-shot SnapshotDefinition or
// RestoreDefinition as the control daemon installs its AT job.
type DefinitionStatus string

const (
	StatusWaiting DefinitionStatus = "WAITING"
	StatusDefined DefinitionStatus = "DEFINED"
	StatusError   DefinitionStatus = "ERROR"
)

// ExecutionStatus is the terminal outcome of a BackupCatalog or
// RestoreCatalog row.
type ExecutionStatus string

const (
	ExecutionSucceeded ExecutionStatus = "SUCCEEDED"
	ExecutionError     ExecutionStatus = "ERROR"
)

// Schedule is the five cron fields of a recurring BackupDefinition.
type Schedule struct {
	Minute     string
	Hour       string
	DayOfMonth string
	Month      string
	Weekday    string
}

// BackupServer is a host that executes backups and stores artifacts.
// Unique by (Hostname, Domain).
type BackupServer struct {
	ID        int64
	Hostname  string
	Domain    string
	Status    ServerStatus
	Remarks   string
	CreatedAt time.Time
	Config    map[string]string
}

// PgSQLNode is a PostgreSQL instance being protected. Unique by
// (Hostname, Domain).
type PgSQLNode struct {
	ID        int64
	Hostname  string
	Domain    string
	Port      int
	AdminUser string
	Status    NodeStatus
	Remarks   string
	CreatedAt time.Time
	Config    map[string]string
}

// BackupDefinition is a recurring declaration: back up Dbname on
// (BackupServerID, PgSQLNodeID) according to Schedule with the given
// retention. (BackupServerID, PgSQLNodeID, Dbname, Code) uniquely identifies
// a non-deleted active definition.
type BackupDefinition struct {
	DefID              int64
	BackupServerID     int64
	PgSQLNodeID        int64
	Dbname             string
	Schedule           Schedule
	Code               BackupCode
	Encryption         bool
	RetentionPeriod    time.Duration
	RetentionRedundancy int
	ExtraParameters    string
	JobStatus          JobStatus
	Remarks            string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SnapshotDefinition is a one-shot dump scheduled at a specific time.
type SnapshotDefinition struct {
	SnapshotID      int64
	BackupServerID  int64
	PgSQLNodeID     int64
	Dbname          string
	At              time.Time
	Tag             string
	Code            BackupCode
	Encryption      bool
	RetentionPeriod time.Duration
	PgDumpRelease   string // empty means "use the source cluster's version"
	ExtraParameters string
	Status          DefinitionStatus
	Remarks         string
	CreatedAt       time.Time
}

// RestoreDefinition is a one-shot restore request.
//
// Invariant: RenamedDbname, if set, must not currently exist on the target
// node. RolesToRestore omits roles already present on the target (the
// caller must have confirmed reuse when the RestoreDefinition was created).
type RestoreDefinition struct {
	RestoreID        int64
	At               time.Time
	SourceBckID      int64
	TargetServerID   int64
	TargetNodeID     int64
	TargetDbname     string
	RenamedDbname    string
	ExtraParameters  string
	RolesToRestore   []string
	Status           DefinitionStatus
	CreatedAt        time.Time
}

// BackupCatalog is one row per completed or failed dump execution. Exactly
// one of DefID / SnapshotID is set. Append-only from the executor's
// perspective; only the maintenance loop deletes rows (with their files)
// under retention rules.
type BackupCatalog struct {
	BckID           int64
	DefID           *int64
	SnapshotID      *int64
	BackupServerID  int64
	PgSQLNodeID     int64
	Dbname          string
	Started         time.Time
	Finished        time.Time
	Duration        time.Duration
	DumpFile        string
	DumpFileSize    int64
	DumpLogFile     string
	GlobalsFile     string
	GlobalsFileSize int64
	GlobalsLogFile  string
	IndexesFile     string
	IndexesFileSize int64
	IndexesLogFile  string
	ExecutionStatus ExecutionStatus
	ReturnCode      int
	ErrorMsg        string
	PgDumpRelease   string
	RoleList        []string
	AlertedAt       *time.Time
	Deleted         bool
}

// RestoreCatalog is one row per completed or failed restore execution.
type RestoreCatalog struct {
	RestoreCatID    int64
	RestoreID       int64
	Started         time.Time
	Finished        time.Time
	Duration        time.Duration
	ExecutionStatus ExecutionStatus
	ReturnCode      int
	ErrorMsg        string
	AlertedAt       *time.Time
}

// BackupServerPgBinDir maps a (backup server, PostgreSQL major version) pair
// to the directory holding that version's pg_dump/pg_restore binaries.
// PgMajorVersion == 0 denotes the system-wide default row for that server.
type BackupServerPgBinDir struct {
	BackupServerID int64
	PgMajorVersion int
	BinDir         string
	Description    string
}

// NodeStats is the per-node statistics record returned by
// show_pgsql_node_stats (keyed by node id, per spec.md's Open Question
// resolution — see DESIGN.md).
type NodeStats struct {
	PgSQLNodeID      int64
	DefinitionCount  int
	SnapshotCount    int
	LastSuccessfulAt *time.Time
	LastErrorAt      *time.Time
}

// ServerStats is the per-backup-server statistics record.
type ServerStats struct {
	BackupServerID  int64
	DefinitionCount int
	CatalogRowCount int
	TotalBytes      int64
}
