package config

import "time"

// Config is the coordination engine's full runtime configuration, assembled
// by LoadWithKoanf from defaults, an optional YAML file, and environment
// variables (in increasing order of precedence).
type Config struct {
	Catalog      CatalogConfig      `koanf:"catalog"`
	Server       ServerConfig       `koanf:"server"`
	ControlDaemon ControlDaemonConfig `koanf:"control_daemon"`
	Executor     ExecutorConfig     `koanf:"executor"`
	Maintenance  MaintenanceConfig  `koanf:"maintenance"`
	SMTP         SMTPConfig         `koanf:"smtp"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// CatalogConfig describes how to reach the PostgreSQL catalog store.
type CatalogConfig struct {
	Host                   string        `koanf:"dbhost"`
	HostAddr               string        `koanf:"dbhostaddr"`
	Port                   int           `koanf:"dbport"`
	Name                   string        `koanf:"dbname"`
	User                   string        `koanf:"dbuser"`
	Password               string        `koanf:"dbpassword"`
	SSLMode                string        `koanf:"sslmode"`
	ConnectRetryInterval   time.Duration `koanf:"pg_connect_retry_interval"`
	MaxConns               int32         `koanf:"max_conns"`
}

// ServerConfig configures the identity of the backup server this daemon
// instance runs on. BackupServerFQDN overrides the OS-reported hostname,
// which matters when a machine has multiple resolvable names.
type ServerConfig struct {
	BackupServerFQDN             string `koanf:"backup_server"`
	PauseRecoveryProcessOnSlave  bool   `koanf:"pause_recovery_process_on_slave"`
}

// ControlDaemonConfig configures the per-backup-server poll loop.
type ControlDaemonConfig struct {
	PollInterval      time.Duration `koanf:"poll_interval"`
	PendingUpdatesDir string        `koanf:"pending_updates_dir"`
	// ExecutorPath is the path to the executor binary emitted into
	// generated crontab lines and at(1) job bodies. Not part of the
	// original key-value config file format; every crontab/AT entry must
	// name an invokable path, so this is an ambient addition.
	ExecutorPath string `koanf:"executor_path"`
}

// ExecutorConfig configures where the dump/restore executor stages files,
// reads migration SQL from, and what it runs dumps/restores as.
type ExecutorConfig struct {
	DatabaseSourceDir   string `koanf:"database_source_dir"`
	TmpDir              string `koanf:"tmp_dir"`
	RootBackupPartition string `koanf:"root_backup_partition"`
}

// MaintenanceConfig configures the retention/cleanup loop's cadence.
type MaintenanceConfig struct {
	Interval time.Duration `koanf:"maintenance_interval"`
	// AutomaticDeletionRetention is an additional grace window added on top
	// of a definition's retention_period before an expired row's
	// DELETE_ARTIFACT job is actually emitted.
	AutomaticDeletionRetention time.Duration `koanf:"automatic_deletion_retention"`
	// RestoreCatalogMaxAge bounds how long RestoreCatalog rows are kept.
	RestoreCatalogMaxAge time.Duration `koanf:"restore_catalog_max_age"`
	// VacuumEvery sets how many maintenance ticks elapse between catalog
	// VACUUMs (a coarser cadence than retention enforcement itself).
	VacuumEvery int `koanf:"vacuum_every"`
}

// SMTPConfig configures the alerting loop's mail delivery sink.
type SMTPConfig struct {
	AlertsEnabled      bool          `koanf:"smtp_alerts"`
	CheckInterval      time.Duration `koanf:"alerts_check_interval"`
	Server             string        `koanf:"smtp_server"`
	Port               int           `koanf:"smtp_port"`
	SSL                bool          `koanf:"smtp_ssl"`
	User               string        `koanf:"smtp_user"`
	Password           string        `koanf:"smtp_password"`
	FromAddress        string        `koanf:"smtp_from_address"`
	AlertsTemplatePath string        `koanf:"alerts_template"`
	// AlertsTo is a comma-separated list of recipient addresses for
	// catalog-error notifications. Not part of the original key-value
	// config file format; read from smtp.alerts_to in the YAML file or the
	// ALERTS_TO environment variable, and split on commas by the caller.
	AlertsTo string `koanf:"alerts_to"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}
