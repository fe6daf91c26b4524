package adminapi

import (
	"context"
	"strconv"

	pgbackmanconfig "github.com/pgbackman/pgbackman/internal/config"
	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// ShowBackupServerConfig returns the key/value configuration overrides
// stored for a backup server. Crontab paths are per-node keys (see
// ShowPgSQLNodeConfig), not backup server keys.
func (a *API) ShowBackupServerConfig(ctx context.Context, serverID int64) (map[string]string, error) {
	return a.store.BackupServerConfig(ctx, serverID)
}

// UpdateBackupServerConfig sets a single key/value override for a backup
// server.
func (a *API) UpdateBackupServerConfig(ctx context.Context, serverID int64, key, value string) error {
	if key == "" {
		return pgerr.New(pgerr.KindValidation, "config key is required")
	}
	return a.store.UpdateBackupServerConfig(ctx, serverID, key, value)
}

// ShowPgSQLNodeConfig returns the key/value configuration overrides stored
// for a pgsql node (e.g. backup_minutes_interval, backup_hours_interval).
func (a *API) ShowPgSQLNodeConfig(ctx context.Context, nodeID int64) (map[string]string, error) {
	return a.store.PgSQLNodeConfig(ctx, nodeID)
}

// UpdatePgSQLNodeConfig sets a single key/value override for a pgsql node.
func (a *API) UpdatePgSQLNodeConfig(ctx context.Context, nodeID int64, key, value string) error {
	if key == "" {
		return pgerr.New(pgerr.KindValidation, "config key is required")
	}
	return a.store.UpdatePgSQLNodeConfig(ctx, nodeID, key, value)
}

// ShowPgBackManConfig renders the process's own merged configuration (the
// same Config LoadWithKoanf produced at startup), for show_pgbackman_config.
func (a *API) ShowPgBackManConfig(cfg *pgbackmanconfig.Config) map[string]string {
	return map[string]string{
		"dbhost":                    cfg.Catalog.Host,
		"dbport":                    strconv.Itoa(cfg.Catalog.Port),
		"dbname":                    cfg.Catalog.Name,
		"dbuser":                    cfg.Catalog.User,
		"sslmode":                   cfg.Catalog.SSLMode,
		"pg_connect_retry_interval": cfg.Catalog.ConnectRetryInterval.String(),
		"backup_server":             cfg.Server.BackupServerFQDN,
		"database_source_dir":       cfg.Executor.DatabaseSourceDir,
		"tmp_dir":                   cfg.Executor.TmpDir,
		"root_backup_partition":     cfg.Executor.RootBackupPartition,
		"maintenance_interval":      cfg.Maintenance.Interval.String(),
		"smtp_alerts":               boolStr(cfg.SMTP.AlertsEnabled),
		"alerts_check_interval":     cfg.SMTP.CheckInterval.String(),
		"smtp_server":               cfg.SMTP.Server,
		"log_level":                 cfg.Logging.Level,
	}
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
