package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where a config file is searched for,
// in priority order. The first file found wins.
var DefaultConfigPaths = []string{
	"pgbackman.yaml",
	"pgbackman.yml",
	"/etc/pgbackman/pgbackman.yaml",
	"/etc/pgbackman/pgbackman.yml",
}

// ConfigPathEnvVar names a config file that takes precedence over
// DefaultConfigPaths. If that file does not exist, DefaultConfigPaths is
// searched as usual.
const ConfigPathEnvVar = "PGBACKMAN_CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Host:                 "127.0.0.1",
			Port:                 5432,
			Name:                 "pgbackman",
			User:                 "pgbackman_role",
			SSLMode:              "prefer",
			ConnectRetryInterval: 10 * time.Second,
			MaxConns:             10,
		},
		Server: ServerConfig{
			PauseRecoveryProcessOnSlave: false,
		},
		ControlDaemon: ControlDaemonConfig{
			PollInterval:      30 * time.Second,
			PendingUpdatesDir: "/srv/pgbackman/pending_updates",
			ExecutorPath:      "/usr/bin/pgbackman-executor",
		},
		Executor: ExecutorConfig{
			DatabaseSourceDir:   "/srv/pgbackman",
			TmpDir:              "/tmp",
			RootBackupPartition: "/srv/pgbackman",
		},
		Maintenance: MaintenanceConfig{
			Interval:                   1 * time.Hour,
			AutomaticDeletionRetention: 24 * time.Hour,
			RestoreCatalogMaxAge:       90 * 24 * time.Hour,
			VacuumEvery:                24,
		},
		SMTP: SMTPConfig{
			AlertsEnabled: false,
			CheckInterval: 5 * time.Minute,
			Port:          25,
			SSL:           false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration with layered precedence:
//  1. Defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps PgBackMan's flat, historically-named environment
// variables onto dotted koanf config paths. Unmapped keys are dropped so
// unrelated process environment does not leak into the config tree.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"dbhost":                         "catalog.dbhost",
		"dbhostaddr":                     "catalog.dbhostaddr",
		"dbport":                         "catalog.dbport",
		"dbname":                         "catalog.dbname",
		"dbuser":                         "catalog.dbuser",
		"dbpassword":                     "catalog.dbpassword",
		"sslmode":                        "catalog.sslmode",
		"pg_connect_retry_interval":      "catalog.pg_connect_retry_interval",
		"db_max_conns":                   "catalog.max_conns",
		"backup_server":                  "server.backup_server",
		"pause_recovery_process_on_slave": "server.pause_recovery_process_on_slave",
		"database_source_dir":            "executor.database_source_dir",
		"tmp_dir":                        "executor.tmp_dir",
		"root_backup_partition":          "executor.root_backup_partition",
		"poll_interval":                  "control_daemon.poll_interval",
		"pending_updates_dir":            "control_daemon.pending_updates_dir",
		"executor_path":                  "control_daemon.executor_path",
		"maintenance_interval":           "maintenance.maintenance_interval",
		"automatic_deletion_retention":   "maintenance.automatic_deletion_retention",
		"restore_catalog_max_age":        "maintenance.restore_catalog_max_age",
		"vacuum_every":                   "maintenance.vacuum_every",
		"smtp_alerts":                    "smtp.smtp_alerts",
		"alerts_check_interval":          "smtp.alerts_check_interval",
		"smtp_server":                    "smtp.smtp_server",
		"smtp_port":                      "smtp.smtp_port",
		"smtp_ssl":                       "smtp.smtp_ssl",
		"smtp_user":                      "smtp.smtp_user",
		"smtp_password":                  "smtp.smtp_password",
		"smtp_from_address":              "smtp.smtp_from_address",
		"alerts_template":                "smtp.alerts_template",
		"alerts_to":                      "smtp.alerts_to",
		"log_level":                      "logging.level",
		"log_format":                     "logging.format",
		"log_file":                       "logging.file",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// GetKoanfInstance returns a new, empty Koanf instance using "." as the key
// delimiter. It does not hold the configuration LoadWithKoanf merged.
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}

// WatchConfigFile watches path for changes and invokes callback on each one.
// Callers are responsible for synchronizing access to any config they swap
// in from the callback.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)
	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
