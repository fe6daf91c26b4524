package main

import (
	"context"

	"github.com/pgbackman/pgbackman/internal/catalog"
	"github.com/pgbackman/pgbackman/internal/config"
	"github.com/pgbackman/pgbackman/internal/controldaemon"
	"github.com/pgbackman/pgbackman/internal/pgerr"
)

// newControlDaemon wires a controldaemon.Daemon for this process's backup
// server, resolving each node's crontab file path on demand via its
// pgnode_crontab_file config key (shown with show_pgsql_node_config and set
// with update_pgsql_node_config in the CLI).
func newControlDaemon(store *catalog.Store, fqdn string, cfg *config.Config) *controldaemon.Daemon {
	crontabPathFor := func(nodeID int64) (string, error) {
		nodeCfg, err := store.PgSQLNodeConfig(context.Background(), nodeID)
		if err != nil {
			return "", err
		}
		path, ok := nodeCfg["pgnode_crontab_file"]
		if !ok || path == "" {
			return "", pgerr.New(pgerr.KindValidation, "pgsql node has no pgnode_crontab_file configured")
		}
		return path, nil
	}

	return controldaemon.New(store, fqdn, cfg.ControlDaemon.PollInterval, cfg.ControlDaemon.PendingUpdatesDir,
		cfg.ControlDaemon.ExecutorPath, crontabPathFor)
}
