package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pgbackman/pgbackman/internal/config"
	"github.com/pgbackman/pgbackman/internal/migrator"
)

// softwareVersionNumber mirrors cmd/controld's compiled-in schema version;
// the CLI is the only authorized caller of CheckAndMigrate(authorize=true).
const softwareVersionNumber = 1

func configCommands(sess *session, cfg *config.Config) []*cobra.Command {
	renderKV := func(kv map[string]string) {
		keys := make([]string, 0, len(kv))
		for k := range kv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, kv[k]})
		}
		renderRows(sess.format, []string{"key", "value"}, rows)
	}

	var serverID int64
	showServerConfig := &cobra.Command{
		Use:   "show_backup_server_config",
		Short: "Show key/value configuration overrides for a backup server",
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, err := sess.api.ShowBackupServerConfig(sess.ctx, serverID)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			renderKV(kv)
			return nil
		},
	}
	showServerConfig.Flags().Int64Var(&serverID, "server-id", 0, "backup server id")

	var updServerID int64
	var updServerKey, updServerValue string
	updateServerConfig := &cobra.Command{
		Use:   "update_backup_server_config",
		Short: "Set a single key/value configuration override for a backup server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.api.UpdateBackupServerConfig(sess.ctx, updServerID, updServerKey, updServerValue); err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("updated %s for backup server %d", updServerKey, updServerID)
			return nil
		},
	}
	updateServerConfig.Flags().Int64Var(&updServerID, "server-id", 0, "backup server id")
	updateServerConfig.Flags().StringVar(&updServerKey, "key", "", "configuration key")
	updateServerConfig.Flags().StringVar(&updServerValue, "value", "", "configuration value")

	var nodeID int64
	showNodeConfig := &cobra.Command{
		Use:   "show_pgsql_node_config",
		Short: "Show key/value configuration overrides for a pgsql node",
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, err := sess.api.ShowPgSQLNodeConfig(sess.ctx, nodeID)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			renderKV(kv)
			return nil
		},
	}
	showNodeConfig.Flags().Int64Var(&nodeID, "node-id", 0, "pgsql node id")

	var updNodeID int64
	var updNodeKey, updNodeValue string
	updateNodeConfig := &cobra.Command{
		Use:   "update_pgsql_node_config",
		Short: "Set a single key/value configuration override for a pgsql node",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.api.UpdatePgSQLNodeConfig(sess.ctx, updNodeID, updNodeKey, updNodeValue); err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("updated %s for pgsql node %d", updNodeKey, updNodeID)
			return nil
		},
	}
	updateNodeConfig.Flags().Int64Var(&updNodeID, "node-id", 0, "pgsql node id")
	updateNodeConfig.Flags().StringVar(&updNodeKey, "key", "", "configuration key")
	updateNodeConfig.Flags().StringVar(&updNodeValue, "value", "", "configuration value")

	showPgbackmanConfig := &cobra.Command{
		Use:   "show_pgbackman_config",
		Short: "Show the effective pgbackman configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			renderKV(sess.api.ShowPgBackManConfig(cfg))
			return nil
		},
	}

	showStats := &cobra.Command{
		Use:   "show_pgbackman_stats",
		Short: "Show catalog-wide statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sess.api.ShowPgBackManStats(sess.ctx)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			renderRows(sess.format, []string{"field", "value"}, [][]string{
				{"backup_server_count", fmt.Sprintf("%d", s.BackupServerCount)},
				{"pgsql_node_count", fmt.Sprintf("%d", s.PgSQLNodeCount)},
				{"active_definition_count", fmt.Sprintf("%d", s.ActiveDefinitionCount)},
				{"stopped_definition_count", fmt.Sprintf("%d", s.StoppedDefinitionCount)},
				{"pending_job_count", fmt.Sprintf("%d", s.PendingJobCount)},
				{"total_catalog_bytes", fmt.Sprintf("%d", s.TotalCatalogBytes)},
			})
			return nil
		},
	}

	var statsServerID int64
	showServerStats := &cobra.Command{
		Use:   "show_backup_server_stats",
		Short: "Show statistics for a single backup server",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sess.api.ShowBackupServerStats(sess.ctx, statsServerID)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			renderRows(sess.format, []string{"field", "value"}, [][]string{
				{"backup_server_id", fmt.Sprintf("%d", s.BackupServerID)},
				{"definition_count", fmt.Sprintf("%d", s.DefinitionCount)},
				{"catalog_row_count", fmt.Sprintf("%d", s.CatalogRowCount)},
				{"total_bytes", fmt.Sprintf("%d", s.TotalBytes)},
			})
			return nil
		},
	}
	showServerStats.Flags().Int64Var(&statsServerID, "server-id", 0, "backup server id")

	var statsNodeID int64
	showNodeStats := &cobra.Command{
		Use:   "show_pgsql_node_stats",
		Short: "Show statistics for a single pgsql node",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sess.api.ShowPgSQLNodeStats(sess.ctx, statsNodeID)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			lastOK, lastErr := "-", "-"
			if s.LastSuccessfulAt != nil {
				lastOK = s.LastSuccessfulAt.Format("2006-01-02 15:04:05")
			}
			if s.LastErrorAt != nil {
				lastErr = s.LastErrorAt.Format("2006-01-02 15:04:05")
			}
			renderRows(sess.format, []string{"field", "value"}, [][]string{
				{"pgsql_node_id", fmt.Sprintf("%d", s.PgSQLNodeID)},
				{"definition_count", fmt.Sprintf("%d", s.DefinitionCount)},
				{"snapshot_count", fmt.Sprintf("%d", s.SnapshotCount)},
				{"last_successful_at", lastOK},
				{"last_error_at", lastErr},
			})
			return nil
		},
	}
	showNodeStats.Flags().Int64Var(&statsNodeID, "node-id", 0, "pgsql node id")

	var jobsServerID int64
	showJobsQueue := &cobra.Command{
		Use:   "show_jobs_queue",
		Short: "List pending crontab/AT jobs for a backup server",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := sess.api.ShowJobsQueue(sess.ctx, jobsServerID)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			rows := make([][]string, 0, len(jobs))
			for _, j := range jobs {
				nodeID := "-"
				if j.PgSQLNodeID != nil {
					nodeID = fmt.Sprintf("%d", *j.PgSQLNodeID)
				}
				rows = append(rows, []string{fmt.Sprintf("%d", j.JobID), fmt.Sprintf("%d", j.BackupServerID), nodeID, string(j.Kind), j.RegisteredAt})
			}
			renderRows(sess.format, []string{"job_id", "server_id", "node_id", "kind", "registered_at"}, rows)
			return nil
		},
	}
	showJobsQueue.Flags().Int64Var(&jobsServerID, "server-id", 0, "backup server id")

	upgrade := &cobra.Command{
		Use:   "upgrade_pgbackman",
		Short: "Apply any pending catalog schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := migrator.New(sess.store, cfg.Executor.DatabaseSourceDir, cfg.ControlDaemon.PendingUpdatesDir)
			if err := m.CheckAndMigrate(sess.ctx, softwareVersionNumber, true); err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("catalog schema is up to date at version %d", softwareVersionNumber)
			return nil
		},
	}

	return []*cobra.Command{
		showServerConfig, updateServerConfig, showNodeConfig, updateNodeConfig,
		showPgbackmanConfig, showStats, showServerStats, showNodeStats, showJobsQueue, upgrade,
	}
}
