package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgbackman/pgbackman/internal/adminapi"
)

func definitionCommands(sess *session) []*cobra.Command {
	var in adminapi.RegisterBackupDefinitionInput
	var exceptions string

	register := &cobra.Command{
		Use:   "register_backup_definition",
		Short: "Register one or more recurring backup definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := sess.api.RegisterBackupDefinition(sess.ctx, in, splitCSV(exceptions))
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("registered backup definition(s): %v", ids)
			return nil
		},
	}
	f := register.Flags()
	f.Int64Var(&in.BackupServerID, "server-id", 0, "backup server id")
	f.Int64Var(&in.PgSQLNodeID, "node-id", 0, "pgsql node id")
	f.StringVar(&in.Dbname, "dbname", "", "database name, or #all_databases# / #databases_without_backup_definitions#")
	f.StringVar(&in.Minute, "minute", "", "cron minute field")
	f.StringVar(&in.Hour, "hour", "", "cron hour field")
	f.StringVar(&in.DayOfMonth, "day-of-month", "*", "cron day-of-month field")
	f.StringVar(&in.Month, "month", "*", "cron month field")
	f.StringVar(&in.Weekday, "weekday", "*", "cron weekday field")
	f.StringVar(&in.Code, "code", "FULL", "CLUSTER|FULL|SCHEMA|DATA")
	f.BoolVar(&in.Encryption, "encryption", false, "gpg-encrypt the artifact")
	f.StringVar(&in.RetentionPeriod, "retention-period", "720h", "Go duration, e.g. 720h")
	f.IntVar(&in.RetentionRedundancy, "retention-redundancy", 1, "catalog rows always kept regardless of age")
	f.StringVar(&in.ExtraParameters, "extra-parameters", "", "extra pg_dump parameters")
	f.StringVar(&in.JobStatus, "job-status", "ACTIVE", "ACTIVE or STOPPED")
	f.StringVar(&in.Remarks, "remarks", "", "free-text remarks")
	f.StringVar(&in.MinuteIntervalConfig, "minute-interval-config", "", "pick minute deterministically from this interval when --minute is empty")
	f.StringVar(&in.HourIntervalConfig, "hour-interval-config", "", "pick hour deterministically from this interval when --hour is empty")
	f.StringVar(&exceptions, "except", "", "comma-separated dbnames excluded from a bulk expansion")

	var upd adminapi.UpdateBackupDefinitionInput
	update := &cobra.Command{
		Use:   "update_backup_definition",
		Short: "Update an existing backup definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.api.UpdateBackupDefinition(sess.ctx, upd); err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("updated backup definition %d", upd.DefID)
			return nil
		},
	}
	uf := update.Flags()
	uf.Int64Var(&upd.DefID, "def-id", 0, "backup definition id")
	uf.StringVar(&upd.Minute, "minute", "", "cron minute field (empty keeps current)")
	uf.StringVar(&upd.Hour, "hour", "", "cron hour field (empty keeps current)")
	uf.StringVar(&upd.DayOfMonth, "day-of-month", "", "cron day-of-month field (empty keeps current)")
	uf.StringVar(&upd.Month, "month", "", "cron month field (empty keeps current)")
	uf.StringVar(&upd.Weekday, "weekday", "", "cron weekday field (empty keeps current)")
	uf.StringVar(&upd.Code, "code", "", "CLUSTER|FULL|SCHEMA|DATA (empty keeps current)")
	uf.StringVar(&upd.Encryption, "encryption", "", "true|false (empty keeps current)")
	uf.StringVar(&upd.RetentionPeriod, "retention-period", "", "Go duration (empty keeps current)")
	uf.IntVar(&upd.RetentionRedundancy, "retention-redundancy", 0, "0 keeps current")
	uf.StringVar(&upd.ExtraParameters, "extra-parameters", "", "extra pg_dump parameters")
	uf.StringVar(&upd.JobStatus, "job-status", "", "ACTIVE|STOPPED (empty keeps current)")
	uf.StringVar(&upd.Remarks, "remarks", "", "free-text remarks")

	var delDefID int64
	var delForce bool
	deleteByID := &cobra.Command{
		Use:   "delete_backup_definition_id",
		Short: "Delete a backup definition by def_id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.api.DeleteBackupDefinitionByID(sess.ctx, delDefID, delForce); err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("deleted backup definition %d", delDefID)
			return nil
		},
	}
	deleteByID.Flags().Int64Var(&delDefID, "def-id", 0, "backup definition id")
	deleteByID.Flags().BoolVar(&delForce, "force-deletion", false, "also purge catalog rows and artifacts")

	var delServerID, delNodeID int64
	var delDbname string
	deleteByDBName := &cobra.Command{
		Use:   "delete_backup_definition_dbname",
		Short: "Delete every backup definition matching (server, node, dbname)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.api.DeleteBackupDefinitionByDBName(sess.ctx, delServerID, delNodeID, delDbname, delForce); err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("deleted backup definitions for %s", delDbname)
			return nil
		},
	}
	deleteByDBName.Flags().Int64Var(&delServerID, "server-id", 0, "backup server id")
	deleteByDBName.Flags().Int64Var(&delNodeID, "node-id", 0, "pgsql node id")
	deleteByDBName.Flags().StringVar(&delDbname, "dbname", "", "database name")
	deleteByDBName.Flags().BoolVar(&delForce, "force-deletion", false, "also purge catalog rows and artifacts")

	var showServerID, showNodeID int64
	show := &cobra.Command{
		Use:   "show_backup_definitions",
		Short: "List backup definitions, optionally filtered by server/node",
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := sess.api.ShowBackupDefinitions(sess.ctx, showServerID, showNodeID)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			rows := make([][]string, 0, len(defs))
			for _, d := range defs {
				rows = append(rows, []string{
					fmt.Sprintf("%d", d.DefID), fmt.Sprintf("%d", d.BackupServerID), fmt.Sprintf("%d", d.PgSQLNodeID),
					d.Dbname, string(d.Code), cronString(d.Schedule.Minute, d.Schedule.Hour, d.Schedule.DayOfMonth, d.Schedule.Month, d.Schedule.Weekday),
					string(d.JobStatus), d.RetentionPeriod.String(),
				})
			}
			renderRows(sess.format, []string{"def_id", "server_id", "node_id", "dbname", "code", "schedule", "job_status", "retention_period"}, rows)
			return nil
		},
	}
	show.Flags().Int64Var(&showServerID, "server-id", 0, "filter by backup server id (0 = no filter)")
	show.Flags().Int64Var(&showNodeID, "node-id", 0, "filter by pgsql node id (0 = no filter)")

	var fromServer, toServer int64
	var nodeIDs, dbnames, defIDs string
	move := &cobra.Command{
		Use:   "move_backup_definition",
		Short: "Reassign backup definitions from one backup server to another",
		RunE: func(cmd *cobra.Command, args []string) error {
			moved, err := sess.api.MoveBackupDefinitions(sess.ctx, adminapi.MoveBackupDefinitionsInput{
				FromServerID: fromServer, ToServerID: toServer,
				NodeIDs: splitInt64CSV(nodeIDs), Dbnames: splitCSV(dbnames), DefIDs: splitInt64CSV(defIDs),
			})
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("moved backup definitions: %v", moved)
			return nil
		},
	}
	move.Flags().Int64Var(&fromServer, "from-server-id", 0, "source backup server id")
	move.Flags().Int64Var(&toServer, "to-server-id", 0, "destination backup server id")
	move.Flags().StringVar(&nodeIDs, "node-ids", "", "comma-separated node ids, or all/*/empty for no filter")
	move.Flags().StringVar(&dbnames, "dbnames", "", "comma-separated dbnames, or all/*/empty for no filter")
	move.Flags().StringVar(&defIDs, "def-ids", "", "comma-separated def ids, or all/*/empty for no filter")

	showEmpty := &cobra.Command{
		Use:   "show_empty_backup_catalogs",
		Short: "List backup definitions with zero catalog rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := sess.api.ShowEmptyBackupCatalogs(sess.ctx)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			rows := make([][]string, 0, len(defs))
			for _, d := range defs {
				rows = append(rows, []string{fmt.Sprintf("%d", d.DefID), fmt.Sprintf("%d", d.BackupServerID), fmt.Sprintf("%d", d.PgSQLNodeID), d.Dbname})
			}
			renderRows(sess.format, []string{"def_id", "server_id", "node_id", "dbname"}, rows)
			return nil
		},
	}

	var withoutNodeID int64
	showWithout := &cobra.Command{
		Use:   "show_databases_without_backup_definitions",
		Short: "List databases on a node with no active backup definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbs, err := sess.api.ShowDatabasesWithoutBackupDefinitions(sess.ctx, withoutNodeID)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			rows := make([][]string, 0, len(dbs))
			for _, db := range dbs {
				rows = append(rows, []string{db})
			}
			renderRows(sess.format, []string{"dbname"}, rows)
			return nil
		},
	}
	showWithout.Flags().Int64Var(&withoutNodeID, "node-id", 0, "pgsql node id")

	return []*cobra.Command{register, update, deleteByID, deleteByDBName, show, move, showEmpty, showWithout}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func splitInt64CSV(s string) []int64 {
	var out []int64
	for _, p := range splitCSV(s) {
		if n, err := strconv.ParseInt(p, 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func cronString(minute, hour, dom, month, dow string) string {
	return strings.Join([]string{minute, hour, dom, month, dow}, " ")
}
