package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgbackman/pgbackman/internal/adminapi"
)

func snapshotRestoreCommands(sess *session) []*cobra.Command {
	var snapIn adminapi.RegisterSnapshotDefinitionInput
	registerSnapshot := &cobra.Command{
		Use:   "register_snapshot_definition",
		Short: "Register a one-shot snapshot at a specific time",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := sess.api.RegisterSnapshotDefinition(sess.ctx, snapIn)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("registered snapshot definition %d", id)
			return nil
		},
	}
	sf := registerSnapshot.Flags()
	sf.Int64Var(&snapIn.BackupServerID, "server-id", 0, "backup server id")
	sf.Int64Var(&snapIn.PgSQLNodeID, "node-id", 0, "pgsql node id")
	sf.StringVar(&snapIn.Dbname, "dbname", "", "database name")
	sf.StringVar(&snapIn.At, "at", "", "RFC3339 timestamp, must be in the future")
	sf.StringVar(&snapIn.Tag, "tag", "", "free-text tag")
	sf.StringVar(&snapIn.Code, "code", "FULL", "CLUSTER|FULL|SCHEMA|DATA")
	sf.BoolVar(&snapIn.Encryption, "encryption", false, "gpg-encrypt the artifact")
	sf.StringVar(&snapIn.RetentionPeriod, "retention-period", "720h", "Go duration, e.g. 720h")
	sf.StringVar(&snapIn.PgDumpRelease, "pg-dump-release", "", "pg_dump major version, empty uses the source cluster's")
	sf.StringVar(&snapIn.ExtraParameters, "extra-parameters", "", "extra pg_dump parameters")
	sf.StringVar(&snapIn.Remarks, "remarks", "", "free-text remarks")

	showSnapshots := &cobra.Command{
		Use:   "show_snapshot_definitions",
		Short: "List every snapshot definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			snaps, err := sess.api.ShowSnapshotDefinitions(sess.ctx)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			rows := make([][]string, 0, len(snaps))
			for _, s := range snaps {
				rows = append(rows, []string{
					fmt.Sprintf("%d", s.SnapshotID), fmt.Sprintf("%d", s.BackupServerID), fmt.Sprintf("%d", s.PgSQLNodeID),
					s.Dbname, s.At.Format("2006-01-02 15:04:05"), string(s.Code), string(s.Status),
				})
			}
			renderRows(sess.format, []string{"snapshot_id", "server_id", "node_id", "dbname", "at", "code", "status"}, rows)
			return nil
		},
	}

	showSnapshotsInProgress := &cobra.Command{
		Use:   "show_snapshots_in_progress",
		Short: "List snapshot definitions still WAITING or DEFINED",
		RunE: func(cmd *cobra.Command, args []string) error {
			snaps, err := sess.api.ShowSnapshotsInProgress(sess.ctx)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			rows := make([][]string, 0, len(snaps))
			for _, s := range snaps {
				rows = append(rows, []string{fmt.Sprintf("%d", s.SnapshotID), s.Dbname, s.At.Format("2006-01-02 15:04:05"), string(s.Status)})
			}
			renderRows(sess.format, []string{"snapshot_id", "dbname", "at", "status"}, rows)
			return nil
		},
	}

	var restoreIn adminapi.RegisterRestoreDefinitionInput
	var roles string
	registerRestore := &cobra.Command{
		Use:   "register_restore_definition",
		Short: "Register a one-shot restore at a specific time",
		RunE: func(cmd *cobra.Command, args []string) error {
			restoreIn.RolesToRestore = splitCSV(roles)
			id, err := sess.api.RegisterRestoreDefinition(sess.ctx, restoreIn)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("registered restore definition %d", id)
			return nil
		},
	}
	rf := registerRestore.Flags()
	rf.StringVar(&restoreIn.At, "at", "", "RFC3339 timestamp, must be in the future")
	rf.Int64Var(&restoreIn.SourceBckID, "source-bck-id", 0, "source BackupCatalog row id")
	rf.Int64Var(&restoreIn.TargetServerID, "target-server-id", 0, "target backup server id")
	rf.Int64Var(&restoreIn.TargetNodeID, "target-node-id", 0, "target pgsql node id")
	rf.StringVar(&restoreIn.TargetDbname, "target-dbname", "", "target database name")
	rf.StringVar(&restoreIn.RenamedDbname, "renamed-dbname", "", "set if target-dbname already exists on the target node")
	rf.StringVar(&restoreIn.ExtraParameters, "extra-parameters", "", "extra pg_restore parameters")
	rf.StringVar(&roles, "roles-to-restore", "", "comma-separated role names")

	showRestores := &cobra.Command{
		Use:   "show_restore_definitions",
		Short: "List every restore definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			restores, err := sess.api.ShowRestoreDefinitions(sess.ctx)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			rows := make([][]string, 0, len(restores))
			for _, r := range restores {
				rows = append(rows, []string{
					fmt.Sprintf("%d", r.RestoreID), fmt.Sprintf("%d", r.SourceBckID), fmt.Sprintf("%d", r.TargetNodeID),
					r.TargetDbname, r.At.Format("2006-01-02 15:04:05"), string(r.Status),
				})
			}
			renderRows(sess.format, []string{"restore_id", "source_bck_id", "target_node_id", "target_dbname", "at", "status"}, rows)
			return nil
		},
	}

	showRestoresInProgress := &cobra.Command{
		Use:   "show_restores_in_progress",
		Short: "List restore definitions still WAITING or DEFINED",
		RunE: func(cmd *cobra.Command, args []string) error {
			restores, err := sess.api.ShowRestoresInProgress(sess.ctx)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			rows := make([][]string, 0, len(restores))
			for _, r := range restores {
				rows = append(rows, []string{fmt.Sprintf("%d", r.RestoreID), r.TargetDbname, r.At.Format("2006-01-02 15:04:05"), string(r.Status)})
			}
			renderRows(sess.format, []string{"restore_id", "target_dbname", "at", "status"}, rows)
			return nil
		},
	}

	return []*cobra.Command{registerSnapshot, showSnapshots, showSnapshotsInProgress, registerRestore, showRestores, showRestoresInProgress}
}

var _ = strings.TrimSpace
