package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgbackman/pgbackman/internal/catalog"
)

func pgBinDirCommands(sess *session) []*cobra.Command {
	var b catalog.BackupServerPgBinDir
	register := &cobra.Command{
		Use:   "register_backup_server_pg_bin_dir",
		Short: "Map a PostgreSQL major version to its pg_dump/pg_restore directory on a backup server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.api.RegisterBackupServerPgBinDir(sess.ctx, b); err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("registered pg_bin_dir for backup server %d, version %d", b.BackupServerID, b.PgMajorVersion)
			return nil
		},
	}
	rf := register.Flags()
	rf.Int64Var(&b.BackupServerID, "server-id", 0, "backup server id")
	rf.IntVar(&b.PgMajorVersion, "pg-major-version", 0, "PostgreSQL major version, e.g. 16")
	rf.StringVar(&b.BinDir, "bin-dir", "", "directory holding pg_dump/pg_restore for this version")
	rf.StringVar(&b.Description, "description", "", "free-text description")

	var ub catalog.BackupServerPgBinDir
	update := &cobra.Command{
		Use:   "update_backup_server_pg_bin_dir",
		Short: "Update the pg_bin_dir mapping for a (backup server, PostgreSQL major version)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.api.UpdateBackupServerPgBinDir(sess.ctx, ub); err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("updated pg_bin_dir for backup server %d, version %d", ub.BackupServerID, ub.PgMajorVersion)
			return nil
		},
	}
	uf := update.Flags()
	uf.Int64Var(&ub.BackupServerID, "server-id", 0, "backup server id")
	uf.IntVar(&ub.PgMajorVersion, "pg-major-version", 0, "PostgreSQL major version, e.g. 16")
	uf.StringVar(&ub.BinDir, "bin-dir", "", "directory holding pg_dump/pg_restore for this version")
	uf.StringVar(&ub.Description, "description", "", "free-text description")

	var delServerID int64
	var delVersion int
	del := &cobra.Command{
		Use:   "delete_backup_server_pg_bin_dir",
		Short: "Delete the pg_bin_dir mapping for a (backup server, PostgreSQL major version)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.api.DeleteBackupServerPgBinDir(sess.ctx, delServerID, delVersion); err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("deleted pg_bin_dir for backup server %d, version %d", delServerID, delVersion)
			return nil
		},
	}
	del.Flags().Int64Var(&delServerID, "server-id", 0, "backup server id")
	del.Flags().IntVar(&delVersion, "pg-major-version", 0, "PostgreSQL major version, e.g. 16")

	var defServerID int64
	var defBinDir, defDescription string
	registerDefault := &cobra.Command{
		Use:   "register_backup_server_default_pg_bin_dir",
		Short: "Set the system-wide default pg_bin_dir for a backup server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.api.RegisterBackupServerDefaultPgBinDir(sess.ctx, defServerID, defBinDir, defDescription); err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("registered default pg_bin_dir for backup server %d", defServerID)
			return nil
		},
	}
	registerDefault.Flags().Int64Var(&defServerID, "server-id", 0, "backup server id")
	registerDefault.Flags().StringVar(&defBinDir, "bin-dir", "", "default bin directory")
	registerDefault.Flags().StringVar(&defDescription, "description", "", "free-text description")

	var updDefServerID int64
	var updDefBinDir, updDefDescription string
	updateDefault := &cobra.Command{
		Use:   "update_backup_server_default_pg_bin_dir",
		Short: "Update the system-wide default pg_bin_dir for a backup server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.api.UpdateBackupServerDefaultPgBinDir(sess.ctx, updDefServerID, updDefBinDir, updDefDescription); err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("updated default pg_bin_dir for backup server %d", updDefServerID)
			return nil
		},
	}
	updateDefault.Flags().Int64Var(&updDefServerID, "server-id", 0, "backup server id")
	updateDefault.Flags().StringVar(&updDefBinDir, "bin-dir", "", "default bin directory")
	updateDefault.Flags().StringVar(&updDefDescription, "description", "", "free-text description")

	var delDefServerID int64
	deleteDefault := &cobra.Command{
		Use:   "delete_backup_server_default_pg_bin_dir",
		Short: "Delete the system-wide default pg_bin_dir for a backup server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.api.DeleteBackupServerDefaultPgBinDir(sess.ctx, delDefServerID); err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("deleted default pg_bin_dir for backup server %d", delDefServerID)
			return nil
		},
	}
	deleteDefault.Flags().Int64Var(&delDefServerID, "server-id", 0, "backup server id")

	var versionsServerID int64
	showVersions := &cobra.Command{
		Use:   "show_backup_server_default_configured_versions",
		Short: "List every PostgreSQL major version configured on a backup server",
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs, err := sess.api.ShowBackupServerDefaultConfiguredVersions(sess.ctx, versionsServerID)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			rows := make([][]string, 0, len(dirs))
			for _, d := range dirs {
				rows = append(rows, []string{fmt.Sprintf("%d", d.PgMajorVersion), d.BinDir, d.Description})
			}
			renderRows(sess.format, []string{"pg_major_version", "bin_dir", "description"}, rows)
			return nil
		},
	}
	showVersions.Flags().Int64Var(&versionsServerID, "server-id", 0, "backup server id")

	return []*cobra.Command{register, update, del, registerDefault, updateDefault, deleteDefault, showVersions}
}
