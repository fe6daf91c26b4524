package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func catalogCommands(sess *session) []*cobra.Command {
	var bckDefID int64
	showBackupCatalog := &cobra.Command{
		Use:   "show_backup_catalog",
		Short: "List backup catalog rows produced by a backup definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := sess.api.ShowBackupCatalog(sess.ctx, bckDefID)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			out := make([][]string, 0, len(rows))
			for _, r := range rows {
				out = append(out, []string{
					fmt.Sprintf("%d", r.BckID), r.Dbname, r.Started.Format("2006-01-02 15:04:05"),
					r.Duration.String(), string(r.ExecutionStatus), r.DumpFile,
				})
			}
			renderRows(sess.format, []string{"bck_id", "dbname", "started", "duration", "status", "dump_file"}, out)
			return nil
		},
	}
	showBackupCatalog.Flags().Int64Var(&bckDefID, "def-id", 0, "backup definition id")

	var restoreDefID int64
	showRestoreCatalog := &cobra.Command{
		Use:   "show_restore_catalog",
		Short: "List restore catalog rows produced by a restore definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := sess.api.ShowRestoreCatalog(sess.ctx, restoreDefID)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			out := make([][]string, 0, len(rows))
			for _, r := range rows {
				out = append(out, []string{
					fmt.Sprintf("%d", r.RestoreCatID), r.Started.Format("2006-01-02 15:04:05"),
					r.Duration.String(), string(r.ExecutionStatus), fmt.Sprintf("%d", r.ReturnCode),
				})
			}
			renderRows(sess.format, []string{"restore_cat_id", "started", "duration", "status", "return_code"}, out)
			return nil
		},
	}
	showRestoreCatalog.Flags().Int64Var(&restoreDefID, "restore-id", 0, "restore definition id")

	var bckID int64
	showBackupDetails := &cobra.Command{
		Use:   "show_backup_details",
		Short: "Show every field of a single backup catalog row",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := sess.api.ShowBackupDetails(sess.ctx, bckID)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			renderRows(sess.format, []string{"field", "value"}, [][]string{
				{"bck_id", fmt.Sprintf("%d", r.BckID)},
				{"dbname", r.Dbname},
				{"started", r.Started.Format("2006-01-02 15:04:05")},
				{"finished", r.Finished.Format("2006-01-02 15:04:05")},
				{"duration", r.Duration.String()},
				{"dump_file", r.DumpFile},
				{"dump_file_size", fmt.Sprintf("%d", r.DumpFileSize)},
				{"execution_status", string(r.ExecutionStatus)},
				{"return_code", fmt.Sprintf("%d", r.ReturnCode)},
				{"error_msg", r.ErrorMsg},
				{"pg_dump_release", r.PgDumpRelease},
				{"deleted", fmt.Sprintf("%v", r.Deleted)},
			})
			return nil
		},
	}
	showBackupDetails.Flags().Int64Var(&bckID, "bck-id", 0, "backup catalog row id")

	var restoreCatID int64
	showRestoreDetails := &cobra.Command{
		Use:   "show_restore_details",
		Short: "Show every field of a single restore catalog row",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := sess.api.ShowRestoreDetails(sess.ctx, restoreCatID)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			renderRows(sess.format, []string{"field", "value"}, [][]string{
				{"restore_cat_id", fmt.Sprintf("%d", r.RestoreCatID)},
				{"restore_id", fmt.Sprintf("%d", r.RestoreID)},
				{"started", r.Started.Format("2006-01-02 15:04:05")},
				{"finished", r.Finished.Format("2006-01-02 15:04:05")},
				{"duration", r.Duration.String()},
				{"execution_status", string(r.ExecutionStatus)},
				{"return_code", fmt.Sprintf("%d", r.ReturnCode)},
				{"error_msg", r.ErrorMsg},
			})
			return nil
		},
	}
	showRestoreDetails.Flags().Int64Var(&restoreCatID, "restore-cat-id", 0, "restore catalog row id")

	return []*cobra.Command{showBackupCatalog, showRestoreCatalog, showBackupDetails, showRestoreDetails}
}
