package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgbackman/pgbackman/internal/catalog"
)

func topologyCommands(sess *session) []*cobra.Command {
	var hostname, domain, status, remarks string

	registerServer := &cobra.Command{
		Use:   "register_backup_server",
		Short: "Register a new backup server",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := sess.api.RegisterBackupServer(sess.ctx, catalog.BackupServer{
				Hostname: hostname, Domain: domain, Status: catalog.ServerStatus(status), Remarks: remarks,
			})
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("registered backup server %d", id)
			return nil
		},
	}
	registerServer.Flags().StringVar(&hostname, "hostname", "", "backup server hostname")
	registerServer.Flags().StringVar(&domain, "domain", "", "backup server domain")
	registerServer.Flags().StringVar(&status, "status", "RUNNING", "RUNNING or STOPPED")
	registerServer.Flags().StringVar(&remarks, "remarks", "", "free-text remarks")

	var updateServerID int64
	updateServer := &cobra.Command{
		Use:   "update_backup_server",
		Short: "Update an existing backup server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.api.UpdateBackupServer(sess.ctx, catalog.BackupServer{
				ID: updateServerID, Status: catalog.ServerStatus(status), Remarks: remarks,
			}); err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("updated backup server %d", updateServerID)
			return nil
		},
	}
	updateServer.Flags().Int64Var(&updateServerID, "server-id", 0, "backup server id")
	updateServer.Flags().StringVar(&status, "status", "", "RUNNING or STOPPED")
	updateServer.Flags().StringVar(&remarks, "remarks", "", "free-text remarks")

	var deleteServerID int64
	deleteServer := &cobra.Command{
		Use:   "delete_backup_server",
		Short: "Delete a backup server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.api.DeleteBackupServer(sess.ctx, deleteServerID); err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("deleted backup server %d", deleteServerID)
			return nil
		},
	}
	deleteServer.Flags().Int64Var(&deleteServerID, "server-id", 0, "backup server id")

	showServers := &cobra.Command{
		Use:   "show_backup_servers",
		Short: "List every registered backup server",
		RunE: func(cmd *cobra.Command, args []string) error {
			servers, err := sess.api.ShowBackupServers(sess.ctx)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			rows := make([][]string, 0, len(servers))
			for _, s := range servers {
				rows = append(rows, []string{
					fmt.Sprintf("%d", s.ID), s.Hostname, s.Domain, string(s.Status), s.Remarks,
					s.CreatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			renderRows(sess.format, []string{"server_id", "hostname", "domain", "status", "remarks", "registered"}, rows)
			return nil
		},
	}

	var port int
	var adminUser string
	registerNode := &cobra.Command{
		Use:   "register_pgsql_node",
		Short: "Register a new PostgreSQL node",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := sess.api.RegisterPgSQLNode(sess.ctx, catalog.PgSQLNode{
				Hostname: hostname, Domain: domain, Port: port, AdminUser: adminUser,
				Status: catalog.NodeStatus(status), Remarks: remarks,
			})
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("registered pgsql node %d", id)
			return nil
		},
	}
	registerNode.Flags().StringVar(&hostname, "hostname", "", "node hostname")
	registerNode.Flags().StringVar(&domain, "domain", "", "node domain")
	registerNode.Flags().IntVar(&port, "port", 5432, "node port")
	registerNode.Flags().StringVar(&adminUser, "admin-user", "", "node admin user")
	registerNode.Flags().StringVar(&status, "status", "RUNNING", "RUNNING or DOWN")
	registerNode.Flags().StringVar(&remarks, "remarks", "", "free-text remarks")

	var updateNodeID int64
	updateNode := &cobra.Command{
		Use:   "update_pgsql_node",
		Short: "Update an existing PostgreSQL node",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.api.UpdatePgSQLNode(sess.ctx, catalog.PgSQLNode{
				ID: updateNodeID, Port: port, AdminUser: adminUser, Status: catalog.NodeStatus(status), Remarks: remarks,
			}); err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("updated pgsql node %d", updateNodeID)
			return nil
		},
	}
	updateNode.Flags().Int64Var(&updateNodeID, "node-id", 0, "pgsql node id")
	updateNode.Flags().IntVar(&port, "port", 0, "node port (0 keeps current)")
	updateNode.Flags().StringVar(&adminUser, "admin-user", "", "node admin user")
	updateNode.Flags().StringVar(&status, "status", "", "RUNNING or DOWN")
	updateNode.Flags().StringVar(&remarks, "remarks", "", "free-text remarks")

	var deleteNodeID int64
	deleteNode := &cobra.Command{
		Use:   "delete_pgsql_node",
		Short: "Delete a PostgreSQL node",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.api.DeletePgSQLNode(sess.ctx, deleteNodeID); err != nil {
				printError(sess.ctx, err)
				return err
			}
			printSuccess("deleted pgsql node %d", deleteNodeID)
			return nil
		},
	}
	deleteNode.Flags().Int64Var(&deleteNodeID, "node-id", 0, "pgsql node id")

	showNodes := &cobra.Command{
		Use:   "show_pgsql_nodes",
		Short: "List every registered PostgreSQL node",
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := sess.api.ShowPgSQLNodes(sess.ctx)
			if err != nil {
				printError(sess.ctx, err)
				return err
			}
			rows := make([][]string, 0, len(nodes))
			for _, n := range nodes {
				rows = append(rows, []string{
					fmt.Sprintf("%d", n.ID), n.Hostname, n.Domain, fmt.Sprintf("%d", n.Port),
					n.AdminUser, string(n.Status), n.Remarks, n.CreatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			renderRows(sess.format, []string{"node_id", "hostname", "domain", "port", "admin_user", "status", "remarks", "registered"}, rows)
			return nil
		},
	}

	return []*cobra.Command{registerServer, updateServer, deleteServer, showServers, registerNode, updateNode, deleteNode, showNodes}
}
