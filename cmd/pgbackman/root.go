package main

import (
	"github.com/spf13/cobra"

	"github.com/pgbackman/pgbackman/internal/config"
)

// newRootCmd builds a fresh command tree bound to sess. The shell rebuilds
// this per line so that cobra's internal flag-parsing state never leaks
// between commands.
func newRootCmd(sess *session, cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "pgbackman",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(
		topologyCommands(sess)...,
	)
	root.AddCommand(
		definitionCommands(sess)...,
	)
	root.AddCommand(
		snapshotRestoreCommands(sess)...,
	)
	root.AddCommand(
		catalogCommands(sess)...,
	)
	root.AddCommand(
		configCommands(sess, cfg)...,
	)
	root.AddCommand(
		pgBinDirCommands(sess)...,
	)
	root.AddCommand(shellMetaCommands(sess)...)

	return root
}
