package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newDeriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "derive <packages-index>",
		Short: "Load a package index and derive the installable set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Derive(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <packages-index>",
		Short: "Watch a package index and re-derive the installable set on change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Watch(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name=version>...",
		Short: "Delete package facts and emit the installable-set delta",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Remove(cmd.Context(), args)
		},
	}
}
