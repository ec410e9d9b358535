package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the tooldeck CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tooldeck",
		Short: "tooldeck - a pluggable terminal toolbox",
		Long: `Tooldeck hosts small tool plugins behind a terminal shell.
Plugins are discovered from manifest files in configured locations and
opened as independent sessions.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewPluginsCmd())

	return cmd
}
