// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tooldeck/tooldeck/internal/plugin"
)

// NewPluginsCmd creates the plugins subcommand group.
func NewPluginsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect discoverable plugins",
		Long: `Inspect the plugins discoverable in the configured locations
without starting the interactive shell.`,
	}

	cmd.PersistentFlags().StringSlice("locations", nil, "plugin manifest locations")
	cmd.PersistentFlags().String("log.format", "", "log format (json or text)")
	cmd.PersistentFlags().String("log.level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newPluginsListCmd())
	cmd.AddCommand(newPluginsInfoCmd())

	return cmd
}

func newPluginsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List discovered plugins and scan faults",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			plugins, sessions := buildRegistries(cfg)
			defer plugins.Close()
			defer sessions.Close()

			names := plugins.Plugins()
			if len(names) == 0 {
				cmd.Println("no plugins discovered")
			}
			for _, name := range names {
				desc, err := plugins.Describe(name)
				if err != nil {
					return err
				}
				cmd.Printf("%s %s\t%s\n", desc.Name, desc.Version, desc.Info)
			}

			printFaults(cmd, plugins.Faults())
			return nil
		},
	}
}

func newPluginsInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show one plugin's manifest details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			plugins, sessions := buildRegistries(cfg)
			defer plugins.Close()
			defer sessions.Close()

			desc, err := plugins.Describe(args[0])
			if err != nil {
				return fmt.Errorf("plugin %q: %w", args[0], err)
			}

			cmd.Printf("Name:     %s\n", desc.Name)
			cmd.Printf("Version:  %s\n", desc.Version)
			cmd.Printf("Info:     %s\n", desc.Info)
			if len(desc.Authors) > 0 {
				cmd.Printf("Authors:  %s\n", strings.Join(desc.Authors, ", "))
			}
			cmd.Printf("Entry:    %s\n", desc.Entry)
			if desc.Requires != "" {
				cmd.Printf("Requires: %s\n", desc.Requires)
			}
			cmd.Printf("Manifest: %s\n", desc.Path)
			return nil
		},
	}
}

// printFaults lists scan faults in stable candidate order.
func printFaults(cmd *cobra.Command, faults map[string]plugin.Fault) {
	if len(faults) == 0 {
		return
	}

	candidates := make([]string, 0, len(faults))
	for candidate := range faults {
		candidates = append(candidates, candidate)
	}
	sort.Strings(candidates)

	cmd.Println("\nfaulted candidates:")
	for _, candidate := range candidates {
		f := faults[candidate]
		cmd.Printf("  %s (%s): %v\n", candidate, f.Path, f.Err)
	}
}
