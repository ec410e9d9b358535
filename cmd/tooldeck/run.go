// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tooldeck Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/Masterminds/semver/v3"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tooldeck/tooldeck/internal/config"
	"github.com/tooldeck/tooldeck/internal/logging"
	"github.com/tooldeck/tooldeck/internal/plugin"
	"github.com/tooldeck/tooldeck/internal/session"
	"github.com/tooldeck/tooldeck/internal/tui"
	"github.com/tooldeck/tooldeck/internal/xdg"
	"github.com/tooldeck/tooldeck/pkg/errutil"
	"github.com/tooldeck/tooldeck/pkg/sdk"

	// Bundled plugins register themselves through their init functions.
	_ "github.com/tooldeck/tooldeck/plugins/dummy"
	_ "github.com/tooldeck/tooldeck/plugins/perfect"
	_ "github.com/tooldeck/tooldeck/plugins/scandable"
)

// NewRunCmd creates the run subcommand, the default interactive shell.
func NewRunCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the interactive shell",
		Long: `Start the interactive shell. Plugins discovered in the configured
locations appear in the menu; opening one creates a new session.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runShell(cmd.Context(), cfg, watch)
		},
	}

	cmd.Flags().StringSlice("locations", nil, "plugin manifest locations")
	cmd.Flags().String("log.format", "", "log format (json or text)")
	cmd.Flags().String("log.level", "", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&watch, "watch", false, "rescan when manifest locations change")

	return cmd
}

// loadConfig merges the config file and command flags, then installs the
// default logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logging.SetDefault("tooldeck", version, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	return cfg, nil
}

// buildRegistries constructs the plugin and session registries from the
// configuration.
func buildRegistries(cfg *config.Config) (*plugin.Registry, *session.Registry) {
	opts := []plugin.Option{plugin.WithExclusions(cfg.Exclude...)}
	if host, err := semver.NewVersion(version); err == nil {
		opts = append(opts, plugin.WithHostVersion(host))
	}

	plugins := plugin.NewRegistry(cfg.Locations, opts...)
	return plugins, session.NewRegistry()
}

// sender is the subset of tea.Program used to deliver registry events.
type sender interface {
	Send(tea.Msg)
}

// wireSignals forwards registry signals to the shell as messages. Signal
// handlers run with registry locks held, so they only post to an ordered
// channel and return; a single goroutine drains it, preserving emission
// order across all three signals.
func wireSignals(p sender, plugins *plugin.Registry, sessions *session.Registry) func() {
	events := make(chan tea.Msg, 64)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range events {
			p.Send(msg)
		}
	}()

	cancels := []func(){
		plugins.PluginsChanged().Subscribe(func(names []string) {
			events <- tui.PluginsChangedMsg{Names: names}
		}),
		sessions.Changed().Subscribe(func(map[string]sdk.Instance) {
			events <- tui.SessionsChangedMsg{}
		}),
		sessions.Removed().Subscribe(func(rm session.Removal) {
			events <- tui.SessionRemovedMsg{Position: rm.Position, Instance: rm.Instance}
		}),
	}

	return func() {
		for _, cancel := range cancels {
			cancel()
		}
		close(events)
		<-done
	}
}

// runShell runs the interactive shell until the user quits or the context
// is canceled.
func runShell(ctx context.Context, cfg *config.Config, watch bool) error {
	if err := xdg.EnsureDir(xdg.PluginsDir()); err != nil {
		slog.Warn("cannot create default plugins directory", "error", err)
	}

	plugins, sessions := buildRegistries(cfg)
	defer plugins.Close()
	defer sessions.Close()

	slog.Info("starting shell",
		"locations", cfg.Locations,
		"plugins", len(plugins.Plugins()),
		"registered_entries", len(sdk.Entries()))

	shell := tui.NewShell(plugins, sessions)
	program := tea.NewProgram(shell, tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := wireSignals(program, plugins, sessions)
	defer unsubscribe()

	if watch {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := plugins.Watch(watchCtx); err != nil {
			errutil.LogError(slog.Default(), "manifest watching disabled", err)
		}
	}

	if _, err := program.Run(); err != nil {
		errutil.LogError(slog.Default(), "shell exited with error", err)
		return err
	}
	return nil
}
