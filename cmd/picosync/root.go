package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/embedworks/picosync/internal/config"
	"github.com/embedworks/picosync/internal/coordinator"
	"github.com/embedworks/picosync/internal/devhost"
	"github.com/embedworks/picosync/internal/devtool"
	"github.com/embedworks/picosync/internal/ignore"
	"github.com/embedworks/picosync/internal/logging"
	"github.com/embedworks/picosync/internal/manifest"
	"github.com/embedworks/picosync/internal/session"
	"github.com/embedworks/picosync/internal/workspace"
)

var (
	flagPort    string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "picosync",
	Short: "Serial workspace sync for MicroPython-style devices",
	Long: `picosync mediates exclusive access to a single serial-attached device
and keeps a manifest baseline for directional file sync between the
local workspace and the device filesystem.

All device communication goes through an external mpremote-style tool
invoked per operation; picosync arbitrates who owns the channel, tears
open sessions down before exclusive work, and restores them afterward.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagPort, "port", "", "serial port (overrides configuration)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log coordinator and device activity")
}

// app wires the workspace-scoped components behind every command.
type app struct {
	root     string
	cfg      *config.Config
	logger   *log.Logger
	tool     *devtool.Tool
	sessions *session.Manager
	coord    *coordinator.Coordinator
}

// newApp locates the workspace and builds the component graph.
func newApp() (*app, error) {
	root := workspace.Find()
	if root == "" {
		return nil, fmt.Errorf("no %s workspace found (run 'picosync init' first)", workspace.DirName)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if flagPort != "" {
		cfg.Device.Port = flagPort
	}

	logOpts := logging.Options{
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Quiet:      !flagVerbose,
	}
	logger := logging.New("[picosync] ", logOpts)

	tool := devtool.New(cfg.Device.Tool, cfg.Device.Port, logging.New("[devtool] ", logOpts))
	host := devhost.New(cfg.Device.Tool, cfg.Device.Port, logging.New("[devhost] ", logOpts))
	sessions := session.NewManager(host, logging.New("[session] ", logOpts))

	coordCfg := coordinator.Config{
		AutoSuspend:      cfg.SerialAutoSuspend.Resolve(nil),
		SettleDelay:      cfg.Timing.SettleDelay,
		HandshakeTimeout: cfg.Timing.HandshakeTimeout,
		RetryBackoff:     cfg.Timing.RetryBackoff,
		Logger:           logging.New("[coordinator] ", logOpts),
	}
	coord := coordinator.New(coordCfg, sessions, tool)

	return &app{
		root:     root,
		cfg:      cfg,
		logger:   logger,
		tool:     tool,
		sessions: sessions,
		coord:    coord,
	}, nil
}

// ignoreMatcher loads the workspace ignore rules.
func (a *app) ignoreMatcher() (*ignore.Matcher, error) {
	return ignore.Load(workspace.IgnorePath(a.root), a.logger)
}

// buildLocal walks the sync root and prints any per-path warnings.
func (a *app) buildLocal() (*manifest.Manifest, error) {
	matcher, err := a.ignoreMatcher()
	if err != nil {
		return nil, err
	}

	m, warnings, err := manifest.Build(a.cfg.SyncLocalRoot, matcher)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: skipped %s\n", w)
	}
	return m, nil
}

// loadBaseline reads the persisted sync baseline; nil when none exists.
func (a *app) loadBaseline() (*manifest.Manifest, error) {
	return manifest.Load(workspace.ManifestPath(a.root))
}

// restoreBehavior translates configuration into the session restore
// mode. The replay-import hint is derived per batch by the applier.
func (a *app) restoreBehavior() session.RestoreBehavior {
	return session.ParseRestoreBehavior(a.cfg.ReplRestore)
}
