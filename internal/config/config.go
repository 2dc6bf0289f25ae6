// Package config loads the workspace configuration through viper.
//
// Configuration lives at .picosync/config.yaml, with PICOSYNC_* env
// variables overriding file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// TriState models a setting that can be explicitly on, explicitly off,
// or left to the tool to decide.
type TriState int

const (
	Auto TriState = iota
	Enabled
	Disabled
)

// String returns the configuration form of the value.
func (t TriState) String() string {
	switch t {
	case Enabled:
		return "true"
	case Disabled:
		return "false"
	default:
		return "auto"
	}
}

// Resolve collapses the tri-state to a boolean. Auto resolution is
// isolated here: resolve is consulted only for Auto.
func (t TriState) Resolve(resolve func() bool) bool {
	switch t {
	case Enabled:
		return true
	case Disabled:
		return false
	default:
		if resolve == nil {
			return true
		}
		return resolve()
	}
}

// parseTriState maps the raw config value (bool, or the "auto" sentinel
// string) onto a TriState.
func parseTriState(v any) (TriState, error) {
	switch val := v.(type) {
	case nil:
		return Auto, nil
	case bool:
		if val {
			return Enabled, nil
		}
		return Disabled, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "", "auto":
			return Auto, nil
		case "true", "yes", "on", "1":
			return Enabled, nil
		case "false", "no", "off", "0":
			return Disabled, nil
		}
	}
	return Auto, fmt.Errorf("invalid tri-state value %v (want true, false, or auto)", v)
}

// Device identifies the external device-communication tool.
type Device struct {
	// Port is the serial port path, e.g. /dev/ttyACM0.
	Port string

	// Tool is the device-communication binary to invoke.
	Tool string
}

// Timing holds the tunable short delays. These are empirically chosen
// constants, exposed as configuration rather than baked in.
type Timing struct {
	SettleDelay      time.Duration
	HandshakeTimeout time.Duration
	RetryBackoff     time.Duration
	WatchDebounce    time.Duration
}

// Log configures optional rotating file logging.
type Log struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Config is the recognized configuration surface.
type Config struct {
	// SerialAutoSuspend controls whether exclusive operations suspend
	// and restore open sessions. Auto resolves to enabled.
	SerialAutoSuspend TriState

	// ReplRestore is the interactive session restore behavior:
	// replay-import, soft-reset, open-empty, or none.
	ReplRestore string

	// SyncLocalRoot is the local tree to sync. Defaults to the
	// workspace root.
	SyncLocalRoot string

	Device Device
	Timing Timing
	Log    Log
}

// Load reads configuration for the given workspace root. A missing
// config file yields the defaults.
func Load(workspaceRoot string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(workspaceRoot, ".picosync", "config.yaml"))
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PICOSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("repl_restore", "none")
	v.SetDefault("sync_local_root", workspaceRoot)
	v.SetDefault("device.tool", "mpremote")
	v.SetDefault("device.port", "")
	v.SetDefault("timing.settle_delay", "300ms")
	v.SetDefault("timing.handshake_timeout", "2s")
	v.SetDefault("timing.retry_backoff", "500ms")
	v.SetDefault("timing.watch_debounce", "400ms")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	autoSuspend, err := parseTriState(v.Get("serial_auto_suspend"))
	if err != nil {
		return nil, fmt.Errorf("serial_auto_suspend: %w", err)
	}

	cfg := &Config{
		SerialAutoSuspend: autoSuspend,
		ReplRestore:       v.GetString("repl_restore"),
		SyncLocalRoot:     v.GetString("sync_local_root"),
		Device: Device{
			Port: v.GetString("device.port"),
			Tool: v.GetString("device.tool"),
		},
		Timing: Timing{
			SettleDelay:      v.GetDuration("timing.settle_delay"),
			HandshakeTimeout: v.GetDuration("timing.handshake_timeout"),
			RetryBackoff:     v.GetDuration("timing.retry_backoff"),
			WatchDebounce:    v.GetDuration("timing.watch_debounce"),
		},
		Log: Log{
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
		},
	}
	return cfg, nil
}
