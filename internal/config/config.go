// Package config handles syncengine configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Database settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Push gateway settings
	Push PushConfig `yaml:"push" mapstructure:"push"`

	// Engine settings
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// GlobalConfig contains global settings.
type GlobalConfig struct {
	// DataDir is where syncengine stores its data (default: ~/.local/share/syncengine).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/syncengine).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// DatabaseConfig contains local store settings.
type DatabaseConfig struct {
	// Driver selects the store backend (sqlite, postgres).
	Driver string `yaml:"driver" mapstructure:"driver"`

	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`

	// DSN is the postgres connection string, used when driver is postgres.
	DSN string `yaml:"dsn" mapstructure:"dsn"`

	// MaxConnections is the maximum number of database connections.
	MaxConnections int `yaml:"max_connections" mapstructure:"max_connections"`

	// BusyTimeoutMs is how long to wait for a locked database (milliseconds).
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// PushConfig contains push gateway settings.
type PushConfig struct {
	// GatewayURL is the websocket URL of the change feed. Empty disables
	// the remote feed (events then come from the local store only).
	GatewayURL string `yaml:"gateway_url" mapstructure:"gateway_url"`

	// DialTimeout bounds the websocket dial.
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`

	// ReconnectInterval is the pause between reconnect attempts.
	ReconnectInterval time.Duration `yaml:"reconnect_interval" mapstructure:"reconnect_interval"`

	// QueueSize is the event queue depth between feed and dispatch.
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size"`
}

// EngineConfig contains send and retry settings.
type EngineConfig struct {
	// MaxRetryAttempts bounds user-triggered retries per message.
	// Zero means unbounded.
	MaxRetryAttempts int `yaml:"max_retry_attempts" mapstructure:"max_retry_attempts"`

	// RetryBackoff is the base delay before a retry, doubling per attempt.
	// Zero disables backoff.
	RetryBackoff time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`

	// UploadBucket is the storage bucket for image attachments.
	UploadBucket string `yaml:"upload_bucket" mapstructure:"upload_bucket"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// RefreshInterval is how often to refresh the display.
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`

	// Theme is the color theme (default, dark, light).
	Theme string `yaml:"theme" mapstructure:"theme"`

	// ShowTimestamps shows message timestamps in the UI.
	ShowTimestamps bool `yaml:"show_timestamps" mapstructure:"show_timestamps"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "syncengine"),
			ConfigDir: filepath.Join(homeDir, ".config", "syncengine"),
		},
		Database: DatabaseConfig{
			Driver:         "sqlite",
			Path:           "", // Will be set to DataDir/syncengine.db
			MaxConnections: 10,
			BusyTimeoutMs:  5000,
		},
		Push: PushConfig{
			GatewayURL:        "",
			DialTimeout:       5 * time.Second,
			ReconnectInterval: 2 * time.Second,
			QueueSize:         256,
		},
		Engine: EngineConfig{
			MaxRetryAttempts: 0,
			RetryBackoff:     0,
			UploadBucket:     "chat-images",
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "console",
			EnableCaller: false,
		},
		TUI: TUIConfig{
			RefreshInterval: 500 * time.Millisecond,
			Theme:           "default",
			ShowTimestamps:  true,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres")
	}

	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required when driver is postgres")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database.max_connections must be at least 1")
	}

	if c.Push.QueueSize < 1 {
		return fmt.Errorf("push.queue_size must be at least 1")
	}

	if c.Engine.MaxRetryAttempts < 0 {
		return fmt.Errorf("engine.max_retry_attempts must not be negative")
	}

	if c.Engine.RetryBackoff < 0 {
		return fmt.Errorf("engine.retry_backoff must not be negative")
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DatabasePath returns the full database path.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Global.DataDir, "syncengine.db")
}
