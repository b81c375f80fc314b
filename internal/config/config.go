// Package config loads logbook settings from a TOML file, LOGBOOK_*
// environment variables and built-in defaults, in that order of precedence
// from lowest to highest: defaults, file, environment, flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/logbookone/logbook/internal/interchange"
)

const (
	// EnvPrefix is prepended to every environment override, e.g.
	// LOGBOOK_DB_PATH or LOGBOOK_INBOX_DEBOUNCE.
	EnvPrefix = "LOGBOOK"

	// FileName is the config file name without extension.
	FileName = "logbook"

	appDir = "logbook"
)

// Config holds all settings.
type Config struct {
	DB     DBConfig     `mapstructure:"db"`
	Export ExportConfig `mapstructure:"export"`
	Inbox  InboxConfig  `mapstructure:"inbox"`
	Serve  ServeConfig  `mapstructure:"serve"`
	Log    LogConfig    `mapstructure:"log"`

	// File is the config file that was read, empty if none.
	File string `mapstructure:"-"`
}

// DBConfig locates the store.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// ExportConfig sets export defaults.
type ExportConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
}

// InboxConfig configures the drop folder watcher.
type InboxConfig struct {
	Dir      string        `mapstructure:"dir"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// ServeConfig configures the local bridge.
type ServeConfig struct {
	Addr           string `mapstructure:"addr"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// LogConfig configures the log sink.
type LogConfig struct {
	File       string `mapstructure:"file"`
	Quiet      bool   `mapstructure:"quiet"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultConfig returns the built-in defaults. Paths live under the user's
// config directory.
func DefaultConfig() *Config {
	base := filepath.Join(userDir(), appDir)
	return &Config{
		DB:     DBConfig{Path: filepath.Join(base, "logbook.db")},
		Export: ExportConfig{Dir: ".", Format: string(interchange.FormatJSON)},
		Inbox: InboxConfig{
			Dir:      filepath.Join(base, "inbox"),
			Debounce: 500 * time.Millisecond,
		},
		Serve: ServeConfig{
			Addr:           "127.0.0.1:7420",
			MaxUploadBytes: 32 << 20,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// DefaultPath returns where the config file is looked for when no path is
// given.
func DefaultPath() string {
	return filepath.Join(userDir(), appDir, FileName+".toml")
}

func userDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return "."
}

// Load reads configuration. With an explicit path the file must exist;
// otherwise the default location is tried and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(filepath.Dir(DefaultPath()))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("db.path", d.DB.Path)
	v.SetDefault("export.dir", d.Export.Dir)
	v.SetDefault("export.format", d.Export.Format)
	v.SetDefault("inbox.dir", d.Inbox.Dir)
	v.SetDefault("inbox.debounce", d.Inbox.Debounce)
	v.SetDefault("serve.addr", d.Serve.Addr)
	v.SetDefault("serve.max_upload_bytes", d.Serve.MaxUploadBytes)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.quiet", d.Log.Quiet)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	return v
}

// Validate checks that settings are usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	if _, err := interchange.ParseFormat(c.Export.Format); err != nil {
		return fmt.Errorf("export.format: %w", err)
	}
	if c.Inbox.Debounce < 0 {
		return fmt.Errorf("inbox.debounce must not be negative, got %s", c.Inbox.Debounce)
	}
	if strings.TrimSpace(c.Serve.Addr) == "" {
		return fmt.Errorf("serve.addr must not be empty")
	}
	if c.Serve.MaxUploadBytes <= 0 {
		return fmt.Errorf("serve.max_upload_bytes must be positive, got %d", c.Serve.MaxUploadBytes)
	}
	return nil
}

// ExportFormat returns the configured default export format.
func (c *Config) ExportFormat() interchange.Format {
	f, err := interchange.ParseFormat(c.Export.Format)
	if err != nil {
		return interchange.FormatJSON
	}
	return f
}
