package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// fileConfig is the on-disk layout written by WriteFile. Durations are
// written as strings such as "500ms" so the file stays hand editable.
type fileConfig struct {
	DB struct {
		Path string `toml:"path"`
	} `toml:"db"`
	Export struct {
		Dir    string `toml:"dir"`
		Format string `toml:"format"`
	} `toml:"export"`
	Inbox struct {
		Dir      string `toml:"dir"`
		Debounce string `toml:"debounce"`
	} `toml:"inbox"`
	Serve struct {
		Addr           string `toml:"addr"`
		MaxUploadBytes int64  `toml:"max_upload_bytes"`
	} `toml:"serve"`
	Log struct {
		File       string `toml:"file"`
		Quiet      bool   `toml:"quiet"`
		MaxSizeMB  int    `toml:"max_size_mb"`
		MaxBackups int    `toml:"max_backups"`
		MaxAgeDays int    `toml:"max_age_days"`
	} `toml:"log"`
}

func toFile(c *Config) fileConfig {
	var f fileConfig
	f.DB.Path = c.DB.Path
	f.Export.Dir = c.Export.Dir
	f.Export.Format = c.Export.Format
	f.Inbox.Dir = c.Inbox.Dir
	f.Inbox.Debounce = c.Inbox.Debounce.String()
	f.Serve.Addr = c.Serve.Addr
	f.Serve.MaxUploadBytes = c.Serve.MaxUploadBytes
	f.Log.File = c.Log.File
	f.Log.Quiet = c.Log.Quiet
	f.Log.MaxSizeMB = c.Log.MaxSizeMB
	f.Log.MaxBackups = c.Log.MaxBackups
	f.Log.MaxAgeDays = c.Log.MaxAgeDays
	return f
}

// Encode renders c as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(toFile(c)); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes c to path, creating parent directories. An existing file
// is only replaced when overwrite is set.
func (c *Config) WriteFile(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
	}

	data, err := c.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
