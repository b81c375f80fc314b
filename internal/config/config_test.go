package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logbook.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[db]
path = "/tmp/custom.db"

[export]
format = "csv"

[inbox]
debounce = "2s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.DB.Path != "/tmp/custom.db" {
		t.Errorf("DB.Path = %q", cfg.DB.Path)
	}
	if cfg.ExportFormat() != "csv" {
		t.Errorf("ExportFormat() = %q, want csv", cfg.ExportFormat())
	}
	if cfg.Inbox.Debounce != 2*time.Second {
		t.Errorf("Inbox.Debounce = %s, want 2s", cfg.Inbox.Debounce)
	}
	if cfg.Serve.Addr != DefaultConfig().Serve.Addr {
		t.Errorf("Serve.Addr = %q, want default", cfg.Serve.Addr)
	}
	if cfg.File != path {
		t.Errorf("File = %q, want %q", cfg.File, path)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "[serve]\naddr = \"127.0.0.1:1\"\n")
	t.Setenv("LOGBOOK_SERVE_ADDR", "127.0.0.1:9999")
	t.Setenv("LOGBOOK_LOG_QUIET", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Serve.Addr != "127.0.0.1:9999" {
		t.Errorf("Serve.Addr = %q, want env value", cfg.Serve.Addr)
	}
	if !cfg.Log.Quiet {
		t.Error("Log.Quiet = false, want true from env")
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Load() of missing explicit file should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{"defaults", func(*Config) {}, false, ""},
		{"empty db path", func(c *Config) { c.DB.Path = " " }, true, "db.path"},
		{"bad format", func(c *Config) { c.Export.Format = "xml" }, true, "export.format"},
		{"negative debounce", func(c *Config) { c.Inbox.Debounce = -time.Second }, true, "inbox.debounce"},
		{"zero upload limit", func(c *Config) { c.Serve.MaxUploadBytes = 0 }, true, "max_upload_bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %q, want it to mention %q", err, tt.errMsg)
			}
		})
	}
}

func TestWriteFile_LoadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "logbook.toml")
	want := DefaultConfig()
	want.Inbox.Debounce = 1500 * time.Millisecond
	want.Export.Format = "csv"

	if err := want.WriteFile(path, false); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if err := want.WriteFile(path, false); err == nil {
		t.Error("second WriteFile() without overwrite should fail")
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got.Inbox.Debounce != want.Inbox.Debounce {
		t.Errorf("Inbox.Debounce = %s, want %s", got.Inbox.Debounce, want.Inbox.Debounce)
	}
	if got.Export.Format != "csv" || got.DB.Path != want.DB.Path {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}
