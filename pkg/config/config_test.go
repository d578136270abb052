package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sdejongh/apkdiff/pkg/models"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Tools.Timeout != 2*time.Minute {
		t.Errorf("Tools.Timeout = %v, want 2m", cfg.Tools.Timeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"Workers", func(c *Config) { c.Compare.MaxWorkers = 0 }, "compare.max_workers"},
		{"Depth", func(c *Config) { c.Compare.MaxDepth = 0 }, "compare.max_depth"},
		{"DiffBytes", func(c *Config) { c.Compare.MaxDiffBytes = 10 }, "compare.max_diff_bytes"},
		{"Buffer", func(c *Config) { c.Compare.BufferSize = 512 }, "compare.buffer_size"},
		{"Tool", func(c *Config) { c.Tools.APK = "" }, "tools.apk"},
		{"Timeout", func(c *Config) { c.Tools.Timeout = 0 }, "tools.timeout"},
		{"OutputFormat", func(c *Config) { c.Output.Format = "html" }, "output.format"},
		{"LogFormat", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"LogLevel", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %s, want %s", verr.Field, tt.field)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("OverridesDefaults", func(t *testing.T) {
		path := filepath.Join(dir, "config.yaml")
		content := `
compare:
  max_workers: 8
tools:
  timeout: 30s
  apk: /sbin/apk
output:
  format: json
exclude:
  - "*.pyc"
  - usr/share/doc/
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadFromFile(path)
		if err != nil {
			t.Fatalf("LoadFromFile() error = %v", err)
		}
		if cfg.Compare.MaxWorkers != 8 {
			t.Errorf("MaxWorkers = %d, want 8", cfg.Compare.MaxWorkers)
		}
		if cfg.Compare.MaxDepth != 8 {
			t.Errorf("MaxDepth = %d, want default 8", cfg.Compare.MaxDepth)
		}
		if cfg.Tools.Timeout != 30*time.Second || cfg.Tools.APK != "/sbin/apk" {
			t.Errorf("Tools = %+v", cfg.Tools)
		}
		if cfg.Output.Format != "json" {
			t.Errorf("Output.Format = %s", cfg.Output.Format)
		}
		if len(cfg.Exclude) != 2 {
			t.Errorf("Exclude = %v", cfg.Exclude)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		os.WriteFile(path, []byte("compare:\n  max_workers: 0\n"), 0644)
		if _, err := LoadFromFile(path); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		os.WriteFile(path, []byte("compare: [unclosed"), 0644)
		if _, err := LoadFromFile(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if _, err := LoadFromFile(filepath.Join(dir, "missing.yaml")); err == nil {
			t.Error("expected read error")
		}
	})
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Compare.MaxWorkers = 3
	cfg.Tools.Timeout = 45 * time.Second
	cfg.Exclude = []string{".SIGN.*"}

	if err := SaveToFile(cfg, path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Compare.MaxWorkers != 3 || loaded.Tools.Timeout != 45*time.Second {
		t.Errorf("loaded = %+v", loaded)
	}
	if len(loaded.Exclude) != 1 || loaded.Exclude[0] != ".SIGN.*" {
		t.Errorf("Exclude = %v", loaded.Exclude)
	}

	cfg.Compare.MaxWorkers = 0
	if err := SaveToFile(cfg, path); err == nil {
		t.Error("saving an invalid config should fail")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvConfigPath, "")
	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath() error = %v", err)
	}
	if filepath.Base(filepath.Dir(path)) != "apkdiff" {
		t.Errorf("path = %s", path)
	}

	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}
	if cfg.Compare.MaxWorkers != Default().Compare.MaxWorkers {
		t.Error("missing default file should yield defaults")
	}
}

func TestLoadFromFile_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	if err := os.WriteFile(path, []byte("compare:\n  max_wrokers: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected an error for an unknown key")
	}
}

func TestLoadFromFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Compare.MaxWorkers != Default().Compare.MaxWorkers {
		t.Error("empty file should yield defaults")
	}
}

func TestDefaultConfigPath_Env(t *testing.T) {
	want := filepath.Join(t.TempDir(), "custom.yaml")
	t.Setenv(EnvConfigPath, want)
	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath() error = %v", err)
	}
	if path != want {
		t.Errorf("path = %s, want %s", path, want)
	}
}
