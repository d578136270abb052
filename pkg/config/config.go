package config

import (
	"time"

	"github.com/sdejongh/apkdiff/pkg/models"
)

// Config represents the application configuration
type Config struct {
	Compare CompareConfig `yaml:"compare"`
	Tools   ToolsConfig   `yaml:"tools"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Exclude []string      `yaml:"exclude"`
}

// CompareConfig holds comparison-related settings
type CompareConfig struct {
	MaxWorkers   int    `yaml:"max_workers"`    // Parallel member comparisons per package pair
	MaxDepth     int    `yaml:"max_depth"`      // Recursion depth for nested packages
	MaxDiffBytes int    `yaml:"max_diff_bytes"` // Cap on each unified diff
	BufferSize   int    `yaml:"buffer_size"`
	WorkspaceDir string `yaml:"workspace_dir"` // Empty = system temp dir
}

// ToolsConfig holds external tool settings
type ToolsConfig struct {
	APK     string        `yaml:"apk"`
	Timeout time.Duration `yaml:"timeout"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "text" or "json"
	Progress bool   `yaml:"progress"` // Show progress bars
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Format string `yaml:"format"` // "json" or "text"
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	File   string `yaml:"file"`   // Log file path (empty = no file log)
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Compare: CompareConfig{
			MaxWorkers:   4,
			MaxDepth:     8,
			MaxDiffBytes: 256 * 1024,
			BufferSize:   65536,
		},
		Tools: ToolsConfig{
			APK:     "apk",
			Timeout: 2 * time.Minute,
		},
		Output: OutputConfig{
			Format:   "text",
			Progress: true,
			Quiet:    false,
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
			File:   "",
		},
		Exclude: []string{},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Compare.MaxWorkers < 1 {
		return &models.ValidationError{
			Field:   "compare.max_workers",
			Message: "must be at least 1",
		}
	}

	if c.Compare.MaxDepth < 1 {
		return &models.ValidationError{
			Field:   "compare.max_depth",
			Message: "must be at least 1",
		}
	}

	if c.Compare.MaxDiffBytes < 1024 {
		return &models.ValidationError{
			Field:   "compare.max_diff_bytes",
			Message: "must be at least 1024 bytes",
		}
	}

	if c.Compare.BufferSize < 1024 {
		return &models.ValidationError{
			Field:   "compare.buffer_size",
			Message: "must be at least 1024 bytes",
		}
	}

	if c.Tools.APK == "" {
		return &models.ValidationError{
			Field:   "tools.apk",
			Message: "must not be empty",
		}
	}

	if c.Tools.Timeout <= 0 {
		return &models.ValidationError{
			Field:   "tools.timeout",
			Message: "must be positive",
		}
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'text' or 'json'",
		}
	}

	if !validFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'text' or 'json'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}
