package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sdejongh/apkdiff/internal/platform"
	"github.com/sdejongh/apkdiff/pkg/config"
)

// validateFiles checks that both inputs are readable regular files
func validateFiles(paths ...string) error {
	for _, p := range paths {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			return fmt.Errorf("input does not exist: %s", p)
		} else if err != nil {
			return fmt.Errorf("failed to access input: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("input is a directory: %s (use batch to compare directories)", p)
		}
	}
	return nil
}

// validateDirs checks that both batch roots are distinct, non-nested
// directories
func validateDirs(left, right string) error {
	for _, p := range []string{left, right} {
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", p)
		} else if err != nil {
			return fmt.Errorf("failed to access directory: %w", err)
		} else if !info.IsDir() {
			return fmt.Errorf("path exists but is not a directory: %s", p)
		}
	}

	leftAbs, err := filepath.Abs(left)
	if err != nil {
		return fmt.Errorf("failed to resolve left path: %w", err)
	}
	rightAbs, err := filepath.Abs(right)
	if err != nil {
		return fmt.Errorf("failed to resolve right path: %w", err)
	}

	if leftAbs == rightAbs {
		return fmt.Errorf("directories cannot be the same: %s", leftAbs)
	}
	if platform.IsWithin(leftAbs, rightAbs) || platform.IsWithin(rightAbs, leftAbs) {
		return fmt.Errorf("directories cannot be nested")
	}
	return nil
}

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// applyFlagsToConfig overrides config values with command-line flags and
// validates the result
func applyFlagsToConfig(cfg *config.Config) error {
	if compareFlags.Parallel > 0 {
		cfg.Compare.MaxWorkers = compareFlags.Parallel
	}
	if compareFlags.MaxDepth > 0 {
		cfg.Compare.MaxDepth = compareFlags.MaxDepth
	}
	if compareFlags.WorkspaceDir != "" {
		cfg.Compare.WorkspaceDir = compareFlags.WorkspaceDir
	}
	if compareFlags.ToolTimeout > 0 {
		cfg.Tools.Timeout = compareFlags.ToolTimeout
	}

	// Exclude patterns
	if len(compareFlags.Exclude) > 0 {
		cfg.Exclude = compareFlags.Exclude
	}

	// Output format
	if compareFlags.Output != "" {
		cfg.Output.Format = compareFlags.Output
	}

	// Logging
	if compareFlags.LogFile != "" {
		cfg.Logging.File = compareFlags.LogFile
	}
	if compareFlags.LogFormat != "" {
		cfg.Logging.Format = compareFlags.LogFormat
	}
	if compareFlags.LogLevel != "" {
		cfg.Logging.Level = compareFlags.LogLevel
	}

	// Disable progress in quiet mode
	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := platform.WorkspaceRoot(cfg.Compare.WorkspaceDir); err != nil {
		return err
	}
	return nil
}
