package cli

import (
	"fmt"
	"os"

	"github.com/sdejongh/apkdiff/pkg/apk"
	"github.com/sdejongh/apkdiff/pkg/compare"
	"github.com/sdejongh/apkdiff/pkg/config"
	"github.com/sdejongh/apkdiff/pkg/logging"
	"github.com/sdejongh/apkdiff/pkg/toolexec"
)

// ExitError carries the process exit code out of a command
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Exit codes of compare
const (
	ExitIdentical = 0
	ExitDifferent = 1
	ExitTrouble   = 2
)

// newDispatcher builds the comparator stack from the configuration
func newDispatcher(cfg *config.Config, logger logging.Logger) *compare.Dispatcher {
	d := compare.NewDispatcher(compare.Options{
		MaxDepth:     cfg.Compare.MaxDepth,
		MaxDiffBytes: cfg.Compare.MaxDiffBytes,
		BufferSize:   cfg.Compare.BufferSize,
		Logger:       logger,
	})
	d.Register(apk.New(apk.Options{
		Runner:        toolexec.NewExecRunner(cfg.Tools.Timeout, logger),
		Tool:          cfg.Tools.APK,
		WorkspaceRoot: cfg.Compare.WorkspaceDir,
		MaxWorkers:    cfg.Compare.MaxWorkers,
		MaxDiffBytes:  cfg.Compare.MaxDiffBytes,
		Exclude:       cfg.Exclude,
		Logger:        logger,
	}))
	return d
}

// createLogger combines the console logger (--verbose) and the file logger
// (logging.file) into one
func createLogger(cfg *config.Config) (logging.Logger, error) {
	format := logging.ParseFormat(cfg.Logging.Format)
	level := logging.ParseLevel(cfg.Logging.Level)

	var loggers []logging.Logger
	if globalFlags.Verbose {
		loggers = append(loggers, logging.NewConsoleLogger(os.Stderr, format, level))
	}

	if cfg.Logging.File != "" {
		fileLogger, err := logging.NewFileLogger(logging.FileLoggerConfig{
			Path:       cfg.Logging.File,
			Format:     format,
			Level:      level,
			MaxSize:    10 * 1024 * 1024, // 10 MB
			MaxBackups: 5,
		})
		if err != nil {
			return nil, err
		}
		loggers = append(loggers, fileLogger)
	}

	return logging.Tee(loggers...), nil
}

// setup loads the configuration, applies the flags and creates the logger
func setup() (*config.Config, logging.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlagsToConfig(cfg); err != nil {
		return nil, nil, err
	}
	logger, err := createLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}
