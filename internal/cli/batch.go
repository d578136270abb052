package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/apkdiff/pkg/batch"
	"github.com/sdejongh/apkdiff/pkg/output"
)

// NewBatchCommand creates the batch command
func NewBatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <dir1> <dir2>",
		Short: "Compare every package of two directories",
		Long: `Pair the .apk files of two directory trees by relative path, compare
each pair and print a summary. Packages found on one side only are listed.

Exit status is 0 when every pair is identical, 1 when differences were found,
2 when a comparison failed and 3 when interrupted.`,
		Args: cobra.ExactArgs(2),
		RunE: runBatch,
	}

	addCompareFlags(cmd)

	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := validateDirs(args[0], args[1]); err != nil {
		return &ExitError{Code: ExitTrouble, Err: err}
	}

	cfg, logger, err := setup()
	if err != nil {
		return &ExitError{Code: ExitTrouble, Err: err}
	}
	defer logger.Close()

	// Create output formatter
	var formatter output.Formatter
	out := cmd.OutOrStdout()
	if !cfg.Output.Quiet {
		// The progress bar draws on stderr, everything else on stdout
		if cfg.Output.Progress && cfg.Output.Format == output.FormatText && output.IsTerminal(cmd.ErrOrStderr()) {
			out = cmd.ErrOrStderr()
		}
		formatter, err = output.NewFormatter(cfg.Output.Format, out, cfg.Output.Progress)
		if err != nil {
			return &ExitError{Code: ExitTrouble, Err: err}
		}
	}

	engine := batch.NewEngine(newDispatcher(cfg, logger), formatter, logger, batch.Config{
		MaxWorkers: cfg.Compare.MaxWorkers,
		Exclude:    cfg.Exclude,
		Output:     out,
	})

	report, err := engine.Run(ctx, args[0], args[1])
	if err != nil {
		return &ExitError{Code: ExitTrouble, Err: fmt.Errorf("batch comparison failed: %w", err)}
	}

	// Write report if requested
	if compareFlags.Report != "" {
		if err := output.WriteReport(report, compareFlags.Report, cfg.Output.Format); err != nil {
			return &ExitError{Code: ExitTrouble, Err: fmt.Errorf("failed to write report: %w", err)}
		}
	}

	if code := report.Status.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
