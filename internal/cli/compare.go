package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sdejongh/apkdiff/pkg/compare"
	"github.com/sdejongh/apkdiff/pkg/logging"
	"github.com/sdejongh/apkdiff/pkg/models"
	"github.com/sdejongh/apkdiff/pkg/output"
)

// NewCompareCommand creates the compare command
func NewCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <file1> <file2>",
		Short: "Compare two packages",
		Long: `Compare two Alpine packages (APK v2 or v3) and print a tree of
differences: package metadata, file list and the content of every member.

Exit status is 0 when the files are identical, 1 when they differ and 2 on
trouble.`,
		Args: cobra.ExactArgs(2),
		RunE: runCompare,
	}

	addCompareFlags(cmd)

	return cmd
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := validateFiles(args[0], args[1]); err != nil {
		return &ExitError{Code: ExitTrouble, Err: err}
	}

	cfg, logger, err := setup()
	if err != nil {
		return &ExitError{Code: ExitTrouble, Err: err}
	}
	defer logger.Close()

	dispatcher := newDispatcher(cfg, logger)

	logger.Info(ctx, "Comparing packages", logging.Fields{"file1": args[0], "file2": args[1]})
	diff, err := dispatcher.Compare(ctx, compare.NewFile(args[0], args[0]), compare.NewFile(args[1], args[1]))
	if err != nil {
		return &ExitError{Code: ExitTrouble, Err: fmt.Errorf("comparison failed: %w", err)}
	}

	if !cfg.Output.Quiet {
		if err := output.Render(cmd.OutOrStdout(), cfg.Output.Format, diff); err != nil {
			return &ExitError{Code: ExitTrouble, Err: err}
		}
	}

	if compareFlags.Report != "" {
		if err := writeDiffReport(compareFlags.Report, cfg.Output.Format, diff); err != nil {
			return &ExitError{Code: ExitTrouble, Err: err}
		}
	}

	if diff == nil {
		return nil
	}
	return &ExitError{Code: ExitDifferent}
}

func writeDiffReport(path, format string, diff *models.Difference) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if err := output.Render(file, format, diff); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return file.Close()
}
