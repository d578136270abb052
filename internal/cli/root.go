package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand assembles the apkdiff command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "apkdiff",
		Short: "In-depth comparison of Alpine packages",
		Long: `apkdiff compares Alpine Linux packages in depth. It recognizes the APK v2
(gzip segments) and APK v3 (ADB) formats, diffs their metadata and recurses
into every member, including nested packages.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(NewCompareCommand())
	rootCmd.AddCommand(NewBatchCommand())
	rootCmd.AddCommand(NewDetectCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
