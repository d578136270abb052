package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
}

// CompareFlags holds the flags shared by compare and batch
type CompareFlags struct {
	Output       string
	Report       string
	Exclude      []string
	Parallel     int
	ToolTimeout  time.Duration
	WorkspaceDir string
	MaxDepth     int
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

var (
	globalFlags  GlobalFlags
	compareFlags CompareFlags
)

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command) {
	globalFlags = GlobalFlags{}
	cmd.PersistentFlags().StringVar(
		&globalFlags.ConfigFile,
		"config",
		"",
		"config file (default is $HOME/.config/apkdiff/config.yaml)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Verbose,
		"verbose",
		"v",
		false,
		"log to stderr",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Quiet,
		"quiet",
		"q",
		false,
		"suppress non-error output",
	)
}

// addCompareFlags binds the comparison flags. Zero values mean "use the
// configuration".
func addCompareFlags(cmd *cobra.Command) {
	compareFlags = CompareFlags{}
	cmd.Flags().StringVarP(&compareFlags.Output, "output", "o", "", "output format: text, json")
	cmd.Flags().StringVar(&compareFlags.Report, "report", "", "write the report to file")
	cmd.Flags().StringSliceVar(&compareFlags.Exclude, "exclude", []string{}, "glob patterns of members to exclude")
	cmd.Flags().IntVarP(&compareFlags.Parallel, "parallel", "p", 0, "number of parallel workers (default: 4)")
	cmd.Flags().DurationVar(&compareFlags.ToolTimeout, "tool-timeout", 0, "timeout for each external tool run (default: 2m)")
	cmd.Flags().StringVar(&compareFlags.WorkspaceDir, "workspace-dir", "", "directory for extraction workspaces (default: system temp dir)")
	cmd.Flags().IntVar(&compareFlags.MaxDepth, "max-depth", 0, "recursion depth for nested packages (default: 8)")

	// Logging flags
	cmd.Flags().StringVar(&compareFlags.LogFile, "log-file", "", "write logs to file")
	cmd.Flags().StringVar(&compareFlags.LogFormat, "log-format", "", "log format: text, json")
	cmd.Flags().StringVar(&compareFlags.LogLevel, "log-level", "", "log level: debug, info, warn, error")
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() *GlobalFlags {
	return &globalFlags
}
