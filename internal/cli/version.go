package cli

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sdejongh/apkdiff/pkg/format"
	"github.com/sdejongh/apkdiff/pkg/toolexec"
)

// Build information, set via -ldflags "-X"
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the apkdiff version, the package variants it understands and
whether apk-tools (needed for APK v3 packages) can be found.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, Version)
				return nil
			}

			cfg, err := loadConfig()
			if err != nil {
				return &ExitError{Code: ExitTrouble, Err: err}
			}

			variants := make([]string, 0, 2)
			for _, v := range format.Variants() {
				variants = append(variants, v.String())
			}
			tool := "not found"
			if path, err := toolexec.Locate(cfg.Tools.APK); err == nil {
				tool = path
			}

			fmt.Fprintf(out, "apkdiff %s (%s, built %s)\n", Version, Commit, BuildDate)
			fmt.Fprintf(out, "  Go:        %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(out, "  Variants:  %s\n", strings.Join(variants, ", "))
			fmt.Fprintf(out, "  apk-tools: %s (%s)\n", cfg.Tools.APK, tool)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "print only the version number")

	return cmd
}
