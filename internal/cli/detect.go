package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/apkdiff/pkg/format"
)

// NewDetectCommand creates the detect command
func NewDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file>...",
		Short: "Print the APK variant of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, path := range args {
				v, err := format.DetectWithReason(path)
				var indeterminate *format.DetectionIndeterminateError
				if errors.As(err, &indeterminate) {
					fmt.Fprintf(out, "%s: %s (%s)\n", path, v, indeterminate.Reason)
					continue
				}
				fmt.Fprintf(out, "%s: %s\n", path, v)
			}
			return nil
		},
	}
}
