package output

import (
	"fmt"
	"io"

	"github.com/sdejongh/apkdiff/pkg/models"
)

// Progress update types
const (
	UpdatePairStart    = "pair_start"
	UpdatePairComplete = "pair_complete"
	UpdatePairError    = "pair_error"
)

// ProgressUpdate represents a progress notification during a batch run
type ProgressUpdate struct {
	Type string
	Name string
	// Identical is set on pair_complete
	Identical   bool
	CurrentPair int
	TotalPairs  int
	Error       error
}

// Formatter defines the interface for batch output formatting
// Implementations include human-readable, progress bar and JSON formatters
type Formatter interface {
	// Start initializes the formatter for a new batch run
	// maxWorkers indicates the number of parallel workers for display purposes
	Start(writer io.Writer, totalPairs int, maxWorkers int) error

	// Progress reports progress during the run
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays the summary
	Complete(report *models.Report) error

	// Error reports an error outside any pair
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewFormatter returns the batch formatter for the given output format.
// A progress bar replaces per-pair lines for text output when requested
// and the writer is a terminal.
func NewFormatter(name string, w io.Writer, progress bool) (Formatter, error) {
	switch name {
	case FormatJSON:
		return NewJSONFormatter(), nil
	case FormatText, "":
		if progress && IsTerminal(w) {
			return NewProgressFormatter(), nil
		}
		return NewHumanFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", name)
	}
}

// Render writes a single difference tree in the given format. A nil tree
// renders as nothing for text and as null for JSON.
func Render(w io.Writer, name string, diff *models.Difference) error {
	switch name {
	case FormatJSON:
		return RenderJSON(w, diff)
	case FormatText, "":
		return RenderText(w, diff)
	default:
		return fmt.Errorf("unknown output format %q", name)
	}
}
