package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/apkdiff/pkg/models"
)

// progressTemplate shows the counter, the bar and the current pair
const progressTemplate = `{{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{string . "current"}}`

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// ProgressFormatter draws a progress bar while pairs are compared and
// prints the human summary at the end
type ProgressFormatter struct {
	mu       sync.Mutex
	writer   io.Writer
	bar      *pb.ProgressBar
	failures []string
	summary  *HumanFormatter
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter() *ProgressFormatter {
	return &ProgressFormatter{summary: NewHumanFormatter()}
}

// Start initializes the formatter
func (f *ProgressFormatter) Start(writer io.Writer, totalPairs int, maxWorkers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer == nil {
		writer = os.Stderr
	}
	f.writer = writer

	f.bar = pb.New(totalPairs)
	f.bar.SetWriter(writer)
	f.bar.SetTemplateString(progressTemplate)

	// Keep the bar on one line
	if file, ok := writer.(*os.File); ok {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			f.bar.SetWidth(width)
		}
	}
	f.bar.Start()
	return nil
}

// Progress advances the bar
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bar == nil {
		return nil
	}

	switch update.Type {
	case UpdatePairStart:
		f.bar.Set("current", update.Name)
	case UpdatePairComplete:
		f.bar.Increment()
	case UpdatePairError:
		f.bar.Increment()
		f.failures = append(f.failures, fmt.Sprintf("%s: %v", update.Name, update.Error))
	}
	return nil
}

// Complete stops the bar and prints the summary
func (f *ProgressFormatter) Complete(report *models.Report) error {
	f.mu.Lock()
	if f.bar != nil {
		f.bar.Set("current", "")
		f.bar.Finish()
	}
	writer, failures := f.writer, f.failures
	f.mu.Unlock()

	if writer == nil {
		writer = io.Discard
	}
	for _, msg := range failures {
		fmt.Fprintf(writer, "✗ %s\n", msg)
	}
	f.summary.writer = writer
	return f.summary.Complete(report)
}

// Error reports an error
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, err.Error())
	return nil
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}
