package output

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sdejongh/apkdiff/pkg/models"
)

// HumanFormatter formats batch output in human-readable format
type HumanFormatter struct {
	writer     io.Writer
	totalPairs int
	startTime  time.Time
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, totalPairs int, maxWorkers int) error {
	f.writer = writer
	f.totalPairs = totalPairs
	f.startTime = time.Now()

	if writer != nil {
		fmt.Fprintf(writer, "Comparing %d package pairs with %d workers\n", totalPairs, maxWorkers)
	}
	return nil
}

// Progress reports progress during the run
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	if f.writer == nil {
		return nil
	}

	switch update.Type {
	case UpdatePairComplete:
		mark := "="
		if !update.Identical {
			mark = "≠"
		}
		fmt.Fprintf(f.writer, "[%d/%d] %s %s\n", update.CurrentPair, f.totalPairs, mark, update.Name)

	case UpdatePairError:
		fmt.Fprintf(f.writer, "[%d/%d] ✗ %s: %v\n", update.CurrentPair, f.totalPairs, update.Name, update.Error)
	}
	return nil
}

// Complete finalizes output and displays summary
func (f *HumanFormatter) Complete(report *models.Report) error {
	if f.writer == nil {
		f.writer = io.Discard
	}
	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Comparison completed in %s\n\n", report.Duration.Round(time.Millisecond))
	writeSummary(f.writer, report)
	return nil
}

// writeSummary prints the statistics block shared by the console and the
// text report
func writeSummary(w io.Writer, report *models.Report) {
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Pairs compared:   %d\n", report.Stats.PairsCompared)
	fmt.Fprintf(w, "  Identical:        %d\n", report.Stats.PairsIdentical)
	fmt.Fprintf(w, "  Different:        %d\n", report.Stats.PairsDifferent)
	fmt.Fprintf(w, "  Errored:          %d\n", report.Stats.PairsErrored)
	fmt.Fprintf(w, "  Only in left:     %d\n", len(report.OnlyLeft))
	fmt.Fprintf(w, "  Only in right:    %d\n", len(report.OnlyRight))
	fmt.Fprintf(w, "  Data hashed:      %s\n", humanize.IBytes(uint64(report.Stats.BytesCompared)))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Status: %s\n", report.Status)
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	if f.writer != nil {
		fmt.Fprintf(f.writer, "Error: %v\n", err)
	}
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}
