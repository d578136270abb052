package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sdejongh/apkdiff/pkg/models"
)

// Tree drawing prefixes
const (
	branch = "├── "
	last   = "└── "
	pipe   = "│   "
	blank  = "    "
)

// RenderText writes a difference tree as an indented outline
func RenderText(w io.Writer, diff *models.Difference) error {
	if diff == nil {
		return nil
	}
	fmt.Fprintf(w, "--- %s\n+++ %s\n", diff.Source1, diff.Source2)
	writeBody(w, diff, "")
	return nil
}

func writeBody(w io.Writer, d *models.Difference, indent string) {
	for _, c := range d.Comments {
		fmt.Fprintf(w, "%s│┄ %s\n", indent, c)
	}
	if d.UnifiedDiff != "" {
		for _, line := range strings.Split(strings.TrimRight(d.UnifiedDiff, "\n"), "\n") {
			fmt.Fprintf(w, "%s│ %s\n", indent, line)
		}
	}
	for i, child := range d.Details {
		connector, next := branch, pipe
		if i == len(d.Details)-1 {
			connector, next = last, blank
		}
		fmt.Fprintf(w, "%s%s%s\n", indent, connector, nodeTitle(child))
		writeBody(w, child, indent+next)
	}
}

func nodeTitle(d *models.Difference) string {
	switch d.Kind {
	case models.KindAdded:
		return "+ " + d.Source2
	case models.KindRemoved:
		return "- " + d.Source1
	}
	if d.Source1 == d.Source2 {
		return d.Source1
	}
	return fmt.Sprintf("%s vs %s", d.Source1, d.Source2)
}

// RenderJSON writes a difference tree as indented JSON
func RenderJSON(w io.Writer, diff *models.Difference) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(diff)
}

// WriteReport writes a batch report to a file.
// Format can be "text" or "json".
func WriteReport(report *models.Report, path string, format string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	switch format {
	case FormatJSON:
		err = writeReportJSON(report, file)
	default:
		err = writeReportText(report, file)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return file.Close()
}

// writeReportText writes the report in human-readable format
func writeReportText(report *models.Report, w io.Writer) error {
	fmt.Fprintf(w, "Comparison Report\n")
	fmt.Fprintf(w, "=================\n\n")
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Left: %s\n", report.LeftPath)
	fmt.Fprintf(w, "Right: %s\n", report.RightPath)
	fmt.Fprintf(w, "Status: %s\n\n", report.Status)

	writeSummary(w, report)

	section := func(title string, names []string) {
		if len(names) == 0 {
			return
		}
		label := fmt.Sprintf("%s (%d packages)", title, len(names))
		fmt.Fprintf(w, "\n%s\n%s\n", label, strings.Repeat("-", len(label)))
		for _, n := range names {
			fmt.Fprintf(w, "  %s\n", n)
		}
	}
	section("Only in left", report.OnlyLeft)
	section("Only in right", report.OnlyRight)

	for _, r := range report.Results {
		if r.Identical() {
			continue
		}
		fmt.Fprintf(w, "\n%s\n%s\n", r.Name, strings.Repeat("-", len(r.Name)))
		if r.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", r.Error)
			continue
		}
		if err := RenderText(w, r.Difference); err != nil {
			return err
		}
	}
	return nil
}

// writeReportJSON writes the report in JSON format
func writeReportJSON(report *models.Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(toJSONReport(report))
}
