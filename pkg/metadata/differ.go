package metadata

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"github.com/sdejongh/apkdiff/pkg/compare"
	"github.com/sdejongh/apkdiff/pkg/format"
	"github.com/sdejongh/apkdiff/pkg/logging"
	"github.com/sdejongh/apkdiff/pkg/models"
)

// CommentExtractionFailed prefixes the comment recorded when no strategy
// could extract metadata from both inputs
const CommentExtractionFailed = "APK metadata extraction failed: "

// VariantComment describes whether two inputs share a variant
func VariantComment(a, b format.Variant) string {
	switch {
	case a == b && a.Known():
		return fmt.Sprintf("Both files are APK v%d", a.Version())
	case a == b:
		return "APK version could not be detected for either file"
	default:
		return fmt.Sprintf("APK version mismatch: %s vs %s", a.Label(), b.Label())
	}
}

// Outcome is the result of a metadata comparison. Comments always holds
// the variant comment first; Difference is nil when the records are equal
// or could not be extracted.
type Outcome struct {
	Comments   []string
	Difference *models.Difference
	// Variant of the strategy that succeeded (Unknown on failure)
	Variant format.Variant
	// Err is an *ExtractionFailedError when every strategy failed
	Err error
}

// Differ compares the metadata of two inputs
type Differ struct {
	Registry     *Registry
	MaxDiffBytes int
	Logger       logging.Logger
}

// NewDiffer creates a differ over the given registry
func NewDiffer(registry *Registry, maxDiffBytes int, logger logging.Logger) *Differ {
	return &Differ{Registry: registry, MaxDiffBytes: maxDiffBytes, Logger: logger}
}

// Diff compares the metadata of a and b.
//
// Strategies are tried in the order given by Registry.Candidates. The
// first strategy that extracts both records wins and later ones are not
// run. Diff never fails: an extraction failure is reported through
// Outcome.Err and a comment.
func (d *Differ) Diff(ctx context.Context, a, b format.Input) Outcome {
	logger := logging.OrNull(d.Logger)
	out := Outcome{Comments: []string{VariantComment(a.Variant, b.Variant)}}

	failed := &ExtractionFailedError{Attempts: make(map[string]error)}
	for _, s := range d.Registry.Candidates(a.Variant, b.Variant) {
		recA, err := s.Extract(ctx, a.Path)
		if err != nil {
			failed.record(s.Label(), sideError(a.Name, err))
			logger.Debug(ctx, "metadata strategy failed", logging.Fields{"strategy": s.Label(), "input": a.Name, "error": err.Error()})
			continue
		}
		recB, err := s.Extract(ctx, b.Path)
		if err != nil {
			failed.record(s.Label(), sideError(b.Name, err))
			logger.Debug(ctx, "metadata strategy failed", logging.Fields{"strategy": s.Label(), "input": b.Name, "error": err.Error()})
			continue
		}

		out.Variant = s.Variant()
		out.Difference = d.diffRecords(s.Label(), recA, recB)
		return out
	}

	out.Err = failed
	out.Comments = append(out.Comments, CommentExtractionFailed+failed.Error())
	logger.Warn(ctx, "metadata extraction failed", logging.Fields{
		"a":     a.Name,
		"b":     b.Name,
		"error": failed.Error(),
	})
	return out
}

func (e *ExtractionFailedError) record(label string, err error) {
	e.Attempts[label] = err
	e.Last = err
}

func (d *Differ) diffRecords(label string, a, b *Record) *models.Difference {
	if a.Text == b.Text {
		return nil
	}

	diff := models.NewDifference(label, label)
	var cut bool
	if compare.SetUnifiedDiff(diff, a.Text, b.Text, label, label) {
		diff.UnifiedDiff, cut = compare.TruncateDiff(diff.UnifiedDiff, d.MaxDiffBytes)
	}
	if cut {
		diff.AddComment(fmt.Sprintf("Diff truncated to %d bytes", d.MaxDiffBytes))
	}

	if a.Fields != nil && b.Fields != nil {
		delta, err := FieldDelta(a.Fields, b.Fields)
		if err == nil && delta != "" {
			child := models.NewDifference(label+" fields", label+" fields")
			child.UnifiedDiff, _ = compare.TruncateDiff(delta, d.MaxDiffBytes)
			diff.AddDetail(child)
		}
	}
	return diff
}

// FieldDelta renders the structured difference between two field maps,
// or "" when they are equal.
func FieldDelta(a, b map[string]interface{}) (string, error) {
	left, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	right, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}

	delta, err := gojsondiff.New().Compare(left, right)
	if err != nil {
		return "", fmt.Errorf("failed to compare fields: %w", err)
	}
	if !delta.Modified() {
		return "", nil
	}

	var jdoc map[string]interface{}
	if err := json.Unmarshal(left, &jdoc); err != nil {
		return "", fmt.Errorf("failed to decode fields: %w", err)
	}

	config := formatter.AsciiFormatterConfig{
		ShowArrayIndex: false,
		Coloring:       false,
	}
	return formatter.NewAsciiFormatter(jdoc, config).Format(delta)
}
