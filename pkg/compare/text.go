package compare

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/sdejongh/apkdiff/pkg/models"
)

// DefaultContextLines is the number of unchanged lines around each hunk
const DefaultContextLines = 3

// renderUnified is swapped in tests to exercise the error path
var renderUnified = difflib.GetUnifiedDiffString

// UnifiedDiff returns a unified diff of two texts, or "" when equal
func UnifiedDiff(a, b, fromFile, toFile string) (string, error) {
	if a == b {
		return "", nil
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  DefaultContextLines,
	}
	text, err := renderUnified(diff)
	if err != nil {
		return "", fmt.Errorf("failed to render diff of %s: %w", fromFile, err)
	}
	return text, nil
}

// SetUnifiedDiff stores the diff of a and b on node. A rendering failure
// becomes a comment and false is returned.
func SetUnifiedDiff(node *models.Difference, a, b, fromFile, toFile string) bool {
	text, err := UnifiedDiff(a, b, fromFile, toFile)
	if err != nil {
		node.AddComment(fmt.Sprintf("Diff unavailable: %v", err))
		return false
	}
	node.UnifiedDiff = text
	return true
}

// TruncateDiff cuts diff to at most max bytes on a line boundary.
// It reports whether anything was cut. max <= 0 disables the limit.
func TruncateDiff(diff string, max int) (string, bool) {
	if max <= 0 || len(diff) <= max {
		return diff, false
	}
	cut := diff[:max]
	if i := bytes.LastIndexByte([]byte(cut), '\n'); i > 0 {
		cut = cut[:i+1]
	}
	return cut, true
}

// IsText reports whether data looks like text: valid UTF-8 without NUL
// bytes in its first 8000 bytes.
func IsText(data []byte) bool {
	sample := data
	if len(sample) > 8000 {
		sample = sample[:8000]
		// do not split a trailing rune
		for i := 0; i < utf8.UTFMax && !utf8.Valid(sample); i++ {
			sample = sample[:len(sample)-1]
		}
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return false
	}
	return utf8.Valid(sample)
}

func truncatedComment(limit int) string {
	return fmt.Sprintf("Diff truncated to %d bytes", limit)
}
