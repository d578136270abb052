package compare

import (
	"context"

	"github.com/sdejongh/apkdiff/pkg/models"
)

// File is one side of a comparison: a location on disk and the logical
// name used in the difference tree.
type File struct {
	Path string
	Name string
}

// NewFile creates a File whose logical name defaults to its path
func NewFile(path, name string) File {
	if name == "" {
		name = path
	}
	return File{Path: path, Name: name}
}

// Comparator compares two files.
// A nil difference with a nil error means the files are identical.
type Comparator interface {
	Compare(ctx context.Context, a, b File) (*models.Difference, error)
}

// FormatComparator understands the internals of one file format.
// CompareDetails receives the dispatching Comparator so that it can
// recurse into nested members without importing the dispatcher.
type FormatComparator interface {
	// Name returns the name of the format
	Name() string

	// Recognizes reports whether the file is in this format
	Recognizes(f File) bool

	// CompareDetails describes the format-level differences of a and b
	CompareDetails(ctx context.Context, dispatch Comparator, a, b File) (*models.Difference, error)
}

type depthKey struct{}

// WithDepth records the current recursion depth in ctx
func WithDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, depthKey{}, depth)
}

// Depth returns the recursion depth recorded in ctx (0 at top level)
func Depth(ctx context.Context) int {
	if d, ok := ctx.Value(depthKey{}).(int); ok {
		return d
	}
	return 0
}
