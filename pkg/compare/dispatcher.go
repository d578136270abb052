package compare

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/sdejongh/apkdiff/pkg/logging"
	"github.com/sdejongh/apkdiff/pkg/models"
	"github.com/sdejongh/apkdiff/pkg/workspace"
)

// Comments attached by the dispatcher
const (
	CommentNoFormatDifferences = "No file format specific differences found inside, yet data differs"
	CommentMaxDepth            = "Maximum recursion depth reached; comparing as binary"
)

// Defaults for Options
const (
	DefaultMaxDepth     = 8
	DefaultMaxDiffBytes = 256 * 1024
	DefaultBufferSize   = 64 * 1024
)

// Options configure a Dispatcher
type Options struct {
	// MaxDepth bounds recursion into nested containers
	MaxDepth int
	// MaxDiffBytes caps the size of each unified diff
	MaxDiffBytes int
	// BufferSize is the read buffer for hashing and byte comparison
	BufferSize int
	Logger     logging.Logger
}

// Dispatcher is the generic comparator: it short-circuits identical files,
// hands recognized formats to their FormatComparator and falls back to a
// text or binary diff. It is safe for concurrent and recursive use.
type Dispatcher struct {
	opts   Options
	hasher *Hasher
	logger logging.Logger

	mu      sync.RWMutex
	formats []FormatComparator
}

// NewDispatcher creates a dispatcher with no registered formats
func NewDispatcher(opts Options) *Dispatcher {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxDiffBytes <= 0 {
		opts.MaxDiffBytes = DefaultMaxDiffBytes
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	return &Dispatcher{
		opts:   opts,
		hasher: NewHasher(opts.BufferSize),
		logger: logging.OrNull(opts.Logger),
	}
}

// Register adds a format comparator. Earlier registrations win when more
// than one recognizes a pair.
func (d *Dispatcher) Register(fc FormatComparator) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.formats = append(d.formats, fc)
}

// Formats returns the names of the registered formats in order
func (d *Dispatcher) Formats() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.formats))
	for _, fc := range d.formats {
		names = append(names, fc.Name())
	}
	return names
}

// Hasher exposes the hasher, whose byte counter feeds batch statistics
func (d *Dispatcher) Hasher() *Hasher {
	return d.hasher
}

// Recognize returns the first format comparator recognizing f, or nil
func (d *Dispatcher) Recognize(f File) FormatComparator {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, fc := range d.formats {
		if fc.Recognizes(f) {
			return fc
		}
	}
	return nil
}

// Compare implements Comparator.
// Errors are returned only when a file cannot be read at all or a
// workspace cannot be created (workspace.ErrAcquire).
func (d *Dispatcher) Compare(ctx context.Context, a, b File) (*models.Difference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infoA, err := os.Lstat(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", a.Name, err)
	}
	infoB, err := os.Lstat(b.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", b.Name, err)
	}

	if isSymlink(infoA) || isSymlink(infoB) {
		return d.compareSymlinks(a, b, infoA, infoB)
	}
	if infoA.IsDir() || infoB.IsDir() {
		return nil, fmt.Errorf("cannot compare directories %s and %s", a.Name, b.Name)
	}

	identical, err := d.hasher.Identical(ctx, a.Path, b.Path)
	if err != nil {
		return nil, err
	}
	if identical {
		return nil, nil
	}

	depth := Depth(ctx)
	fc := d.recognizeBoth(a, b)
	if fc == nil {
		return d.leafDiff(ctx, a, b, infoA, infoB)
	}

	if depth >= d.opts.MaxDepth {
		diff, err := d.leafDiff(ctx, a, b, infoA, infoB)
		if err != nil {
			return nil, err
		}
		diff.AddComment(CommentMaxDepth)
		return diff, nil
	}

	d.logger.Debug(ctx, "comparing format details", logging.Fields{
		"format": fc.Name(),
		"a":      a.Name,
		"b":      b.Name,
		"depth":  depth,
	})

	diff, err := fc.CompareDetails(WithDepth(ctx, depth+1), d, a, b)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, workspace.ErrAcquire) {
			return nil, err
		}
		d.logger.Warn(ctx, "format comparison failed", logging.Fields{
			"format": fc.Name(),
			"error":  err.Error(),
		})
		diff = models.NewDifference(a.Name, b.Name)
		diff.AddComment(fmt.Sprintf("%s comparison failed: %v", fc.Name(), err))
	}
	if diff == nil {
		diff = models.NewDifference(a.Name, b.Name)
	}

	if !diff.HasDetails() {
		leaf, err := d.leafDiff(ctx, a, b, infoA, infoB)
		if err != nil {
			return nil, err
		}
		diff.AddComment(CommentNoFormatDifferences)
		diff.AddComment(leaf.Comments...)
		diff.UnifiedDiff = leaf.UnifiedDiff
	}
	return diff, nil
}

func (d *Dispatcher) recognizeBoth(a, b File) FormatComparator {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, fc := range d.formats {
		if fc.Recognizes(a) && fc.Recognizes(b) {
			return fc
		}
	}
	return nil
}

func (d *Dispatcher) compareSymlinks(a, b File, infoA, infoB os.FileInfo) (*models.Difference, error) {
	targetA, err := describeLink(a.Path, infoA)
	if err != nil {
		return nil, err
	}
	targetB, err := describeLink(b.Path, infoB)
	if err != nil {
		return nil, err
	}
	if targetA == targetB {
		return nil, nil
	}

	diff := models.NewDifference(a.Name, b.Name)
	if isSymlink(infoA) != isSymlink(infoB) {
		diff.AddComment(fmt.Sprintf("Type differs: %s vs %s", fileType(infoA), fileType(infoB)))
	}
	SetUnifiedDiff(diff, targetA+"\n", targetB+"\n", a.Name, b.Name)
	return diff, nil
}

func describeLink(path string, info os.FileInfo) (string, error) {
	if !isSymlink(info) {
		return fileType(info), nil
	}
	target, err := os.Readlink(path)
	if err != nil {
		return "", fmt.Errorf("failed to read link %s: %w", path, err)
	}
	return "destination: " + target, nil
}

// leafDiff produces a text diff when both sides are text and a hex dump
// diff otherwise.
func (d *Dispatcher) leafDiff(ctx context.Context, a, b File, infoA, infoB os.FileInfo) (*models.Difference, error) {
	limit := d.opts.MaxDiffBytes
	dataA, truncA, err := readPrefix(a.Path, limit)
	if err != nil {
		return nil, err
	}
	dataB, truncB, err := readPrefix(b.Path, limit)
	if err != nil {
		return nil, err
	}

	diff := models.NewDifference(a.Name, b.Name)
	if infoA.Size() != infoB.Size() {
		diff.AddComment(fmt.Sprintf("Size differs: %s vs %s",
			humanize.IBytes(uint64(infoA.Size())), humanize.IBytes(uint64(infoB.Size()))))
	}

	rendered := true
	if IsText(dataA) && IsText(dataB) {
		rendered = SetUnifiedDiff(diff, string(dataA), string(dataB), a.Name, b.Name)
	} else {
		offset, err := FirstDifference(ctx, a.Path, b.Path, d.opts.BufferSize)
		if err != nil {
			return nil, err
		}
		if offset >= 0 {
			diff.AddComment(fmt.Sprintf("Binary content differs at byte offset %d", offset))
		}
		// hex dumps are roughly four times the input
		dumpLimit := limit / 4
		rendered = SetUnifiedDiff(diff, HexDump(head(dataA, dumpLimit)), HexDump(head(dataB, dumpLimit)), a.Name, b.Name)
		truncA = truncA || len(dataA) > dumpLimit
		truncB = truncB || len(dataB) > dumpLimit
	}

	if rendered && diff.UnifiedDiff == "" && (truncA || truncB) {
		diff.AddComment(fmt.Sprintf("Files differ beyond the first %s compared", humanize.IBytes(uint64(limit))))
	}

	var cut bool
	diff.UnifiedDiff, cut = TruncateDiff(diff.UnifiedDiff, d.opts.MaxDiffBytes)
	if cut {
		diff.AddComment(truncatedComment(d.opts.MaxDiffBytes))
	}
	return diff, nil
}

func readPrefix(path string, limit int) ([]byte, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(limit)+1))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}

func head(data []byte, n int) []byte {
	if len(data) > n {
		return data[:n]
	}
	return data
}

func isSymlink(info os.FileInfo) bool {
	return info.Mode()&os.ModeSymlink != 0
}

func fileType(info os.FileInfo) string {
	switch {
	case isSymlink(info):
		return "symlink"
	case info.IsDir():
		return "directory"
	default:
		return "regular file"
	}
}
