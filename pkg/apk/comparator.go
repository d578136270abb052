// Package apk compares Alpine packages: it reports the variant, diffs the
// package metadata, and recurses into the members of both packages.
package apk

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sdejongh/apkdiff/pkg/compare"
	"github.com/sdejongh/apkdiff/pkg/container"
	"github.com/sdejongh/apkdiff/pkg/extract"
	"github.com/sdejongh/apkdiff/pkg/format"
	"github.com/sdejongh/apkdiff/pkg/logging"
	"github.com/sdejongh/apkdiff/pkg/metadata"
	"github.com/sdejongh/apkdiff/pkg/models"
	"github.com/sdejongh/apkdiff/pkg/toolexec"
	"github.com/sdejongh/apkdiff/pkg/workspace"
)

// Name is the format name registered with the dispatcher
const Name = "APK"

// SourceFileList labels the node comparing the member lists
const SourceFileList = "file list"

// DefaultMaxWorkers bounds parallel member comparisons per package pair
const DefaultMaxWorkers = 4

// Handler binds a variant to the way it is extracted and read
type Handler struct {
	Variant format.Variant
	// Priority orders handlers, lowest first, matching detection order
	Priority   int
	Extraction *extract.Strategy
	Metadata   metadata.Strategy
}

// Options configure a Comparator
type Options struct {
	// Runner executes apk-tools; defaults to a toolexec.ExecRunner
	Runner toolexec.Runner
	// Tool is the apk-tools executable name
	Tool string
	// ToolTimeout bounds each tool run when Runner is not set
	ToolTimeout time.Duration
	// WorkspaceRoot is where extraction directories are created
	WorkspaceRoot string
	// MaxWorkers bounds parallel member comparisons
	MaxWorkers int
	// MaxDiffBytes caps metadata and file list diffs
	MaxDiffBytes int
	// Exclude holds glob patterns of members to skip
	Exclude []string
	Logger  logging.Logger
}

// Comparator is the compare.FormatComparator for Alpine packages
type Comparator struct {
	opts     Options
	handlers map[format.Variant]Handler
	differ   *metadata.Differ
	logger   logging.Logger
}

// New creates a comparator with the v2 and v3 handlers
func New(opts Options) *Comparator {
	logger := logging.OrNull(opts.Logger).WithFields(logging.Fields{"component": "apk"})
	if opts.Tool == "" {
		opts.Tool = extract.DefaultAPKTool
	}
	if opts.Runner == nil {
		opts.Runner = toolexec.NewExecRunner(opts.ToolTimeout, logger)
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultMaxWorkers
	}
	if opts.MaxDiffBytes <= 0 {
		opts.MaxDiffBytes = compare.DefaultMaxDiffBytes
	}

	return NewWithHandlers(opts, []Handler{
		{
			Variant:    format.APKv3,
			Priority:   0,
			Extraction: extract.NewAPKv3Strategy(opts.Runner, opts.Tool, logger),
			Metadata:   metadata.NewADBDumpStrategy(opts.Runner, opts.Tool),
		},
		{
			Variant:    format.APKv2,
			Priority:   1,
			Extraction: extract.NewAPKv2Strategy(logger),
			Metadata:   metadata.NewPKGINFOStrategy(),
		},
	})
}

// NewWithHandlers creates a comparator over an explicit handler table
func NewWithHandlers(opts Options, handlers []Handler) *Comparator {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultMaxWorkers
	}
	sorted := append([]Handler(nil), handlers...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	table := make(map[format.Variant]Handler, len(sorted))
	var strategies []metadata.Strategy
	for _, h := range sorted {
		table[h.Variant] = h
		if h.Metadata != nil {
			strategies = append(strategies, h.Metadata)
		}
	}

	logger := logging.OrNull(opts.Logger)
	return &Comparator{
		opts:     opts,
		handlers: table,
		differ:   metadata.NewDiffer(metadata.NewRegistry(strategies...), opts.MaxDiffBytes, logger),
		logger:   logger,
	}
}

// Name implements compare.FormatComparator
func (c *Comparator) Name() string {
	return Name
}

// Recognizes implements compare.FormatComparator
func (c *Comparator) Recognizes(f compare.File) bool {
	return format.Recognizes(f.Path, f.Name)
}

// Handlers returns the handler table in priority order
func (c *Comparator) Handlers() []Handler {
	out := make([]Handler, 0, len(c.handlers))
	for _, h := range c.handlers {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// CompareDetails builds the difference node for two packages. Failures to
// read metadata or extract a package become comments. Cancellation and
// workspace.ErrAcquire are returned as errors.
func (c *Comparator) CompareDetails(ctx context.Context, dispatch compare.Comparator, a, b compare.File) (*models.Difference, error) {
	inA := format.NewInput(a.Path, a.Name)
	inB := format.NewInput(b.Path, b.Name)

	diff := models.NewDifference(a.Name, b.Name)

	meta := c.differ.Diff(ctx, inA, inB)
	diff.AddComment(meta.Comments...)
	diff.AddDetail(meta.Difference)

	ca, errA := c.open(ctx, inA)
	defer ca.Close()
	cb, errB := c.open(ctx, inB)
	defer cb.Close()

	for _, err := range []error{errA, errB} {
		if errors.Is(err, workspace.ErrAcquire) {
			return nil, err
		}
	}
	if errA != nil {
		diff.AddComment(openComment(inA, errA))
	}
	if errB != nil {
		diff.AddComment(openComment(inB, errB))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if errA != nil || errB != nil {
		return diff, nil
	}

	membersA, err := ca.Members()
	if err != nil {
		return nil, fmt.Errorf("failed to list members of %s: %w", inA.Name, err)
	}
	membersB, err := cb.Members()
	if err != nil {
		return nil, fmt.Errorf("failed to list members of %s: %w", inB.Name, err)
	}
	membersA = filterMembers(membersA, c.opts.Exclude)
	membersB = filterMembers(membersB, c.opts.Exclude)

	diff.AddDetail(c.fileList(membersA, membersB))

	onlyA, onlyB, both := container.Diff(membersA, membersB)

	nodes, err := c.compareMembers(ctx, dispatch, ca, cb, both)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, name := range onlyA {
		nodes = append(nodes, oneSided(ctx, ca, name, models.KindRemoved))
	}
	for _, name := range onlyB {
		nodes = append(nodes, oneSided(ctx, cb, name, models.KindAdded))
	}
	sort.SliceStable(nodes, func(i, j int) bool { return memberName(nodes[i]) < memberName(nodes[j]) })
	diff.AddDetail(nodes...)

	return diff, nil
}

// open returns a container even on failure so that callers can always
// defer Close
func (c *Comparator) open(ctx context.Context, in format.Input) (*container.Container, error) {
	h, ok := c.handlers[in.Variant]
	var strategy *extract.Strategy
	if ok {
		strategy = h.Extraction
	}
	ct := container.New(in, strategy, container.Options{
		WorkspaceRoot: c.opts.WorkspaceRoot,
		Logger:        c.logger,
	})
	if err := ct.Open(ctx); err != nil {
		c.logger.Warn(ctx, "failed to open package", logging.Fields{"input": in.Name, "error": err.Error()})
		return ct, err
	}
	return ct, nil
}

func (c *Comparator) fileList(a, b []string) *models.Difference {
	left, right := listing(a), listing(b)
	if left == right {
		return nil
	}
	node := models.NewDifference(SourceFileList, SourceFileList)
	var cut bool
	if compare.SetUnifiedDiff(node, left, right, SourceFileList, SourceFileList) {
		node.UnifiedDiff, cut = compare.TruncateDiff(node.UnifiedDiff, c.opts.MaxDiffBytes)
	}
	if cut {
		node.AddComment(fmt.Sprintf("Diff truncated to %d bytes", c.opts.MaxDiffBytes))
	}
	return node
}

func listing(members []string) string {
	if len(members) == 0 {
		return ""
	}
	return strings.Join(members, "\n") + "\n"
}

func openComment(in format.Input, err error) string {
	var unavailable *toolexec.ToolUnavailableError
	if errors.As(err, &unavailable) {
		return fmt.Sprintf("Cannot extract %s: %q is not installed; install apk-tools to compare %s packages",
			in.Name, unavailable.Tool, in.Variant)
	}
	if !in.Variant.Known() {
		return fmt.Sprintf("Cannot extract %s: unrecognized APK variant", in.Name)
	}
	return fmt.Sprintf("Failed to extract %s: %v", in.Name, err)
}

func oneSided(ctx context.Context, ct *container.Container, name string, kind models.DifferenceKind) *models.Difference {
	var node *models.Difference
	verb := "Added"
	if kind == models.KindRemoved {
		node = models.NewDifference(name, "")
		verb = "Removed"
	} else {
		node = models.NewDifference("", name)
	}
	node.Kind = kind

	info, err := ct.Stat(ctx, name)
	switch {
	case err != nil:
		node.AddComment(fmt.Sprintf("%s (size unknown: %v)", verb, err))
	case info.IsSymlink:
		node.AddComment(fmt.Sprintf("%s symlink -> %s", verb, info.LinkTarget))
	default:
		node.AddComment(fmt.Sprintf("%s (%s)", verb, humanize.IBytes(uint64(info.Size))))
	}
	return node
}

func memberName(d *models.Difference) string {
	if d.Source1 != "" {
		return d.Source1
	}
	return d.Source2
}
