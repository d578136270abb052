package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/apkdiff/internal/testutil"
	"github.com/sdejongh/apkdiff/pkg/apk"
	"github.com/sdejongh/apkdiff/pkg/compare"
	"github.com/sdejongh/apkdiff/pkg/models"
	"github.com/sdejongh/apkdiff/pkg/output"
	"github.com/sdejongh/apkdiff/pkg/storage"
)

// TestHelper provides left and right package trees
type TestHelper struct {
	t     *testing.T
	left  string
	right string
}

func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()
	root := t.TempDir()
	h := &TestHelper{t: t, left: filepath.Join(root, "left"), right: filepath.Join(root, "right")}
	require.NoError(t, os.MkdirAll(h.left, 0755))
	require.NoError(t, os.MkdirAll(h.right, 0755))
	return h
}

func (h *TestHelper) pkg(side, name, version string, entries ...testutil.Entry) {
	h.t.Helper()
	dir := h.left
	if side == "right" {
		dir = h.right
	}
	testutil.WriteAPKv2(h.t, dir, name, testutil.PKGINFO("pkgname", "p", "pkgver", version), entries...)
}

func (h *TestHelper) file(side, name, body string) {
	h.t.Helper()
	dir := h.left
	if side == "right" {
		dir = h.right
	}
	testutil.WriteFile(h.t, dir, name, []byte(body))
}

func newDispatcher(t *testing.T) *compare.Dispatcher {
	d := compare.NewDispatcher(compare.Options{})
	d.Register(apk.New(apk.Options{Runner: testutil.NewFakeAPKTool(), WorkspaceRoot: t.TempDir()}))
	return d
}

func TestPairDirectories(t *testing.T) {
	h := NewTestHelper(t)
	h.pkg("left", "main/a.apk", "1")
	h.pkg("right", "main/a.apk", "1")
	h.pkg("left", "main/old.apk", "1")
	h.pkg("right", "community/new.apk", "1")
	h.pkg("right", "community/UPPER.APK", "1")
	h.pkg("left", "skip/x.apk", "1")
	h.pkg("right", "skip/x.apk", "1")
	h.file("left", "APKINDEX.tar.gz", "index")
	h.file("right", "APKINDEX.tar.gz", "index")

	left, err := storage.NewLocal(h.left)
	require.NoError(t, err)
	right, err := storage.NewLocal(h.right)
	require.NoError(t, err)

	pairing, err := PairDirectories(context.Background(), left, right, []string{"skip/"})
	require.NoError(t, err)

	require.Len(t, pairing.Pairs, 1)
	assert.Equal(t, "main/a.apk", pairing.Pairs[0].Name)
	assert.Equal(t, filepath.Join(h.left, "main", "a.apk"), pairing.Pairs[0].Left)
	assert.Equal(t, []string{"main/old.apk"}, pairing.OnlyLeft)
	assert.Equal(t, []string{"community/new.apk"}, pairing.OnlyRight)
}

func TestEngineRun(t *testing.T) {
	h := NewTestHelper(t)
	h.pkg("left", "same.apk", "1", testutil.File("usr/bin/x", "1"))
	h.pkg("right", "same.apk", "1", testutil.File("usr/bin/x", "1"))
	h.pkg("left", "changed.apk", "1", testutil.File("usr/bin/x", "1"))
	h.pkg("right", "changed.apk", "2", testutil.File("usr/bin/x", "2"))
	h.pkg("left", "gone.apk", "1")

	var out bytes.Buffer
	engine := NewEngine(newDispatcher(t), output.NewHumanFormatter(), nil, Config{MaxWorkers: 2, Output: &out})

	report, err := engine.Run(context.Background(), h.left, h.right)
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, 2, report.Stats.PairsCompared)
	assert.Equal(t, 1, report.Stats.PairsIdentical)
	assert.Equal(t, 1, report.Stats.PairsDifferent)
	assert.Equal(t, []string{"gone.apk"}, report.OnlyLeft)
	assert.Equal(t, models.StatusDifferent, report.Status)
	assert.Positive(t, report.Stats.BytesCompared)

	require.Len(t, report.Results, 2)
	assert.Equal(t, "changed.apk", report.Results[0].Name, "results follow pair order")
	assert.True(t, report.Results[0].Difference.HasComment("Both files are APK v2"))
	assert.True(t, report.Results[1].Identical())

	assert.Contains(t, out.String(), "Status: different")
}

func TestEngineIdentical(t *testing.T) {
	h := NewTestHelper(t)
	h.pkg("left", "a.apk", "1")
	h.pkg("right", "a.apk", "1")

	report, err := NewEngine(newDispatcher(t), nil, nil, DefaultConfig()).Run(context.Background(), h.left, h.right)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIdentical, report.Status)
	assert.Equal(t, 0, report.Status.ExitCode())
}

// failingComparator fails on one pair and records concurrency
type failingComparator struct {
	mu      sync.Mutex
	active  int
	maxSeen int
}

func (c *failingComparator) Compare(ctx context.Context, a, b compare.File) (*models.Difference, error) {
	c.mu.Lock()
	c.active++
	if c.active > c.maxSeen {
		c.maxSeen = c.active
	}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.active--
		c.mu.Unlock()
	}()

	if strings.HasPrefix(a.Name, "bad") {
		return nil, errors.New("unreadable")
	}
	return nil, nil
}

func TestEngineErrorsAndWorkerBound(t *testing.T) {
	h := NewTestHelper(t)
	for _, name := range []string{"a.apk", "b.apk", "bad.apk", "c.apk", "d.apk"} {
		h.file("left", name, "x")
		h.file("right", name, "x")
	}

	comparator := &failingComparator{}
	report, err := NewEngine(comparator, nil, nil, Config{MaxWorkers: 2}).Run(context.Background(), h.left, h.right)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Stats.PairsErrored)
	assert.Equal(t, 4, report.Stats.PairsIdentical)
	assert.Equal(t, models.StatusFailed, report.Status)
	assert.LessOrEqual(t, comparator.maxSeen, 2)

	var bad models.PairResult
	for _, r := range report.Results {
		if r.Name == "bad.apk" {
			bad = r
		}
	}
	assert.Equal(t, "unreadable", bad.Error)
}

func TestEngineCancelled(t *testing.T) {
	h := NewTestHelper(t)
	h.file("left", "a.apk", "x")
	h.file("right", "a.apk", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(&failingComparator{}, nil, nil, DefaultConfig()).Run(ctx, h.left, h.right)
	assert.ErrorIs(t, err, context.Canceled)
}

// cancellingComparator cancels the run from inside the first comparison
type cancellingComparator struct {
	cancel context.CancelFunc
}

func (c *cancellingComparator) Compare(ctx context.Context, a, b compare.File) (*models.Difference, error) {
	c.cancel()
	return nil, nil
}

func TestEngineCancelledMidRun(t *testing.T) {
	h := NewTestHelper(t)
	for _, name := range []string{"a.apk", "b.apk", "c.apk", "d.apk"} {
		h.file("left", name, "x")
		h.file("right", name, "x")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	report, err := NewEngine(&cancellingComparator{cancel: cancel}, nil, nil, Config{MaxWorkers: 1}).Run(ctx, h.left, h.right)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, report.Status)
	assert.Less(t, report.Stats.PairsCompared, 4)
}

func TestEngineMissingDirectory(t *testing.T) {
	h := NewTestHelper(t)
	_, err := NewEngine(&failingComparator{}, nil, nil, DefaultConfig()).Run(context.Background(), filepath.Join(h.left, "nope"), h.right)
	assert.Error(t, err)
}
