package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	root := t.TempDir()

	ws, err := Acquire(root, "left/pkg.apk")
	require.NoError(t, err)

	info, err := os.Stat(ws.Path())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	assert.True(t, strings.HasPrefix(filepath.Base(ws.Path()), Prefix+ws.ID()))
	assert.NotContains(t, filepath.Base(ws.Path()), "/")

	require.NoError(t, os.MkdirAll(filepath.Join(ws.Path(), "usr", "bin"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(ws.Path(), "usr", "bin", "tool"), []byte("x"), 0755))

	require.NoError(t, ws.Release())
	_, err = os.Stat(ws.Path())
	assert.True(t, os.IsNotExist(err), "workspace should be removed")
	assert.True(t, ws.Released())

	// idempotent
	require.NoError(t, ws.Release())
	require.NoError(t, ws.Release())
}

func TestRelease_ReadOnlyDirectories(t *testing.T) {
	ws, err := Acquire(t.TempDir(), "ro")
	require.NoError(t, err)

	dir := filepath.Join(ws.Path(), "locked")
	require.NoError(t, os.Mkdir(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0644))
	require.NoError(t, os.Chmod(dir, 0500))

	require.NoError(t, ws.Release())
	_, err = os.Stat(ws.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestReset(t *testing.T) {
	ws, err := Acquire(t.TempDir(), "")
	require.NoError(t, err)
	defer ws.Release()

	require.NoError(t, os.MkdirAll(filepath.Join(ws.Path(), "a", "b"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(ws.Path(), "top"), []byte("x"), 0644))

	require.NoError(t, ws.Reset())
	entries, err := os.ReadDir(ws.Path())
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, ws.Release())
	assert.ErrorIs(t, ws.Reset(), ErrReleased)
}

func TestAcquire_UniqueNames(t *testing.T) {
	root := t.TempDir()
	const n = 32

	var wg sync.WaitGroup
	paths := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ws, err := Acquire(root, "same")
			errs[i] = err
			if err == nil {
				paths[i] = ws.Path()
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[paths[i]], "duplicate workspace %s", paths[i])
		seen[paths[i]] = true
	}
	require.NoError(t, ReleaseAll())
}

func TestAcquire_MissingRoot(t *testing.T) {
	_, err := Acquire(filepath.Join(t.TempDir(), "missing"), "x")
	assert.ErrorIs(t, err, ErrAcquire)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Zero(t, Live())
}

func TestReleaseAll(t *testing.T) {
	root := t.TempDir()
	before := Live()

	a, err := Acquire(root, "a")
	require.NoError(t, err)
	b, err := Acquire(root, "b")
	require.NoError(t, err)
	assert.Equal(t, before+2, Live())

	require.NoError(t, a.Release())
	assert.Equal(t, before+1, Live())

	require.NoError(t, ReleaseAll())
	assert.Equal(t, 0, Live())
	assert.True(t, b.Released())

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "a_b.apk", sanitizeLabel("a/b.apk"))
	assert.Equal(t, "", sanitizeLabel(""))
	long := strings.Repeat("x", 100)
	assert.Len(t, sanitizeLabel(long), 40)
}
