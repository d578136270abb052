// Package workspace manages the exclusively-owned temporary directories that
// back extracted containers.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/google/uuid"
)

// Prefix starts every workspace directory name
const Prefix = "apkdiff-"

// ErrReleased is returned when using a workspace after Release
var ErrReleased = errors.New("workspace already released")

// ErrAcquire marks a failure to create a workspace directory. Comparisons
// cannot proceed without one, so callers propagate it instead of recording
// it as a difference.
var ErrAcquire = errors.New("cannot create workspace")

var labelSanitizer = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Workspace is a scoped temporary directory.
// Release removes it recursively and is safe to call any number of times.
type Workspace struct {
	mu       sync.Mutex
	id       string
	path     string
	released bool
}

// Acquire creates a fresh workspace below root (os.TempDir() when empty).
// The directory is created with os.Mkdir so that two workspaces can never
// share a path.
func Acquire(root, label string) (*Workspace, error) {
	if root == "" {
		root = os.TempDir()
	}

	id := uuid.New().String()
	name := Prefix + id
	if label = sanitizeLabel(label); label != "" {
		name += "-" + label
	}
	path := filepath.Join(root, name)

	if err := os.Mkdir(path, 0700); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAcquire, err)
	}

	ws := &Workspace{id: id, path: path}
	register(ws)
	return ws, nil
}

// ID returns the unique identifier embedded in the directory name
func (w *Workspace) ID() string {
	return w.id
}

// Path returns the absolute directory of the workspace
func (w *Workspace) Path() string {
	return w.path
}

// Released reports whether Release has been called
func (w *Workspace) Released() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.released
}

// Reset empties the workspace directory, keeping the directory itself
func (w *Workspace) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		return ErrReleased
	}

	entries, err := os.ReadDir(w.path)
	if err != nil {
		return fmt.Errorf("failed to read workspace: %w", err)
	}
	for _, entry := range entries {
		if err := removeAll(filepath.Join(w.path, entry.Name())); err != nil {
			return fmt.Errorf("failed to reset workspace: %w", err)
		}
	}
	return nil
}

// Release removes the workspace and everything in it.
// Only the first call does any work.
func (w *Workspace) Release() error {
	w.mu.Lock()
	if w.released {
		w.mu.Unlock()
		return nil
	}
	w.released = true
	w.mu.Unlock()

	unregister(w)
	if err := removeAll(w.path); err != nil {
		return fmt.Errorf("failed to remove workspace %s: %w", w.path, err)
	}
	return nil
}

// removeAll is os.RemoveAll after restoring owner write permission on
// directories, since extracted trees may contain read-only directories.
func removeAll(path string) error {
	err := os.RemoveAll(path)
	if err == nil {
		return nil
	}
	_ = filepath.WalkDir(path, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr == nil && d.IsDir() {
			_ = os.Chmod(p, 0700)
		}
		return nil
	})
	return os.RemoveAll(path)
}

func sanitizeLabel(label string) string {
	label = labelSanitizer.ReplaceAllString(label, "_")
	if len(label) > 40 {
		label = label[len(label)-40:]
	}
	return label
}
