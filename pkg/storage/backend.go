package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo represents metadata about a file
type FileInfo struct {
	Path         string
	Size         int64
	ModTime      time.Time
	IsDir        bool
	IsSymlink    bool
	LinkTarget   string
	Permissions  uint32
	RelativePath string
}

// Backend defines the read-only operations needed over an extracted tree
// or an input directory.
type Backend interface {
	// Members returns the relative paths of every non-directory entry,
	// slash-separated and sorted lexicographically
	Members(ctx context.Context) ([]string, error)

	// List returns all entries below path recursively
	List(ctx context.Context, path string) ([]FileInfo, error)

	// Read opens a file for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists checks if a file or directory exists
	Exists(ctx context.Context, path string) (bool, error)

	// Stat returns file metadata without following a final symlink
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Close releases any resources held by the backend
	Close() error
}
