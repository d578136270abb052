package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizePath normalizes a path for the current platform
func NormalizePath(path string) string {
	normalized := filepath.Clean(path)

	// On Windows, ensure UNC paths are preserved
	if runtime.GOOS == "windows" {
		if strings.HasPrefix(path, "\\\\") && !strings.HasPrefix(normalized, "\\\\") {
			normalized = "\\\\" + normalized
		}
	}

	return normalized
}

// WorkspaceRoot resolves the directory under which workspaces are created.
// An empty configured value means the system temp directory.
func WorkspaceRoot(configured string) (string, error) {
	if configured == "" {
		configured = os.TempDir()
	}
	if err := ValidatePath(configured); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(NormalizePath(configured))
	if err != nil {
		return "", &PathError{Path: configured, Message: err.Error()}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &PathError{Path: configured, Message: err.Error()}
	}
	if !info.IsDir() {
		return "", &PathError{Path: configured, Message: "not a directory"}
	}
	return abs, nil
}

// IsWithin reports whether target is root itself or lies below it,
// comparing cleaned paths lexically.
func IsWithin(root, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(target))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// SafeJoin joins an archive entry name onto root, returning false when the
// cleaned result would leave root.
func SafeJoin(root, name string) (string, bool) {
	name = strings.TrimLeft(filepath.FromSlash(name), string(filepath.Separator))
	target := filepath.Join(root, name)
	if !IsWithin(root, target) {
		return "", false
	}
	return target, true
}

// ToSlash converts a relative path into the slash-separated member form
func ToSlash(rel string) string {
	return filepath.ToSlash(rel)
}

// ValidatePath checks if a path is valid for the current platform
func ValidatePath(path string) error {
	if path == "" {
		return &PathError{Path: path, Message: "path is empty"}
	}

	// Check for invalid characters based on OS
	if runtime.GOOS == "windows" {
		invalidChars := []string{"<", ">", "\"", "|", "?", "*"}
		for _, char := range invalidChars {
			if strings.Contains(path, char) {
				return &PathError{Path: path, Message: "path contains invalid character: " + char}
			}
		}
	}

	return nil
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}
