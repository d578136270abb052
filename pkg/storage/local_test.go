package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
}

// TestNewLocal tests the Local backend constructor
func TestNewLocal(t *testing.T) {
	t.Run("ValidDirectory", func(t *testing.T) {
		local, err := NewLocal(t.TempDir())
		if err != nil {
			t.Fatalf("NewLocal() error = %v", err)
		}
		if local == nil {
			t.Fatal("NewLocal() returned nil")
		}
		defer local.Close()
	})

	t.Run("NonExistentPath", func(t *testing.T) {
		_, err := NewLocal("/nonexistent/path/that/does/not/exist")
		if err == nil {
			t.Error("NewLocal() should fail for non-existent path")
		}
	})

	t.Run("FileNotDirectory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}

		_, err := NewLocal(path)
		if err == nil {
			t.Error("NewLocal() should fail for file path (not directory)")
		}
	})
}

// TestLocalMembers tests member enumeration
func TestLocalMembers(t *testing.T) {
	ctx := context.Background()

	t.Run("LexicographicByFullPath", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, map[string]string{
			"a/b":             "1",
			"a-b":             "2",
			"usr/bin/tool":    "3",
			".PKGINFO":        "4",
			"usr/lib/libz.so": "5",
			"Z":               "6",
		})
		if err := os.MkdirAll(filepath.Join(root, "empty", "dir"), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.Symlink("tool", filepath.Join(root, "usr", "bin", "alias")); err != nil {
			t.Fatal(err)
		}

		local, err := NewLocal(root)
		if err != nil {
			t.Fatalf("NewLocal() error = %v", err)
		}

		got, err := local.Members(ctx)
		if err != nil {
			t.Fatalf("Members() error = %v", err)
		}
		want := []string{".PKGINFO", "Z", "a-b", "a/b", "usr/bin/alias", "usr/bin/tool", "usr/lib/libz.so"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Members() = %v, want %v", got, want)
		}

		again, err := local.Members(ctx)
		if err != nil {
			t.Fatalf("Members() error = %v", err)
		}
		if !reflect.DeepEqual(got, again) {
			t.Errorf("enumeration is not deterministic: %v vs %v", got, again)
		}
	})

	t.Run("SymlinkToDirectoryNotFollowed", func(t *testing.T) {
		root := t.TempDir()
		outside := t.TempDir()
		writeTree(t, outside, map[string]string{"secret": "x"})
		if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
			t.Fatal(err)
		}

		local, _ := NewLocal(root)
		got, err := local.Members(ctx)
		if err != nil {
			t.Fatalf("Members() error = %v", err)
		}
		if !reflect.DeepEqual(got, []string{"link"}) {
			t.Errorf("Members() = %v, want [link]", got)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		local, _ := NewLocal(t.TempDir())
		got, err := local.Members(ctx)
		if err != nil {
			t.Fatalf("Members() error = %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("Members() = %#v, want empty non-nil slice", got)
		}
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		local, _ := NewLocal(t.TempDir())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := local.Members(ctx); err == nil {
			t.Error("Members() should return error on cancelled context")
		}
	})
}

// TestLocalList tests the List method
func TestLocalList(t *testing.T) {
	tempDir := t.TempDir()
	writeTree(t, tempDir, map[string]string{
		"file1.apk":        "content1",
		"file2.apk":        "content2",
		"subdir/file3.apk": "content3",
		"subdir/file4.apk": "content4",
	})

	local, err := NewLocal(tempDir)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	defer local.Close()

	ctx := context.Background()

	t.Run("ListAll", func(t *testing.T) {
		entries, err := local.List(ctx, "")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}

		// subdir + 4 files, root excluded
		if len(entries) != 5 {
			t.Errorf("List() returned %d entries, expected 5", len(entries))
		}

		fileCount := 0
		for _, e := range entries {
			if !e.IsDir {
				fileCount++
			}
			if e.RelativePath == "subdir/file3.apk" && e.Size != int64(len("content3")) {
				t.Errorf("Size = %d for %s", e.Size, e.RelativePath)
			}
		}
		if fileCount != 4 {
			t.Errorf("List() found %d files, expected 4", fileCount)
		}
	})

	t.Run("ListSubdir", func(t *testing.T) {
		entries, err := local.List(ctx, "subdir")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}

		// subdir itself + 2 files
		if len(entries) != 3 {
			t.Errorf("List() returned %d entries, expected 3", len(entries))
		}
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := local.List(ctx, "")
		if err == nil {
			t.Error("List() should return error on cancelled context")
		}
	})
}

// TestLocalRead tests the Read method
func TestLocalRead(t *testing.T) {
	tempDir := t.TempDir()
	content := []byte("test content for reading")
	writeTree(t, tempDir, map[string]string{"test.txt": string(content)})

	local, err := NewLocal(tempDir)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	defer local.Close()

	ctx := context.Background()

	t.Run("ReadExistingFile", func(t *testing.T) {
		reader, err := local.Read(ctx, "test.txt")
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		defer reader.Close()

		data, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("ReadAll() error = %v", err)
		}

		if !bytes.Equal(data, content) {
			t.Errorf("Read() content = %s, want %s", string(data), string(content))
		}
	})

	t.Run("ReadNonExistentFile", func(t *testing.T) {
		_, err := local.Read(ctx, "nonexistent.txt")
		if err == nil {
			t.Error("Read() should fail for non-existent file")
		}
	})

	t.Run("ReadOutsideRoot", func(t *testing.T) {
		_, err := local.Read(ctx, "../../etc/passwd")
		if err == nil {
			t.Error("Read() should refuse paths leaving the root")
		}
	})
}

// TestLocalExists tests the Exists method
func TestLocalExists(t *testing.T) {
	tempDir := t.TempDir()
	writeTree(t, tempDir, map[string]string{"exists.txt": "content"})
	if err := os.Symlink("missing-target", filepath.Join(tempDir, "dangling")); err != nil {
		t.Fatal(err)
	}

	local, err := NewLocal(tempDir)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	defer local.Close()

	ctx := context.Background()

	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"ExistingFile", "exists.txt", true},
		{"NonExistentFile", "nonexistent.txt", false},
		{"DanglingSymlink", "dangling", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exists, err := local.Exists(ctx, tt.path)
			if err != nil {
				t.Fatalf("Exists() error = %v", err)
			}
			if exists != tt.expected {
				t.Errorf("Exists() = %v, want %v", exists, tt.expected)
			}
		})
	}
}

// TestLocalStat tests the Stat method
func TestLocalStat(t *testing.T) {
	tempDir := t.TempDir()
	content := []byte("test content")
	writeTree(t, tempDir, map[string]string{"dir/stat.txt": string(content)})
	if err := os.Symlink("stat.txt", filepath.Join(tempDir, "dir", "link")); err != nil {
		t.Fatal(err)
	}

	local, err := NewLocal(tempDir)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	defer local.Close()

	ctx := context.Background()

	t.Run("ExistingFile", func(t *testing.T) {
		info, err := local.Stat(ctx, "dir/stat.txt")
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}

		if info.Size != int64(len(content)) {
			t.Errorf("Size = %d, want %d", info.Size, len(content))
		}
		if info.IsDir || info.IsSymlink {
			t.Error("regular file reported as dir or symlink")
		}
		if info.RelativePath != "dir/stat.txt" {
			t.Errorf("RelativePath = %s, want dir/stat.txt", info.RelativePath)
		}
		if info.ModTime.IsZero() {
			t.Error("ModTime should not be zero")
		}
	})

	t.Run("Symlink", func(t *testing.T) {
		info, err := local.Stat(ctx, "dir/link")
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if !info.IsSymlink {
			t.Error("IsSymlink = false, want true")
		}
		if info.LinkTarget != "stat.txt" {
			t.Errorf("LinkTarget = %s, want stat.txt", info.LinkTarget)
		}
	})

	t.Run("NonExistentFile", func(t *testing.T) {
		_, err := local.Stat(ctx, "nonexistent.txt")
		if err == nil {
			t.Error("Stat() should fail for non-existent file")
		}
	})
}

// TestBackendInterface verifies Local implements Backend interface
func TestBackendInterface(t *testing.T) {
	local, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	defer local.Close()

	var _ Backend = local
}
