// Package testutil builds package fixtures in code so that tests never
// depend on checked-in binaries or on apk-tools being installed.
package testutil

import (
	"archive/tar"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Entry describes one tar entry. Type defaults to a regular file.
type Entry struct {
	Name     string
	Body     string
	Mode     int64
	Type     byte
	Linkname string
}

// File is a shorthand for a regular file entry
func File(name, body string) Entry {
	return Entry{Name: name, Body: body}
}

// Dir is a shorthand for a directory entry
func Dir(name string) Entry {
	return Entry{Name: name, Type: tar.TypeDir}
}

// Symlink is a shorthand for a symlink entry
func Symlink(name, target string) Entry {
	return Entry{Name: name, Type: tar.TypeSymlink, Linkname: target}
}

var fixtureTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// PKGINFO renders key/value pairs as a .PKGINFO body
func PKGINFO(kv ...string) string {
	var b strings.Builder
	b.WriteString("# Generated by abuild\n")
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, "%s = %s\n", kv[i], kv[i+1])
	}
	return b.String()
}

// Tar writes entries as a tar stream. When terminate is false the two
// zero end-of-archive blocks are left off, as in APK control segments.
func Tar(terminate bool, entries ...Entry) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		h := &tar.Header{
			Name:     e.Name,
			Mode:     e.Mode,
			ModTime:  fixtureTime,
			Typeflag: e.Type,
			Linkname: e.Linkname,
			Format:   tar.FormatPAX,
		}
		switch e.Type {
		case 0, tar.TypeReg:
			h.Typeflag = tar.TypeReg
			h.Size = int64(len(e.Body))
			if h.Mode == 0 {
				h.Mode = 0644
			}
		case tar.TypeDir:
			if h.Mode == 0 {
				h.Mode = 0755
			}
		default:
			if h.Mode == 0 {
				h.Mode = 0777
			}
		}
		if err := tw.WriteHeader(h); err != nil {
			return nil, err
		}
		if h.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.Body)); err != nil {
				return nil, err
			}
		}
	}
	if terminate {
		if err := tw.Close(); err != nil {
			return nil, err
		}
	} else if err := tw.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Gzip compresses data as a single gzip member
func Gzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildAPKv2 builds an APK v2 package: a gzip-compressed control segment
// holding .PKGINFO followed by a gzip-compressed data segment.
func BuildAPKv2(pkginfo string, data ...Entry) ([]byte, error) {
	control, err := Tar(false, File(".PKGINFO", pkginfo))
	if err != nil {
		return nil, err
	}
	body, err := Tar(true, data...)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	for _, segment := range [][]byte{control, body} {
		gz, err := Gzip(segment)
		if err != nil {
			return nil, err
		}
		out.Write(gz)
	}
	return out.Bytes(), nil
}

// BuildNestedAPKv2 wraps an APK v2 package in one more gzip layer
func BuildNestedAPKv2(pkginfo string, data ...Entry) ([]byte, error) {
	inner, err := BuildAPKv2(pkginfo, data...)
	if err != nil {
		return nil, err
	}
	return Gzip(inner)
}

// WriteAPKv2 writes an APK v2 fixture under dir and returns its path
func WriteAPKv2(t testing.TB, dir, name, pkginfo string, data ...Entry) string {
	t.Helper()
	b, err := BuildAPKv2(pkginfo, data...)
	if err != nil {
		t.Fatalf("failed to build APK v2 fixture: %v", err)
	}
	return WriteFile(t, dir, name, b)
}

// WriteNestedAPKv2 writes a doubly compressed APK v2 fixture
func WriteNestedAPKv2(t testing.TB, dir, name, pkginfo string, data ...Entry) string {
	t.Helper()
	b, err := BuildNestedAPKv2(pkginfo, data...)
	if err != nil {
		t.Fatalf("failed to build nested APK v2 fixture: %v", err)
	}
	return WriteFile(t, dir, name, b)
}

// WriteAPKv3 writes a file carrying the ADB magic followed by payload.
// Its contents are only meaningful to FakeAPKTool.
func WriteAPKv3(t testing.TB, dir, name, payload string) string {
	t.Helper()
	return WriteFile(t, dir, name, append([]byte("ADBd"), payload...))
}

// WriteFile writes data to dir/name, creating parent directories
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create fixture directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

// TreeFiles lists every non-directory below root as slash paths, sorted
func TreeFiles(t testing.TB, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("failed to walk %s: %v", root, err)
	}
	sort.Strings(files)
	return files
}
