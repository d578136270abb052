package metadata

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/sdejongh/apkdiff/pkg/format"
)

// ErrNoPKGINFO is returned when the control segment has no .PKGINFO
var ErrNoPKGINFO = errors.New("no .PKGINFO found")

// maxPKGINFOSize bounds how much of a .PKGINFO entry is read
const maxPKGINFOSize = 1 << 20

var gzipMagic = []byte{0x1f, 0x8b}

var pkginfoNames = map[string]bool{
	".PKGINFO":   true,
	"PKGINFO":    true,
	"./.PKGINFO": true,
	"./PKGINFO":  true,
}

// PKGINFOStrategy reads .PKGINFO from an APK v2 control segment without
// extracting anything to disk.
type PKGINFOStrategy struct{}

// NewPKGINFOStrategy creates the APK v2 metadata strategy
func NewPKGINFOStrategy() *PKGINFOStrategy {
	return &PKGINFOStrategy{}
}

// Variant implements Strategy
func (s *PKGINFOStrategy) Variant() format.Variant { return format.APKv2 }

// Label implements Strategy
func (s *PKGINFOStrategy) Label() string { return ".PKGINFO" }

// Extract implements Strategy
func (s *PKGINFOStrategy) Extract(ctx context.Context, path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open package: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read gzip stream: %w", err)
	}
	defer zr.Close()
	zr.Multistream(true)

	// Some packagers wrap the segments in one more gzip layer
	br := bufio.NewReader(zr)
	var stream io.Reader = br
	if magic, err := br.Peek(2); err == nil && bytes.Equal(magic, gzipMagic) {
		inner, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to read nested gzip stream: %w", err)
		}
		defer inner.Close()
		inner.Multistream(true)
		stream = inner
	}

	tr := tar.NewReader(stream)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		header, err := tr.Next()
		if err == io.EOF {
			return nil, ErrNoPKGINFO
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read control segment: %w", err)
		}
		if !pkginfoNames[header.Name] || header.Typeflag != tar.TypeReg {
			continue
		}

		data, err := io.ReadAll(io.LimitReader(tr, maxPKGINFOSize))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", header.Name, err)
		}
		text := string(data)
		return &Record{
			Variant: format.APKv2,
			Text:    text,
			Fields:  ParsePKGINFO(text),
		}, nil
	}
}

// ParsePKGINFO parses "key = value" lines. Comment and blank lines are
// skipped; a key seen more than once (depend, provides, ...) becomes a list
// in file order.
func ParsePKGINFO(text string) map[string]interface{} {
	fields := make(map[string]interface{})
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch existing := fields[key].(type) {
		case nil:
			fields[key] = value
		case string:
			fields[key] = []interface{}{existing, value}
		case []interface{}:
			fields[key] = append(existing, value)
		}
	}
	return fields
}
