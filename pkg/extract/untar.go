package extract

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sdejongh/apkdiff/internal/platform"
	"github.com/sdejongh/apkdiff/pkg/logging"
)

// Untar writes tar entries into a directory without ever leaving it.
//
// Entries escaping the directory or whose parent chain crosses a symlink
// are skipped, symlinks are created but never written through, and
// device and fifo entries are skipped.
type Untar struct {
	Logger logging.Logger
}

// Name implements Unpacker
func (u *Untar) Name() string { return "tar" }

// Unpack implements Unpacker
func (u *Untar) Unpack(ctx context.Context, r io.Reader, dir string) error {
	logger := logging.OrNull(u.Logger)
	tr := tar.NewReader(r)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if errors.Is(err, ErrCorrupt) {
				return err
			}
			return &CorruptError{Stage: "tar", Err: err}
		}

		skip, err := u.extractEntry(tr, header, dir)
		if err != nil {
			return fmt.Errorf("failed to extract %s: %w", header.Name, err)
		}
		if skip != "" {
			logger.Warn(ctx, "skipped archive entry", logging.Fields{
				"entry":  header.Name,
				"reason": skip,
			})
		}
	}
}

// extractEntry writes one entry. A non-empty skip reason means the entry
// was deliberately not written.
func (u *Untar) extractEntry(tr *tar.Reader, header *tar.Header, dir string) (skip string, err error) {
	name := strings.TrimSuffix(header.Name, "/")
	if clean := filepath.Clean(filepath.FromSlash(name)); clean == "." || clean == "" {
		return "", nil
	}

	target, ok := platform.SafeJoin(dir, name)
	if !ok {
		return "path escapes workspace", nil
	}
	if crossed, err := crossesSymlink(dir, filepath.Dir(target)); err != nil {
		return "", err
	} else if crossed {
		return "parent is a symlink", nil
	}

	switch header.Typeflag {
	case tar.TypeDir:
		if info, err := os.Lstat(target); err == nil && !info.IsDir() {
			if err := os.Remove(target); err != nil {
				return "", err
			}
		}
		return "", os.MkdirAll(target, 0755)

	case tar.TypeReg:
		if err := prepareTarget(target); err != nil {
			return "", err
		}
		return "", writeFile(target, &corruptOnError{stage: "tar", r: tr}, header.FileInfo().Mode().Perm()|0600)

	case tar.TypeSymlink:
		if err := prepareTarget(target); err != nil {
			return "", err
		}
		return "", os.Symlink(header.Linkname, target)

	case tar.TypeLink:
		source, ok := platform.SafeJoin(dir, header.Linkname)
		if !ok {
			return "hard link target escapes workspace", nil
		}
		info, err := os.Lstat(source)
		if err != nil || !info.Mode().IsRegular() {
			return "hard link target is not an extracted file", nil
		}
		if err := prepareTarget(target); err != nil {
			return "", err
		}
		in, err := os.Open(source)
		if err != nil {
			return "", err
		}
		defer in.Close()
		return "", writeFile(target, in, info.Mode().Perm())

	case tar.TypeChar, tar.TypeBlock, tar.TypeFifo:
		return "device or fifo entry", nil

	case tar.TypeXGlobalHeader:
		return "", nil

	default:
		return fmt.Sprintf("unsupported entry type %q", header.Typeflag), nil
	}
}

// prepareTarget creates the parent directories of target and removes any
// non-directory already there, so a later symlink is replaced rather than
// followed.
func prepareTarget(target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	info, err := os.Lstat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", target)
	}
	return os.Remove(target)
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// crossesSymlink reports whether any existing component between root
// (exclusive) and dir (inclusive) is a symlink.
func crossesSymlink(root, dir string) (bool, error) {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false, err
	}
	if rel == "." {
		return false, nil
	}

	current := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, part)
		info, err := os.Lstat(current)
		if err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return true, nil
		}
	}
	return false, nil
}
