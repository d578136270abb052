package format

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// HeaderSize is the number of bytes read from an input for detection
const HeaderSize = 16

// Extension is the file name suffix hinting at an APK package
const Extension = ".apk"

type signature struct {
	variant Variant
	magic   []byte
}

// signatures is ordered by priority: earlier entries win on overlap.
var signatures = []signature{
	{variant: APKv3, magic: []byte("ADBd")},
	{variant: APKv2, magic: []byte{0x1f, 0x8b}},
}

// MinSignatureLength is the length of the shortest known signature
var MinSignatureLength = func() int {
	min := HeaderSize
	for _, s := range signatures {
		if len(s.magic) < min {
			min = len(s.magic)
		}
	}
	return min
}()

// Variants returns the known variants in detection priority order
func Variants() []Variant {
	out := make([]Variant, 0, len(signatures))
	for _, s := range signatures {
		out = append(out, s.variant)
	}
	return out
}

// Magic returns the signature bytes for v, or nil for Unknown
func Magic(v Variant) []byte {
	for _, s := range signatures {
		if s.variant == v {
			return append([]byte(nil), s.magic...)
		}
	}
	return nil
}

// DetectionIndeterminateError explains why an input could not be classified.
// It is informational: detection still yields Unknown.
type DetectionIndeterminateError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DetectionIndeterminateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot detect variant of %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot detect variant of %s: %s", e.Path, e.Reason)
}

func (e *DetectionIndeterminateError) Unwrap() error {
	return e.Err
}

// DetectBytes classifies a header prefix. It is a pure function of header.
func DetectBytes(header []byte) Variant {
	for _, s := range signatures {
		if bytes.HasPrefix(header, s.magic) {
			return s.variant
		}
	}
	return Unknown
}

// Detect classifies the file at path. It never fails: unreadable, empty or
// short inputs are Unknown.
func Detect(path string) Variant {
	v, _ := DetectWithReason(path)
	return v
}

// DetectWithReason is Detect plus the reason an input ended up Unknown.
// The error is nil whenever a variant was recognized.
func DetectWithReason(path string) (Variant, error) {
	header, err := readHeader(path)
	if err != nil {
		return Unknown, &DetectionIndeterminateError{Path: path, Reason: "header unreadable", Err: err}
	}
	if len(header) < MinSignatureLength {
		return Unknown, &DetectionIndeterminateError{
			Path:   path,
			Reason: fmt.Sprintf("header too short (%d bytes)", len(header)),
		}
	}
	v := DetectBytes(header)
	if v == Unknown {
		return Unknown, &DetectionIndeterminateError{Path: path, Reason: "no matching signature"}
	}
	return v, nil
}

// Recognizes is the registry predicate: the logical name ends in ".apk"
// (case-sensitive) and the header matches a known signature.
func Recognizes(path, name string) bool {
	if name == "" {
		name = path
	}
	if !strings.HasSuffix(name, Extension) {
		return false
	}
	return Detect(path).Known()
}

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, HeaderSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}
