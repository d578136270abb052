// Package format classifies inputs into the closed set of package variants
// by sniffing a fixed-size header prefix.
package format

import (
	"fmt"
	"strings"
)

// Variant is a concrete on-disk encoding of an APK package
type Variant int

const (
	// Unknown is returned for anything that matches no signature
	Unknown Variant = iota
	// APKv2 is a concatenation of gzip-compressed tar segments
	APKv2
	// APKv3 is the ADB binary database format
	APKv3
)

// Version returns the APK format version, or 0 for Unknown
func (v Variant) Version() int {
	switch v {
	case APKv2:
		return 2
	case APKv3:
		return 3
	default:
		return 0
	}
}

// Known reports whether v is a recognized variant
func (v Variant) Known() bool {
	return v != Unknown
}

// Label returns the bare version label used in comments ("2", "3", "unknown")
func (v Variant) Label() string {
	if !v.Known() {
		return "unknown"
	}
	return fmt.Sprintf("%d", v.Version())
}

func (v Variant) String() string {
	if !v.Known() {
		return "unknown"
	}
	return fmt.Sprintf("APK v%d", v.Version())
}

// ParseVariant parses "2", "v2", "apkv2" or "APK v2" style names
func ParseVariant(s string) (Variant, error) {
	norm := strings.ToLower(strings.ReplaceAll(s, " ", ""))
	norm = strings.TrimPrefix(norm, "apk")
	norm = strings.TrimPrefix(norm, "v")
	switch norm {
	case "2":
		return APKv2, nil
	case "3":
		return APKv3, nil
	case "unknown":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("unknown variant %q", s)
}

// Input is an input file together with its detected variant
type Input struct {
	// Path is the filesystem location
	Path string
	// Name is the logical name used in reports (defaults to Path)
	Name string
	// Variant is fixed at detection time
	Variant Variant
}

// NewInput detects the variant of path and returns the recognized input
func NewInput(path, name string) Input {
	if name == "" {
		name = path
	}
	return Input{Path: path, Name: name, Variant: Detect(path)}
}
