// Package metadata extracts package descriptors and diffs them, degrading
// gracefully when the two inputs are of different variants.
package metadata

import (
	"context"
	"fmt"
	"sort"

	"github.com/sdejongh/apkdiff/pkg/format"
)

// Record is a canonical metadata payload extracted from one input
type Record struct {
	// Variant of the strategy that produced the record
	Variant format.Variant
	// Text is the raw descriptor, diffed line by line
	Text string
	// Fields is the parsed form, nil when the text could not be parsed
	Fields map[string]interface{}
}

// Strategy extracts the metadata record of one variant
type Strategy interface {
	// Variant is the variant this strategy understands
	Variant() format.Variant
	// Label names the diff node ("PKGINFO", "apk adbdump")
	Label() string
	// Extract reads the record from the original input file
	Extract(ctx context.Context, path string) (*Record, error)
}

// Registry maps variants to their strategies and fixes the order in which
// they are tried when neither input's variant is known.
type Registry struct {
	strategies map[format.Variant]Strategy
	priority   []format.Variant
}

// NewRegistry creates a registry. Strategies are tried in the order given
// when no input variant is known.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[format.Variant]Strategy)}
	for _, s := range strategies {
		if _, dup := r.strategies[s.Variant()]; dup {
			continue
		}
		r.strategies[s.Variant()] = s
		r.priority = append(r.priority, s.Variant())
	}
	return r
}

// Get returns the strategy for v
func (r *Registry) Get(v format.Variant) (Strategy, bool) {
	s, ok := r.strategies[v]
	return s, ok
}

// Candidates returns the strategies to try for the pair (a, b): a's
// variant first, then b's; unknown variants are skipped, and when neither
// is known every strategy is tried in priority order.
func (r *Registry) Candidates(a, b format.Variant) []Strategy {
	var out []Strategy
	seen := make(map[format.Variant]bool)
	for _, v := range []format.Variant{a, b} {
		if !v.Known() || seen[v] {
			continue
		}
		seen[v] = true
		if s, ok := r.strategies[v]; ok {
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, v := range r.priority {
		out = append(out, r.strategies[v])
	}
	return out
}

// ExtractionFailedError is returned when no candidate strategy could
// extract metadata from both inputs.
type ExtractionFailedError struct {
	Attempts map[string]error
	Last     error
}

func (e *ExtractionFailedError) Error() string {
	if e.Last == nil {
		return "no metadata strategy available"
	}
	return e.Last.Error()
}

func (e *ExtractionFailedError) Unwrap() error {
	return e.Last
}

// Labels returns the labels of the strategies that were attempted, sorted
func (e *ExtractionFailedError) Labels() []string {
	labels := make([]string, 0, len(e.Attempts))
	for l := range e.Attempts {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

func sideError(side string, err error) error {
	return fmt.Errorf("%s: %w", side, err)
}
