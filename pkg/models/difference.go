package models

import "strings"

// DifferenceKind tells how a node relates its two sides
type DifferenceKind string

const (
	// KindModified indicates both sides exist and differ
	KindModified DifferenceKind = "modified"
	// KindAdded indicates the entry only exists on the second side
	KindAdded DifferenceKind = "added"
	// KindRemoved indicates the entry only exists on the first side
	KindRemoved DifferenceKind = "removed"
)

// Difference is one node of a hierarchical comparison result.
//
// A node may carry a unified diff, free-text comments and child nodes for
// nested comparisons. Trees are built bottom-up: leaf comparisons first,
// then the container nodes that hold them.
type Difference struct {
	// Source1 is the label of the first side (file name, member path, command)
	Source1 string `json:"source1"`

	// Source2 is the label of the second side
	Source2 string `json:"source2"`

	// Kind classifies the node
	Kind DifferenceKind `json:"kind,omitempty"`

	// UnifiedDiff holds the textual diff for leaf nodes
	UnifiedDiff string `json:"unified_diff,omitempty"`

	// Comments are diagnostic annotations attached to this node
	Comments []string `json:"comments,omitempty"`

	// Details are the nested differences
	Details []*Difference `json:"details,omitempty"`
}

// NewDifference creates a modified node for the given sources
func NewDifference(source1, source2 string) *Difference {
	return &Difference{
		Source1: source1,
		Source2: source2,
		Kind:    KindModified,
	}
}

// AddComment appends diagnostic comments, ignoring empty strings
func (d *Difference) AddComment(comments ...string) {
	for _, c := range comments {
		if strings.TrimSpace(c) == "" {
			continue
		}
		d.Comments = append(d.Comments, c)
	}
}

// AddDetail appends child nodes, ignoring nil ones
func (d *Difference) AddDetail(details ...*Difference) {
	for _, child := range details {
		if child == nil {
			continue
		}
		d.Details = append(d.Details, child)
	}
}

// HasDetails reports whether the node carries a diff or children
func (d *Difference) HasDetails() bool {
	return d.UnifiedDiff != "" || len(d.Details) > 0
}

// IsEmpty reports whether the node carries nothing at all
func (d *Difference) IsEmpty() bool {
	return !d.HasDetails() && len(d.Comments) == 0
}

// Walk visits the node and its descendants depth-first.
// Returning false from fn skips the children of that node.
func (d *Difference) Walk(fn func(node *Difference, depth int) bool) {
	d.walk(fn, 0)
}

func (d *Difference) walk(fn func(node *Difference, depth int) bool, depth int) {
	if !fn(d, depth) {
		return
	}
	for _, child := range d.Details {
		child.walk(fn, depth+1)
	}
}

// HasComment reports whether any comment in the tree contains substr
func (d *Difference) HasComment(substr string) bool {
	found := false
	d.Walk(func(node *Difference, _ int) bool {
		for _, c := range node.Comments {
			if strings.Contains(c, substr) {
				found = true
			}
		}
		return !found
	})
	return found
}

// Find returns the first child whose sources match name, or nil
func (d *Difference) Find(name string) *Difference {
	for _, child := range d.Details {
		if child.Source1 == name || child.Source2 == name {
			return child
		}
	}
	return nil
}
