package models

import (
	"time"
)

// Report represents the results of a batch comparison
type Report struct {
	// Operation details
	ID        string
	LeftPath  string
	RightPath string

	// Timing
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Statistics
	Stats Statistics

	// Per-pair outcomes, in pair order
	Results []PairResult

	// Paths found on one side only
	OnlyLeft  []string
	OnlyRight []string

	// Overall status
	Status Status
}

// PairResult is the outcome of comparing one pair of files
type PairResult struct {
	Name       string
	LeftPath   string
	RightPath  string
	Difference *Difference
	Error      string
	Duration   time.Duration
}

// Identical reports whether the pair compared equal without error
func (r PairResult) Identical() bool {
	return r.Error == "" && r.Difference == nil
}

// Statistics holds batch comparison metrics
type Statistics struct {
	PairsCompared  int
	PairsIdentical int
	PairsDifferent int
	PairsErrored   int
	BytesCompared  int64
}

// Status represents the overall result
type Status string

const (
	// StatusIdentical indicates every pair compared equal
	StatusIdentical Status = "identical"
	// StatusDifferent indicates at least one difference was found
	StatusDifferent Status = "different"
	// StatusFailed indicates at least one comparison could not run
	StatusFailed Status = "failed"
	// StatusCancelled indicates the operation was cancelled
	StatusCancelled Status = "cancelled"
)

// ExitCode returns the appropriate exit code for the status
func (s Status) ExitCode() int {
	switch s {
	case StatusIdentical:
		return 0
	case StatusDifferent:
		return 1
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}

// ComputeStatus derives the overall status from the collected results
func (r *Report) ComputeStatus() Status {
	switch {
	case r.Stats.PairsErrored > 0:
		return StatusFailed
	case r.Stats.PairsDifferent > 0 || len(r.OnlyLeft) > 0 || len(r.OnlyRight) > 0:
		return StatusDifferent
	default:
		return StatusIdentical
	}
}
