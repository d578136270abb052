package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sdejongh/apkdiff/pkg/toolexec"
)

// ErrCorrupt marks decoding failures: bad compression headers, checksum
// mismatches, truncated or malformed archives.
var ErrCorrupt = errors.New("corrupt archive")

// CorruptError wraps a decoding failure at a given stage
type CorruptError struct {
	Stage string
	Err   error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrCorrupt) true for every CorruptError
func (e *CorruptError) Is(target error) bool {
	return target == ErrCorrupt
}

// Attempt records the failure of one extraction method
type Attempt struct {
	Method string
	Err    error
}

// ExtractionError is returned when every method of a strategy failed.
// It unwraps to the error of the last attempt.
type ExtractionError struct {
	Input    string
	Variant  string
	Attempts []Attempt
}

func (e *ExtractionError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("failed to extract %s (%s): no extraction method", e.Input, e.Variant)
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Method, a.Err))
	}
	return fmt.Sprintf("failed to extract %s (%s): %s", e.Input, e.Variant, strings.Join(parts, "; "))
}

func (e *ExtractionError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Retryable reports whether err is an expected extraction failure after
// which the next method may be tried.
func Retryable(err error) bool {
	return errors.Is(err, ErrCorrupt) || toolexec.IsToolError(err)
}
