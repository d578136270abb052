package container

import "fmt"

// OpenError is returned when a container cannot be opened.
// It wraps the extraction error, so tool errors stay reachable through
// errors.As.
type OpenError struct {
	Input string
	Err   error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open %s: %v", e.Input, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// MemberMissingError is returned when asking for a name that was not
// enumerated. Callers treat it as an internal invariant violation.
type MemberMissingError struct {
	Input  string
	Member string
}

func (e *MemberMissingError) Error() string {
	return fmt.Sprintf("member %q not found in %s", e.Member, e.Input)
}
