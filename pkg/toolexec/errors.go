package toolexec

import (
	"fmt"
	"strings"
	"time"
)

// ToolUnavailableError indicates the executable could not be found
type ToolUnavailableError struct {
	Tool string
	Err  error
}

func (e *ToolUnavailableError) Error() string {
	return fmt.Sprintf("required tool %q is not installed", e.Tool)
}

func (e *ToolUnavailableError) Unwrap() error {
	return e.Err
}

// ToolFailedError indicates the tool ran and exited non-zero
type ToolFailedError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ToolFailedError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	if stderr := firstLine(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// ToolTimeoutError indicates the tool was killed after exceeding its timeout
type ToolTimeoutError struct {
	Tool    string
	Timeout time.Duration
}

func (e *ToolTimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Tool, e.Timeout)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
