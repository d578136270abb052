// Package toolexec runs external tools with captured output, a bounded
// timeout and typed errors.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sdejongh/apkdiff/pkg/logging"
)

// DefaultTimeout bounds a tool invocation when none is configured
const DefaultTimeout = 2 * time.Minute

// Command describes one tool invocation. Arguments are passed verbatim,
// never through a shell.
type Command struct {
	Name string
	Args []string
	Dir  string
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result holds the captured output of a successful run
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Runner executes commands
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands as child processes
type ExecRunner struct {
	// Timeout per invocation (DefaultTimeout when zero)
	Timeout time.Duration
	// Logger receives one debug line per invocation
	Logger logging.Logger
}

// NewExecRunner creates a runner with the given timeout
func NewExecRunner(timeout time.Duration, logger logging.Logger) *ExecRunner {
	return &ExecRunner{Timeout: timeout, Logger: logger}
}

// Locate resolves name on PATH, returning a *ToolUnavailableError when it
// cannot be found
func Locate(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", &ToolUnavailableError{Tool: name, Err: err}
	}
	return path, nil
}

// Run executes cmd and waits for it.
//
// Errors: *ToolUnavailableError when the executable is missing,
// *ToolTimeoutError when the timeout expires (the process group is killed),
// *ToolFailedError on a non-zero exit, ctx.Err() when the parent context is
// cancelled.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	logger := logging.OrNull(r.Logger)

	path, err := Locate(cmd.Name)
	if err != nil {
		return nil, err
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(runCtx, path, cmd.Args...)
	c.Dir = cmd.Dir
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	configureProcess(c)
	c.WaitDelay = 5 * time.Second

	start := time.Now()
	err = c.Run()
	duration := time.Since(start)

	logger.Debug(ctx, "tool finished", logging.Fields{
		"command":  cmd.String(),
		"duration": duration.String(),
		"error":    errString(err),
	})

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, &ToolTimeoutError{Tool: cmd.Name, Timeout: timeout}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ToolFailedError{
				Tool:     cmd.Name,
				Args:     cmd.Args,
				ExitCode: exitErr.ExitCode(),
				Stderr:   stderr.String(),
			}
		}
		return nil, fmt.Errorf("failed to run %s: %w", cmd.Name, err)
	}

	return &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: 0,
		Duration: duration,
	}, nil
}

// IsToolError reports whether err is one of the typed tool errors
func IsToolError(err error) bool {
	var unavailable *ToolUnavailableError
	var failed *ToolFailedError
	var timeout *ToolTimeoutError
	return errors.As(err, &unavailable) || errors.As(err, &failed) || errors.As(err, &timeout)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
