package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sdejongh/apkdiff/pkg/toolexec"
)

// HangTimeout is the timeout reported by a hanging FakeAPKTool
const HangTimeout = 2 * time.Minute

// FakePackage is what FakeAPKTool knows about one v3 input
type FakePackage struct {
	// Files are written by "extract", keyed by slash path
	Files map[string]string
	// Dump is returned by "adbdump"
	Dump string
}

// FakeAPKTool is a toolexec.Runner standing in for apk-tools.
// Packages are keyed by input path.
type FakeAPKTool struct {
	Packages map[string]FakePackage
	// Missing makes every call fail as if apk were not installed
	Missing bool
	// Hang makes every call fail as if apk had been killed on timeout.
	// An extract call leaves a partial file in its destination first.
	Hang bool

	mu    sync.Mutex
	calls []toolexec.Command
}

// NewFakeAPKTool creates an empty fake
func NewFakeAPKTool() *FakeAPKTool {
	return &FakeAPKTool{Packages: make(map[string]FakePackage)}
}

// Add registers a package under its input path
func (f *FakeAPKTool) Add(path string, pkg FakePackage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Packages[path] = pkg
}

// Calls returns a copy of the recorded invocations
func (f *FakeAPKTool) Calls() []toolexec.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]toolexec.Command(nil), f.calls...)
}

// Run implements toolexec.Runner
func (f *FakeAPKTool) Run(ctx context.Context, cmd toolexec.Command) (*toolexec.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	missing, hang := f.Missing, f.Hang
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if missing {
		return nil, &toolexec.ToolUnavailableError{Tool: cmd.Name}
	}

	var verb, dest string
	input := ""
	for i := 0; i < len(cmd.Args); i++ {
		switch arg := cmd.Args[i]; arg {
		case "extract", "adbdump":
			verb = arg
		case "--destination":
			if i+1 < len(cmd.Args) {
				dest = cmd.Args[i+1]
				i++
			}
		case "--allow-untrusted":
		default:
			input = arg
		}
	}

	if hang {
		if verb == "extract" && dest != "" {
			if err := os.WriteFile(filepath.Join(dest, "partial"), []byte("x"), 0644); err != nil {
				return nil, err
			}
		}
		return nil, &toolexec.ToolTimeoutError{Tool: cmd.Name, Timeout: HangTimeout}
	}

	f.mu.Lock()
	pkg, ok := f.Packages[input]
	f.mu.Unlock()
	if !ok {
		return nil, &toolexec.ToolFailedError{
			Tool:     cmd.Name,
			Args:     cmd.Args,
			ExitCode: 1,
			Stderr:   "ERROR: " + input + ": v3 package format error\n",
		}
	}

	switch verb {
	case "adbdump":
		return &toolexec.Result{Stdout: []byte(pkg.Dump)}, nil
	case "extract":
		for name, body := range pkg.Files {
			path := filepath.Join(dest, filepath.FromSlash(name))
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, err
			}
			if err := os.WriteFile(path, []byte(body), 0644); err != nil {
				return nil, err
			}
		}
		return &toolexec.Result{}, nil
	default:
		return nil, &toolexec.ToolFailedError{Tool: cmd.Name, Args: cmd.Args, ExitCode: 1, Stderr: "unknown applet"}
	}
}
