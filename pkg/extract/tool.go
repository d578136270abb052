package extract

import (
	"context"

	"github.com/sdejongh/apkdiff/pkg/toolexec"
)

// ToolMethod extracts by running an external tool
type ToolMethod struct {
	Label  string
	Runner toolexec.Runner
	Tool   string
	// Args builds the argument list for the given input and destination
	Args func(inputPath, dir string) []string
}

// Name implements Method
func (m *ToolMethod) Name() string {
	if m.Label != "" {
		return m.Label
	}
	return m.Tool
}

// Extract implements Method
func (m *ToolMethod) Extract(ctx context.Context, inputPath, dir string) error {
	_, err := m.Runner.Run(ctx, toolexec.Command{
		Name: m.Tool,
		Args: m.Args(inputPath, dir),
	})
	return err
}
