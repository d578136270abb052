// Package extract unpacks containers into workspaces using ordered lists of
// extraction methods.
package extract

import (
	"context"
	"fmt"

	"github.com/sdejongh/apkdiff/pkg/format"
	"github.com/sdejongh/apkdiff/pkg/logging"
	"github.com/sdejongh/apkdiff/pkg/workspace"
)

// Method is one way of unpacking an input into a directory
type Method interface {
	// Name identifies the method in logs and errors
	Name() string
	// Extract unpacks inputPath into dir, which is empty on entry
	Extract(ctx context.Context, inputPath, dir string) error
}

// Strategy is the ordered fallback chain for one variant
type Strategy struct {
	Variant format.Variant
	Methods []Method
	Logger  logging.Logger
}

// Extract runs the methods in order until one succeeds.
//
// The workspace is emptied before each attempt so that no partial output
// from a failed method survives. Only Retryable failures move on to the
// next method; anything else is returned immediately.
func (s *Strategy) Extract(ctx context.Context, input format.Input, ws *workspace.Workspace) error {
	logger := logging.OrNull(s.Logger).WithFields(logging.Fields{
		"input":   input.Name,
		"variant": s.Variant.String(),
	})

	extErr := &ExtractionError{Input: input.Name, Variant: s.Variant.String()}

	for i, m := range s.Methods {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := ws.Reset(); err != nil {
			return fmt.Errorf("failed to prepare workspace: %w", err)
		}

		err := m.Extract(ctx, input.Path, ws.Path())
		if err == nil {
			if i > 0 {
				logger.Info(ctx, "extracted with fallback method", logging.Fields{"method": m.Name()})
			} else {
				logger.Debug(ctx, "extracted", logging.Fields{"method": m.Name()})
			}
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !Retryable(err) {
			return fmt.Errorf("failed to extract %s with %s: %w", input.Name, m.Name(), err)
		}

		logger.Warn(ctx, "extraction method failed", logging.Fields{
			"method": m.Name(),
			"error":  err.Error(),
		})
		extErr.Attempts = append(extErr.Attempts, Attempt{Method: m.Name(), Err: err})
	}

	// Leave nothing behind from the last failed attempt
	if err := ws.Reset(); err != nil {
		logger.Warn(ctx, "failed to clear workspace", logging.Fields{"error": err.Error()})
	}
	return extErr
}

// MethodNames lists the method names in attempt order
func (s *Strategy) MethodNames() []string {
	names := make([]string, 0, len(s.Methods))
	for _, m := range s.Methods {
		names = append(names, m.Name())
	}
	return names
}
