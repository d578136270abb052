package metadata

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sdejongh/apkdiff/pkg/format"
	"github.com/sdejongh/apkdiff/pkg/toolexec"
)

// ADBDumpStrategy runs "apk adbdump" on an APK v3 package
type ADBDumpStrategy struct {
	Runner toolexec.Runner
	Tool   string
}

// NewADBDumpStrategy creates the APK v3 metadata strategy
func NewADBDumpStrategy(runner toolexec.Runner, tool string) *ADBDumpStrategy {
	if tool == "" {
		tool = "apk"
	}
	return &ADBDumpStrategy{Runner: runner, Tool: tool}
}

// Variant implements Strategy
func (s *ADBDumpStrategy) Variant() format.Variant { return format.APKv3 }

// Label implements Strategy
func (s *ADBDumpStrategy) Label() string { return s.Tool + " adbdump" }

// Extract implements Strategy
func (s *ADBDumpStrategy) Extract(ctx context.Context, path string) (*Record, error) {
	res, err := s.Runner.Run(ctx, toolexec.Command{
		Name: s.Tool,
		Args: []string{"adbdump", path},
	})
	if err != nil {
		return nil, err
	}

	text := string(res.Stdout)
	return &Record{
		Variant: format.APKv3,
		Text:    text,
		Fields:  parseDump(text),
	}, nil
}

// parseDump decodes the YAML emitted by adbdump. Output that is not a
// YAML mapping yields nil, leaving the text diff as the only result.
func parseDump(text string) map[string]interface{} {
	var doc interface{}
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil
	}
	m, ok := normalize(doc).(map[string]interface{})
	if !ok {
		return nil
	}
	return m
}

// normalize converts YAML maps with non-string keys into JSON-compatible
// map[string]interface{} values, recursively.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}
