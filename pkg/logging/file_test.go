package logging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newTestFileLogger(t *testing.T, cfg FileLoggerConfig) *FileLogger {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "apkdiff.log")
	}
	logger, err := NewFileLogger(cfg)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func logLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func TestNewFileLogger_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "nested", "apkdiff.log")
	newTestFileLogger(t, FileLoggerConfig{Path: path, Level: InfoLevel})

	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestNewFileLogger_Unwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileLogger(FileLoggerConfig{Path: filepath.Join(blocker, "x.log")}); err == nil {
		t.Error("expected an error when the log directory is a file")
	}
}

func TestFileLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level Level
		want  []string
	}{
		{DebugLevel, []string{"[DEBUG]", "[INFO]", "[WARN]", "[ERROR]"}},
		{InfoLevel, []string{"[INFO]", "[WARN]", "[ERROR]"}},
		{WarnLevel, []string{"[WARN]", "[ERROR]"}},
		{ErrorLevel, []string{"[ERROR]"}},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "apkdiff.log")
			logger := newTestFileLogger(t, FileLoggerConfig{Path: path, Format: FormatText, Level: tt.level})

			ctx := context.Background()
			logger.Debug(ctx, "extraction method selected", nil)
			logger.Info(ctx, "comparing packages", nil)
			logger.Warn(ctx, "metadata extraction failed", nil)
			logger.Error(ctx, "workspace release failed", nil, nil)
			logger.Close()

			lines := logLines(t, path)
			if len(lines) != len(tt.want) {
				t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(tt.want), strings.Join(lines, "\n"))
			}
			for i, tag := range tt.want {
				if !strings.Contains(lines[i], tag) {
					t.Errorf("line %d = %q, want %s", i, lines[i], tag)
				}
			}
		})
	}
}

func TestFileLogger_TextFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apkdiff.log")
	logger := newTestFileLogger(t, FileLoggerConfig{Path: path, Format: FormatText, Level: InfoLevel})

	logger.Error(context.Background(), "extract failed", errors.New("gzip: invalid header"),
		Fields{"variant": "APK v2", "input": "foo-1.0-r0.apk"})
	logger.Close()

	lines := logLines(t, path)
	if len(lines) != 1 {
		t.Fatalf("got %d lines", len(lines))
	}
	line := lines[0]
	for _, want := range []string{"[ERROR] extract failed", `error="gzip: invalid header"`, "input=foo-1.0-r0.apk"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	// fields are written in key order
	if strings.Index(line, "input=") > strings.Index(line, "variant=") {
		t.Errorf("fields not sorted: %q", line)
	}
}

func TestFileLogger_JSONFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apkdiff.log")
	logger := newTestFileLogger(t, FileLoggerConfig{Path: path, Format: FormatJSON, Level: InfoLevel})

	logger.WithFields(Fields{"component": "apk"}).
		Warn(context.Background(), "member comparison failed", Fields{"member": "usr/bin/foo"})
	logger.Close()

	lines := logLines(t, path)
	if len(lines) != 1 {
		t.Fatalf("got %d lines", len(lines))
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", lines[0], err)
	}
	want := map[string]string{
		"level":     "WARN",
		"message":   "member comparison failed",
		"component": "apk",
		"member":    "usr/bin/foo",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %s", k, entry[k], v)
		}
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("timestamp missing")
	}
}

func TestFileLogger_WithFieldsDoesNotLeak(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apkdiff.log")
	logger := newTestFileLogger(t, FileLoggerConfig{Path: path, Format: FormatText, Level: InfoLevel})

	ctx := context.Background()
	logger.WithFields(Fields{"pair": "a.apk"}).Info(ctx, "child", nil)
	logger.Info(ctx, "parent", nil)
	logger.Close()

	lines := logLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if !strings.Contains(lines[0], "pair=a.apk") {
		t.Errorf("child line missing field: %q", lines[0])
	}
	if strings.Contains(lines[1], "pair=") {
		t.Errorf("parent line has child field: %q", lines[1])
	}
}

func TestFileLogger_Rotation(t *testing.T) {
	t.Run("KeepsBackups", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "apkdiff.log")
		logger := newTestFileLogger(t, FileLoggerConfig{Path: path, Level: InfoLevel, MaxSize: 100, MaxBackups: 2})

		for i := 0; i < 30; i++ {
			logger.Info(context.Background(), "compared member usr/lib/libexample.so.1", Fields{"n": i})
		}
		logger.Close()

		for _, p := range []string{path, path + ".1", path + ".2"} {
			if _, err := os.Stat(p); err != nil {
				t.Errorf("%s should exist: %v", filepath.Base(p), err)
			}
		}
		if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
			t.Error("only two backups should be kept")
		}
	})

	t.Run("NoBackupsTruncates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "apkdiff.log")
		logger := newTestFileLogger(t, FileLoggerConfig{Path: path, Level: InfoLevel, MaxSize: 100})

		for i := 0; i < 10; i++ {
			logger.Info(context.Background(), "compared member usr/lib/libexample.so.1", nil)
		}
		logger.Close()

		if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
			t.Error("no backup expected when MaxBackups is 0")
		}
	})
}

func TestFileLogger_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apkdiff.log")
	logger := newTestFileLogger(t, FileLoggerConfig{Path: path, Format: FormatJSON, Level: InfoLevel})

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			child := logger.WithFields(Fields{"worker": w})
			for i := 0; i < perWorker; i++ {
				child.Info(context.Background(), fmt.Sprintf("member %d", i), nil)
			}
		}(w)
	}
	wg.Wait()
	logger.Close()

	lines := logLines(t, path)
	if len(lines) != workers*perWorker {
		t.Fatalf("got %d lines, want %d", len(lines), workers*perWorker)
	}
	for _, line := range lines {
		if !json.Valid([]byte(line)) {
			t.Fatalf("interleaved write: %q", line)
		}
	}
}

func TestFileLogger_AfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apkdiff.log")
	logger := newTestFileLogger(t, FileLoggerConfig{Path: path, Level: InfoLevel})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	logger.Info(context.Background(), "dropped", nil)

	if lines := logLines(t, path); len(lines) != 0 {
		t.Errorf("write after close reached the file: %v", lines)
	}
}

func TestNullLogger(t *testing.T) {
	var logger Logger = NewNullLogger()
	ctx := context.Background()
	logger.Debug(ctx, "debug", nil)
	logger.Error(ctx, "error", errors.New("boom"), Fields{"k": "v"})

	if logger.WithFields(Fields{"k": "v"}) == nil {
		t.Error("WithFields returned nil")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, ok := OrNull(nil).(*NullLogger); !ok {
		t.Error("OrNull(nil) should be a NullLogger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"DEBUG":   DebugLevel,
		" info ":  InfoLevel,
		"Warning": WarnLevel,
		"warn":    WarnLevel,
		"ERROR":   ErrorLevel,
		"verbose": InfoLevel,
		"":        InfoLevel,
	}
	for input, want := range tests {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestLevelString(t *testing.T) {
	if Level(99).String() != "UNKNOWN" || WarnLevel.String() != "WARN" {
		t.Errorf("unexpected level names: %s %s", Level(99), WarnLevel)
	}
}
