package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestConsoleLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, FormatText, InfoLevel)

	ctx := context.Background()
	logger.Debug(ctx, "hidden", nil)
	logger.Info(ctx, "extracting package", Fields{"variant": "APK v2"})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(out, "extracting package") {
		t.Errorf("output should contain the message, got %q", out)
	}
	if !strings.Contains(out, "variant=") {
		t.Errorf("output should contain the field, got %q", out)
	}
}

func TestConsoleLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, FormatJSON, DebugLevel)

	logger.WithFields(Fields{"component": "extract"}).
		Error(context.Background(), "attempt failed", errors.New("bad gzip header"), Fields{"method": "gzip+tar"})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log %q: %v", buf.String(), err)
	}
	if entry["message"] != "attempt failed" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["component"] != "extract" || entry["method"] != "gzip+tar" {
		t.Errorf("fields missing: %v", entry)
	}
	if entry["error"] != "bad gzip header" {
		t.Errorf("error = %v", entry["error"])
	}
}

func TestTee(t *testing.T) {
	t.Run("EmptyIsNull", func(t *testing.T) {
		if _, ok := Tee(nil, nil).(*NullLogger); !ok {
			t.Error("Tee of nils should be a NullLogger")
		}
	})

	t.Run("SingleIsUnwrapped", func(t *testing.T) {
		l := NewNullLogger()
		if Tee(l) != Logger(l) {
			t.Error("Tee of one logger should return it unchanged")
		}
	})

	t.Run("FansOut", func(t *testing.T) {
		var a, b bytes.Buffer
		logger := Tee(NewConsoleLogger(&a, FormatText, InfoLevel), NewConsoleLogger(&b, FormatText, InfoLevel))
		logger.WithFields(Fields{"k": "v"}).Warn(context.Background(), "both", nil)

		if !strings.Contains(a.String(), "both") || !strings.Contains(b.String(), "both") {
			t.Errorf("message should reach both loggers: %q / %q", a.String(), b.String())
		}
		if err := logger.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
}

func TestOrNull(t *testing.T) {
	if _, ok := OrNull(nil).(*NullLogger); !ok {
		t.Error("OrNull(nil) should return a NullLogger")
	}
	console := NewConsoleLogger(&bytes.Buffer{}, FormatText, InfoLevel)
	if OrNull(console) != Logger(console) {
		t.Error("OrNull should keep a non-nil logger")
	}
}

func TestFileLogger_DerivedLoggersShareFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "shared.log")
	logger, err := NewFileLogger(FileLoggerConfig{Path: logPath, Format: FormatText, Level: InfoLevel})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			derived := logger.WithFields(Fields{"worker": id})
			for j := 0; j < 50; j++ {
				derived.Info(ctx, "member compared", Fields{"n": j})
			}
		}(i)
	}
	wg.Wait()
	logger.Close()

	// Logging after close is silently dropped
	logger.Info(ctx, "after close", nil)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 400 {
		t.Errorf("Expected 400 log lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, "member compared") {
			t.Fatalf("interleaved line: %q", line)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("json") != FormatJSON {
		t.Error("json should parse to FormatJSON")
	}
	if ParseFormat("text") != FormatText || ParseFormat("xml") != FormatText {
		t.Error("other values should default to FormatText")
	}
}
