package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"packline/internal/config"
	"packline/internal/logging"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon ready", logging.String(logging.FieldComponent, "daemon"))

	content := readLog(t, cfg.LogPath())
	if !strings.Contains(content, "daemon: daemon ready") {
		t.Fatalf("expected component prefix in log file, got %q", content)
	}
	if strings.Contains(content, "\x1b[") {
		t.Fatalf("log file must not contain colour codes, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	if content := readLog(t, logPath); strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")

	if content := readLog(t, logPath); !strings.Contains(content, "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithShiftID(context.Background(), 12)
	ctx = logging.WithCorrelationID(ctx, "req-1")
	logging.WithContext(ctx, logger).Warn("idle timeout", logging.Int64(logging.FieldAttemptID, 3))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "idle timeout" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
	if entry[logging.FieldShiftID] != float64(12) || entry[logging.FieldCorrelationID] != "req-1" {
		t.Fatalf("expected context fields, got %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 8) {
		t.Fatal("nop logger should not be enabled")
	}
	logging.WithContext(context.Background(), nil).Info("ignored")
}

func TestConsoleLoggerRendersLedgerSeconds(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-seconds.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("packing finished",
		logging.Timestamp("finished_at", 1_760_000_016.5),
		logging.Seconds("worktime", 16.25),
		logging.Timestamp("unset", 0),
	)

	content := readLog(t, logPath)
	for _, want := range []string{
		"finished_at=2025-10-09T08:53:36.500Z",
		"worktime=16.25s",
		"unset=-",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in console output, got %q", want, content)
		}
	}
}

func TestJSONLoggerKeepsLedgerSecondsNumeric(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json-seconds.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("timer state recorded", logging.Timestamp("event_ts", 1_760_000_016.5))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if got, ok := entry["event_ts"].(float64); !ok || got != 1_760_000_016.5 {
		t.Fatalf("expected numeric event_ts, got %v", entry["event_ts"])
	}
}
