package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filerelay/internal/config"
	"filerelay/internal/logging"
)

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "filerelay.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerRendersSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-subject.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithRoute(context.Background(), "reports")
	ctx = logging.WithTransferID(ctx, "3f2a9c1b-aaaa-bbbb-cccc-1234567890ab")
	logger = logging.NewComponentLogger(logger, "dispatcher")
	logging.WithContext(ctx, logger).Info("transfer submitted", logging.String("file", "report.txt"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "dispatcher [reports · 3f2a9c1b]: transfer submitted") {
		t.Fatalf("expected subject prefix, got %q", line)
	}
	if !strings.Contains(line, "file=report.txt") {
		t.Fatalf("expected attribute, got %q", line)
	}
	if strings.Contains(line, "transfer_id=") {
		t.Fatalf("expected transfer id folded into subject, got %q", line)
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")

	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithTransferID(context.Background(), "tx-1")
	logging.WithContext(ctx, logger).Info("json message", logging.String("k", "v"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if record["msg"] != "json message" || record["level"] != "info" {
		t.Fatalf("unexpected record: %v", record)
	}
	if record[logging.FieldTransferID] != "tx-1" {
		t.Fatalf("expected transfer id field, got %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestFormatSubject(t *testing.T) {
	cases := []struct {
		component, route, id string
		want                 string
	}{
		{"", "", "", ""},
		{"receiver", "", "", "receiver"},
		{"", "in1", "", "[in1]"},
		{"dispatcher", "R1", "abcdef0123", "dispatcher [R1 · abcdef01]"},
	}
	for _, tc := range cases {
		if got := logging.FormatSubject(tc.component, tc.route, tc.id); got != tc.want {
			t.Fatalf("FormatSubject(%q,%q,%q) = %q, want %q", tc.component, tc.route, tc.id, got, tc.want)
		}
	}
}

func TestConsoleLoggerFlattensGroupsAndQuotes(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-groups.log")
	logger, err := logging.New(logging.Options{Level: "info", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.With(logging.String(logging.FieldParty, "NodeB")).
		WithGroup("peer").
		Info("dial failed", logging.String("addr", "10.0.0.2:7590"), logging.String("reason", "connection refused"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if strings.Count(line, "\n") != 1 {
		t.Fatalf("expected a single line despite duplicate outputs, got %q", line)
	}
	for _, want := range []string{"party=NodeB", "peer.addr=10.0.0.2:7590", `peer.reason="connection refused"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "peer.party") {
		t.Fatalf("attrs added before WithGroup must stay ungrouped: %q", line)
	}
}

func TestLevelParsingFiltersDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "levels.log")
	logger, err := logging.New(logging.Options{Level: "WARNING", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logging.WarnWithContext(logger, "shown", "test_warning")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if strings.Contains(line, "hidden") || !strings.Contains(line, "WARN shown") {
		t.Fatalf("unexpected output: %q", line)
	}
	for _, want := range []string{"event_type=test_warning", "error_hint=", "impact="} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}
