package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"filerelay/internal/logs"
)

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filerelayd.log")
	appendLog(t, path, "a\nb\nc\npartial")

	lines, offset, err := logs.Last(path, 2, "")
	if err != nil {
		t.Fatalf("Last returned error: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != int64(len("a\nb\nc\n")) {
		t.Fatalf("expected offset to stop before partial line, got %d", offset)
	}
}

func TestLastMatchFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filerelayd.log")
	appendLog(t, path, "tx-1 sent\ntx-2 sent\ntx-1 done\n")

	lines, _, err := logs.Last(path, 10, "tx-1")
	if err != nil {
		t.Fatalf("Last returned error: %v", err)
	}
	if len(lines) != 2 || lines[1] != "tx-1 done" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "absent.log"), 5, "")
	if err != nil || len(lines) != 0 || offset != 0 {
		t.Fatalf("expected empty result, got %v %d %v", lines, offset, err)
	}
}

func TestFollowDeliversAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filerelayd.log")
	appendLog(t, path, "start\n")

	_, offset, err := logs.Last(path, 1, "")
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, "keep", func(line string) error {
			got <- line
			return nil
		})
	}()

	time.Sleep(200 * time.Millisecond)
	appendLog(t, path, "drop me\nkeep me")
	time.Sleep(100 * time.Millisecond)
	appendLog(t, path, "\n")

	select {
	case line := <-got:
		if line != "keep me" {
			t.Fatalf("unexpected line %q", line)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not deliver the appended line")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Follow returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not stop on cancel")
	}
}
