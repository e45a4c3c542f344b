package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// DropFile writes content into a staging directory beside dir and renames it
// into place, so a directory watcher observes one complete file. It returns
// the final path.
func DropFile(t testing.TB, dir, name, content string) string {
	t.Helper()

	staging := filepath.Join(filepath.Dir(dir), ".staging")
	if err := os.MkdirAll(staging, 0o755); err != nil {
		t.Fatalf("mkdir staging: %v", err)
	}
	tmp := filepath.Join(staging, name)
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", tmp, err)
	}
	target := filepath.Join(dir, name)
	if err := os.Rename(tmp, target); err != nil {
		t.Fatalf("rename into %s: %v", target, err)
	}
	return target
}

// Filler returns size bytes of a repeating pattern. A size <= 0 yields one byte.
func Filler(size int) string {
	if size <= 0 {
		size = 1
	}
	return strings.Repeat("B", size)
}
