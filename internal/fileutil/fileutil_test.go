package fileutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestWriteAtomic(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := []byte("hello world")
	target := filepath.Join("/dest", "sub", "hello.txt")

	result, err := WriteAtomic(fs, target, bytes.NewReader(content), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	got, err := afero.ReadFile(fs, target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
	sum := sha256.Sum256(content)
	if result.SHA256 != hex.EncodeToString(sum[:]) {
		t.Fatalf("unexpected digest %s", result.SHA256)
	}
	if result.Bytes != int64(len(content)) {
		t.Fatalf("unexpected size %d", result.Bytes)
	}

	entries, err := afero.ReadDir(fs, filepath.Dir(target))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the final file, found %d entries", len(entries))
	}
}

func TestWriteAtomicReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	fs := afero.NewOsFs()
	target := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteAtomic(fs, target, strings.NewReader("new"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Fatalf("expected replacement, got %q", got)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("unexpected mode %v", info.Mode().Perm())
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestWriteAtomicLeavesNothingOnFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	target := "/dest/broken.txt"

	if _, err := WriteAtomic(fs, target, failingReader{}, 0o644); err == nil {
		t.Fatal("expected error")
	}
	entries, err := afero.ReadDir(fs, "/dest")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected temp file cleanup, found %d entries", len(entries))
	}
}

func TestFileSHA256(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/a.bin", []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	digest, size, err := FileSHA256(fs, "/a.bin")
	if err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256([]byte("data"))
	if digest != hex.EncodeToString(sum[:]) || size != 4 {
		t.Fatalf("unexpected digest/size: %s %d", digest, size)
	}
}
