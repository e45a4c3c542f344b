package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRunMissingConfig(t *testing.T) {
	err := run(context.Background(), filepath.Join(t.TempDir(), "absent.toml"), "")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestRunWithoutRoutesFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[paths]\nstate_dir = \"" + filepath.Join(dir, "state") + "\"\nlog_dir = \"" + filepath.Join(dir, "logs") + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := run(context.Background(), path, "error"); err == nil {
		t.Fatal("expected error when no routes are configured")
	}
}

func TestRootCommandPassesFlags(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.toml")
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", missing, "--log-level", "debug"})
	if err := cmd.ExecuteContext(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist for --config path, got %v", err)
	}

	cmd = newRootCommand()
	cmd.SetArgs([]string{"extra"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected positional arguments to be rejected")
	}
}
