package preflight

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filerelay/internal/config"
	"filerelay/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_MissingButCreatable(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope", "deeper"))
	if !result.Passed {
		t.Fatalf("expected pass for creatable dir, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
	if result := CheckDirectoryAccess("test", filepath.Join(f, "child")); result.Passed {
		t.Fatal("expected failure for path below a file")
	}
}

func TestCheckDirectoryAccess_Empty(t *testing.T) {
	if result := CheckDirectoryAccess("test", "  "); result.Passed {
		t.Fatal("expected failure for empty path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", dir, 1); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckFreeSpace("space", dir, ^uint64(0)); result.Passed {
		t.Fatal("expected failure for impossible requirement")
	}
}

func TestCheckPeer(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()

	if result := CheckPeer(context.Background(), "NodeB", addr); !result.Passed {
		t.Fatalf("expected reachable peer, got: %s", result.Detail)
	}
	lis.Close()
	if result := CheckPeer(context.Background(), "NodeB", addr); result.Passed {
		t.Fatal("expected failure once listener closed")
	}
	if result := CheckPeer(context.Background(), "NodeC", ""); result.Passed {
		t.Fatal("expected failure for missing address")
	}
}

func TestCheckBroker_InvalidURL(t *testing.T) {
	if result := CheckBroker(context.Background(), "http://not-amqp"); result.Passed {
		t.Fatal("expected failure for non-amqp url")
	}
	if result := CheckBroker(context.Background(), ""); result.Passed {
		t.Fatal("expected failure for empty url")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}

func TestRunAll_Routes(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithPeer("NodeB", lis.Addr().String()),
		testsupport.WithOutboundRoute("R1", `.*\.txt`, "NodeB", "m1", "t1", config.PostSendNone),
		testsupport.WithOutboundRoute("R2", `csv`, "NodeB", "m2", "t2", config.PostSendNone),
		testsupport.WithInboundRoute("in1", "m1"),
	)
	results := RunAll(context.Background(), cfg)

	names := make(map[string]Result, len(results))
	for _, r := range results {
		names[r.Name] = r
	}
	for _, want := range []string{
		"State directory",
		"Log directory",
		"Outbound R1 search directory",
		"Outbound R2 search directory",
		"Inbound in1 destination",
		"Inbound in1 free space",
		"Peer NodeB",
	} {
		if _, ok := names[want]; !ok {
			t.Fatalf("missing check %q in %v", want, results)
		}
	}
	peers := 0
	for _, r := range results {
		if strings.HasPrefix(r.Name, "Peer ") {
			peers++
		}
	}
	if peers != 1 {
		t.Fatalf("expected one check per distinct party, got %d", peers)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %v", failed)
	}
}
