package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"filerelay/internal/archive"
	"filerelay/internal/attachments"
	"filerelay/internal/config"
	"filerelay/internal/journal"
	"filerelay/internal/testsupport"
	"filerelay/internal/transfer"
	"filerelay/internal/transport/grpcpeer"
)

// startPeer runs a gRPC acceptor for party and returns its address and the
// manifests it receives.
func startPeer(t *testing.T, party string) (string, <-chan transfer.Manifest) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	store, err := attachments.NewStore(nil, t.TempDir())
	if err != nil {
		t.Fatalf("attachments.NewStore: %v", err)
	}
	acceptor := grpcpeer.NewAcceptor("", store, grpcpeer.WithListener(lis), grpcpeer.WithParty(party))

	received := make(chan transfer.Manifest, 4)
	handler := transfer.HandlerFunc(func(_ context.Context, m transfer.Manifest, _ archive.Container) error {
		received <- m
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = acceptor.Serve(ctx, handler)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return lis.Addr().String(), received
}

func TestSendDeliversAndJournals(t *testing.T) {
	addr, received := startPeer(t, "NodeB")
	env := setupCLITestEnv(t,
		testsupport.WithPeer("NodeB", addr),
		testsupport.WithOutboundRoute("R1", `.*\.txt`, "NodeB", "m1", "t1", config.PostSendDeleteSource),
	)

	source := filepath.Join(env.baseDir, "report.txt")
	if err := os.WriteFile(source, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	out, _, err := runCLI(t, []string{"send", "R1", source}, env.configPath)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	requireContains(t, out, "Sent report.txt to NodeB")

	select {
	case m := <-received:
		if m.RecipientReference != "t1" || m.SenderReference != "m1" || m.Sender != "NodeA" || m.Filename != "report.txt" {
			t.Fatalf("unexpected manifest: %+v", m)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("peer never received the transfer")
	}

	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Fatalf("expected source to be deleted, stat err=%v", err)
	}

	store := testsupport.MustOpenJournal(t, env.cfg)
	rows, err := store.List(context.Background(), journal.Filter{Direction: journal.DirectionOutbound})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].Status != journal.StatusCompleted || rows[0].AttachmentID == "" {
		t.Fatalf("unexpected journal rows: %+v", rows)
	}
}

func TestSendUnknownRoute(t *testing.T) {
	env := setupCLITestEnv(t)
	source := filepath.Join(env.baseDir, "x.txt")
	if err := os.WriteFile(source, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, _, err := runCLI(t, []string{"send", "nope", source}, env.configPath)
	if err == nil {
		t.Fatal("expected error for unknown route")
	}
	requireContains(t, err.Error(), "unknown outbound route")
}

func TestSendUnknownPartyKeepsSource(t *testing.T) {
	env := setupCLITestEnv(t,
		testsupport.WithOutboundRoute("R1", `.*`, "Nobody", "m1", "t1", config.PostSendDeleteSource),
	)
	source := filepath.Join(env.baseDir, "report.txt")
	if err := os.WriteFile(source, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if _, _, err := runCLI(t, []string{"send", "R1", source}, env.configPath); err == nil {
		t.Fatal("expected send to fail without a peer address")
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatalf("expected source to survive a failed send: %v", err)
	}
}
