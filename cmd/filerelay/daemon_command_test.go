package main

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"filerelay/internal/daemonrun"
	"filerelay/internal/testsupport"
)

func TestDaemonStatusWhenNotRunning(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"daemon", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("daemon status: %v", err)
	}
	requireContains(t, out, "Daemon is not running")

	out, _, err = runCLI(t, []string{"daemon", "stop"}, env.configPath)
	if err != nil {
		t.Fatalf("daemon stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestDaemonStatusAndStop(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithInboundRoute("in1", "m1"))
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- daemonrun.Run(context.Background(), env.cfg, daemonrun.Options{
			LogLevel:  "error",
			Transport: []daemonrun.TransportOption{daemonrun.WithListener(lis)},
		})
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(env.cfg.SocketPath()); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("daemon socket never appeared")
		}
		time.Sleep(20 * time.Millisecond)
	}

	out, _, err := runCLI(t, []string{"daemon", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("daemon status: %v", err)
	}
	requireContains(t, out, "[OK]")
	requireContains(t, out, "Party")
	requireContains(t, out, "acceptor")

	out, _, err = runCLI(t, []string{"daemon", "stop"}, env.configPath)
	if err != nil {
		t.Fatalf("daemon stop: %v", err)
	}
	requireContains(t, out, "Daemon stopped")

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("daemon returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not exit")
	}
}
