package main

import (
	"net"
	"testing"

	"filerelay/internal/config"
	"filerelay/internal/testsupport"
)

func TestPreflightPasses(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	env := setupCLITestEnv(t,
		testsupport.WithPeer("NodeB", lis.Addr().String()),
		testsupport.WithOutboundRoute("R1", `.*`, "NodeB", "m1", "t1", config.PostSendNone),
		testsupport.WithInboundRoute("in1", "m1"),
	)
	out, _, err := runCLI(t, []string{"preflight"}, env.configPath)
	if err != nil {
		t.Fatalf("preflight: %v\n%s", err, out)
	}
	requireContains(t, out, "Peer NodeB")
	requireContains(t, out, "All ")
}

func TestPreflightFailsForUnconfiguredPeer(t *testing.T) {
	env := setupCLITestEnv(t,
		testsupport.WithOutboundRoute("R1", `.*`, "NodeZ", "m1", "t1", config.PostSendNone),
	)
	out, _, err := runCLI(t, []string{"preflight"}, env.configPath)
	if err == nil {
		t.Fatal("expected preflight to fail")
	}
	requireContains(t, out, "[FAIL]")
	requireContains(t, out, "Peer NodeZ")
}
