package daemon_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"filerelay/internal/daemon"
	"filerelay/internal/testsupport"
)

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := daemon.New(cfg, nil, daemon.Component{Name: "idle", Run: blockUntilDone})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if len(status.Components) != 1 || status.Components[0] != "idle" {
		t.Fatalf("unexpected components: %v", status.Components)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("components did not finish")
	}
	if err := d.Err(); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
}

func TestDaemonLockIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	second, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	t.Cleanup(first.Stop)

	if err := second.Start(ctx); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("expected lock to be free after stop, got %v", err)
	}
	second.Stop()
}

func TestDaemonComponentFailureCancelsOthers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	boom := errors.New("listen: address in use")
	stopped := make(chan struct{})

	d, err := daemon.New(cfg, nil,
		daemon.Component{Name: "acceptor", Run: func(context.Context) error { return boom }},
		daemon.Component{Name: "dispatcher", Run: func(ctx context.Context) error {
			defer close(stopped)
			return blockUntilDone(ctx)
		}},
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not wind down after component failure")
	}
	select {
	case <-stopped:
	default:
		t.Fatal("expected sibling component to be cancelled")
	}
	if err := d.Err(); !errors.Is(err, boom) {
		t.Fatalf("expected component error, got %v", err)
	}
}

func TestNewRejectsIncompleteComponent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, nil, daemon.Component{Name: "x"}); err == nil {
		t.Fatal("expected error for component without run func")
	}
	if _, err := daemon.New(nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
