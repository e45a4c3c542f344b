package ipc_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"filerelay/internal/ipc"
)

type fakeController struct {
	stops    atomic.Int32
	notifyOK bool
}

func (f *fakeController) Status(context.Context) (ipc.StatusResponse, error) {
	return ipc.StatusResponse{
		Running:        true,
		PID:            42,
		Party:          "NodeA",
		Transport:      "grpc",
		Components:     []string{"acceptor", "dispatcher"},
		TransferCounts: map[string]int{"completed": 3},
	}, nil
}

func (f *fakeController) Stop() {
	f.stops.Add(1)
}

func (f *fakeController) TestNotification(context.Context) (bool, string, error) {
	if !f.notifyOK {
		return false, "", errors.New("ntfy returned 500: oops")
	}
	return true, "Test notification sent", nil
}

func startServer(t *testing.T, controller ipc.Controller) string {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "filerelayd.sock")
	srv, err := ipc.NewServer(context.Background(), socket, controller, nil)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
	return socket
}

func TestIPCServerClient(t *testing.T) {
	controller := &fakeController{notifyOK: true}
	socket := startServer(t, controller)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running || status.PID != 42 || status.Party != "NodeA" {
		t.Fatalf("unexpected status: %+v", status)
	}
	if len(status.Components) != 2 || status.TransferCounts["completed"] != 3 {
		t.Fatalf("unexpected status detail: %+v", status)
	}

	notify, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification RPC failed: %v", err)
	}
	if !notify.Sent {
		t.Fatalf("expected notification sent, got %+v", notify)
	}

	stop, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stop.Stopped || controller.stops.Load() != 1 {
		t.Fatalf("expected one stop, got resp=%+v stops=%d", stop, controller.stops.Load())
	}
}

func TestIPCPropagatesControllerErrors(t *testing.T) {
	socket := startServer(t, &fakeController{})

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	defer client.Close()

	if _, err := client.TestNotification(); err == nil || !strings.Contains(err.Error(), "ntfy returned 500") {
		t.Fatalf("expected controller error, got %v", err)
	}
}

func TestCloseRemovesSocketWithOpenClient(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "filerelayd.sock")
	srv, err := ipc.NewServer(context.Background(), socket, &fakeController{}, nil)
	if err != nil {
		t.Skipf("skipping IPC server test: %v", err)
	}
	srv.Serve()

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	defer client.Close()
	if _, err := client.Status(); err != nil {
		t.Fatalf("Status: %v", err)
	}

	srv.Close()
	if _, err := ipc.Dial(socket); err == nil {
		t.Fatal("expected dial to fail after Close")
	}
}

func TestNewServerRequiresController(t *testing.T) {
	if _, err := ipc.NewServer(context.Background(), filepath.Join(t.TempDir(), "x.sock"), nil, nil); err == nil {
		t.Fatal("expected error without controller")
	}
}
