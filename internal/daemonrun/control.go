package daemonrun

import (
	"context"
	"time"

	"filerelay/internal/config"
	"filerelay/internal/daemon"
	"filerelay/internal/ipc"
	"filerelay/internal/journal"
	"filerelay/internal/notifications"
)

// controller answers control socket requests for a running daemon.
type controller struct {
	cfg       *config.Config
	daemon    *daemon.Daemon
	store     *journal.Store
	notifier  notifications.Service
	transport string
	logPath   string
	pid       int
	stop      context.CancelFunc
}

func (c *controller) Status(ctx context.Context) (ipc.StatusResponse, error) {
	status := c.daemon.Status()
	resp := ipc.StatusResponse{
		Running:        status.Running,
		PID:            c.pid,
		Party:          c.cfg.Node.Party,
		Transport:      c.transport,
		Components:     status.Components,
		OutboundRoutes: len(c.cfg.OutboundRoutes),
		InboundRoutes:  len(c.cfg.InboundRoutes),
		LockPath:       status.LockFilePath,
		JournalPath:    c.store.Path(),
		LogPath:        c.logPath,
	}
	if !status.StartedAt.IsZero() {
		resp.StartedAt = status.StartedAt.UTC().Format(time.RFC3339)
	}
	counts, err := c.store.Counts(ctx)
	if err != nil {
		return resp, err
	}
	resp.TransferCounts = make(map[string]int, len(counts))
	for st, n := range counts {
		resp.TransferCounts[string(st)] = n
	}
	return resp, nil
}

func (c *controller) Stop() {
	if c.stop != nil {
		c.stop()
	}
}

func (c *controller) TestNotification(ctx context.Context) (bool, string, error) {
	if c.cfg.Notifications.NtfyTopic == "" {
		return false, "notifications.ntfy_topic is not configured", nil
	}
	if err := c.notifier.TestNotification(ctx); err != nil {
		return false, "", err
	}
	return true, "Test notification sent", nil
}
