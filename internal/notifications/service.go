package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"filerelay/internal/config"
)

const userAgent = "filerelay/0.1.0"

// Service publishes transfer outcomes to operators.
type Service interface {
	NotifyTransferSent(ctx context.Context, route, party, filename string) error
	NotifyTransferReceived(ctx context.Context, party, reference, filename string) error
	NotifyTransferFailed(ctx context.Context, direction, filename string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		notifySuccess: cfg.Notifications.NotifySuccess,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	notifySuccess bool
}

func (n *ntfyService) NotifyTransferSent(ctx context.Context, route, party, filename string) error {
	if !n.notifySuccess {
		return nil
	}
	data := payload{
		title:   "filerelay - Sent",
		message: fmt.Sprintf("📤 %s sent to %s via %s", strings.TrimSpace(filename), strings.TrimSpace(party), strings.TrimSpace(route)),
		tags:    []string{"filerelay", "outbound", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTransferReceived(ctx context.Context, party, reference, filename string) error {
	if !n.notifySuccess {
		return nil
	}
	message := fmt.Sprintf("📥 %s received from %s", strings.TrimSpace(filename), strings.TrimSpace(party))
	if reference = strings.TrimSpace(reference); reference != "" {
		message = fmt.Sprintf("%s\nReference: %s", message, reference)
	}
	data := payload{
		title:   "filerelay - Received",
		message: message,
		tags:    []string{"filerelay", "inbound", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTransferFailed(ctx context.Context, direction, filename string, err error) error {
	var builder strings.Builder
	builder.WriteString("❌ ")
	if direction = strings.TrimSpace(direction); direction != "" {
		builder.WriteString(strings.ToUpper(direction[:1]))
		builder.WriteString(direction[1:])
		builder.WriteString(" transfer")
	} else {
		builder.WriteString("Transfer")
	}
	if filename = strings.TrimSpace(filename); filename != "" {
		builder.WriteString(" of ")
		builder.WriteString(filename)
	}
	builder.WriteString(" failed: ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	tags := []string{"filerelay", "error", "alert"}
	if direction != "" {
		tags = []string{"filerelay", direction, "error"}
	}
	data := payload{
		title:    "filerelay - Transfer Failed",
		message:  builder.String(),
		tags:     tags,
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "filerelay - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"filerelay", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyTransferSent(context.Context, string, string, string) error     { return nil }
func (noopService) NotifyTransferReceived(context.Context, string, string, string) error { return nil }
func (noopService) NotifyTransferFailed(context.Context, string, string, error) error    { return nil }
func (noopService) TestNotification(context.Context) error                               { return nil }
