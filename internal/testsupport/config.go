package testsupport

import (
	"path/filepath"
	"testing"

	"filerelay/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Node.Party = "NodeA"
	cfgVal.Node.ListenAddr = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithParty sets this node's party name.
func WithParty(party string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Node.Party = party
	}
}

// WithPeer registers a transport address for party.
func WithPeer(party, addr string) ConfigOption {
	return func(b *configBuilder) {
		if b.cfg.Transport.Peers == nil {
			b.cfg.Transport.Peers = map[string]string{}
		}
		b.cfg.Transport.Peers[party] = addr
	}
}

// WithOutboundRoute adds an outbound route whose search directory lives under
// the config's temp root. An empty action means none.
func WithOutboundRoute(key, pattern, party, myRef, theirRef string, action config.PostSendAction) ConfigOption {
	return func(b *configBuilder) {
		if action == "" {
			action = config.PostSendNone
		}
		b.cfg.OutboundRoutes[key] = config.OutboundRoute{
			SearchDirectory:  filepath.Join(b.baseDir, "out", key),
			SearchPattern:    pattern,
			DestinationParty: party,
			MyReference:      myRef,
			TheirReference:   theirRef,
			PostSendAction:   action,
		}
	}
}

// WithInboundRoute adds an inbound route delivering into a directory under
// the config's temp root.
func WithInboundRoute(key, myRef string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.InboundRoutes[key] = config.InboundRoute{
			MyReference:          myRef,
			DestinationDirectory: filepath.Join(b.baseDir, "in", key),
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// WithNtfyTopic points notifications at topic, typically an httptest server.
func WithNtfyTopic(topic string, notifySuccess bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
		b.cfg.Notifications.NotifySuccess = notifySuccess
	}
}
