package config

const (
	defaultConfigPath      = "~/.config/filerelay/config.toml"
	defaultStateDir        = "~/.local/share/filerelay"
	defaultLogDir          = "~/.local/share/filerelay/logs"
	defaultListenAddr      = "127.0.0.1:7590"
	defaultTransportKind   = TransportGRPC
	defaultTimeoutSeconds  = 300
	defaultMaxMessageBytes = 16 * 1024 * 1024
	defaultAMQPExchange    = "filerelay.transfers"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultRetentionDays   = 30
	defaultNtfyTimeout     = 10

	// DefaultMaxFileSize guards against accidentally watching very large files.
	DefaultMaxFileSize int64 = 5_000_000
)

// Transport kinds.
const (
	TransportGRPC = "grpc"
	TransportAMQP = "amqp"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Node: Node{
			ListenAddr: defaultListenAddr,
		},
		Transport: Transport{
			Kind:            defaultTransportKind,
			Peers:           map[string]string{},
			TimeoutSeconds:  defaultTimeoutSeconds,
			MaxMessageBytes: defaultMaxMessageBytes,
			AMQPExchange:    defaultAMQPExchange,
		},
		Dispatch: Dispatch{
			MaxFileSize: DefaultMaxFileSize,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
		},
		Defaults:       map[string]string{},
		OutboundRoutes: map[string]OutboundRoute{},
		InboundRoutes:  map[string]InboundRoute{},
	}
}
