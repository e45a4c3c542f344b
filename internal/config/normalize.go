package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNode()
	c.normalizeTransport()
	c.normalizeDispatch()
	c.normalizeLogging()
	c.normalizeNotifications()
	if err := c.normalizeOutbound(); err != nil {
		return err
	}
	return c.normalizeInbound()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNode() {
	c.Node.Party = strings.TrimSpace(c.Node.Party)
	if c.Node.Party == "" {
		if value, ok := os.LookupEnv("FILERELAY_PARTY"); ok {
			c.Node.Party = strings.TrimSpace(value)
		}
	}
	c.Node.ListenAddr = strings.TrimSpace(c.Node.ListenAddr)
	if c.Node.ListenAddr == "" {
		c.Node.ListenAddr = defaultListenAddr
	}
}

func (c *Config) normalizeTransport() {
	c.Transport.Kind = strings.ToLower(strings.TrimSpace(c.Transport.Kind))
	if c.Transport.Kind == "" {
		c.Transport.Kind = defaultTransportKind
	}
	if c.Transport.Peers == nil {
		c.Transport.Peers = map[string]string{}
	}
	for party, addr := range c.Transport.Peers {
		c.Transport.Peers[party] = strings.TrimSpace(addr)
	}
	if c.Transport.TimeoutSeconds <= 0 {
		c.Transport.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Transport.MaxMessageBytes <= 0 {
		c.Transport.MaxMessageBytes = defaultMaxMessageBytes
	}
	c.Transport.AMQPURL = strings.TrimSpace(c.Transport.AMQPURL)
	if c.Transport.AMQPURL == "" {
		if value, ok := os.LookupEnv("FILERELAY_AMQP_URL"); ok {
			c.Transport.AMQPURL = strings.TrimSpace(value)
		}
	}
	c.Transport.AMQPExchange = strings.TrimSpace(c.Transport.AMQPExchange)
	if c.Transport.AMQPExchange == "" {
		c.Transport.AMQPExchange = defaultAMQPExchange
	}
}

func (c *Config) normalizeDispatch() {
	if c.Dispatch.MaxFileSize <= 0 {
		c.Dispatch.MaxFileSize = DefaultMaxFileSize
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("FILERELAY_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeout
	}
}

func (c *Config) normalizeOutbound() error {
	if c.OutboundRoutes == nil {
		c.OutboundRoutes = map[string]OutboundRoute{}
	}
	for key, route := range c.OutboundRoutes {
		var err error
		if route.SearchDirectory, err = expandPath(strings.TrimSpace(route.SearchDirectory)); err != nil {
			return fmt.Errorf("outbound_routes.%s.search_directory: %w", key, err)
		}
		if route.LogDirectory, err = expandPath(strings.TrimSpace(route.LogDirectory)); err != nil {
			return fmt.Errorf("outbound_routes.%s.log_directory: %w", key, err)
		}
		route.DestinationParty = strings.TrimSpace(route.DestinationParty)
		route.MyReference = strings.TrimSpace(route.MyReference)
		route.TheirReference = strings.TrimSpace(route.TheirReference)
		if route.PostSendAction == "" {
			route.PostSendAction = PostSendNone
		}
		c.OutboundRoutes[key] = route
	}
	return nil
}

func (c *Config) normalizeInbound() error {
	if c.InboundRoutes == nil {
		c.InboundRoutes = map[string]InboundRoute{}
	}
	for key, route := range c.InboundRoutes {
		var err error
		if route.DestinationDirectory, err = expandPath(strings.TrimSpace(route.DestinationDirectory)); err != nil {
			return fmt.Errorf("inbound_routes.%s.destination_directory: %w", key, err)
		}
		if route.LogDirectory, err = expandPath(strings.TrimSpace(route.LogDirectory)); err != nil {
			return fmt.Errorf("inbound_routes.%s.log_directory: %w", key, err)
		}
		route.MyReference = strings.TrimSpace(route.MyReference)
		c.InboundRoutes[key] = route
	}
	return nil
}
