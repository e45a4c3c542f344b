package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateTransport(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateOutbound(); err != nil {
		return err
	}
	return c.validateInbound()
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateTransport() error {
	switch c.Transport.Kind {
	case TransportGRPC:
	case TransportAMQP:
		if c.Transport.AMQPURL == "" && (len(c.OutboundRoutes) > 0 || len(c.InboundRoutes) > 0) {
			return errors.New("transport.amqp_url must be set when transport.kind is amqp (or export FILERELAY_AMQP_URL)")
		}
	default:
		return fmt.Errorf("transport.kind: unsupported value %q", c.Transport.Kind)
	}
	for party, addr := range c.Transport.Peers {
		if addr == "" {
			return fmt.Errorf("transport.peers.%s: address must not be empty", party)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}

// RequireParty fails when routes are configured but the node has no party
// name. Transports need it to address manifests and name their queue, so it
// is checked when a transport opens rather than at load.
func (c *Config) RequireParty() error {
	if c.Node.Party == "" && (len(c.OutboundRoutes) > 0 || len(c.InboundRoutes) > 0) {
		return errors.New("node.party is required when routes are configured (or export FILERELAY_PARTY)")
	}
	return nil
}

func (c *Config) validateOutbound() error {
	for _, key := range c.OutboundKeys() {
		route := c.OutboundRoutes[key]
		if strings.TrimSpace(key) == "" {
			return errors.New("outbound_routes: route key must not be empty")
		}
		if route.SearchDirectory == "" {
			return fmt.Errorf("outbound_routes.%s.search_directory must be set", key)
		}
		if route.SearchPattern == "" {
			return fmt.Errorf("outbound_routes.%s.search_pattern must be set", key)
		}
		if _, err := route.CompilePattern(); err != nil {
			return fmt.Errorf("outbound_routes.%s.search_pattern: %w", key, err)
		}
		if route.DestinationParty == "" {
			return fmt.Errorf("outbound_routes.%s.destination_party must be set", key)
		}
		if route.TheirReference == "" {
			return fmt.Errorf("outbound_routes.%s.their_reference must be set", key)
		}
		if _, err := ParsePostSendAction(string(route.PostSendAction)); err != nil {
			return fmt.Errorf("outbound_routes.%s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) validateInbound() error {
	for _, key := range c.InboundKeys() {
		route := c.InboundRoutes[key]
		if route.MyReference == "" {
			return fmt.Errorf("inbound_routes.%s.my_reference must be set", key)
		}
		if route.DestinationDirectory == "" {
			return fmt.Errorf("inbound_routes.%s.destination_directory must be set", key)
		}
	}
	return nil
}
