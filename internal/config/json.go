package config

import (
	"encoding/json"
	"fmt"
	"io"
)

// legacyRouteDocument is the file name the original CorDapp looked for in the
// node's working directory.
const legacyRouteDocument = "cordaftp.json"

// routeDocument is the JSON route layout. The txMap/rxMap spellings are the
// names used by older route files and are merged after the current names.
type routeDocument struct {
	Defaults       map[string]string        `json:"defaults"`
	OutboundRoutes map[string]OutboundRoute `json:"outboundRoutes"`
	InboundRoutes  map[string]InboundRoute  `json:"inboundRoutes"`
	TxMap          map[string]OutboundRoute `json:"txMap"`
	RxMap          map[string]InboundRoute  `json:"rxMap"`
}

func decodeRouteDocument(r io.Reader, cfg *Config) error {
	var doc routeDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("decode route document: %w", err)
	}

	if cfg.Defaults == nil {
		cfg.Defaults = map[string]string{}
	}
	for k, v := range doc.Defaults {
		cfg.Defaults[k] = v
	}

	if cfg.OutboundRoutes == nil {
		cfg.OutboundRoutes = map[string]OutboundRoute{}
	}
	for _, routes := range []map[string]OutboundRoute{doc.OutboundRoutes, doc.TxMap} {
		for k, v := range routes {
			cfg.OutboundRoutes[k] = v
		}
	}

	if cfg.InboundRoutes == nil {
		cfg.InboundRoutes = map[string]InboundRoute{}
	}
	for _, routes := range []map[string]InboundRoute{doc.InboundRoutes, doc.RxMap} {
		for k, v := range routes {
			cfg.InboundRoutes[k] = v
		}
	}

	applyDocumentDefaults(cfg)
	return nil
}

// applyDocumentDefaults lets a JSON route document carry node settings in its
// defaults map, since it has no dedicated sections.
func applyDocumentDefaults(cfg *Config) {
	if party, ok := cfg.Defaults["party"]; ok && cfg.Node.Party == "" {
		cfg.Node.Party = party
	}
	if addr, ok := cfg.Defaults["listenAddr"]; ok {
		cfg.Node.ListenAddr = addr
	}
	if kind, ok := cfg.Defaults["transport"]; ok {
		cfg.Transport.Kind = kind
	}
}
