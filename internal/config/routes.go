package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// PostSendAction is the side effect applied to a source file once its
// transfer has been accepted by the peer.
type PostSendAction string

const (
	// PostSendNone leaves the source file in place.
	PostSendNone PostSendAction = "none"
	// PostSendDeleteSource removes the source file.
	PostSendDeleteSource PostSendAction = "delete_source"
)

// ParsePostSendAction accepts the TOML spelling (delete_source) as well as the
// legacy upper-case JSON spelling (DELETE_SOURCE). An empty value maps to none.
func ParsePostSendAction(value string) (PostSendAction, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch normalized {
	case "", "none":
		return PostSendNone, nil
	case "delete_source", "delete":
		return PostSendDeleteSource, nil
	default:
		return "", fmt.Errorf("unsupported post_send_action %q", value)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML and JSON decoding.
func (a *PostSendAction) UnmarshalText(text []byte) error {
	parsed, err := ParsePostSendAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (a PostSendAction) MarshalText() ([]byte, error) {
	if a == "" {
		return []byte(PostSendNone), nil
	}
	return []byte(a), nil
}

// OutboundRoute watches SearchDirectory for new files whose names contain a
// match for SearchPattern and sends them to DestinationParty.
type OutboundRoute struct {
	SearchDirectory  string         `toml:"search_directory" json:"searchDirectory"`
	SearchPattern    string         `toml:"search_pattern" json:"searchPattern"`
	LogDirectory     string         `toml:"log_directory" json:"logDirectory"`
	DestinationParty string         `toml:"destination_party" json:"destinationParty"`
	MyReference      string         `toml:"my_reference" json:"myReference"`
	TheirReference   string         `toml:"their_reference" json:"theirReference"`
	PostSendAction   PostSendAction `toml:"post_send_action" json:"postSendAction"`
}

// CompilePattern compiles SearchPattern. Matching uses "contains" semantics:
// callers test with MatchString, so any fragment of a filename can match.
func (r OutboundRoute) CompilePattern() (*regexp.Regexp, error) {
	return regexp.Compile(r.SearchPattern)
}

// InboundRoute maps a reference code to the directory that receives files
// addressed to it.
type InboundRoute struct {
	MyReference          string `toml:"my_reference" json:"myReference"`
	DestinationDirectory string `toml:"destination_directory" json:"destinationDirectory"`
	LogDirectory         string `toml:"log_directory" json:"logDirectory"`
}

// OutboundKeys returns the outbound route keys in sorted order.
func (c *Config) OutboundKeys() []string {
	return sortedKeys(c.OutboundRoutes)
}

// InboundKeys returns the inbound route keys in sorted order.
func (c *Config) InboundKeys() []string {
	return sortedKeys(c.InboundRoutes)
}

// DestinationDirectories maps each inbound reference to its directory. When
// two routes share a reference the one whose key sorts last wins.
func (c *Config) DestinationDirectories() map[string]string {
	dirs := make(map[string]string, len(c.InboundRoutes))
	for _, key := range c.InboundKeys() {
		route := c.InboundRoutes[key]
		dirs[route.MyReference] = route.DestinationDirectory
	}
	return dirs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
