package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for daemon state.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Node identifies this party and where it accepts inbound transfers.
type Node struct {
	Party      string `toml:"party"`
	ListenAddr string `toml:"listen_addr"`
}

// Transport selects and configures the mechanism that carries transfers
// between parties.
type Transport struct {
	Kind            string            `toml:"kind"`
	Peers           map[string]string `toml:"peers"`
	TimeoutSeconds  int               `toml:"timeout_seconds"`
	MaxMessageBytes int               `toml:"max_message_bytes"`
	AMQPURL         string            `toml:"amqp_url"`
	AMQPExchange    string            `toml:"amqp_exchange"`
}

// Dispatch contains tuning for the outbound watch loop.
type Dispatch struct {
	MaxFileSize int64 `toml:"max_file_size"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications configures ntfy alerts for transfer outcomes.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	NotifySuccess         bool   `toml:"notify_success"`
}

// Config encapsulates all configuration values for filerelay.
//
// Configuration sections:
//   - Paths: state (journal, lock, attachments) and log directories
//   - Node: this party's name and inbound listen address
//   - Transport: grpc or amqp, peer addresses, timeouts
//   - Dispatch: watch loop guardrails
//   - Logging: log format, level, and retention
//   - Notifications: optional ntfy alerts for failed or completed transfers
//   - Defaults: free-form key/value pairs carried from the route document
//   - OutboundRoutes: directories to watch and where to send matches
//   - InboundRoutes: reference codes and the directories they deliver into
type Config struct {
	Paths          Paths                    `toml:"paths"`
	Node           Node                     `toml:"node"`
	Transport      Transport                `toml:"transport"`
	Dispatch       Dispatch                 `toml:"dispatch"`
	Logging        Logging                  `toml:"logging"`
	Notifications  Notifications            `toml:"notifications"`
	Defaults       map[string]string        `toml:"defaults"`
	OutboundRoutes map[string]OutboundRoute `toml:"outbound_routes"`
	InboundRoutes  map[string]InboundRoute  `toml:"inbound_routes"`
}

// LoadError reports a configuration source that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load config: %v", e.Err)
	}
	return fmt.Sprintf("load config %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and route patterns verified.
//
// An explicit path that does not exist is a LoadError. When path is empty the
// default locations are searched and repository defaults are used if none
// exists.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, &LoadError{Path: path, Err: err}
	}
	if !exists && strings.TrimSpace(path) != "" {
		return nil, resolvedPath, false, &LoadError{Path: resolvedPath, Err: fs.ErrNotExist}
	}

	if exists {
		if err := decodeFile(resolvedPath, &cfg); err != nil {
			return nil, resolvedPath, true, &LoadError{Path: resolvedPath, Err: err}
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, resolvedPath, exists, &LoadError{Path: resolvedPath, Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, resolvedPath, exists, &LoadError{Path: resolvedPath, Err: err}
	}

	return &cfg, resolvedPath, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := decodeRouteDocument(file, cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
		return nil
	}

	decoder := toml.NewDecoder(file)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %s is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	candidates := []string{defaultPath}
	for _, name := range []string{"filerelay.toml", legacyRouteDocument} {
		projectPath, err := filepath.Abs(name)
		if err != nil {
			return "", false, err
		}
		candidates = append(candidates, projectPath)
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories. Search and
// destination directories are created by the dispatcher and router when they
// first need them.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JournalPath returns the location of the transfer journal database.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

// AttachmentsDir returns the directory backing the inbound attachment store.
func (c *Config) AttachmentsDir() string {
	return filepath.Join(c.Paths.StateDir, "attachments")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "filerelayd.lock")
}

// SocketPath is the daemon's control socket.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "filerelayd.sock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
