// Package config loads, normalizes, and validates filerelay configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files (or the legacy JSON route document), and
// compiles route patterns up front so a bad regular expression fails at load
// time instead of inside the watch loop. The Config type carries both the
// outbound routes the dispatcher watches and the inbound routes the receiver
// resolves reference codes against.
//
// A Config is loaded once at process start and treated as read-only after
// that; pass it explicitly to the components that need it.
package config
