// Package logging assembles structured slog loggers and formatting helpers used
// across filerelay.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context helpers so the dispatcher and receiver can tag every
// line with the route key and transfer ID they are working on. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
package logging
