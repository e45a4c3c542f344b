// Package daemon coordinates the long-running filerelay process.
//
// It supervises the dispatcher and the inbound acceptor as named components
// under a single lifecycle, with flock-based locking to prevent two daemons
// from watching the same directories. When any component fails the rest are
// cancelled so the process exits instead of running half-wired.
//
// Keep orchestration logic here: dispatch and receive behaviour live in their
// own packages while the daemon focuses on startup, shutdown, and status.
package daemon
