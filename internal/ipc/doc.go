// Package ipc exposes a running daemon over JSON-RPC on a Unix socket and
// ships the matching client used by the CLI.
//
// The server owns the socket lifecycle and delegates every call to a
// Controller, so the daemon runner decides what status means and how a stop
// request is honoured.
package ipc
