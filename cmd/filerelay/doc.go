// Command filerelay is the operator CLI for the filerelay daemon.
//
// It runs the daemon in the foreground and queries or stops a running one
// over its control socket. It also manages configuration and sends single
// files through an outbound route. The remaining commands inspect the
// transfer journal and daemon log, run preflight checks, send a test
// notification, and pack or unpack containers for debugging.
package main
