// Package transfer defines the boundary between the file relay engine and the
// mechanism that carries archives between parties.
//
// The dispatcher hands packed files to a Submitter and the receiver is driven
// by an Acceptor. Concrete transports live under internal/transport; tests use
// in-memory fakes.
package transfer
