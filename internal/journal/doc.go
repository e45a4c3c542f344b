// Package journal records every outbound dispatch and inbound receipt in
// SQLite so operators can see what moved, where, and whether it landed.
//
// The journal is the local mirror of the transfer record the transport
// carries. The daemon writes it; the CLI reads it. Schema changes append a
// step to migrations in schema.go; existing journals upgrade on open.
package journal
