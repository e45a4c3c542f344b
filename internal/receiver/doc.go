// Package receiver writes inbound transfers to disk.
//
// A transfer's recipient reference is resolved before any entry is read, so
// an unknown reference leaves the filesystem untouched. Entries are written
// one at a time into the resolved directory; a failure part way through keeps
// the entries already written.
package receiver
