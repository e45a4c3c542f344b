// Package routing resolves inbound reference codes to destination directories
// and joins untrusted archive entry names onto them without letting a write
// leave the directory.
package routing
