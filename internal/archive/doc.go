// Package archive packs files into the zip container carried between parties
// and walks received containers entry by entry.
//
// Containers are deterministic: entries carry a fixed modification time and
// Deflate compression, so packing the same bytes under the same name always
// produces the same container and therefore the same attachment ID.
package archive
