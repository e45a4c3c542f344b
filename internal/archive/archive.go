package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// modTime is stamped on every packed entry.
var modTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Container is an encoded archive ready to hand to a transport.
type Container struct {
	data []byte
}

// FromBytes wraps an encoded archive received from a transport.
func FromBytes(data []byte) Container {
	return Container{data: data}
}

// Bytes returns the encoded archive.
func (c Container) Bytes() []byte { return c.data }

// Len returns the encoded size in bytes.
func (c Container) Len() int { return len(c.data) }

// Pack builds a single-entry container holding everything read from r.
func Pack(name string, r io.Reader) (Container, error) {
	if name == "" {
		return Container{}, errors.New("archive: entry name is required")
	}
	if r == nil {
		return Container{}, errors.New("archive: entry content is required")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	header := &zip.FileHeader{
		Name:     filepath.ToSlash(name),
		Method:   zip.Deflate,
		Modified: modTime,
	}
	header.SetMode(0o644)
	w, err := zw.CreateHeader(header)
	if err != nil {
		return Container{}, fmt.Errorf("archive: create entry %q: %w", name, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return Container{}, fmt.Errorf("archive: write entry %q: %w", name, err)
	}
	if err := zw.Close(); err != nil {
		return Container{}, fmt.Errorf("archive: finalize: %w", err)
	}
	return Container{data: buf.Bytes()}, nil
}

// PackFile packs the file at path under its base name.
func PackFile(path string) (Container, error) {
	file, err := os.Open(path)
	if err != nil {
		return Container{}, err
	}
	defer file.Close()
	return Pack(filepath.Base(path), file)
}

// Entry is one member of an unpacked container.
type Entry struct {
	Name string
	Size uint64

	file *zip.File
}

// IsDir reports whether the entry only denotes a directory.
func (e *Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/") || e.file.FileInfo().IsDir()
}

// Open returns the entry's content.
func (e *Entry) Open() (io.ReadCloser, error) {
	return e.file.Open()
}

// Reader walks the entries of a container in order. Each entry is yielded
// once.
type Reader struct {
	files []*zip.File
	next  int
}

// Unpack decodes a container. Entry content is read lazily through Entry.Open.
// Entry names are returned verbatim; callers joining them onto a directory
// must validate the result.
func Unpack(c Container) (*Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(c.data), int64(len(c.data)))
	if errors.Is(err, zip.ErrInsecurePath) && zr != nil {
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("archive: open container: %w", err)
	}
	return &Reader{files: zr.File}, nil
}

// Next returns the next entry, or io.EOF when the container is exhausted.
func (r *Reader) Next() (*Entry, error) {
	if r.next >= len(r.files) {
		return nil, io.EOF
	}
	file := r.files[r.next]
	r.next++
	return &Entry{Name: file.Name, Size: file.UncompressedSize64, file: file}, nil
}
