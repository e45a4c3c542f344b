// Package attachments stores received transfer containers by content ID.
//
// IDs are CIDv1 strings with the raw codec and a sha2-256 multihash, so a
// sender can name an attachment before uploading it and the receiver can
// verify what arrived. Objects are immutable once written.
package attachments

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/spf13/afero"
)

var (
	// ErrNotFound indicates no object exists for the ID.
	ErrNotFound = errors.New("attachment not found")
	// ErrInvalidID indicates a malformed or undefined attachment ID.
	ErrInvalidID = errors.New("invalid attachment id")
	// ErrMismatch indicates stored bytes do not hash to their ID.
	ErrMismatch = errors.New("attachment content does not match id")
	// ErrImmutable indicates an attempt to overwrite an object with different bytes.
	ErrImmutable = errors.New("attachment already stored with different content")
)

// ID returns the content ID for data.
func ID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// ParseID decodes a content ID string.
func ParseID(value string) (cid.Cid, error) {
	id, err := cid.Decode(value)
	if err != nil || !id.Defined() {
		return cid.Undef, fmt.Errorf("%w: %q", ErrInvalidID, value)
	}
	return id, nil
}

// Verify checks that data hashes to the ID named by value.
func Verify(value string, data []byte) error {
	want, err := ParseID(value)
	if err != nil {
		return err
	}
	got, err := ID(data)
	if err != nil {
		return err
	}
	if !got.Equals(want) {
		return ErrMismatch
	}
	return nil
}

// Store is a filesystem-backed content-addressed attachment store.
type Store struct {
	fs   afero.Fs
	root string
}

// NewStore returns a store rooted at root on fs, creating root if needed. A
// nil fs means the OS filesystem.
func NewStore(fs afero.Fs, root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("attachments: root directory is required")
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{fs: fs, root: root}, nil
}

// Put stores data and returns its ID. Storing identical bytes twice is a
// no-op.
func (s *Store) Put(data []byte) (cid.Cid, error) {
	id, err := ID(data)
	if err != nil {
		return cid.Undef, err
	}
	path := s.pathFor(id)
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cid.Undef, err
	}

	f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			existing, rerr := s.Get(id)
			if rerr != nil || !bytes.Equal(existing, data) {
				return cid.Undef, ErrImmutable
			}
			return id, nil
		}
		return cid.Undef, err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(path)
		return cid.Undef, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(path)
		return cid.Undef, err
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(path)
		return cid.Undef, err
	}
	return id, nil
}

// Get returns the bytes stored under id, verifying them against the ID.
func (s *Store) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidID
	}
	data, err := afero.ReadFile(s.fs, s.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	got, err := ID(data)
	if err != nil {
		return nil, err
	}
	if !got.Equals(id) {
		return nil, ErrMismatch
	}
	return data, nil
}

// Has reports whether an object exists for id.
func (s *Store) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := s.fs.Stat(s.pathFor(id))
	return err == nil
}

func (s *Store) pathFor(id cid.Cid) string {
	name := id.String()
	if len(name) < 2 {
		return filepath.Join(s.root, name)
	}
	return filepath.Join(s.root, name[len(name)-2:], name)
}
