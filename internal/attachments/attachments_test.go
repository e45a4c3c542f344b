package attachments_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/spf13/afero"

	"filerelay/internal/attachments"
)

func TestPutGetHas(t *testing.T) {
	store, err := attachments.NewStore(afero.NewMemMapFs(), "/state/attachments")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	data := []byte("container bytes")

	id, err := store.Put(data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	want, err := attachments.ID(data)
	if err != nil {
		t.Fatalf("ID: %v", err)
	}
	if !id.Equals(want) {
		t.Fatalf("Put returned %s, want %s", id, want)
	}
	if id.Prefix().Codec != cid.Raw || id.Version() != 1 {
		t.Fatalf("unexpected cid prefix: %+v", id.Prefix())
	}
	if !store.Has(id) {
		t.Fatal("expected Has to report stored object")
	}
	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("Get returned %q", got)
	}

	again, err := store.Put(data)
	if err != nil || !again.Equals(id) {
		t.Fatalf("idempotent Put = %s, %v", again, err)
	}
}

func TestGetMissingAndCorrupted(t *testing.T) {
	memfs := afero.NewMemMapFs()
	store, err := attachments.NewStore(memfs, "/cas")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	id, err := attachments.ID([]byte("never stored"))
	if err != nil {
		t.Fatalf("ID: %v", err)
	}
	if _, err := store.Get(id); !errors.Is(err, attachments.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Get(cid.Undef); !errors.Is(err, attachments.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}

	stored, err := store.Put([]byte("original"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	name := stored.String()
	path := filepath.Join("/cas", name[len(name)-2:], name)
	if err := afero.WriteFile(memfs, path, []byte("tampered"), 0o644); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	if _, err := store.Get(stored); !errors.Is(err, attachments.ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	if _, err := store.Put([]byte("original")); !errors.Is(err, attachments.ErrImmutable) {
		t.Fatalf("expected ErrImmutable, got %v", err)
	}
}

func TestVerify(t *testing.T) {
	data := []byte("payload")
	id, err := attachments.ID(data)
	if err != nil {
		t.Fatalf("ID: %v", err)
	}
	if err := attachments.Verify(id.String(), data); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := attachments.Verify(id.String(), []byte("other")); !errors.Is(err, attachments.ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	if err := attachments.Verify("not-a-cid", data); !errors.Is(err, attachments.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}
