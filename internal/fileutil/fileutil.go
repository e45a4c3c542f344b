package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// WriteResult describes a completed atomic write.
type WriteResult struct {
	Path   string
	Bytes  int64
	SHA256 string
}

// WriteAtomic streams r into a temp file beside path and renames it into
// place, so readers never observe a partially written file. Parent
// directories are created as needed. An existing file at path is replaced.
func WriteAtomic(fs afero.Fs, path string, r io.Reader, mode os.FileMode) (WriteResult, error) {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return WriteResult{}, fmt.Errorf("create parent %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return WriteResult{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = fs.Remove(tmpName)
		}
	}()

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), r)
	if err != nil {
		return WriteResult{}, fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return WriteResult{}, fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return WriteResult{}, fmt.Errorf("close %s: %w", path, err)
	}
	if err := fs.Chmod(tmpName, mode); err != nil {
		return WriteResult{}, fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		return WriteResult{}, fmt.Errorf("rename into %s: %w", path, err)
	}
	committed = true

	return WriteResult{
		Path:   path,
		Bytes:  written,
		SHA256: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// FileSHA256 returns the hex SHA-256 digest and size of the file at path.
func FileSHA256(fs afero.Fs, path string) (string, int64, error) {
	file, err := fs.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer file.Close()

	hasher := sha256.New()
	n, err := io.Copy(hasher, file)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}
