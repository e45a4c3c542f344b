package routing

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/spf13/afero"

	"filerelay/internal/config"
)

// Router maps reference codes to destination directories. The table is built
// once from the configuration and never changes, so Resolve is a pure lookup.
type Router struct {
	destinations map[string]string
	fs           afero.Fs
}

// Option customizes a Router.
type Option func(*Router)

// WithFs sets the filesystem Ensure creates directories on.
func WithFs(fs afero.Fs) Option {
	return func(r *Router) {
		if fs != nil {
			r.fs = fs
		}
	}
}

// New builds a router from the inbound routes of cfg.
func New(cfg *config.Config, opts ...Option) *Router {
	r := &Router{
		destinations: map[string]string{},
		fs:           afero.NewOsFs(),
	}
	if cfg != nil {
		r.destinations = cfg.DestinationDirectories()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the destination directory for reference.
func (r *Router) Resolve(reference string) (string, error) {
	dir, ok := r.destinations[reference]
	if !ok {
		return "", &UnknownReferenceError{Reference: reference}
	}
	return dir, nil
}

// Ensure resolves reference and creates its destination directory if absent.
func (r *Router) Ensure(reference string) (string, error) {
	dir, err := r.Resolve(reference)
	if err != nil {
		return "", err
	}
	if err := r.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create destination %s: %w", dir, err)
	}
	return dir, nil
}

// References lists the configured reference codes.
func (r *Router) References() []string {
	refs := make([]string, 0, len(r.destinations))
	for ref := range r.destinations {
		refs = append(refs, ref)
	}
	return refs
}

// Join places an archive entry name inside dir on the OS filesystem. Absolute
// names, names with parent-directory segments, and names whose existing
// components are symlinks are rejected with a PathEscapeError.
func Join(dir, name string) (string, error) {
	return JoinFs(nil, dir, name)
}

// JoinFs is Join with symlinks looked up on fs. A nil fs means the OS
// filesystem.
func JoinFs(fs afero.Fs, dir, name string) (string, error) {
	if name == "" {
		return "", &PathEscapeError{Directory: dir, Name: name, Err: errors.New("empty name")}
	}
	slashed := strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", &PathEscapeError{Directory: dir, Name: name, Err: errors.New("absolute path")}
	}
	for _, segment := range strings.Split(slashed, "/") {
		if segment == ".." {
			return "", &PathEscapeError{Directory: dir, Name: name, Err: errors.New("parent directory segment")}
		}
	}

	root := filepath.Clean(dir)
	lexical := filepath.Join(root, filepath.FromSlash(slashed))
	if lexical == root {
		return "", &PathEscapeError{Directory: dir, Name: name, Err: errors.New("names the directory itself")}
	}

	var vfs securejoin.VFS
	if fs != nil {
		vfs = aferoVFS{fs: fs}
	}
	resolved, err := securejoin.SecureJoinVFS(root, filepath.FromSlash(slashed), vfs)
	if err != nil {
		return "", &PathEscapeError{Directory: dir, Name: name, Err: err}
	}
	if resolved != lexical {
		return "", &PathEscapeError{Directory: dir, Name: name, Err: errors.New("symlink leaves destination")}
	}
	return lexical, nil
}

// aferoVFS lets securejoin walk an afero filesystem. Filesystems without
// symlink support report every path via Stat, so no component is a link.
type aferoVFS struct {
	fs afero.Fs
}

func (v aferoVFS) Lstat(name string) (os.FileInfo, error) {
	if lst, ok := v.fs.(afero.Lstater); ok {
		info, _, err := lst.LstatIfPossible(name)
		return info, err
	}
	return v.fs.Stat(name)
}

func (v aferoVFS) Readlink(name string) (string, error) {
	if lr, ok := v.fs.(afero.LinkReader); ok {
		return lr.ReadlinkIfPossible(name)
	}
	return "", &os.PathError{Op: "readlink", Path: name, Err: afero.ErrNoReadlink}
}
