// Package postsend applies the configured side effect to a source file after
// its transfer has been accepted.
package postsend

import (
	"fmt"

	"github.com/spf13/afero"

	"filerelay/internal/config"
)

// ActionError reports a post-send action that could not be completed. The
// transfer itself already succeeded and is not undone.
type ActionError struct {
	Action config.PostSendAction
	Path   string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("post-send %s on %s: %v", e.Action, e.Path, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// Executor runs post-send actions against a filesystem.
type Executor struct {
	fs afero.Fs
}

// NewExecutor returns an executor over fs, or the OS filesystem when fs is nil.
func NewExecutor(fs afero.Fs) *Executor {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Executor{fs: fs}
}

// Apply performs action on path.
func (e *Executor) Apply(action config.PostSendAction, path string) error {
	switch action {
	case config.PostSendNone, "":
		return nil
	case config.PostSendDeleteSource:
		if err := e.fs.Remove(path); err != nil {
			return &ActionError{Action: action, Path: path, Err: err}
		}
		return nil
	default:
		return &ActionError{Action: action, Path: path, Err: fmt.Errorf("unsupported action %q", action)}
	}
}
