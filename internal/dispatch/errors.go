package dispatch

import "fmt"

// StartupError reports a failure preparing the watch loop. It is fatal to Run.
type StartupError struct {
	Op   string
	Path string
	Err  error
}

func (e *StartupError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("dispatcher %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("dispatcher %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }
