package routing

import "fmt"

// UnknownReferenceError reports a manifest reference with no inbound route.
type UnknownReferenceError struct {
	Reference string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown reference %q", e.Reference)
}

// ErrorKind classifies the failure for journal status mapping.
func (e *UnknownReferenceError) ErrorKind() string { return "not_found" }

// PathEscapeError reports an entry name that would resolve outside its
// destination directory.
type PathEscapeError struct {
	Directory string
	Name      string
	Err       error
}

func (e *PathEscapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("entry %q escapes %s: %v", e.Name, e.Directory, e.Err)
	}
	return fmt.Sprintf("entry %q escapes %s", e.Name, e.Directory)
}

func (e *PathEscapeError) Unwrap() error { return e.Err }

// ErrorKind classifies the failure for journal status mapping.
func (e *PathEscapeError) ErrorKind() string { return "validation" }
