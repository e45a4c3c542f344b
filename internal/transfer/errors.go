package transfer

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownParty indicates the transport has no address for a party.
	ErrUnknownParty = errors.New("unknown party")
	// ErrRejected indicates the peer refused the transfer.
	ErrRejected = errors.New("transfer rejected by peer")
)

// SubmissionError reports a transfer that could not be delivered. The
// dispatcher logs it and moves on to the next event.
type SubmissionError struct {
	Route    string
	Party    string
	Filename string
	Err      error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %s to %s (route %s): %v", e.Filename, e.Party, e.Route, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// ErrorKind classifies the failure for journal status mapping.
func (e *SubmissionError) ErrorKind() string {
	if errors.Is(e.Err, ErrRejected) {
		return "rejected"
	}
	if errors.Is(e.Err, ErrUnknownParty) {
		return "configuration"
	}
	return "transport"
}
