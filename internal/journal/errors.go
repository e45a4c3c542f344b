package journal

import "errors"

// ErrNotFound is returned when a transfer ID has no journal row.
var ErrNotFound = errors.New("transfer not found")

// ErrorClassifier allows errors to declare their classification for status mapping.
type ErrorClassifier interface {
	// ErrorKind returns a string classification of the error.
	// Kinds "rejected", "validation", and "not_found" map to StatusRejected.
	ErrorKind() string
}

// FailureStatus maps a transfer error to the status the journal should
// persist. Errors the peer or receiver refused on their merits are rejected;
// everything else is a failure.
func FailureStatus(err error) Status {
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		switch classifier.ErrorKind() {
		case "rejected", "validation", "not_found":
			return StatusRejected
		}
	}
	return StatusFailed
}
