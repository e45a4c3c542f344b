package journal

import (
	"fmt"
	"strings"
	"time"
)

// Status represents where a transfer stands.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRejected  Status = "rejected"
)

var allStatuses = []Status{
	StatusPending,
	StatusSubmitted,
	StatusCompleted,
	StatusFailed,
	StatusRejected,
}

// AllStatuses returns every journal status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, error) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", value)
}

// IsTerminal reports whether no further transition is expected.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusRejected:
		return true
	default:
		return false
	}
}

// Direction distinguishes files sent from files received.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// ParseDirection converts a string into a Direction.
func ParseDirection(value string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(value))) {
	case DirectionOutbound, "out", "sent":
		return DirectionOutbound, nil
	case DirectionInbound, "in", "received":
		return DirectionInbound, nil
	default:
		return "", fmt.Errorf("unknown direction %q", value)
	}
}

// Transfer is one journal row.
type Transfer struct {
	ID              int64
	TransferID      string
	Direction       Direction
	RouteKey        string
	Party           string
	MyReference     string
	TheirReference  string
	Filename        string
	SourcePath      string
	DestinationPath string
	SizeBytes       int64
	SHA256          string
	AttachmentID    string
	Status          Status
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Direction Direction
	Statuses  []Status
	Limit     int
}
