package transfer

import (
	"context"
	"sync"
)

// Tracker is a Handle implementation for transports that settle a transfer on
// a background goroutine. Report and Finish are called by the transport.
type Tracker struct {
	progress chan Progress
	done     chan struct{}

	mu       sync.Mutex
	finished bool
	err      error
}

// NewTracker returns a Tracker whose progress channel buffers up to buffer
// events. Events beyond the buffer are dropped.
func NewTracker(buffer int) *Tracker {
	if buffer < 1 {
		buffer = 1
	}
	return &Tracker{
		progress: make(chan Progress, buffer),
		done:     make(chan struct{}),
	}
}

// Report publishes a progress event without blocking.
func (t *Tracker) Report(stage Stage, percent float64, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return
	}
	select {
	case t.progress <- Progress{Stage: stage, Percent: percent, Message: message}:
	default:
	}
}

// Finish settles the transfer. Only the first call has effect.
func (t *Tracker) Finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return
	}
	t.finished = true
	t.err = err
	close(t.progress)
	close(t.done)
}

// Progress implements Handle.
func (t *Tracker) Progress() <-chan Progress { return t.progress }

// Await implements Handle.
func (t *Tracker) Await(ctx context.Context) error {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
