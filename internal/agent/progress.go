package agent

import (
	"sync"
	"time"

	"github.com/xvetrov/deskpilot/api/schemas"
)

// ProgressFeed is a bounded, read-only update stream for observers (the CLI
// printer, an overlay). Publishing never blocks the loop: when the buffer is
// full the oldest update is dropped, since a stale progress line is worth
// less than a fresh one.
type ProgressFeed struct {
	mu     sync.Mutex
	ch     chan schemas.ProgressUpdate
	closed bool
}

// NewProgressFeed creates a feed with the given buffer capacity.
func NewProgressFeed(buffer int) *ProgressFeed {
	if buffer <= 0 {
		buffer = 16
	}
	return &ProgressFeed{ch: make(chan schemas.ProgressUpdate, buffer)}
}

// Updates returns the receive side of the feed. It is closed when the task
// finishes.
func (f *ProgressFeed) Updates() <-chan schemas.ProgressUpdate {
	return f.ch
}

// Publish enqueues an update, evicting the oldest one if necessary.
func (f *ProgressFeed) Publish(update schemas.ProgressUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}

	for {
		select {
		case f.ch <- update:
			return
		default:
			select {
			case <-f.ch: // drop oldest
			default:
			}
		}
	}
}

// Close ends the stream. Further publishes are no-ops.
func (f *ProgressFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}
