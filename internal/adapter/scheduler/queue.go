// Package scheduler provides FrameScheduler implementations: a ticker-driven
// scheduler standing in for the display refresh, and a manually stepped one for tests.
package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

type entry struct {
	handle ports.FrameHandle
	fn     ports.FrameCallback
}

// frameQueue holds callbacks for the next frame.
// take swaps the queue out, so callbacks scheduled while a frame runs land in the next one.
type frameQueue struct {
	mu      sync.Mutex
	pending []entry
	next    ports.FrameHandle
	closed  bool

	scheduled uint64
	cancelled uint64
	executed  uint64
}

func (q *frameQueue) schedule(fn ports.FrameCallback) ports.FrameHandle {
	if fn == nil {
		return 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0
	}
	q.next++
	q.pending = append(q.pending, entry{handle: q.next, fn: fn})
	q.scheduled++
	return q.next
}

func (q *frameQueue) cancel(handle ports.FrameHandle) {
	if handle == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.pending {
		if e.handle == handle {
			q.pending = append(q.pending[:i:i], q.pending[i+1:]...)
			q.cancelled++
			return
		}
	}
}

func (q *frameQueue) take() []entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	batch := q.pending
	q.pending = nil
	return batch
}

// run executes one frame. A panicking callback is logged and does not stop the others.
func (q *frameQueue) run(logger *slog.Logger, now time.Time) int {
	batch := q.take()
	for _, e := range batch {
		invoke(logger, e, now)
	}

	q.mu.Lock()
	q.executed += uint64(len(batch))
	q.mu.Unlock()

	return len(batch)
}

func invoke(logger *slog.Logger, e entry, now time.Time) {
	defer func() {
		if r := recover(); r != nil && logger != nil {
			logger.Error("frame callback panicked",
				slog.Any("panic", r),
				slog.Uint64("handle", uint64(e.handle)))
		}
	}()
	e.fn(now)
}

func (q *frameQueue) close() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.closed = true
	q.pending = nil
	return true
}

func (q *frameQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
