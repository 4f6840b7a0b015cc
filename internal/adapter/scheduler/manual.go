package scheduler

import (
	"log/slog"
	"time"

	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

// ManualScheduler is a FrameScheduler that only advances when Step is called.
// It is deterministic and records how it was used, which makes it the spy
// for tests that check cancellation and loop counts.
//
// Thread-safety: This implementation is thread-safe.
type ManualScheduler struct {
	logger *slog.Logger
	queue  frameQueue
	now    time.Time
}

// NewManualScheduler creates a scheduler whose first frame is stamped at start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

// SetLogger sets the logger used to report panicking callbacks.
func (s *ManualScheduler) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Schedule queues fn for the next Step.
func (s *ManualScheduler) Schedule(fn ports.FrameCallback) ports.FrameHandle {
	return s.queue.schedule(fn)
}

// Cancel removes a pending callback.
func (s *ManualScheduler) Cancel(handle ports.FrameHandle) {
	s.queue.cancel(handle)
}

// Step runs one frame stamped with now and returns how many callbacks ran.
// Callers must not invoke Step concurrently with itself.
func (s *ManualScheduler) Step(now time.Time) int {
	s.queue.mu.Lock()
	s.now = now
	s.queue.mu.Unlock()
	return s.queue.run(s.logger, now)
}

// Advance runs n frames spaced by interval after the last frame time.
// It returns the total number of callbacks executed.
func (s *ManualScheduler) Advance(n int, interval time.Duration) int {
	total := 0
	for range n {
		s.queue.mu.Lock()
		next := s.now.Add(interval)
		s.queue.mu.Unlock()
		total += s.Step(next)
	}
	return total
}

// Pending returns the number of callbacks waiting for the next frame.
func (s *ManualScheduler) Pending() int {
	return s.queue.len()
}

// Scheduled returns how many callbacks were ever scheduled.
func (s *ManualScheduler) Scheduled() uint64 {
	s.queue.mu.Lock()
	defer s.queue.mu.Unlock()
	return s.queue.scheduled
}

// Cancelled returns how many pending callbacks were removed by Cancel.
func (s *ManualScheduler) Cancelled() uint64 {
	s.queue.mu.Lock()
	defer s.queue.mu.Unlock()
	return s.queue.cancelled
}

// Executed returns how many callbacks have run.
func (s *ManualScheduler) Executed() uint64 {
	s.queue.mu.Lock()
	defer s.queue.mu.Unlock()
	return s.queue.executed
}

// Verify that ManualScheduler implements the FrameScheduler interface
var _ ports.FrameScheduler = (*ManualScheduler)(nil)
