// Package ports define the frame scheduling interface.
package ports

import "time"

// FrameCallback runs once on a display frame. now is the frame timestamp.
type FrameCallback func(now time.Time)

// FrameHandle identifies a scheduled callback so it can be cancelled.
// The zero handle is never returned by Schedule.
type FrameHandle uint64

// FrameScheduler is the host's per-frame primitive, the equivalent of an animation-frame request.
//
// Semantics:
//   - Schedule queues fn to run exactly once on the next frame.
//   - Callbacks scheduled while a frame is running run on the following frame.
//   - Callbacks never overlap and are never re-entered.
//   - Cancel removes a pending callback. Cancelling an unknown, executed or already
//     cancelled handle is a no-op.
//
// Thread-safety: Schedule and Cancel may be called from any goroutine.
type FrameScheduler interface {
	// Schedule queues fn for the next frame and returns its handle.
	Schedule(fn FrameCallback) FrameHandle

	// Cancel removes a pending callback.
	Cancel(handle FrameHandle)
}
