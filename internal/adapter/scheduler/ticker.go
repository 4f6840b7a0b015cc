package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

// TickerScheduler runs scheduled callbacks on a single goroutine driven by a time.Ticker.
// It stands in for a display's refresh signal: one frame per tick, ~60 Hz by default,
// with no guarantee beyond what time.Ticker gives (slow frames drop ticks).
//
// Thread-safety: Schedule and Cancel are safe from any goroutine.
type TickerScheduler struct {
	logger   *slog.Logger
	interval time.Duration
	queue    frameQueue

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewTickerScheduler starts a frame loop at fps frames per second.
// A non-positive fps falls back to domain.DefaultFrameRate; fps above
// domain.MaxFrameRate is capped.
func NewTickerScheduler(logger *slog.Logger, fps int) *TickerScheduler {
	if fps <= 0 {
		fps = domain.DefaultFrameRate
	}
	fps = min(fps, domain.MaxFrameRate)

	s := &TickerScheduler{
		logger:   logger,
		interval: time.Second / time.Duration(fps),
		stop:     make(chan struct{}),
	}

	s.wg.Add(1)
	go s.loop()

	logger.Debug("frame scheduler started", slog.Int("fps", fps))
	return s
}

func (s *TickerScheduler) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.queue.run(s.logger, now)
		}
	}
}

// Schedule queues fn for the next tick.
// After Close, Schedule returns the zero handle and fn never runs.
func (s *TickerScheduler) Schedule(fn ports.FrameCallback) ports.FrameHandle {
	return s.queue.schedule(fn)
}

// Cancel removes a pending callback.
// A callback the loop has already taken for the current tick still runs;
// callers that need a hard cut-off must guard the callback themselves.
func (s *TickerScheduler) Cancel(handle ports.FrameHandle) {
	s.queue.cancel(handle)
}

// Interval returns the time between frames.
func (s *TickerScheduler) Interval() time.Duration {
	return s.interval
}

// Close stops the frame loop and drops pending callbacks.
// It waits for a running frame to finish, so it must not be called from a frame callback.
//
// Returns domain.ErrSchedulerClosed if already closed.
func (s *TickerScheduler) Close() error {
	if !s.queue.close() {
		return domain.ErrSchedulerClosed
	}
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()

	s.logger.Debug("frame scheduler stopped")
	return nil
}

// Verify that TickerScheduler implements the FrameScheduler interface
var _ ports.FrameScheduler = (*TickerScheduler)(nil)
