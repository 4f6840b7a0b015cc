// Package service provides the visualizer engine and the playback orchestration around it.
package service

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

// VisualizerService turns a caller-driven state and an optional audio source into
// a continuously updated bar-height sequence.
//
//   - Idle: every bar rests at IdleHeight.
//   - Loading: a synthetic sine wave travels across the bars, one phase step per frame.
//   - Playing: byte frequency data from an analysis tap on the source is folded into bars.
//
// The service never changes state by itself and never reports errors to the caller:
// a missing source or a failed tap falls back to the idle pattern.
//
// Every transition cancels the pending frame before anything new is scheduled, and
// releases the current tap before a new one is acquired. Frame callbacks carry the
// generation they were scheduled under, so a callback the scheduler had already taken
// when it was cancelled cannot apply its result.
//
// Thread-safety: all methods are safe for concurrent use. Event handlers run
// synchronously on the publishing goroutine and must not call Update, SetState,
// SetSource or Dispose; read-only accessors are fine.
type VisualizerService struct {
	// Dependencies (injected)
	logger    *slog.Logger
	scheduler ports.FrameScheduler
	taps      ports.TapFactory
	bus       ports.EventBus
	cfg       domain.VisualizerConfig

	// seq serializes transitions and frames together with the publication of their
	// events, so views see snapshots in the order they were computed.
	// Lock order: seq, then mu.
	seq sync.Mutex

	mu        sync.Mutex
	state     domain.VisualizerState
	source    ports.AudioSource
	tap       ports.AnalysisTap
	tapSource ports.AudioSource
	buf       []byte
	levels    domain.Levels
	phase     float64
	lastFrame time.Time
	frame     ports.FrameHandle
	gen       uint64
	frames    uint64
	disposed  bool
}

// NewVisualizerService creates an idle visualizer.
//
// Returns a validation error if cfg cannot describe a set of bars.
func NewVisualizerService(
	logger *slog.Logger,
	scheduler ports.FrameScheduler,
	taps ports.TapFactory,
	bus ports.EventBus,
	cfg domain.VisualizerConfig,
) (*VisualizerService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &VisualizerService{
		logger:    logger,
		scheduler: scheduler,
		taps:      taps,
		bus:       bus,
		cfg:       cfg,
		state:     domain.StateIdle,
		levels:    idleLevels(cfg),
	}

	logger.Debug("visualizer service initialized",
		slog.Int("bars", cfg.BarCount),
		slog.Bool("wall_clock_loading", cfg.WallClockLoading))

	return s, nil
}

// Update supplies the inputs for the current render.
// Nothing happens unless the state or the source identity differs from the previous call.
//
// Sources are compared with ==, so they must be comparable (pointer types are).
func (s *VisualizerService) Update(state domain.VisualizerState, source ports.AudioSource) {
	s.seq.Lock()
	defer s.seq.Unlock()

	s.mu.Lock()
	if s.disposed || (state == s.state && source == s.source) {
		s.mu.Unlock()
		return
	}

	previous := s.state
	s.state = state
	s.source = source

	var events []domain.Event
	if previous != state {
		events = append(events, domain.NewVisualizerStateChangedEvent(previous, state, sourceID(source)))
		s.logger.Debug("visualizer state changed",
			slog.String("from", previous.String()),
			slog.String("to", state.String()),
			slog.String("source", sourceID(source)))
	}
	events = append(events, s.transitionLocked()...)
	s.mu.Unlock()

	s.publish(events)
}

// SetState changes the state and keeps the current source.
func (s *VisualizerService) SetState(state domain.VisualizerState) {
	s.Update(state, s.Source())
}

// SetSource changes the source and keeps the current state.
func (s *VisualizerService) SetSource(source ports.AudioSource) {
	s.Update(s.State(), source)
}

// transitionLocked applies the current inputs. Caller must hold s.mu.
func (s *VisualizerService) transitionLocked() []domain.Event {
	s.cancelFrameLocked()

	var events []domain.Event

	if s.state == domain.StatePlaying && s.source != nil {
		if s.tapSource != s.source {
			events = append(events, s.releaseTapLocked()...)

			acquired, ok := s.acquireTapLocked(s.source)
			if !ok {
				return append(events, s.commitLocked(idleLevels(s.cfg))...)
			}
			events = append(events, acquired)
		}
		s.scheduleLocked(s.playingFrame)
		return events
	}

	events = append(events, s.releaseTapLocked()...)

	if s.state == domain.StateLoading {
		s.lastFrame = time.Time{}
		s.scheduleLocked(s.loadingFrame)
		return events
	}

	if s.state == domain.StatePlaying {
		s.logger.Debug("playing without a source, showing idle pattern")
	}
	return append(events, s.commitLocked(idleLevels(s.cfg))...)
}

// cancelFrameLocked cancels the pending frame and invalidates any callback already taken.
func (s *VisualizerService) cancelFrameLocked() {
	if s.frame != 0 {
		s.scheduler.Cancel(s.frame)
		s.frame = 0
	}
	s.gen++
}

func (s *VisualizerService) scheduleLocked(frame func(gen uint64, now time.Time)) {
	gen := s.gen
	s.frame = s.scheduler.Schedule(func(now time.Time) { frame(gen, now) })
}

func (s *VisualizerService) acquireTapLocked(source ports.AudioSource) (domain.Event, bool) {
	tap, err := s.taps.Acquire(source)
	if err != nil {
		s.logger.Warn("audio signal unavailable, showing idle pattern",
			slog.String("source", sourceID(source)),
			slog.Any("error", err))
		return nil, false
	}

	bins := tap.FrequencyBinCount()
	s.tap = tap
	s.tapSource = source
	s.buf = make([]byte, bins)

	s.logger.Debug("analysis tap acquired",
		slog.String("source", sourceID(source)),
		slog.Int("bins", bins))

	return domain.NewTapAcquiredEvent(sourceID(source), bins), true
}

// releaseTapLocked disconnects the current tap, if any. The source itself is left alone.
func (s *VisualizerService) releaseTapLocked() []domain.Event {
	if s.tap == nil {
		return nil
	}

	id := sourceID(s.tapSource)
	if err := s.tap.Disconnect(); err != nil {
		s.logger.Warn("failed to disconnect analysis tap",
			slog.String("source", id),
			slog.Any("error", err))
	}
	s.tap = nil
	s.tapSource = nil
	s.buf = nil

	s.logger.Debug("analysis tap released", slog.String("source", id))
	return []domain.Event{domain.NewTapReleasedEvent(id)}
}

// commitLocked replaces the whole level sequence.
func (s *VisualizerService) commitLocked(levels domain.Levels) []domain.Event {
	s.levels = levels
	s.frames++

	if !s.bus.HasSubscribers(domain.EventLevelsUpdated) {
		return nil
	}
	return []domain.Event{domain.NewLevelsUpdatedEvent(s.state, levels.Clone(), s.frames)}
}

func (s *VisualizerService) playingFrame(gen uint64, _ time.Time) {
	s.seq.Lock()
	defer s.seq.Unlock()

	s.mu.Lock()
	if s.disposed || gen != s.gen || s.tap == nil {
		s.mu.Unlock()
		return
	}

	s.tap.ByteFrequencyData(s.buf)
	events := s.commitLocked(playingLevels(s.cfg, s.buf))
	s.scheduleLocked(s.playingFrame)
	s.mu.Unlock()

	s.publish(events)
}

func (s *VisualizerService) loadingFrame(gen uint64, now time.Time) {
	s.seq.Lock()
	defer s.seq.Unlock()

	s.mu.Lock()
	if s.disposed || gen != s.gen {
		s.mu.Unlock()
		return
	}

	elapsed := 0.0
	if !s.lastFrame.IsZero() {
		elapsed = now.Sub(s.lastFrame).Seconds()
	}
	s.lastFrame = now
	s.phase = math.Mod(s.phase+phaseStep(s.cfg, elapsed), 2*math.Pi)

	events := s.commitLocked(loadingLevels(s.cfg, s.phase))
	s.scheduleLocked(s.loadingFrame)
	s.mu.Unlock()

	s.publish(events)
}

// publish delivers events in order. Caller must hold s.seq but not s.mu.
func (s *VisualizerService) publish(events []domain.Event) {
	for _, e := range events {
		s.bus.Publish(e)
	}
}

// Levels returns a copy of the current bar heights.
func (s *VisualizerService) Levels() domain.Levels {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels.Clone()
}

// State returns the current visualizer state.
func (s *VisualizerService) State() domain.VisualizerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Source returns the current audio source (nil if none).
func (s *VisualizerService) Source() ports.AudioSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Frames returns how many level snapshots have been committed.
func (s *VisualizerService) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Config returns the engine configuration.
func (s *VisualizerService) Config() domain.VisualizerConfig {
	return s.cfg
}

// Dispose cancels the pending frame and releases the tap. The source is not closed.
// Later calls to Update are ignored. Dispose is idempotent.
//
// Returns the tap's disconnect error, if any.
func (s *VisualizerService) Dispose() error {
	s.seq.Lock()
	defer s.seq.Unlock()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	s.cancelFrameLocked()

	var err error
	var events []domain.Event
	if s.tap != nil {
		id := sourceID(s.tapSource)
		err = s.tap.Disconnect()
		s.tap = nil
		s.tapSource = nil
		s.buf = nil
		events = append(events, domain.NewTapReleasedEvent(id))
	}
	s.source = nil
	s.mu.Unlock()

	s.publish(events)
	s.logger.Debug("visualizer service disposed")

	if err != nil {
		return domain.NewServiceError("VisualizerService", "Dispose", "failed to disconnect analysis tap", err)
	}
	return nil
}

func sourceID(source ports.AudioSource) string {
	if source == nil {
		return ""
	}
	return source.ID()
}
