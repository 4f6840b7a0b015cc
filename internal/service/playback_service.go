package service

import (
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

// Visualizer is the part of VisualizerService the player drives.
type Visualizer interface {
	Update(state domain.VisualizerState, source ports.AudioSource)
}

// PlaybackService orchestrates loading and playing one source at a time,
// and keeps the visualizer's state and source in step with the player:
// Loading while a file opens, Playing while audio runs, Idle otherwise.
//
// Events are published after the lock is released, so handlers may call back
// into read-only methods such as Status.
type PlaybackService struct {
	// Dependencies (injected)
	logger     *slog.Logger
	loader     ports.SourceLoader
	output     ports.AudioOutput
	visualizer Visualizer
	bus        ports.EventBus

	// State
	source    ports.StreamSource
	playback  ports.Playback
	status    domain.PlaybackStatus
	isLooping bool
	preview   bool // Loading shown on request rather than by a load

	// watchStop ends the goroutine waiting on the current playback
	watchStop chan struct{}
	watchGen  uint64

	// Concurrency control
	mu       sync.Mutex
	loadMu   sync.Mutex // serializes Load so sources open one at a time
	watchWg  sync.WaitGroup
	shutdown bool
}

// NewPlaybackService creates a new playback service.
func NewPlaybackService(
	logger *slog.Logger,
	loader ports.SourceLoader,
	output ports.AudioOutput,
	visualizer Visualizer,
	bus ports.EventBus,
) *PlaybackService {
	logger.Debug("playback service initialized")

	return &PlaybackService{
		logger:     logger,
		loader:     loader,
		output:     output,
		visualizer: visualizer,
		bus:        bus,
		status:     domain.StatusStopped,
	}
}

// Load opens path as the current source.
// The current source is stopped and closed first, and the visualizer shows
// the loading wave until the new source is ready.
func (s *PlaybackService) Load(path string) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return domain.ErrDisposed
	}
	s.logger.Debug("loading source", slog.String("path", path))

	events := s.stopLocked()
	s.closeSourceLocked()
	events = append(events, s.setStatusLocked(domain.StatusLoading)...)
	s.mu.Unlock()
	s.publish(events)

	// Open without the lock so the loading wave and Status stay live.
	src, err := s.loader.Open(path)

	s.mu.Lock()
	if err != nil {
		s.logger.Warn("failed to load source", slog.String("path", path), slog.Any("error", err))
		events = s.setStatusLocked(domain.StatusStopped)
		events = append(events, domain.NewSourceErrorEvent(path, err))
		s.mu.Unlock()
		s.publish(events)
		return err
	}
	if s.shutdown {
		s.mu.Unlock()
		_ = src.Close()
		return domain.ErrDisposed
	}

	s.source = src
	events = s.setStatusLocked(domain.StatusStopped)
	events = append(events, domain.NewSourceLoadedEvent(src.Info()))
	s.mu.Unlock()
	s.publish(events)

	s.logger.Debug("source loaded", slog.String("id", src.ID()))
	return nil
}

// LoadAndPlay loads path and starts playing it.
func (s *PlaybackService) LoadAndPlay(path string) error {
	if err := s.Load(path); err != nil {
		return err
	}
	return s.Play()
}

// Play starts or resumes playback of the current source.
func (s *PlaybackService) Play() error {
	s.mu.Lock()

	if s.source == nil {
		s.mu.Unlock()
		return domain.ErrNoTrackLoaded
	}

	var events []domain.Event
	switch {
	case s.playback != nil && s.playback.Paused():
		s.playback.Resume()
		events = s.setStatusLocked(domain.StatusPlaying)
	case s.playback != nil:
		s.mu.Unlock()
		return nil
	default:
		var err error
		events, err = s.startLocked()
		if err != nil {
			s.mu.Unlock()
			s.publish(events)
			return err
		}
	}
	events = append(events, domain.NewTrackStartedEvent(s.source.Info()))
	s.mu.Unlock()

	s.publish(events)
	return nil
}

// startLocked opens a new playback of the current source. Caller must hold s.mu.
func (s *PlaybackService) startLocked() ([]domain.Event, error) {
	pb, err := s.output.Start(s.source)
	if err != nil {
		s.logger.Warn("failed to start playback", slog.Any("error", err))
		info := s.source.Info()
		events := s.setStatusLocked(domain.StatusStopped)
		events = append(events, domain.NewSourceErrorEvent(info.Path, err))
		return events, domain.NewServiceError("PlaybackService", "Play", "failed to start output", err)
	}

	s.playback = pb
	s.watchGen++
	s.watchStop = make(chan struct{})
	s.watchWg.Add(1)
	go s.watch(pb, s.watchStop, s.watchGen)

	return s.setStatusLocked(domain.StatusPlaying), nil
}

// watch waits for the playback to run out or to be stopped.
func (s *PlaybackService) watch(pb ports.Playback, stop <-chan struct{}, gen uint64) {
	defer s.watchWg.Done()

	select {
	case <-stop:
	case <-pb.Done():
		s.handleCompleted(gen)
	}
}

// handleCompleted rewinds a finished source and restarts it when looping.
func (s *PlaybackService) handleCompleted(gen uint64) {
	s.mu.Lock()
	if gen != s.watchGen || s.playback == nil {
		s.mu.Unlock()
		return
	}

	info := s.source.Info()
	s.closePlaybackLocked()
	if err := s.source.Rewind(); err != nil {
		s.logger.Warn("failed to rewind source", slog.Any("error", err))
	}

	events := []domain.Event{domain.NewTrackCompletedEvent(info)}
	events = append(events, s.setStatusLocked(domain.StatusStopped)...)

	if s.isLooping && !s.shutdown {
		started, err := s.startLocked()
		events = append(events, started...)
		if err == nil {
			events = append(events, domain.NewTrackStartedEvent(info))
		}
	}
	s.mu.Unlock()

	s.logger.Debug("track completed", slog.String("id", info.ID), slog.Bool("looping", s.IsLooping()))
	s.publish(events)
}

// Pause pauses playback; the position is preserved.
func (s *PlaybackService) Pause() error {
	s.mu.Lock()

	if s.playback == nil {
		s.mu.Unlock()
		return domain.ErrNoTrackLoaded
	}
	if s.playback.Paused() {
		s.mu.Unlock()
		return nil
	}

	s.playback.Pause()
	events := s.setStatusLocked(domain.StatusPaused)
	events = append(events, domain.NewTrackPausedEvent(s.source.Info()))
	s.mu.Unlock()

	s.publish(events)
	return nil
}

// TogglePlayPause plays when paused or stopped and pauses when playing.
func (s *PlaybackService) TogglePlayPause() error {
	if s.Status() == domain.StatusPlaying {
		return s.Pause()
	}
	return s.Play()
}

// Stop ends playback and rewinds the source. The source stays loaded.
func (s *PlaybackService) Stop() error {
	s.mu.Lock()
	events := s.stopLocked()
	s.mu.Unlock()

	s.publish(events)
	return nil
}

// stopLocked closes the playback and rewinds. Caller must hold s.mu.
func (s *PlaybackService) stopLocked() []domain.Event {
	if s.playback == nil {
		return s.setStatusLocked(domain.StatusStopped)
	}

	s.closePlaybackLocked()
	if err := s.source.Rewind(); err != nil {
		s.logger.Warn("failed to rewind source", slog.Any("error", err))
	}

	events := []domain.Event{domain.NewTrackStoppedEvent(s.source.Info())}
	return append(events, s.setStatusLocked(domain.StatusStopped)...)
}

func (s *PlaybackService) closePlaybackLocked() {
	if s.playback == nil {
		return
	}
	close(s.watchStop)
	s.watchStop = nil
	s.watchGen++

	if err := s.playback.Close(); err != nil {
		s.logger.Warn("failed to close playback", slog.Any("error", err))
	}
	s.playback = nil
}

// closeSourceLocked detaches the visualizer and closes the current source.
func (s *PlaybackService) closeSourceLocked() {
	if s.source == nil {
		return
	}

	src := s.source
	s.source = nil
	// The visualizer must let go of the source before it is closed.
	s.visualizer.Update(s.status.VisualizerState(), nil)

	if err := src.Close(); err != nil {
		s.logger.Warn("failed to close source", slog.String("id", src.ID()), slog.Any("error", err))
	}
}

// setStatusLocked records a status change and mirrors it into the visualizer.
func (s *PlaybackService) setStatusLocked(status domain.PlaybackStatus) []domain.Event {
	s.preview = false
	s.visualizer.Update(status.VisualizerState(), s.audioSourceLocked())

	if status == s.status {
		return nil
	}

	previous := s.status
	s.status = status
	s.logger.Debug("playback status changed",
		slog.String("from", previous.String()),
		slog.String("to", status.String()))

	return []domain.Event{domain.NewStatusChangedEvent(previous, status, s.infoLocked())}
}

// PreviewLoading toggles the loading wave while nothing is playing,
// the way a host shows progress for audio it is still generating.
// It has no effect during playback.
func (s *PlaybackService) PreviewLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == domain.StatusPlaying || s.status == domain.StatusLoading && !s.preview {
		return
	}

	if s.preview {
		s.preview = false
		s.visualizer.Update(s.status.VisualizerState(), s.audioSourceLocked())
		return
	}
	s.preview = true
	s.visualizer.Update(domain.StateLoading, s.audioSourceLocked())
}

// IsPreviewing reports whether PreviewLoading is active.
func (s *PlaybackService) IsPreviewing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

// SetLoop enables or disables restarting the source when it finishes.
func (s *PlaybackService) SetLoop(loop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLooping = loop
}

// IsLooping returns true if loop mode is enabled.
func (s *PlaybackService) IsLooping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLooping
}

// Status returns the current playback status.
func (s *PlaybackService) Status() domain.PlaybackStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Current returns the metadata of the loaded source.
// The boolean is false when nothing is loaded.
func (s *PlaybackService) Current() (domain.SourceInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked(), s.source != nil
}

// audioSourceLocked returns the current source, or an untyped nil.
func (s *PlaybackService) audioSourceLocked() ports.AudioSource {
	if s.source == nil {
		return nil
	}
	return s.source
}

func (s *PlaybackService) infoLocked() domain.SourceInfo {
	if s.source == nil {
		return domain.SourceInfo{}
	}
	return s.source.Info()
}

func (s *PlaybackService) publish(events []domain.Event) {
	for _, e := range events {
		s.bus.Publish(e)
	}
}

// Shutdown stops playback, closes the source and waits for background work.
func (s *PlaybackService) Shutdown() error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	events := s.stopLocked()
	s.closeSourceLocked()
	s.mu.Unlock()

	// Wait without the lock: a completing watcher may be waiting for it.
	s.watchWg.Wait()
	s.publish(events)

	s.logger.Debug("playback service shut down")
	return nil
}

// Verify that PlaybackService implements the expected interface patterns
var _ interface {
	Load(string) error
	LoadAndPlay(string) error
	Play() error
	Pause() error
	TogglePlayPause() error
	Stop() error
	PreviewLoading()
	SetLoop(bool)
	IsLooping() bool
	Status() domain.PlaybackStatus
	Current() (domain.SourceInfo, bool)
	Shutdown() error
} = (*PlaybackService)(nil)
