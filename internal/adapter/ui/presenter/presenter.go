// Package presenter connects the services to a BarsView (MVP architecture).
// It is shared by every front-end.
package presenter

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

// Player is the part of PlaybackService the presenter drives.
type Player interface {
	LoadAndPlay(path string) error
	TogglePlayPause() error
	Stop() error
	PreviewLoading()
	Status() domain.PlaybackStatus
	Current() (domain.SourceInfo, bool)
}

// Visualizer is the read side of VisualizerService.
type Visualizer interface {
	Levels() domain.Levels
	State() domain.VisualizerState
}

// Presenter coordinates between services and a view, handling all event-driven updates.
//
// Responsibilities:
// - Subscribe to events from the event bus
// - Map domain events to view updates
// - Translate user intents to service calls
//
// Event handlers may run while a service holds its lock, so they only touch the view.
type Presenter struct {
	// Dependencies
	logger     *slog.Logger
	player     Player
	visualizer Visualizer
	bus        ports.EventBus
	view       ports.BarsView

	// Concurrency control
	mu            sync.Mutex
	subscriptions []domain.SubscriptionID
	pending       sync.WaitGroup
	closed        bool
	shutdownOnce  sync.Once
}

// NewPresenter creates a presenter and syncs the view with the current state.
func NewPresenter(
	logger *slog.Logger,
	player Player,
	visualizer Visualizer,
	bus ports.EventBus,
	view ports.BarsView,
) *Presenter {
	p := &Presenter{
		logger:     logger,
		player:     player,
		visualizer: visualizer,
		bus:        bus,
		view:       view,
	}

	p.subscribeToEvents()
	p.syncInitialState()

	return p
}

// subscribeToEvents subscribes to all relevant events from the event bus.
func (p *Presenter) subscribeToEvents() {
	subscriptions := map[domain.EventType]domain.EventHandler{
		// Visualizer events
		domain.EventLevelsUpdated:          p.onLevelsUpdated,
		domain.EventVisualizerStateChanged: p.onVisualizerStateChanged,

		// Playback events
		domain.EventStatusChanged: p.onStatusChanged,
		domain.EventSourceLoaded:  p.onSourceLoaded,
		domain.EventSourceError:   p.onSourceError,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for eventType, handler := range subscriptions {
		p.subscriptions = append(p.subscriptions, p.bus.Subscribe(eventType, handler))
	}
}

// syncInitialState pushes the current state to a freshly created view.
func (p *Presenter) syncInitialState() {
	p.view.SetVisualizerState(p.visualizer.State())
	p.view.SetLevels(p.visualizer.Levels())
	p.view.SetPlaybackStatus(p.player.Status())

	if info, ok := p.player.Current(); ok {
		p.view.SetSourceInfo(info)
	}
}

// Event handlers

func (p *Presenter) onLevelsUpdated(event domain.Event) {
	e, ok := event.(domain.LevelsUpdatedEvent)
	if !ok {
		return
	}
	p.view.SetLevels(e.Levels)
}

func (p *Presenter) onVisualizerStateChanged(event domain.Event) {
	e, ok := event.(domain.VisualizerStateChangedEvent)
	if !ok {
		return
	}
	p.view.SetVisualizerState(e.Current)
}

func (p *Presenter) onStatusChanged(event domain.Event) {
	e, ok := event.(domain.StatusChangedEvent)
	if !ok {
		return
	}
	p.view.SetPlaybackStatus(e.Current)
	if e.Current != domain.StatusLoading {
		p.view.SetSourceInfo(e.Info)
	}
}

func (p *Presenter) onSourceLoaded(event domain.Event) {
	e, ok := event.(domain.SourceLoadedEvent)
	if !ok {
		return
	}
	p.view.SetSourceInfo(e.Info)
}

func (p *Presenter) onSourceError(event domain.Event) {
	e, ok := event.(domain.SourceErrorEvent)
	if !ok {
		return
	}
	p.view.ShowError("Playback Error", describe(e.Path, e.Error))
}

func describe(path string, err error) string {
	switch {
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return fmt.Sprintf("%s is not a supported audio file", path)
	case path != "":
		return fmt.Sprintf("Failed to open %s: %v", path, err)
	default:
		return err.Error()
	}
}

// User intents

// OnOpen loads and plays path in the background so the view stays responsive
// and can paint the loading wave. Failures reach the view as SourceError events.
func (p *Presenter) OnOpen(path string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.pending.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.pending.Done()
		if err := p.player.LoadAndPlay(path); err != nil {
			p.logger.Error("open failed", slog.String("path", path), slog.Any("error", err))
		}
	}()
}

// OnPlayPause toggles playback.
func (p *Presenter) OnPlayPause() {
	err := p.player.TogglePlayPause()
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNoTrackLoaded):
		p.view.ShowError("Nothing to play", "Open an audio file first.")
	default:
		// Output failures are already reported through SourceError.
		p.logger.Error("play/pause failed", slog.Any("error", err))
	}
}

// OnStop stops playback.
func (p *Presenter) OnStop() {
	if err := p.player.Stop(); err != nil {
		p.logger.Error("stop failed", slog.Any("error", err))
		p.view.ShowError("Playback Error", fmt.Sprintf("Failed to stop playback: %v", err))
	}
}

// OnPreviewLoading toggles the loading wave while nothing plays.
func (p *Presenter) OnPreviewLoading() {
	p.player.PreviewLoading()
}

// Shutdown unsubscribes from the bus and waits for background opens to finish.
func (p *Presenter) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		subs := p.subscriptions
		p.subscriptions = nil
		p.mu.Unlock()

		for _, id := range subs {
			p.bus.Unsubscribe(id)
		}
		p.pending.Wait()
		p.logger.Debug("presenter shut down")
	})
}

// Verify that Presenter implements the Intents interface
var _ ports.Intents = (*Presenter)(nil)
