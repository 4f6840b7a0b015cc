package presenter

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/audiobars/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/logger"
	"github.com/tejashwikalptaru/audiobars/internal/testutil"
)

// fakeView records everything the presenter paints.
type fakeView struct {
	mu     sync.Mutex
	levels []domain.Levels
	states []domain.VisualizerState
	status []domain.PlaybackStatus
	info   domain.SourceInfo
	errors []string
}

func (v *fakeView) SetLevels(levels domain.Levels) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.levels = append(v.levels, levels)
}

func (v *fakeView) SetVisualizerState(state domain.VisualizerState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.states = append(v.states, state)
}

func (v *fakeView) SetSourceInfo(info domain.SourceInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.info = info
}

func (v *fakeView) SetPlaybackStatus(status domain.PlaybackStatus) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status = append(v.status, status)
}

func (v *fakeView) ShowError(title, message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errors = append(v.errors, title+": "+message)
}

func (v *fakeView) Run() error { return nil }
func (v *fakeView) Quit()      {}

func (v *fakeView) errorCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.errors)
}

// fakePlayer is a scriptable Player.
type fakePlayer struct {
	mu       sync.Mutex
	status   domain.PlaybackStatus
	info     domain.SourceInfo
	loaded   bool
	opened   []string
	toggles  int
	stops    int
	previews int
	err      error
	release  chan struct{}
}

func (p *fakePlayer) LoadAndPlay(path string) error {
	if p.release != nil {
		<-p.release
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened = append(p.opened, path)
	return p.err
}

func (p *fakePlayer) TogglePlayPause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toggles++
	return p.err
}

func (p *fakePlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	return nil
}

func (p *fakePlayer) PreviewLoading() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.previews++
}

func (p *fakePlayer) Status() domain.PlaybackStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *fakePlayer) Current() (domain.SourceInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info, p.loaded
}

func (p *fakePlayer) openedPaths() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.opened...)
}

type fakeVisualizer struct{}

func (fakeVisualizer) Levels() domain.Levels          { return domain.Uniform(12, 14) }
func (fakeVisualizer) State() domain.VisualizerState { return domain.StateIdle }

func newTestPresenter(player *fakePlayer) (*Presenter, *fakeView, *eventbus.SyncEventBus) {
	bus := eventbus.NewSyncEventBus()
	view := &fakeView{}
	p := NewPresenter(logger.NewTestLogger(), player, fakeVisualizer{}, bus, view)
	return p, view, bus
}

func TestPresenter_SyncsInitialState(t *testing.T) {
	player := &fakePlayer{
		status: domain.StatusPaused,
		info:   domain.SourceInfo{ID: "x", Title: "Song"},
		loaded: true,
	}
	p, view, _ := newTestPresenter(player)
	defer p.Shutdown()

	require.Len(t, view.levels, 1)
	assert.Equal(t, domain.Uniform(12, 14), view.levels[0])
	assert.Equal(t, []domain.VisualizerState{domain.StateIdle}, view.states)
	assert.Equal(t, []domain.PlaybackStatus{domain.StatusPaused}, view.status)
	assert.Equal(t, "Song", view.info.Title)
}

func TestPresenter_ForwardsEvents(t *testing.T) {
	p, view, bus := newTestPresenter(&fakePlayer{})
	defer p.Shutdown()

	bus.Publish(domain.NewLevelsUpdatedEvent(domain.StatePlaying, domain.Levels{10, 55, 100, 33}, 1))
	bus.Publish(domain.NewVisualizerStateChangedEvent(domain.StateIdle, domain.StateLoading, ""))
	bus.Publish(domain.NewSourceLoadedEvent(domain.SourceInfo{ID: "a", Title: "Loaded"}))
	bus.Publish(domain.NewStatusChangedEvent(domain.StatusStopped, domain.StatusPlaying,
		domain.SourceInfo{ID: "a", Title: "Playing"}))

	assert.Equal(t, domain.Levels{10, 55, 100, 33}, view.levels[len(view.levels)-1])
	assert.Equal(t, domain.StateLoading, view.states[len(view.states)-1])
	assert.Equal(t, domain.StatusPlaying, view.status[len(view.status)-1])
	assert.Equal(t, "Playing", view.info.Title)
}

func TestPresenter_LoadingStatusKeepsSourceInfo(t *testing.T) {
	p, view, bus := newTestPresenter(&fakePlayer{})
	defer p.Shutdown()

	bus.Publish(domain.NewSourceLoadedEvent(domain.SourceInfo{ID: "a", Title: "Old"}))
	bus.Publish(domain.NewStatusChangedEvent(domain.StatusStopped, domain.StatusLoading, domain.SourceInfo{}))

	assert.Equal(t, "Old", view.info.Title)
}

func TestPresenter_SourceErrorShowsDialog(t *testing.T) {
	p, view, bus := newTestPresenter(&fakePlayer{})
	defer p.Shutdown()

	bus.Publish(domain.NewSourceErrorEvent("/a.ogg",
		domain.NewAudioEngineError("open", "/a.ogg", "unsupported file type", domain.ErrUnsupportedFormat)))

	require.Len(t, view.errors, 1)
	assert.Contains(t, view.errors[0], "/a.ogg is not a supported audio file")
}

func TestPresenter_OnOpenRunsInBackground(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	player := &fakePlayer{release: make(chan struct{})}
	p, _, _ := newTestPresenter(player)

	p.OnOpen("/music/a.mp3")
	assert.Empty(t, player.openedPaths(), "OnOpen must not block the caller")

	close(player.release)
	require.Eventually(t, func() bool { return len(player.openedPaths()) == 1 }, time.Second, time.Millisecond)

	p.Shutdown()
	p.OnOpen("/music/b.mp3")
	assert.Equal(t, []string{"/music/a.mp3"}, player.openedPaths(), "no opens after shutdown")
}

func TestPresenter_OnPlayPause(t *testing.T) {
	player := &fakePlayer{}
	p, view, _ := newTestPresenter(player)
	defer p.Shutdown()

	p.OnPlayPause()
	assert.Equal(t, 1, player.toggles)
	assert.Zero(t, view.errorCount())

	player.err = domain.ErrNoTrackLoaded
	p.OnPlayPause()
	assert.Equal(t, 1, view.errorCount())

	player.err = errors.New("device gone")
	p.OnPlayPause()
	assert.Equal(t, 1, view.errorCount(), "output failures arrive as SourceError events")
}

func TestPresenter_OnStopAndPreview(t *testing.T) {
	player := &fakePlayer{}
	p, _, _ := newTestPresenter(player)
	defer p.Shutdown()

	p.OnStop()
	p.OnPreviewLoading()

	assert.Equal(t, 1, player.stops)
	assert.Equal(t, 1, player.previews)
}

func TestPresenter_ShutdownUnsubscribes(t *testing.T) {
	p, view, bus := newTestPresenter(&fakePlayer{})
	p.Shutdown()
	p.Shutdown()

	before := len(view.levels)
	bus.Publish(domain.NewLevelsUpdatedEvent(domain.StateIdle, domain.Uniform(12, 14), 1))

	assert.Len(t, view.levels, before)
	assert.Zero(t, bus.SubscriberCount())
}
