// Package tui is the terminal front-end: the bars drawn with block characters
// by a Bubble Tea program.
package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

// DefaultRows is the height of the bars in terminal lines.
const DefaultRows = 12

// Options configures the terminal view.
type Options struct {
	// Rows is the height of the bars in lines (DefaultRows if zero)
	Rows int

	// ProgramOptions are passed to tea.NewProgram (alt screen, custom input/output, ...)
	ProgramOptions []tea.ProgramOption
}

// snapshot is the latest state pushed by the presenter.
type snapshot struct {
	levels   domain.Levels
	state    domain.VisualizerState
	info     domain.SourceInfo
	status   domain.PlaybackStatus
	errTitle string
	errText  string
	errSeq   uint64
}

// View implements ports.BarsView on top of a Bubble Tea program.
//
// Setters never block: they overwrite the latest snapshot and wake the program,
// which pulls the snapshot on its own goroutine. Snapshots pushed faster than the
// terminal redraws are coalesced. Setters called before Run are kept and shown
// on the first frame.
type View struct {
	logger *slog.Logger
	opts   Options

	mu      sync.Mutex
	snap    snapshot
	notify  chan struct{}
	stopped chan struct{}
	stop    sync.Once
	intents ports.Intents
	program *tea.Program
	quit    bool
}

// New creates a terminal view. Call SetIntents before Run.
func New(logger *slog.Logger, opts Options) *View {
	if opts.Rows <= 0 {
		opts.Rows = DefaultRows
	}
	return &View{
		logger:  logger,
		opts:    opts,
		notify:  make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// SetIntents connects the presenter to this view.
func (v *View) SetIntents(intents ports.Intents) {
	v.mu.Lock()
	v.intents = intents
	v.mu.Unlock()
}

// SetLevels paints a bar-height snapshot.
func (v *View) SetLevels(levels domain.Levels) {
	v.update(func(s *snapshot) { s.levels = levels })
}

// SetVisualizerState updates the accessible label.
func (v *View) SetVisualizerState(state domain.VisualizerState) {
	v.update(func(s *snapshot) { s.state = state })
}

// SetSourceInfo shows the loaded track.
func (v *View) SetSourceInfo(info domain.SourceInfo) {
	v.update(func(s *snapshot) { s.info = info })
}

// SetPlaybackStatus updates the status line.
func (v *View) SetPlaybackStatus(status domain.PlaybackStatus) {
	v.update(func(s *snapshot) { s.status = status })
}

// ShowError shows message under the bars until the next key press.
func (v *View) ShowError(title, message string) {
	v.update(func(s *snapshot) {
		s.errTitle = title
		s.errText = message
		s.errSeq++
	})
}

func (v *View) update(fn func(*snapshot)) {
	v.mu.Lock()
	fn(&v.snap)
	v.mu.Unlock()

	select {
	case v.notify <- struct{}{}:
	default:
	}
}

// latest returns a copy of the current snapshot.
func (v *View) latest() snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}

// refreshMsg tells the model a new snapshot is available.
type refreshMsg struct{}

// wait blocks until a setter fires, then asks the model to refresh.
func (v *View) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-v.notify:
			return refreshMsg{}
		case <-v.stopped:
			return nil
		}
	}
}

// Run starts the program and blocks until the user quits or Quit is called.
func (v *View) Run() error {
	v.mu.Lock()
	if v.quit {
		v.mu.Unlock()
		return nil
	}
	p := tea.NewProgram(newModel(v, v.intents, v.opts.Rows), v.opts.ProgramOptions...)
	v.program = p
	v.mu.Unlock()

	v.logger.Debug("terminal view started", slog.Int("rows", v.opts.Rows))

	_, err := p.Run()
	v.stop.Do(func() { close(v.stopped) })

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal view: %w", err)
	}
	return nil
}

// Quit stops the program. Calling Quit before Run makes Run return immediately.
func (v *View) Quit() {
	v.mu.Lock()
	v.quit = true
	p := v.program
	v.mu.Unlock()

	if p != nil {
		p.Quit()
	}
}

// Verify BarsView implementation
var _ ports.BarsView = (*View)(nil)
