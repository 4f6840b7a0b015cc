// Package fyne is the desktop front-end: a window with the bars, the track title
// and transport controls.
package fyne

import (
	"fmt"
	"log/slog"
	"sync"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/tejashwikalptaru/audiobars/internal/adapter/ui/fyne/widgets"
	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

// Window defaults.
const (
	AppName = "audiobars"
	WIDTH   = 640
	HEIGHT  = 360
)

// Options configures the main window.
type Options struct {
	// FPS is the rate SetLevels is called at; it tunes the bar easing
	FPS int

	// Smooth eases bars towards each snapshot instead of jumping
	Smooth bool

	// Extensions limits the open dialog to these file types (".mp3", ...)
	Extensions []string
}

// MainWindow is the main UI window implementing the ports.BarsView interface.
//
// The MainWindow follows the MVP pattern:
// - It's a "dumb view" that just displays data
// - All logic is in the Presenter
// - User interactions are forwarded to the Presenter as intents
//
// Every BarsView method may be called from any goroutine; widget updates are
// hopped onto the Fyne goroutine with fyne.Do.
type MainWindow struct {
	app    fyneapp.App
	window fyneapp.Window
	logger *slog.Logger
	opts   Options

	// UI components
	bars          *widgets.Bars
	stateLabel    *widget.Label
	songInfo      *widget.Label
	playButton    *widget.Button
	stopButton    *widget.Button
	previewButton *widget.Button

	// Lifecycle management
	closeOnce sync.Once

	// Intents (set after construction)
	intents ports.Intents
}

// NewMainWindow creates a new main window.
func NewMainWindow(app fyneapp.App, logger *slog.Logger, opts Options) *MainWindow {
	w := &MainWindow{
		app:    app,
		logger: logger,
		opts:   opts,
	}

	w.window = app.NewWindow(AppName)
	w.buildUI()

	w.window.Resize(fyneapp.NewSize(WIDTH, HEIGHT))

	return w
}

// SetIntents connects the presenter to this view.
// This must be called before Run.
func (w *MainWindow) SetIntents(intents ports.Intents) {
	w.intents = intents
	w.wireIntents()
	w.addShortcuts()
}

// buildUI constructs the UI components.
func (w *MainWindow) buildUI() {
	w.bars = widgets.NewBars(w.opts.FPS, w.opts.Smooth)

	w.stateLabel = widget.NewLabel(domain.StateIdle.Label())
	w.stateLabel.Alignment = fyneapp.TextAlignTrailing

	w.songInfo = widget.NewLabel("No track loaded")
	w.songInfo.Truncation = fyneapp.TextTruncateEllipsis
	w.songInfo.TextStyle = fyneapp.TextStyle{
		Bold:   true,
		Italic: true,
	}

	w.playButton = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), nil)
	w.stopButton = widget.NewButtonWithIcon("", theme.MediaStopIcon(), nil)
	w.previewButton = widget.NewButtonWithIcon("", theme.ViewRefreshIcon(), nil)
	w.stopButton.Disable()

	buttons := container.NewHBox(w.playButton, w.stopButton, w.previewButton)
	controls := container.NewBorder(nil, nil, buttons, w.stateLabel, w.songInfo)

	content := container.NewBorder(nil, controls, nil, nil, w.bars)
	w.window.SetContent(container.NewPadded(content))

	w.window.SetMainMenu(fyneapp.NewMainMenu(w.createMenu()...))
}

// wireIntents connects UI events to presenter intents.
func (w *MainWindow) wireIntents() {
	if w.intents == nil {
		return
	}

	w.playButton.OnTapped = w.tapped(ports.Intents.OnPlayPause)
	w.stopButton.OnTapped = w.tapped(ports.Intents.OnStop)
	w.previewButton.OnTapped = w.tapped(ports.Intents.OnPreviewLoading)
}

// tapped returns a button handler that drops keyboard focus, so Space reaches
// the window shortcut only, and then runs the intent.
func (w *MainWindow) tapped(fn func(ports.Intents)) func() {
	return func() {
		w.window.Canvas().Unfocus()
		w.intent(fn)
	}
}

// intent runs fn off the Fyne goroutine. Starting playback can block on the
// audio device, and the presenter calls back into this window with fyne.Do.
func (w *MainWindow) intent(fn func(ports.Intents)) {
	if w.intents == nil {
		return
	}
	intents := w.intents
	go fn(intents)
}

// createMenu creates the application menu.
func (w *MainWindow) createMenu() []*fyneapp.Menu {
	openFile := fyneapp.NewMenuItem("Open", w.handleOpenFile)

	preview := fyneapp.NewMenuItem("Preview Loading", func() {
		w.intent(ports.Intents.OnPreviewLoading)
	})

	exitMenu := fyneapp.NewMenuItem("Exit", func() {
		w.window.Close()
	})

	return []*fyneapp.Menu{
		fyneapp.NewMenu("File", openFile, fyneapp.NewMenuItemSeparator(), exitMenu),
		fyneapp.NewMenu("View", preview),
	}
}

// handleOpenFile handles the "Open" menu action.
func (w *MainWindow) handleOpenFile() {
	if w.intents == nil {
		return
	}

	NewFileDialog(w.window, w.opts.Extensions, func(path string) {
		w.intent(func(i ports.Intents) { i.OnOpen(path) })
	}, w.logger).Show()
}

// addShortcuts adds keyboard shortcuts.
func (w *MainWindow) addShortcuts() {
	w.window.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyneapp.KeyO,
		Modifier: fyneapp.KeyModifierShortcutDefault,
	}, func(fyneapp.Shortcut) {
		w.handleOpenFile()
	})

	w.window.Canvas().SetOnTypedKey(func(ev *fyneapp.KeyEvent) {
		switch ev.Name {
		case fyneapp.KeySpace:
			w.intent(ports.Intents.OnPlayPause)
		case fyneapp.KeyL:
			w.intent(ports.Intents.OnPreviewLoading)
		case fyneapp.KeyS:
			w.intent(ports.Intents.OnStop)
		}
	})
}

// Run shows the window and blocks until it is closed.
func (w *MainWindow) Run() error {
	w.window.ShowAndRun()
	w.bars.Stop()
	return nil
}

// Quit closes the window and stops the app.
// It's safe to call multiple times (idempotent).
func (w *MainWindow) Quit() {
	w.closeOnce.Do(func() {
		fyneapp.Do(w.app.Quit)
	})
}

// BarsView interface implementation

// SetLevels paints a bar-height snapshot.
func (w *MainWindow) SetLevels(levels domain.Levels) {
	fyneapp.Do(func() {
		w.bars.SetLevels(levels)
	})
}

// SetVisualizerState updates the accessible label next to the bars.
func (w *MainWindow) SetVisualizerState(state domain.VisualizerState) {
	fyneapp.Do(func() {
		w.stateLabel.SetText(state.Label())
	})
}

// SetSourceInfo updates the displayed track information.
func (w *MainWindow) SetSourceInfo(info domain.SourceInfo) {
	text := trackText(info)
	fyneapp.Do(func() {
		w.songInfo.SetText(text)
		w.window.SetTitle(windowTitle(info))
	})
}

// SetPlaybackStatus updates the transport buttons.
func (w *MainWindow) SetPlaybackStatus(status domain.PlaybackStatus) {
	fyneapp.Do(func() {
		if status == domain.StatusPlaying {
			w.playButton.SetIcon(theme.MediaPauseIcon())
		} else {
			w.playButton.SetIcon(theme.MediaPlayIcon())
		}

		if status == domain.StatusLoading {
			w.playButton.Disable()
		} else {
			w.playButton.Enable()
		}

		if status == domain.StatusPlaying || status == domain.StatusPaused {
			w.stopButton.Enable()
		} else {
			w.stopButton.Disable()
		}
	})
}

// ShowError displays an error dialog.
func (w *MainWindow) ShowError(title, message string) {
	fyneapp.Do(func() {
		dialog.ShowInformation(title, message, w.window)
	})
}

// trackText formats "Artist - Title", falling back to the title alone.
func trackText(info domain.SourceInfo) string {
	switch {
	case info.Artist != "" && info.Title != "":
		return fmt.Sprintf("%s - %s", info.Artist, info.Title)
	case info.Title != "":
		return info.Title
	default:
		return "No track loaded"
	}
}

func windowTitle(info domain.SourceInfo) string {
	if info.Title == "" {
		return AppName
	}
	return fmt.Sprintf("%s - %s", info.Title, AppName)
}

// Verify BarsView implementation
var _ ports.BarsView = (*MainWindow)(nil)
