// Package ports define the UI interface for view abstraction.
// This interface allows the presenter to update the UI without depending on Fyne or Bubble Tea directly.
package ports

import (
	"github.com/tejashwikalptaru/audiobars/internal/domain"
)

// BarsView is a front-end that paints the bar-height sequence.
//
// The presenter receives events from the event bus and calls these methods.
// Implementations must be safe to call from any goroutine; each front-end
// hops to its own UI thread internally.
type BarsView interface {
	// SetLevels paints a complete bar-height snapshot.
	SetLevels(levels domain.Levels)

	// SetVisualizerState updates the accessible label and any state-dependent styling.
	SetVisualizerState(state domain.VisualizerState)

	// SetSourceInfo shows the title of the loaded source. A zero value clears it.
	SetSourceInfo(info domain.SourceInfo)

	// SetPlaybackStatus updates transport controls (play/pause label, etc.).
	SetPlaybackStatus(status domain.PlaybackStatus)

	// ShowError displays an error to the user.
	ShowError(title, message string)

	// Run starts the UI event loop.
	// This is a blocking call that runs until the user quits.
	Run() error

	// Quit stops the UI event loop.
	Quit()
}

// Intents are the user actions a view forwards to the presenter.
type Intents interface {
	// OnOpen loads and plays the file at path.
	OnOpen(path string)

	// OnPlayPause toggles playback of the loaded source.
	OnPlayPause()

	// OnStop stops playback.
	OnStop()

	// OnPreviewLoading toggles the loading animation without a source.
	OnPreviewLoading()
}
