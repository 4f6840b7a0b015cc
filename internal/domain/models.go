// Package domain contains core visualizer models with no external dependencies.
// This package defines the fundamental entities of the audiobars engine.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// VisualizerState selects which sampling strategy the engine runs.
// It is always supplied by the caller; the engine never transitions on its own.
type VisualizerState int

const (
	// StateIdle renders a flat resting pattern
	StateIdle VisualizerState = iota

	// StateLoading renders a synthetic traveling wave while content is generated
	StateLoading

	// StatePlaying samples real frequency data from a live audio source
	StatePlaying
)

// String returns a human-readable representation of the visualizer state.
func (s VisualizerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Label returns the accessible description shown next to the bars.
func (s VisualizerState) Label() string {
	switch s {
	case StateLoading:
		return "Generating audio"
	case StatePlaying:
		return "Audio level"
	default:
		return "Audio visualizer"
	}
}

// ParseVisualizerState converts "idle", "loading" or "playing" (case-insensitive) to a state.
func ParseVisualizerState(s string) (VisualizerState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "idle":
		return StateIdle, nil
	case "loading":
		return StateLoading, nil
	case "playing":
		return StatePlaying, nil
	default:
		return StateIdle, NewValidationError("state", s, "must be one of idle, loading, playing")
	}
}

// Levels is the bar-height sequence: one percentage in [0,100] per bar.
// A Levels value is replaced as a whole on every frame and never partially updated.
type Levels []int

// Clone returns an independent copy of the levels.
func (l Levels) Clone() Levels {
	if l == nil {
		return nil
	}
	out := make(Levels, len(l))
	copy(out, l)
	return out
}

// Uniform returns n bars all set to height.
func Uniform(n, height int) Levels {
	out := make(Levels, n)
	for i := range out {
		out[i] = height
	}
	return out
}

// Engine defaults.
const (
	DefaultBarCount         = 12
	DefaultIdleHeight       = 14
	DefaultMinHeight        = 10
	DefaultLoadingMin       = 18
	DefaultLoadingMax       = 92
	DefaultLoadingPhaseStep = 0.008
	DefaultFrameRate        = 60

	// MaxFrameRate caps every frame rate so a frame interval is never zero.
	MaxFrameRate = 1000

	// MaxHeight is the ceiling of every bar.
	MaxHeight = 100

	// MaxMagnitude is the largest value of an unsigned 8-bit frequency bin.
	MaxMagnitude = 255
)

// VisualizerConfig holds the numeric constants of the engine.
type VisualizerConfig struct {
	// BarCount is the number of bars (N)
	BarCount int

	// IdleHeight is the flat height of every bar while idle
	IdleHeight int

	// MinHeight is the floor of a playing bar at zero magnitude
	MinHeight int

	// LoadingMin and LoadingMax bound the synthetic loading wave
	LoadingMin int
	LoadingMax int

	// LoadingPhaseStep is the phase advance per frame in radians
	LoadingPhaseStep float64

	// WallClockLoading scales the phase step by the real time elapsed between frames
	// instead of advancing a fixed step per frame.
	WallClockLoading bool

	// ReferenceFrameRate is the frame rate at which one wall-clock step equals LoadingPhaseStep
	ReferenceFrameRate int
}

// DefaultVisualizerConfig returns the reference configuration.
func DefaultVisualizerConfig() VisualizerConfig {
	return VisualizerConfig{
		BarCount:           DefaultBarCount,
		IdleHeight:         DefaultIdleHeight,
		MinHeight:          DefaultMinHeight,
		LoadingMin:         DefaultLoadingMin,
		LoadingMax:         DefaultLoadingMax,
		LoadingPhaseStep:   DefaultLoadingPhaseStep,
		ReferenceFrameRate: DefaultFrameRate,
	}
}

// Validate checks that the configuration describes a drawable set of bars.
func (c VisualizerConfig) Validate() error {
	if c.BarCount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBarCount, c.BarCount)
	}
	for _, h := range []struct {
		field string
		value int
	}{
		{"IdleHeight", c.IdleHeight},
		{"MinHeight", c.MinHeight},
		{"LoadingMin", c.LoadingMin},
		{"LoadingMax", c.LoadingMax},
	} {
		if h.value < 0 || h.value > MaxHeight {
			return NewValidationError(h.field, h.value, "must be between 0 and 100")
		}
	}
	if c.LoadingMin > c.LoadingMax {
		return NewValidationError("LoadingMin", c.LoadingMin, "must not exceed LoadingMax")
	}
	if c.WallClockLoading && c.ReferenceFrameRate <= 0 {
		return NewValidationError("ReferenceFrameRate", c.ReferenceFrameRate, "must be positive")
	}
	return nil
}

// FrameInterval returns the duration of one reference frame.
func (c VisualizerConfig) FrameInterval() time.Duration {
	if c.ReferenceFrameRate <= 0 {
		return time.Second / DefaultFrameRate
	}
	return time.Second / time.Duration(min(c.ReferenceFrameRate, MaxFrameRate))
}

// SourceInfo describes a loaded audio source for display purposes.
type SourceInfo struct {
	// ID is the stable identifier of the source
	ID string

	// Path is the file the source was decoded from (empty for in-memory sources)
	Path string

	// Title is the song title (from metadata or filename)
	Title string

	// Artist is the performing artist name
	Artist string

	// SampleRate is the PCM sample rate in Hz
	SampleRate int

	// Channels is the number of interleaved channels
	Channels int

	// Duration is the total length when known
	Duration time.Duration
}

// PlaybackStatus represents the current playback state of the host player.
type PlaybackStatus int

const (
	// StatusStopped indicates nothing is loaded or playback ended
	StatusStopped PlaybackStatus = iota

	// StatusLoading indicates a source is being opened or decoded
	StatusLoading

	// StatusPlaying indicates playback is active
	StatusPlaying

	// StatusPaused indicates playback is paused
	StatusPaused
)

// String returns a human-readable representation of the playback status.
func (s PlaybackStatus) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusLoading:
		return "loading"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// VisualizerState maps a playback status to the state the visualizer should show.
func (s PlaybackStatus) VisualizerState() VisualizerState {
	switch s {
	case StatusLoading:
		return StateLoading
	case StatusPlaying:
		return StatePlaying
	default:
		return StateIdle
	}
}
