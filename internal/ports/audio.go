// Package ports define interfaces for dependency inversion.
// These interfaces allow the visualizer engine to remain independent of audio libraries and UIs.
package ports

import (
	"io"

	"github.com/tejashwikalptaru/audiobars/internal/domain"
)

// SampleListener receives every block of PCM a source renders.
// Samples are interleaved float32 values in [-1, 1].
//
// Listeners are called synchronously from the goroutine that pulls audio out of the source,
// so they must copy what they need and return quickly. They must never modify samples.
type SampleListener func(samples []float32, channels int)

// AudioSource is a caller-owned handle to a playing audio signal.
// The visualizer never closes or otherwise controls a source; it only attaches
// a read-only passthrough listener to it.
//
// Identity is interface equality: two AudioSource values are the same source
// when they compare equal. Implementations should be pointer types.
type AudioSource interface {
	// ID returns a stable identifier used in logs and events.
	ID() string

	// SampleRate returns the PCM sample rate in Hz.
	SampleRate() int

	// Channels returns the number of interleaved channels.
	Channels() int

	// Attach registers a passthrough listener.
	// The returned detach function removes it and is safe to call more than once.
	//
	// Returns domain.ErrSourceClosed if the source is already closed.
	Attach(listener SampleListener) (detach func(), err error)
}

// AnalysisTap is the owned pipeline {listener → frequency analyser → byte buffer}
// attached to one AudioSource.
//
// Implementations must be thread-safe: samples arrive on the audio goroutine while
// ByteFrequencyData is called from the frame goroutine.
type AnalysisTap interface {
	// FrequencyBinCount returns the number of frequency bins (half the FFT size).
	FrequencyBinCount() int

	// ByteFrequencyData copies the current magnitudes, scaled to 0–255, into dst.
	// Only min(len(dst), FrequencyBinCount()) values are written.
	ByteFrequencyData(dst []byte)

	// Disconnect detaches the listener and releases the analysis buffers.
	// Disconnect never closes the source. Calling it twice returns domain.ErrTapDisconnected.
	Disconnect() error
}

// TapFactory creates analysis taps. It is the acquire half of the tap lifecycle;
// AnalysisTap.Disconnect is the release half.
type TapFactory interface {
	// Acquire attaches a new analysis tap to the source.
	Acquire(source AudioSource) (AnalysisTap, error)
}

// StreamSource is an AudioSource that can also be pulled as 16-bit little-endian PCM
// by an audio output. Reading from it is what drives the attached listeners.
type StreamSource interface {
	AudioSource
	io.Reader

	// Info returns display metadata for the source.
	Info() domain.SourceInfo

	// Rewind seeks back to the start of the PCM stream.
	Rewind() error

	// Close releases the decoder and the underlying file.
	// Attached listeners are dropped.
	Close() error
}

// SourceLoader opens audio files as stream sources.
type SourceLoader interface {
	// Open decodes the file at path.
	//
	// Returns domain.ErrUnsupportedFormat for unknown extensions.
	Open(path string) (StreamSource, error)
}

// AudioOutput renders stream sources to a device.
type AudioOutput interface {
	// Start begins pulling PCM from the source and returns a handle to the running playback.
	Start(source StreamSource) (Playback, error)

	// Close releases the output device.
	Close() error
}

// Playback is a running output of one StreamSource.
type Playback interface {
	// Pause stops pulling audio; the position is preserved.
	Pause()

	// Resume continues a paused playback.
	Resume()

	// Paused reports whether playback is paused.
	Paused() bool

	// Done returns a channel that is closed when the source is exhausted.
	Done() <-chan struct{}

	// Close stops the playback. It does not close the source.
	Close() error
}
