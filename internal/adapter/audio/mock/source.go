// Package mock provides in-memory implementations of the audio ports.
// They are used for testing services without decoders, devices or an FFT.
package mock

import (
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

// Source is a synthetic StreamSource.
// Samples reach listeners only through Emit; Read serves whatever PCM was set with SetPCM.
//
// Thread-safety: This implementation is thread-safe.
type Source struct {
	id         string
	sampleRate int
	channels   int

	mu        sync.Mutex
	logger    *slog.Logger
	info      domain.SourceInfo
	pcm       []byte
	offset    int
	listeners map[uint64]ports.SampleListener
	nextID    uint64
	closed    bool

	// Counters (for testing lifecycle)
	attaches int
	detaches int
	closes   int
}

// NewSource creates an open stereo 44.1 kHz source with a random ID.
func NewSource(title string) *Source {
	id := uuid.NewString()
	return &Source{
		id:         id,
		sampleRate: 44100,
		channels:   2,
		info: domain.SourceInfo{
			ID:         id,
			Title:      title,
			SampleRate: 44100,
			Channels:   2,
		},
		listeners: make(map[uint64]ports.SampleListener),
	}
}

// SetLogger sets the logger for this source.
func (s *Source) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// SetPCM sets the 16-bit little-endian bytes served by Read and rewinds.
func (s *Source) SetPCM(pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pcm = pcm
	s.offset = 0
}

// ID returns the source identifier.
func (s *Source) ID() string { return s.id }

// SampleRate returns the sample rate in Hz.
func (s *Source) SampleRate() int { return s.sampleRate }

// Channels returns the channel count.
func (s *Source) Channels() int { return s.channels }

// Info returns display metadata.
func (s *Source) Info() domain.SourceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Attach registers a listener.
func (s *Source) Attach(listener ports.SampleListener) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, domain.ErrSourceClosed
	}

	s.nextID++
	id := s.nextID
	s.listeners[id] = listener
	s.attaches++

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.listeners[id]; ok {
				delete(s.listeners, id)
				s.detaches++
			}
		})
	}, nil
}

// Emit delivers samples to every attached listener, as an output pulling audio would.
func (s *Source) Emit(samples []float32) {
	s.mu.Lock()
	listeners := make([]ports.SampleListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	channels := s.channels
	s.mu.Unlock()

	for _, l := range listeners {
		l(samples, channels)
	}
}

// Read serves the PCM set with SetPCM.
func (s *Source) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, domain.ErrSourceClosed
	}
	if s.offset >= len(s.pcm) {
		return 0, io.EOF
	}

	n := copy(p, s.pcm[s.offset:])
	s.offset += n
	return n, nil
}

// Rewind seeks back to the start.
func (s *Source) Rewind() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSourceClosed
	}
	s.offset = 0
	return nil
}

// Close drops all listeners.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closes++
	if s.closed {
		return domain.ErrSourceClosed
	}
	s.closed = true
	s.listeners = make(map[uint64]ports.SampleListener)

	if s.logger != nil {
		s.logger.Debug("mock source closed", slog.String("id", s.id))
	}
	return nil
}

// Listeners returns the number of attached listeners.
func (s *Source) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Attaches returns how many listeners were ever attached.
func (s *Source) Attaches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attaches
}

// Detaches returns how many listeners were detached.
func (s *Source) Detaches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detaches
}

// Closes returns how many times Close was called.
func (s *Source) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// IsClosed reports whether Close was called.
func (s *Source) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Verify that Source implements the StreamSource interface
var _ ports.StreamSource = (*Source)(nil)
