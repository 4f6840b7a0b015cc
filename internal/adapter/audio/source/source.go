// Package source decodes audio files into StreamSources.
//
// A Source is a tee: every block of PCM an output pulls through Read is also
// converted to float32 and handed to the attached listeners, which is how
// analysis taps observe the signal without changing it.
package source

import (
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

// Source is a decoded audio file.
//
// Thread-safety: Read is meant for a single consumer (the output);
// Attach, detach, Info and Close are safe from any goroutine.
type Source struct {
	logger *slog.Logger
	info   domain.SourceInfo
	file   *os.File
	dec    decoder

	// frame is the interleaved frame size in bytes; carry holds a partial frame between reads.
	frame   int
	carry   []byte
	samples []float32

	mu        sync.Mutex
	readMu    sync.Mutex
	listeners map[uint64]ports.SampleListener
	nextID    uint64
	closed    bool
}

func newSource(logger *slog.Logger, info domain.SourceInfo, file *os.File, dec decoder) *Source {
	return &Source{
		logger:    logger,
		info:      info,
		file:      file,
		dec:       dec,
		frame:     dec.Channels() * 2,
		listeners: make(map[uint64]ports.SampleListener),
	}
}

// ID returns the source identifier.
func (s *Source) ID() string { return s.info.ID }

// SampleRate returns the PCM sample rate in Hz.
func (s *Source) SampleRate() int { return s.dec.SampleRate() }

// Channels returns the number of interleaved channels.
func (s *Source) Channels() int { return s.dec.Channels() }

// Info returns display metadata.
func (s *Source) Info() domain.SourceInfo { return s.info }

// Attach registers a passthrough listener.
func (s *Source) Attach(listener ports.SampleListener) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, domain.ErrSourceClosed
	}

	s.nextID++
	id := s.nextID
	s.listeners[id] = listener

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
		})
	}, nil
}

// Read pulls PCM from the decoder and mirrors whole frames to the listeners.
func (s *Source) Read(p []byte) (int, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, domain.ErrSourceClosed
	}

	n, err := s.dec.Read(p)
	if n > 0 {
		s.tee(p[:n])
	}
	return n, err
}

func (s *Source) tee(pcm []byte) {
	s.mu.Lock()
	listeners := make([]ports.SampleListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	if len(listeners) == 0 {
		s.carry = s.carry[:0]
		return
	}

	data := pcm
	if len(s.carry) > 0 {
		data = append(s.carry, pcm...)
	}
	whole := len(data) - len(data)%s.frame

	count := whole / 2
	if cap(s.samples) < count {
		s.samples = make([]float32, count)
	}
	samples := s.samples[:count]
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(data[i*2:]))) / 32768
	}
	s.carry = append(s.carry[:0], data[whole:]...)

	channels := s.Channels()
	for _, l := range listeners {
		l(samples, channels)
	}
}

// Rewind seeks back to the start of the PCM stream.
func (s *Source) Rewind() error {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	if err := s.dec.Rewind(); err != nil {
		return domain.NewAudioEngineError("rewind", s.info.Path, "failed to seek to start", err)
	}
	s.carry = s.carry[:0]
	return nil
}

// Close releases the file and drops all listeners.
//
// Returns domain.ErrSourceClosed if already closed.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSourceClosed
	}
	s.closed = true
	s.listeners = make(map[uint64]ports.SampleListener)
	s.mu.Unlock()

	s.logger.Debug("source closed", slog.String("id", s.info.ID), slog.String("path", s.info.Path))

	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

// Verify that Source implements the StreamSource interface
var (
	_ ports.StreamSource = (*Source)(nil)
	_ io.Reader          = (*Source)(nil)
)
