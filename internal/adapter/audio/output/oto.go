// Package output renders stream sources to the default audio device through oto.
package output

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

// oto allows one context per process, fixed to the format it was created with.
var (
	globalCtx       *oto.Context
	ctxOnce         sync.Once
	ctxErr          error
	ctxSampleRate   int
	ctxChannelCount int
)

func initOto(sampleRate, channels int) (*oto.Context, error) {
	ctxOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		globalCtx, ready, ctxErr = oto.NewContext(op)
		if ctxErr == nil {
			<-ready
			ctxSampleRate = sampleRate
			ctxChannelCount = channels
		}
	})
	if ctxErr != nil {
		return nil, ctxErr
	}
	if sampleRate != ctxSampleRate || channels != ctxChannelCount {
		return nil, fmt.Errorf("%w: device opened at %d Hz/%d ch, source is %d Hz/%d ch",
			domain.ErrUnsupportedFormat, ctxSampleRate, ctxChannelCount, sampleRate, channels)
	}
	return globalCtx, nil
}

// pollInterval is how often a playback checks whether its source ran out.
const pollInterval = 100 * time.Millisecond

// Output is an AudioOutput backed by the process-wide oto context.
//
// Thread-safety: This implementation is thread-safe.
type Output struct {
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewOutput creates an output. The device is opened on the first Start,
// using that source's sample rate and channel count.
func NewOutput(logger *slog.Logger) *Output {
	return &Output{logger: logger}
}

// Start begins pulling PCM from source.
func (o *Output) Start(source ports.StreamSource) (ports.Playback, error) {
	o.mu.Lock()
	closed := o.closed
	o.mu.Unlock()
	if closed {
		return nil, domain.ErrNotInitialized
	}

	path := source.Info().Path
	ctx, err := initOto(source.SampleRate(), source.Channels())
	if err != nil {
		return nil, domain.NewAudioEngineError("play", path, "failed to open audio device", err)
	}

	reader := &eofReader{r: source}
	player := ctx.NewPlayer(reader)
	player.Play()

	p := &Playback{
		logger: o.logger,
		player: player,
		reader: reader,
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.monitor()

	o.logger.Debug("playback started",
		slog.String("source", source.ID()),
		slog.Int("sample_rate", source.SampleRate()))

	return p, nil
}

// Close marks the output closed. The device itself stays open for the process lifetime.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

// eofReader records when the wrapped reader is exhausted.
type eofReader struct {
	r   io.Reader
	eof atomic.Bool
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil {
		if errors.Is(err, io.EOF) {
			e.eof.Store(true)
		}
		// A closed source ends the stream the same way.
		if errors.Is(err, domain.ErrSourceClosed) {
			e.eof.Store(true)
			err = io.EOF
		}
	}
	return n, err
}

// Playback is a running oto player.
type Playback struct {
	logger *slog.Logger
	player *oto.Player
	reader *eofReader

	mu       sync.Mutex
	paused   bool
	closed   bool
	finished bool
	done     chan struct{}
	stop     chan struct{}
	wg       sync.WaitGroup
}

func (p *Playback) monitor() {
	defer p.wg.Done()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			paused := p.paused
			p.mu.Unlock()

			if !paused && p.reader.eof.Load() && !p.player.IsPlaying() {
				if err := p.player.Err(); err != nil {
					p.logger.Warn("playback ended with error", slog.Any("error", err))
				}
				p.mu.Lock()
				p.finished = true
				close(p.done)
				p.mu.Unlock()
				return
			}
		}
	}
}

// Pause stops pulling audio.
func (p *Playback) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.paused {
		return
	}
	p.player.Pause()
	p.paused = true
}

// Resume continues a paused playback.
func (p *Playback) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || !p.paused {
		return
	}
	p.player.Play()
	p.paused = false
}

// Paused reports whether playback is paused.
func (p *Playback) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Done is closed once the source is exhausted and the device buffer has drained.
func (p *Playback) Done() <-chan struct{} {
	return p.done
}

// Close stops the player and the monitor. The source is left open.
func (p *Playback) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stop)
	p.wg.Wait()

	p.player.Pause()
	return p.player.Close()
}

// Verify interface implementations
var (
	_ ports.AudioOutput = (*Output)(nil)
	_ ports.Playback    = (*Playback)(nil)
)
