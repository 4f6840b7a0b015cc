package mock

import (
	"sync"

	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

// Output is a mock AudioOutput. It never reads from the source;
// tests end a playback with Playback.Finish.
//
// Thread-safety: This implementation is thread-safe.
type Output struct {
	mu        sync.Mutex
	failStart bool
	closed    bool
	playbacks []*Playback
}

// NewOutput creates a new mock output.
func NewOutput() *Output {
	return &Output{}
}

// SetFailStart configures the mock to fail starting playback (for testing).
func (o *Output) SetFailStart(fail bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failStart = fail
}

// Start records the source and returns a running playback.
func (o *Output) Start(source ports.StreamSource) (ports.Playback, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, domain.ErrNotInitialized
	}
	if o.failStart {
		return nil, domain.NewAudioEngineError("play", source.Info().Path, "mock playback failed", domain.ErrPlaybackFailed)
	}

	p := &Playback{source: source, done: make(chan struct{})}
	o.playbacks = append(o.playbacks, p)
	return p, nil
}

// Close marks the output closed.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

// Last returns the most recently started playback, or nil.
func (o *Output) Last() *Playback {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.playbacks) == 0 {
		return nil
	}
	return o.playbacks[len(o.playbacks)-1]
}

// Started returns how many playbacks were started.
func (o *Output) Started() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.playbacks)
}

// Playback is a mock running playback.
type Playback struct {
	source ports.StreamSource

	mu       sync.Mutex
	paused   bool
	closed   bool
	finished bool
	done     chan struct{}
}

// Pause pauses the playback.
func (p *Playback) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

// Resume resumes the playback.
func (p *Playback) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
}

// Paused reports whether the playback is paused.
func (p *Playback) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Done is closed by Finish.
func (p *Playback) Done() <-chan struct{} {
	return p.done
}

// Finish simulates the source running out.
func (p *Playback) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.finished {
		p.finished = true
		close(p.done)
	}
}

// Close stops the playback.
func (p *Playback) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (p *Playback) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Source returns the source the playback was started with.
func (p *Playback) Source() ports.StreamSource {
	return p.source
}

// Verify interface implementations
var (
	_ ports.AudioOutput = (*Output)(nil)
	_ ports.Playback    = (*Playback)(nil)
)
