package mock

import (
	"errors"
	"sync"

	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

// TapFactory hands out taps that report a fixed byte spectrum.
// It counts acquisitions and releases so tests can check the tap lifecycle.
//
// Thread-safety: This implementation is thread-safe.
type TapFactory struct {
	mu          sync.Mutex
	bins        int
	data        []byte
	failAcquire error
	acquired    int
	released    int
	sources     []ports.AudioSource
}

// NewTapFactory creates a factory whose taps have the given number of bins, all silent.
func NewTapFactory(bins int) *TapFactory {
	return &TapFactory{
		bins: bins,
		data: make([]byte, bins),
	}
}

// SetData sets the spectrum every live and future tap reports.
// Values beyond the bin count are ignored; missing values read as zero.
func (f *TapFactory) SetData(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = make([]byte, f.bins)
	copy(f.data, data)
}

// SetFailAcquire makes Acquire return err (nil restores normal behavior).
func (f *TapFactory) SetFailAcquire(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAcquire = err
}

// Acquire attaches a listener to source and returns a tap for it.
func (f *TapFactory) Acquire(source ports.AudioSource) (ports.AnalysisTap, error) {
	if source == nil {
		return nil, domain.ErrNoSource
	}

	f.mu.Lock()
	fail := f.failAcquire
	f.mu.Unlock()
	if fail != nil {
		return nil, fail
	}

	detach, err := source.Attach(func([]float32, int) {})
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquired++
	f.sources = append(f.sources, source)

	return &Tap{factory: f, detach: detach}, nil
}

// Acquired returns how many taps were handed out.
func (f *TapFactory) Acquired() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acquired
}

// Released returns how many taps were disconnected.
func (f *TapFactory) Released() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

// Live returns the number of taps not yet disconnected.
func (f *TapFactory) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acquired - f.released
}

// Sources returns the sources taps were acquired for, in order.
func (f *TapFactory) Sources() []ports.AudioSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ports.AudioSource, len(f.sources))
	copy(out, f.sources)
	return out
}

// Tap is a mock AnalysisTap.
type Tap struct {
	factory *TapFactory
	detach  func()

	mu           sync.Mutex
	disconnected bool
	reads        int
}

// FrequencyBinCount returns the factory's bin count.
func (t *Tap) FrequencyBinCount() int {
	return t.factory.bins
}

// ByteFrequencyData copies the factory's current spectrum into dst.
func (t *Tap) ByteFrequencyData(dst []byte) {
	t.mu.Lock()
	t.reads++
	t.mu.Unlock()

	t.factory.mu.Lock()
	defer t.factory.mu.Unlock()
	copy(dst, t.factory.data)
}

// Disconnect detaches the listener.
func (t *Tap) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disconnected {
		return domain.ErrTapDisconnected
	}
	t.disconnected = true
	t.detach()

	t.factory.mu.Lock()
	t.factory.released++
	t.factory.mu.Unlock()
	return nil
}

// Reads returns how many times ByteFrequencyData was called.
func (t *Tap) Reads() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reads
}

// ErrAcquireFailed is a ready-made error for SetFailAcquire.
var ErrAcquireFailed = errors.New("mock: analyser unavailable")

// Verify interface implementations
var (
	_ ports.TapFactory  = (*TapFactory)(nil)
	_ ports.AnalysisTap = (*Tap)(nil)
)
