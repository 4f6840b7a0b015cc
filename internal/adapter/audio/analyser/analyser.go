// Package analyser provides a frequency analyser tap modeled on the WebAudio AnalyserNode.
// It keeps the most recent FFTSize mono samples of a source, and on demand applies a Blackman
// window, takes the FFT, smooths magnitudes over time and maps decibels to bytes.
package analyser

import (
	"log/slog"
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

// Analyser defaults, matching the reference player.
const (
	DefaultFFTSize     = 256
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0

	minFFTSize = 32
	maxFFTSize = 32768
)

// Config holds the analyser parameters.
type Config struct {
	// FFTSize is the analysis window in samples; a power of two between 32 and 32768
	FFTSize int

	// Smoothing blends each magnitude with the previous one (0 = none, <1)
	Smoothing float64

	// MinDecibels maps to byte 0, MaxDecibels to byte 255
	MinDecibels float64
	MaxDecibels float64
}

// DefaultConfig returns the reference analyser configuration.
func DefaultConfig() Config {
	return Config{
		FFTSize:     DefaultFFTSize,
		Smoothing:   DefaultSmoothing,
		MinDecibels: DefaultMinDecibels,
		MaxDecibels: DefaultMaxDecibels,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.FFTSize < minFFTSize || c.FFTSize > maxFFTSize || c.FFTSize&(c.FFTSize-1) != 0 {
		return domain.ErrInvalidFFTSize
	}
	if c.Smoothing < 0 || c.Smoothing >= 1 {
		return domain.NewValidationError("Smoothing", c.Smoothing, "must be in [0, 1)")
	}
	if c.MinDecibels >= c.MaxDecibels {
		return domain.NewValidationError("MinDecibels", c.MinDecibels, "must be below MaxDecibels")
	}
	return nil
}

// Analyser is an AnalysisTap attached to one source.
//
// Thread-safety: samples are written from the audio goroutine while
// ByteFrequencyData is read from the frame goroutine; both take mu.
type Analyser struct {
	cfg      Config
	window   []float64
	sourceID string
	logger   *slog.Logger

	mu           sync.Mutex
	ring         []float64 // mono time-domain samples, oldest at pos
	pos          int
	frame        []float64 // windowed copy handed to the FFT
	smoothed     []float64
	detach       func()
	disconnected bool
}

func newAnalyser(logger *slog.Logger, cfg Config, sourceID string) *Analyser {
	return &Analyser{
		cfg:      cfg,
		window:   blackman(cfg.FFTSize),
		sourceID: sourceID,
		logger:   logger,
		ring:     make([]float64, cfg.FFTSize),
		frame:    make([]float64, cfg.FFTSize),
		smoothed: make([]float64, cfg.FFTSize/2),
	}
}

// blackman returns the window used by AnalyserNode (alpha = 0.16).
func blackman(n int) []float64 {
	const (
		a0 = 0.42
		a1 = 0.5
		a2 = 0.08
	)
	w := make([]float64, n)
	for i := range w {
		x := 2 * math.Pi * float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x)
	}
	return w
}

// write downmixes interleaved samples to mono and appends them to the ring.
func (a *Analyser) write(samples []float32, channels int) {
	if channels <= 0 {
		channels = 1
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.disconnected {
		return
	}

	n := len(a.ring)
	for i := 0; i+channels <= len(samples); i += channels {
		sum := 0.0
		for c := range channels {
			sum += float64(samples[i+c])
		}
		a.ring[a.pos] = sum / float64(channels)
		a.pos = (a.pos + 1) % n
	}
}

// FrequencyBinCount returns half the FFT size.
func (a *Analyser) FrequencyBinCount() int {
	return a.cfg.FFTSize / 2
}

// ByteFrequencyData writes the current spectrum, scaled to 0–255, into dst.
// A disconnected analyser reports silence.
func (a *Analyser) ByteFrequencyData(dst []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.disconnected {
		clear(dst)
		return
	}

	n := len(a.ring)
	for i := range n {
		a.frame[i] = a.ring[(a.pos+i)%n] * a.window[i]
	}
	spectrum := fft.FFTReal(a.frame)

	tau := a.cfg.Smoothing
	scale := 255 / (a.cfg.MaxDecibels - a.cfg.MinDecibels)
	count := min(len(dst), len(a.smoothed))

	for k := range a.smoothed {
		magnitude := cmplx.Abs(spectrum[k]) / float64(n)
		a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*magnitude
		if k >= count {
			continue
		}
		dst[k] = toByte(a.smoothed[k], a.cfg.MinDecibels, scale)
	}
}

func toByte(magnitude, minDecibels, scale float64) byte {
	if magnitude <= 0 {
		return 0
	}
	db := 20 * math.Log10(magnitude)
	v := math.Floor(scale * (db - minDecibels))
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return byte(v)
	}
}

// Disconnect detaches the analyser from its source. The source stays open.
func (a *Analyser) Disconnect() error {
	a.mu.Lock()
	if a.disconnected {
		a.mu.Unlock()
		return domain.ErrTapDisconnected
	}
	a.disconnected = true
	detach := a.detach
	a.detach = nil
	a.ring = nil
	a.mu.Unlock()

	// Detach outside mu: the source may be delivering samples to write right now.
	if detach != nil {
		detach()
	}

	a.logger.Debug("analyser disconnected", slog.String("source", a.sourceID))
	return nil
}

// Verify that Analyser implements the AnalysisTap interface
var _ ports.AnalysisTap = (*Analyser)(nil)
