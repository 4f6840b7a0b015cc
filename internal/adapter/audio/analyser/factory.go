package analyser

import (
	"log/slog"

	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

// Factory creates analysers for sources.
type Factory struct {
	logger *slog.Logger
	cfg    Config
}

// NewFactory creates a factory producing analysers with cfg.
func NewFactory(logger *slog.Logger, cfg Config) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Factory{logger: logger, cfg: cfg}, nil
}

// Config returns the analyser configuration.
func (f *Factory) Config() Config {
	return f.cfg
}

// Acquire attaches a new analyser to source.
func (f *Factory) Acquire(source ports.AudioSource) (ports.AnalysisTap, error) {
	if source == nil {
		return nil, domain.ErrNoSource
	}

	a := newAnalyser(f.logger, f.cfg, source.ID())
	detach, err := source.Attach(a.write)
	if err != nil {
		return nil, domain.NewAudioEngineError("analyse", source.ID(), "failed to attach analyser", err)
	}

	a.mu.Lock()
	a.detach = detach
	a.mu.Unlock()

	f.logger.Debug("analyser attached",
		slog.String("source", source.ID()),
		slog.Int("fft_size", f.cfg.FFTSize))

	return a, nil
}

// Verify that Factory implements the TapFactory interface
var _ ports.TapFactory = (*Factory)(nil)
