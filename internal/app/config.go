package app

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"github.com/joho/godotenv"
	"github.com/tejashwikalptaru/audiobars/internal/adapter/audio/analyser"
	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/logger"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

// Front-ends selectable with Config.UI.
const (
	UIFyne = "fyne"
	UITUI  = "tui"
)

// Environment variables read by LoadEnv.
const (
	EnvUI        = "AUDIOBARS_UI"
	EnvBars      = "AUDIOBARS_BARS"
	EnvFPS       = "AUDIOBARS_FPS"
	EnvMockAudio = "AUDIOBARS_MOCK_AUDIO"
)

// Config holds application configuration.
type Config struct {
	// AppID is the unique application identifier
	AppID string

	// AppName is the display name
	AppName string

	// UI selects the front-end: UIFyne or UITUI
	UI string

	// FPS is the frame rate of the scheduler driving the visualizer
	FPS int

	// Visualizer holds the engine constants
	Visualizer domain.VisualizerConfig

	// Analyser configures the frequency analysis taps
	Analyser analyser.Config

	// Smooth eases bars between snapshots in the desktop view
	Smooth bool

	// File is opened and played once the UI is up (empty for none)
	File string

	// Loop restarts the track when it ends
	Loop bool

	// UseMockAudio swaps decoding, output and analysis for in-memory mocks
	UseMockAudio bool

	// LogLevel controls logging verbosity
	LogLevel slog.Level

	// LogOutput receives log lines. Nil means stderr for the desktop UI and
	// a file in the temp directory for the terminal UI.
	LogOutput io.Writer

	// TestFyneApp allows injecting a test Fyne app for testing (nil for production)
	TestFyneApp fyne.App

	// View replaces the selected front-end (nil for production)
	View ports.BarsView
}

// DefaultConfig returns the default application configuration.
func DefaultConfig() Config {
	loggerCfg := logger.DefaultConfig()
	return Config{
		AppID:      "com.audiobars.app",
		AppName:    "audiobars",
		UI:         UIFyne,
		FPS:        domain.DefaultFrameRate,
		Visualizer: domain.DefaultVisualizerConfig(),
		Analyser:   analyser.DefaultConfig(),
		Smooth:     true,
		LogLevel:   loggerCfg.Level,
	}
}

// LoadEnv overlays environment variables on c. Variables from a .env file at
// path (".env" when empty) are loaded first, without overriding ones already set.
// A missing .env file is not an error.
func LoadEnv(c Config, path string) (Config, error) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return c, fmt.Errorf("failed to load %s: %w", path, err)
	}

	if v, ok := lookup(logger.EnvLogLevel); ok {
		level, valid := logger.ParseLevel(v)
		if !valid {
			return c, domain.NewValidationError(logger.EnvLogLevel, v, "must be one of DEBUG, INFO, WARN, ERROR")
		}
		c.LogLevel = level
	}

	if v, ok := lookup(EnvUI); ok {
		c.UI = strings.ToLower(v)
	}

	if v, ok := lookup(EnvBars); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, domain.NewValidationError(EnvBars, v, "must be an integer")
		}
		c.Visualizer.BarCount = n
	}

	if v, ok := lookup(EnvFPS); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, domain.NewValidationError(EnvFPS, v, "must be an integer")
		}
		c.FPS = n
	}

	if v, ok := lookup(EnvMockAudio); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, domain.NewValidationError(EnvMockAudio, v, "must be a boolean")
		}
		c.UseMockAudio = b
	}

	return c, nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Validate checks the configuration before anything is created.
func (c Config) Validate() error {
	if c.UI != UIFyne && c.UI != UITUI && c.View == nil {
		return domain.NewValidationError("UI", c.UI, "must be fyne or tui")
	}
	if c.FPS <= 0 || c.FPS > domain.MaxFrameRate {
		return domain.NewValidationError("FPS", c.FPS, fmt.Sprintf("must be between 1 and %d", domain.MaxFrameRate))
	}
	if err := c.Visualizer.Validate(); err != nil {
		return err
	}
	return c.Analyser.Validate()
}
