// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/tejashwikalptaru/audiobars/internal/adapter/audio/analyser"
	"github.com/tejashwikalptaru/audiobars/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/audiobars/internal/adapter/audio/output"
	"github.com/tejashwikalptaru/audiobars/internal/adapter/audio/source"
	"github.com/tejashwikalptaru/audiobars/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/audiobars/internal/adapter/scheduler"
	fyneui "github.com/tejashwikalptaru/audiobars/internal/adapter/ui/fyne"
	"github.com/tejashwikalptaru/audiobars/internal/adapter/ui/presenter"
	"github.com/tejashwikalptaru/audiobars/internal/adapter/ui/tui"
	"github.com/tejashwikalptaru/audiobars/internal/logger"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
	"github.com/tejashwikalptaru/audiobars/internal/service"
)

// mockSpectrum is what mock taps report: a falling slope, loud in the bass.
func mockSpectrum(bins int) []byte {
	data := make([]byte, bins)
	for i := range data {
		data[i] = byte(255 - i*255/max(bins, 1))
	}
	return data
}

// intentsReceiver is a view that forwards user actions.
type intentsReceiver interface {
	SetIntents(ports.Intents)
}

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Managing the application lifecycle (startup, shutdown)
// - Providing a clean entry point for main.go
type Application struct {
	config Config

	// Core dependencies
	logger  *slog.Logger
	logFile *os.File

	// Infrastructure
	eventBus  *eventbus.SyncEventBus
	scheduler *scheduler.TickerScheduler
	taps      ports.TapFactory
	loader    ports.SourceLoader
	output    ports.AudioOutput

	// Services
	visualizerService *service.VisualizerService
	playbackService   *service.PlaybackService

	// UI
	view      ports.BarsView
	presenter *presenter.Presenter

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(config Config) (*Application, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{config: config}

	// Step 1: Create logger
	out, err := app.logOutput()
	if err != nil {
		return nil, err
	}
	app.logger = logger.NewLogger(logger.Config{
		Level:  config.LogLevel,
		Format: "text",
		Output: out,
	})
	app.logger.Info("initializing application",
		slog.String("app_id", config.AppID),
		slog.String("ui", config.UI),
		slog.Int("bars", config.Visualizer.BarCount),
		slog.Int("fps", config.FPS),
		slog.Bool("mock_audio", config.UseMockAudio))

	// Step 2: Create an event bus
	app.eventBus = eventbus.NewSyncEventBus()
	app.eventBus.SetLogger(app.logger.With(slog.String("component", "eventbus")))

	// Step 3: Create the frame scheduler
	app.scheduler = scheduler.NewTickerScheduler(
		app.logger.With(slog.String("component", "scheduler")),
		config.FPS,
	)

	// Step 4: Create audio adapters
	if err := app.createAudio(); err != nil {
		_ = app.Shutdown()
		return nil, err
	}

	// Step 5: Create services (with dependency injection)
	app.visualizerService, err = service.NewVisualizerService(
		app.logger.With(slog.String("service", "visualizer")),
		app.scheduler,
		app.taps,
		app.eventBus,
		config.Visualizer,
	)
	if err != nil {
		_ = app.Shutdown()
		return nil, fmt.Errorf("failed to create visualizer: %w", err)
	}

	app.playbackService = service.NewPlaybackService(
		app.logger.With(slog.String("service", "playback")),
		app.loader,
		app.output,
		app.visualizerService,
		app.eventBus,
	)
	app.playbackService.SetLoop(config.Loop)

	// Step 6: Create UI
	app.view = app.createView()

	// Step 7: Create Presenter and wire with UI
	app.presenter = presenter.NewPresenter(
		app.logger.With(slog.String("component", "presenter")),
		app.playbackService,
		app.visualizerService,
		app.eventBus,
		app.view,
	)

	if receiver, ok := app.view.(intentsReceiver); ok {
		receiver.SetIntents(app.presenter)
	}

	return app, nil
}

// logOutput picks where log lines go. The terminal UI owns the screen, so its
// logs go to a file unless the caller chose a writer.
func (a *Application) logOutput() (io.Writer, error) {
	if a.config.LogOutput != nil {
		return a.config.LogOutput, nil
	}
	if a.config.UI != UITUI || a.config.View != nil {
		return os.Stderr, nil
	}

	path := filepath.Join(os.TempDir(), a.config.AppName+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	a.logFile = f
	return f, nil
}

func (a *Application) createAudio() error {
	if a.config.UseMockAudio {
		bins := a.config.Analyser.FFTSize / 2
		taps := mock.NewTapFactory(bins)
		taps.SetData(mockSpectrum(bins))
		a.taps = taps
		a.loader = mock.NewLoader()
		a.output = mock.NewOutput()
		return nil
	}

	taps, err := analyser.NewFactory(a.logger.With(slog.String("component", "analyser")), a.config.Analyser)
	if err != nil {
		return fmt.Errorf("failed to create analyser: %w", err)
	}
	a.taps = taps
	a.loader = source.NewLoader(a.logger.With(slog.String("component", "loader")))
	a.output = output.NewOutput(a.logger.With(slog.String("component", "output")))
	return nil
}

func (a *Application) createView() ports.BarsView {
	if a.config.View != nil {
		return a.config.View
	}

	if a.config.UI == UITUI {
		return tui.New(a.logger.With(slog.String("component", "tui")), tui.Options{})
	}

	fyneApp := a.config.TestFyneApp
	if fyneApp == nil {
		fyneApp = fyneapp.NewWithID(a.config.AppID)
	}
	return fyneui.NewMainWindow(fyneApp, a.logger.With(slog.String("component", "window")), fyneui.Options{
		FPS:        a.config.FPS,
		Smooth:     a.config.Smooth,
		Extensions: source.SupportedExtensions,
	})
}

// Run starts the UI and blocks until the user quits.
// Config.File, if set, starts playing as soon as the UI is up.
func (a *Application) Run() error {
	a.logger.Info("audiobars started", slog.String("version", GetVersionInfo().FullString()))

	if a.config.File != "" {
		a.presenter.OnOpen(a.config.File)
	}

	if err := a.view.Run(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}

// Quit asks the UI to stop; Run then returns.
func (a *Application) Quit() {
	a.view.Quit()
}

// Shutdown gracefully shuts down the application.
// Components are stopped in reverse order of creation. Shutdown is idempotent.
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.shutdownErr = a.shutdown()
	})
	return a.shutdownErr
}

func (a *Application) shutdown() error {
	a.logger.Info("shutting down application")

	var errs []error

	// Shutdown presenter first so no more view calls happen
	if a.presenter != nil {
		a.presenter.Shutdown()
	}

	if a.playbackService != nil {
		if err := a.playbackService.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("playback: %w", err))
		}
	}

	if a.visualizerService != nil {
		if err := a.visualizerService.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("visualizer: %w", err))
		}
	}

	if a.output != nil {
		if err := a.output.Close(); err != nil {
			errs = append(errs, fmt.Errorf("audio output: %w", err))
		}
	}

	if a.scheduler != nil {
		if err := a.scheduler.Close(); err != nil {
			errs = append(errs, fmt.Errorf("scheduler: %w", err))
		}
	}

	if a.eventBus != nil {
		if err := a.eventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event bus: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		a.logger.Warn("shutdown finished with errors", slog.Any("error", err))
	} else {
		a.logger.Info("application shutdown complete")
	}

	if a.logFile != nil {
		_ = a.logFile.Close()
	}
	return err
}

// GetServices returns the services (for testing).
func (a *Application) GetServices() (*service.PlaybackService, *service.VisualizerService) {
	return a.playbackService, a.visualizerService
}

// GetEventBus returns the event bus (for testing).
func (a *Application) GetEventBus() ports.EventBus {
	return a.eventBus
}
