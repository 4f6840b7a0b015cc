// Package main is the production entry point for audiobars.
//
// audiobars plays an audio file and shows it as a row of frequency bars,
// in a desktop window (Fyne) or in the terminal (Bubble Tea).
//
// Build:
//
//	go build -o build/audiobars ./cmd
//
// Run:
//
//	./build/audiobars song.mp3 --ui tui
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tejashwikalptaru/audiobars/internal/app"
	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/logger"
)

// options holds the command-line flags.
type options struct {
	ui        string
	bars      int
	fps       int
	mock      bool
	wallClock bool
	noSmooth  bool
	loop      bool
	logLevel  string
	envFile   string
}

// newRootCmd builds the root command with its flags bound to opts.
func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audiobars [file]",
		Short: "Play an audio file as animated frequency bars",
		Long: `audiobars plays an MP3 or WAV file and draws its spectrum as a row of bars.

While a file opens the bars show a travelling wave; with nothing playing they rest
at a flat idle height.

Configuration is read from the environment (and a .env file), then from flags:
  AUDIOBARS_UI, AUDIOBARS_BARS, AUDIOBARS_FPS, AUDIOBARS_MOCK_AUDIO, AUDIOBARS_LOG_LEVEL`,
		Args:          cobra.MaximumNArgs(1),
		Version:       app.GetVersionInfo().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := buildConfig(cmd, opts, args)
			if err != nil {
				return err
			}
			return run(config)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.ui, "ui", app.UIFyne, "Front-end: fyne or tui")
	flags.IntVarP(&opts.bars, "bars", "n", domain.DefaultBarCount, "Number of bars")
	flags.IntVar(&opts.fps, "fps", domain.DefaultFrameRate, "Frames per second")
	flags.BoolVar(&opts.mock, "mock", false, "Use in-memory audio instead of decoding and playing files")
	flags.BoolVar(&opts.wallClock, "wall-clock-loading", false, "Advance the loading wave by elapsed time instead of per frame")
	flags.BoolVar(&opts.noSmooth, "no-smooth", false, "Draw every snapshot as-is instead of easing the bars")
	flags.BoolVar(&opts.loop, "loop", false, "Restart the file when it ends")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (or set AUDIOBARS_LOG_LEVEL env)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Environment file to load")

	return cmd
}

// buildConfig layers defaults, the environment and explicitly set flags.
func buildConfig(cmd *cobra.Command, opts *options, args []string) (app.Config, error) {
	config, err := app.LoadEnv(app.DefaultConfig(), opts.envFile)
	if err != nil {
		return config, err
	}

	flags := cmd.Flags()
	if flags.Changed("ui") {
		config.UI = strings.ToLower(opts.ui)
	}
	if flags.Changed("bars") {
		config.Visualizer.BarCount = opts.bars
	}
	if flags.Changed("fps") {
		config.FPS = opts.fps
	}
	if flags.Changed("mock") {
		config.UseMockAudio = opts.mock
	}
	if flags.Changed("log-level") {
		level, ok := logger.ParseLevel(opts.logLevel)
		if !ok {
			return config, fmt.Errorf("invalid --log-level %q", opts.logLevel)
		}
		config.LogLevel = level
	}

	config.Visualizer.WallClockLoading = opts.wallClock
	config.Smooth = !opts.noSmooth
	config.Loop = opts.loop
	if len(args) == 1 {
		config.File = args[0]
	}

	return config, config.Validate()
}

func run(config app.Config) error {
	application, err := app.NewApplication(config)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	// Ensure a graceful shutdown
	defer func() {
		if err := application.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			application.Quit()
		case <-done:
		}
	}()

	// Run application (blocks until the UI is closed)
	err = application.Run()
	close(done)
	return err
}

func main() {
	if err := newRootCmd(&options{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
