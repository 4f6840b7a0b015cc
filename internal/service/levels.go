package service

import (
	"math"

	"github.com/tejashwikalptaru/audiobars/internal/domain"
)

// idleLevels is the flat resting pattern.
func idleLevels(cfg domain.VisualizerConfig) domain.Levels {
	return domain.Uniform(cfg.BarCount, cfg.IdleHeight)
}

// loadingLevels samples the traveling sine wave at phase.
// Bar i is offset by 2π·i/N, so the crest moves left to right as phase grows.
func loadingLevels(cfg domain.VisualizerConfig, phase float64) domain.Levels {
	n := cfg.BarCount
	span := float64(cfg.LoadingMax - cfg.LoadingMin)
	out := make(domain.Levels, n)
	for i := range out {
		offset := float64(i) / float64(n) * 2 * math.Pi
		normalized := (math.Sin(phase+offset) + 1) / 2
		out[i] = int(math.Round(float64(cfg.LoadingMin) + normalized*span))
	}
	return out
}

// playingLevels folds byte magnitudes into N contiguous groups of floor(bins/N) bins.
// Trailing bins that don't fill a group are ignored; an empty group reads as silence.
func playingLevels(cfg domain.VisualizerConfig, data []byte) domain.Levels {
	n := cfg.BarCount
	binsPerBar := len(data) / n
	span := float64(domain.MaxHeight - cfg.MinHeight)
	out := make(domain.Levels, n)
	for i := range out {
		start := i * binsPerBar
		end := min(start+binsPerBar, len(data))

		avg := 0.0
		if end > start {
			sum := 0
			for _, v := range data[start:end] {
				sum += int(v)
			}
			avg = float64(sum) / float64(end-start)
		}
		out[i] = int(math.Round(float64(cfg.MinHeight) + avg/domain.MaxMagnitude*span))
	}
	return out
}

// phaseStep returns how far the loading wave advances on a frame that arrives elapsed
// after the previous one. The default is a fixed step per frame, so the wave runs faster
// on faster displays; WallClockLoading makes the speed independent of the refresh rate.
func phaseStep(cfg domain.VisualizerConfig, elapsed float64) float64 {
	if !cfg.WallClockLoading || elapsed <= 0 {
		return cfg.LoadingPhaseStep
	}
	return cfg.LoadingPhaseStep * elapsed * float64(cfg.ReferenceFrameRate)
}
