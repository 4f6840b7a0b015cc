package source

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/google/uuid"
	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

// SupportedExtensions lists the file types Loader can decode.
var SupportedExtensions = []string{".mp3", ".wav"}

// IsSupported reports whether path has a decodable extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Loader opens audio files as Sources.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger}
}

// Open decodes the file at path.
func (l *Loader) Open(path string) (ports.StreamSource, error) {
	if path == "" {
		return nil, domain.ErrInvalidFilePath
	}
	if !IsSupported(path) {
		return nil, domain.NewAudioEngineError("open", path, "unsupported file type", domain.ErrUnsupportedFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewAudioEngineError("open", path, "failed to open file", err)
	}

	info := readMetadata(f, path)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, domain.NewAudioEngineError("open", path, "failed to rewind file", err)
	}

	var dec decoder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		dec, err = newMP3Decoder(f)
	case ".wav":
		dec, err = newWAVDecoder(f)
	}
	if err != nil {
		_ = f.Close()
		return nil, domain.NewAudioEngineError("decode", path, "failed to create decoder", err)
	}

	info.SampleRate = dec.SampleRate()
	info.Channels = dec.Channels()
	if length := dec.Length(); length > 0 && info.SampleRate > 0 {
		bytesPerSec := int64(info.SampleRate * info.Channels * 2)
		info.Duration = time.Duration(float64(length) / float64(bytesPerSec) * float64(time.Second))
	}

	l.logger.Info("source opened",
		slog.String("id", info.ID),
		slog.String("path", path),
		slog.String("title", info.Title),
		slog.Int("sample_rate", info.SampleRate),
		slog.Int("channels", info.Channels),
		slog.Duration("duration", info.Duration))

	return newSource(l.logger, info, f, dec), nil
}

// readMetadata reads tags, falling back to the file name for the title.
func readMetadata(r io.ReadSeeker, path string) domain.SourceInfo {
	info := domain.SourceInfo{
		ID:    uuid.NewString(),
		Path:  path,
		Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}

	m, err := tag.ReadFrom(r)
	if err != nil {
		return info
	}
	if title := strings.TrimSpace(m.Title()); title != "" {
		info.Title = title
	}
	info.Artist = strings.TrimSpace(m.Artist())
	return info
}

// Verify that Loader implements the SourceLoader interface
var _ ports.SourceLoader = (*Loader)(nil)
