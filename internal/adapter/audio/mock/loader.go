package mock

import (
	"sync"

	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

// Loader is a mock SourceLoader that opens a fresh Source for every path.
//
// Thread-safety: This implementation is thread-safe.
type Loader struct {
	mu       sync.Mutex
	failLoad bool
	opened   []*Source
	block    chan struct{}
}

// NewLoader creates a new mock loader.
func NewLoader() *Loader {
	return &Loader{}
}

// SetFailLoad configures the mock to fail opening files (for testing).
func (l *Loader) SetFailLoad(fail bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failLoad = fail
}

// Block makes Open wait until the returned function is called,
// so tests can observe the loading state.
func (l *Loader) Block() (release func()) {
	ch := make(chan struct{})
	l.mu.Lock()
	l.block = ch
	l.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Open returns a new Source titled after path.
func (l *Loader) Open(path string) (ports.StreamSource, error) {
	l.mu.Lock()
	block := l.block
	l.block = nil
	l.mu.Unlock()

	if block != nil {
		<-block
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if path == "" {
		return nil, domain.ErrInvalidFilePath
	}
	if l.failLoad {
		return nil, domain.NewAudioEngineError("open", path, "mock load failed", domain.ErrUnsupportedFormat)
	}

	src := NewSource(path)
	src.info.Path = path
	l.opened = append(l.opened, src)
	return src, nil
}

// Opened returns every source opened so far, in order.
func (l *Loader) Opened() []*Source {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Source, len(l.opened))
	copy(out, l.opened)
	return out
}

// Verify that Loader implements the SourceLoader interface
var _ ports.SourceLoader = (*Loader)(nil)
