package service

import (
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/audiobars/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/audiobars/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/audiobars/internal/adapter/scheduler"
	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/logger"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
	"github.com/tejashwikalptaru/audiobars/internal/testutil"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

const frame = time.Second / 60

type visualizerFixture struct {
	svc   *VisualizerService
	sched *scheduler.ManualScheduler
	taps  *mock.TapFactory
	bus   *eventbus.SyncEventBus
}

// Helper to create a visualizer driven by a manual scheduler
func newVisualizerFixture(t *testing.T, cfg domain.VisualizerConfig, bins int) *visualizerFixture {
	t.Helper()

	sched := scheduler.NewManualScheduler(epoch)
	taps := mock.NewTapFactory(bins)
	bus := eventbus.NewSyncEventBus()

	svc, err := NewVisualizerService(logger.NewTestLogger(), sched, taps, bus, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Dispose() })

	return &visualizerFixture{svc: svc, sched: sched, taps: taps, bus: bus}
}

func (f *visualizerFixture) assertSingleLoop(t *testing.T) {
	t.Helper()
	assert.LessOrEqual(t, f.sched.Pending(), 1, "at most one frame may be pending")
	assert.Equal(t, f.sched.Scheduled(), f.sched.Cancelled()+f.sched.Executed()+uint64(f.sched.Pending()))
}

func TestVisualizerService_StartsIdle(t *testing.T) {
	f := newVisualizerFixture(t, domain.DefaultVisualizerConfig(), 128)

	assert.Equal(t, domain.StateIdle, f.svc.State())
	assert.Nil(t, f.svc.Source())
	assert.Equal(t, domain.Uniform(12, 14), f.svc.Levels())
	assert.Zero(t, f.sched.Pending())
}

func TestVisualizerService_RejectsInvalidConfig(t *testing.T) {
	cfg := domain.DefaultVisualizerConfig()
	cfg.BarCount = 0

	_, err := NewVisualizerService(logger.NewTestLogger(), scheduler.NewManualScheduler(epoch),
		mock.NewTapFactory(128), eventbus.NewSyncEventBus(), cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidBarCount)
}

func TestVisualizerService_UnchangedInputsAreNoOp(t *testing.T) {
	f := newVisualizerFixture(t, domain.DefaultVisualizerConfig(), 128)
	src := mock.NewSource("a")

	f.svc.Update(domain.StateIdle, nil)
	assert.Zero(t, f.sched.Scheduled())

	f.svc.Update(domain.StatePlaying, src)
	f.svc.Update(domain.StatePlaying, src)
	f.svc.Update(domain.StatePlaying, src)

	assert.Equal(t, uint64(1), f.sched.Scheduled())
	assert.Equal(t, 1, f.taps.Acquired())
}

func TestVisualizerService_PlayingMapsSpectrum(t *testing.T) {
	f := newVisualizerFixture(t, configWithBars(4), 4)
	f.taps.SetData([]byte{0, 128, 255, 64})

	f.svc.Update(domain.StatePlaying, mock.NewSource("a"))
	require.Equal(t, 1, f.sched.Advance(1, frame))

	assert.Equal(t, domain.Levels{10, 55, 100, 33}, f.svc.Levels())
}

func TestVisualizerService_PlayingFollowsSignal(t *testing.T) {
	f := newVisualizerFixture(t, domain.DefaultVisualizerConfig(), 128)
	f.svc.Update(domain.StatePlaying, mock.NewSource("a"))

	f.sched.Advance(1, frame)
	assert.Equal(t, domain.Uniform(12, 10), f.svc.Levels(), "silence")

	loud := make([]byte, 128)
	for i := range loud {
		loud[i] = 255
	}
	f.taps.SetData(loud)
	f.sched.Advance(1, frame)
	assert.Equal(t, domain.Uniform(12, 100), f.svc.Levels(), "full scale")

	f.sched.Advance(10, frame)
	f.assertSingleLoop(t)
	assert.Equal(t, 1, f.sched.Pending())
}

func TestVisualizerService_LoadingWave(t *testing.T) {
	cfg := domain.DefaultVisualizerConfig()
	f := newVisualizerFixture(t, cfg, 128)

	f.svc.Update(domain.StateLoading, nil)
	assert.Equal(t, domain.Uniform(12, 14), f.svc.Levels(), "no frame has run yet")

	f.sched.Advance(1, frame)
	first := f.svc.Levels()
	assert.Equal(t, loadingLevels(cfg, 0.008), first)

	for range 200 {
		f.sched.Advance(1, frame)
		for _, h := range f.svc.Levels() {
			assert.GreaterOrEqual(t, h, 18)
			assert.LessOrEqual(t, h, 92)
		}
	}
	f.assertSingleLoop(t)
}

func TestVisualizerService_LoadingMovesEveryStep(t *testing.T) {
	f := newVisualizerFixture(t, domain.DefaultVisualizerConfig(), 128)

	f.svc.Update(domain.StateLoading, nil)
	f.sched.Advance(1, frame)
	prev := f.svc.Levels()

	f.sched.Advance(1, frame)
	next := f.svc.Levels()
	assert.NotEqual(t, prev, next, "one phase step apart, at least one bar moves")

	// Bar 0 over 100 steps: a sampled sine, moving by at most one unit per frame.
	seen := map[int]bool{next[0]: true}
	for range 100 {
		prev = next
		f.sched.Advance(1, frame)
		next = f.svc.Levels()
		assert.LessOrEqual(t, abs(next[0]-prev[0]), 1)
		seen[next[0]] = true
	}
	assert.Greater(t, len(seen), 10, "bar 0 follows the wave instead of standing still")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestVisualizerService_LoadingPeriod(t *testing.T) {
	f := newVisualizerFixture(t, domain.DefaultVisualizerConfig(), 128)

	f.svc.Update(domain.StateLoading, nil)
	f.sched.Advance(1, frame)
	start := f.svc.Levels()

	// 2π / 0.008 ≈ 785.4 frames per revolution.
	f.sched.Advance(785, frame)
	after := f.svc.Levels()
	for i := range start {
		assert.InDelta(t, start[i], after[i], 1, "bar %d", i)
	}

	f.sched.Advance(392, frame)
	half := f.svc.Levels()
	assert.NotEqual(t, start, half)
}

func TestVisualizerService_LoadingPhasePersists(t *testing.T) {
	cfg := domain.DefaultVisualizerConfig()
	f := newVisualizerFixture(t, cfg, 128)

	f.svc.Update(domain.StateLoading, nil)
	f.sched.Advance(10, frame)

	f.svc.Update(domain.StateIdle, nil)
	assert.Equal(t, domain.Uniform(12, 14), f.svc.Levels())

	f.svc.Update(domain.StateLoading, nil)
	f.sched.Advance(1, frame)

	phase := 0.0
	for range 11 {
		phase = math.Mod(phase+cfg.LoadingPhaseStep, 2*math.Pi)
	}
	assert.Equal(t, loadingLevels(cfg, phase), f.svc.Levels())
}

func TestVisualizerService_WallClockLoading(t *testing.T) {
	cfg := domain.DefaultVisualizerConfig()
	cfg.WallClockLoading = true
	f := newVisualizerFixture(t, cfg, 128)

	f.svc.Update(domain.StateLoading, nil)

	// A 30 Hz display advances twice as far per frame as the 60 Hz reference.
	interval := time.Second / 30
	f.sched.Advance(2, interval)

	phase := phaseStep(cfg, 0)
	phase += phaseStep(cfg, interval.Seconds())
	assert.Equal(t, loadingLevels(cfg, phase), f.svc.Levels())
}

func TestVisualizerService_IdleStopsLoop(t *testing.T) {
	f := newVisualizerFixture(t, domain.DefaultVisualizerConfig(), 128)
	f.taps.SetData([]byte{255, 255, 255})

	f.svc.Update(domain.StatePlaying, mock.NewSource("a"))
	f.sched.Advance(3, frame)

	f.svc.Update(domain.StateIdle, nil)
	assert.Equal(t, domain.Uniform(12, 14), f.svc.Levels(), "idle applies immediately")
	assert.Zero(t, f.sched.Pending())

	executed := f.sched.Executed()
	f.sched.Advance(5, frame)
	assert.Equal(t, executed, f.sched.Executed())
	assert.Equal(t, domain.Uniform(12, 14), f.svc.Levels())
}

func TestVisualizerService_RapidTransitionsKeepOneLoop(t *testing.T) {
	f := newVisualizerFixture(t, domain.DefaultVisualizerConfig(), 128)
	a, b := mock.NewSource("a"), mock.NewSource("b")

	steps := []struct {
		state  domain.VisualizerState
		source ports.AudioSource
	}{
		{domain.StateLoading, nil},
		{domain.StatePlaying, a},
		{domain.StateLoading, a},
		{domain.StatePlaying, b},
		{domain.StatePlaying, a},
		{domain.StateIdle, a},
		{domain.StatePlaying, nil},
		{domain.StateLoading, b},
		{domain.StatePlaying, b},
	}

	for _, s := range steps {
		f.svc.Update(s.state, s.source)
		f.assertSingleLoop(t)
		f.sched.Advance(1, frame)
		f.assertSingleLoop(t)
	}

	assert.Equal(t, 1, f.taps.Live())
	assert.False(t, a.IsClosed())
	assert.False(t, b.IsClosed())
}

func TestVisualizerService_SourceSwapReleasesOldTap(t *testing.T) {
	f := newVisualizerFixture(t, domain.DefaultVisualizerConfig(), 128)
	a, b := mock.NewSource("a"), mock.NewSource("b")

	f.svc.Update(domain.StatePlaying, a)
	f.sched.Advance(2, frame)
	assert.Equal(t, 1, a.Listeners())

	f.svc.SetSource(b)

	assert.Equal(t, 2, f.taps.Acquired())
	assert.Equal(t, 1, f.taps.Released())
	assert.Equal(t, []ports.AudioSource{a, b}, f.taps.Sources())
	assert.Zero(t, a.Listeners(), "old source must be detached")
	assert.Equal(t, 1, b.Listeners())
	assert.Zero(t, a.Closes(), "the engine never closes a source")
}

func TestVisualizerService_LeavingPlayingReleasesTap(t *testing.T) {
	f := newVisualizerFixture(t, domain.DefaultVisualizerConfig(), 128)
	src := mock.NewSource("a")

	f.svc.Update(domain.StatePlaying, src)
	f.svc.SetState(domain.StateLoading)
	assert.Equal(t, 1, f.taps.Released())
	assert.Zero(t, src.Listeners())

	// Returning to Playing with the same source acquires a fresh tap.
	f.svc.SetState(domain.StatePlaying)
	assert.Equal(t, 2, f.taps.Acquired())
	assert.Equal(t, 1, f.taps.Live())
}

func TestVisualizerService_PlayingWithoutSourceFallsBack(t *testing.T) {
	f := newVisualizerFixture(t, domain.DefaultVisualizerConfig(), 128)

	f.svc.Update(domain.StateLoading, nil)
	f.sched.Advance(3, frame)

	f.svc.Update(domain.StatePlaying, nil)

	assert.Equal(t, domain.StatePlaying, f.svc.State())
	assert.Equal(t, domain.Uniform(12, 14), f.svc.Levels())
	assert.Zero(t, f.sched.Pending())
	assert.Zero(t, f.taps.Acquired())
}

func TestVisualizerService_AcquireFailureFallsBack(t *testing.T) {
	f := newVisualizerFixture(t, domain.DefaultVisualizerConfig(), 128)
	f.taps.SetFailAcquire(mock.ErrAcquireFailed)
	src := mock.NewSource("a")

	assert.NotPanics(t, func() { f.svc.Update(domain.StatePlaying, src) })
	assert.Equal(t, domain.Uniform(12, 14), f.svc.Levels())
	assert.Zero(t, f.sched.Pending())

	// A later transition retries.
	f.taps.SetFailAcquire(nil)
	f.svc.SetState(domain.StateIdle)
	f.svc.SetState(domain.StatePlaying)
	assert.Equal(t, 1, f.taps.Acquired())
	assert.Equal(t, 1, f.sched.Pending())
}

func TestVisualizerService_Dispose(t *testing.T) {
	f := newVisualizerFixture(t, domain.DefaultVisualizerConfig(), 128)
	src := mock.NewSource("a")

	f.svc.Update(domain.StatePlaying, src)
	f.sched.Advance(2, frame)

	require.NoError(t, f.svc.Dispose())
	assert.Zero(t, f.sched.Pending())
	assert.Equal(t, 1, f.taps.Released())
	assert.Zero(t, src.Listeners())
	assert.False(t, src.IsClosed())

	f.svc.Update(domain.StateLoading, nil)
	f.sched.Advance(3, frame)
	assert.Zero(t, f.sched.Pending(), "updates after dispose are ignored")

	assert.NoError(t, f.svc.Dispose())
	assert.Equal(t, 1, f.taps.Released())
}

// stickyScheduler never removes cancelled callbacks, like a display loop that
// already took the frame when Cancel arrived.
type stickyScheduler struct {
	mu        sync.Mutex
	callbacks []ports.FrameCallback
	cancelled int
}

func (s *stickyScheduler) Schedule(fn ports.FrameCallback) ports.FrameHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
	return ports.FrameHandle(len(s.callbacks))
}

func (s *stickyScheduler) Cancel(ports.FrameHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled++
}

func (s *stickyScheduler) callback(i int) ports.FrameCallback {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callbacks[i]
}

func TestVisualizerService_StaleFrameIsDiscarded(t *testing.T) {
	sched := &stickyScheduler{}
	taps := mock.NewTapFactory(128)
	loud := make([]byte, 128)
	for i := range loud {
		loud[i] = 255
	}
	taps.SetData(loud)

	svc, err := NewVisualizerService(logger.NewTestLogger(), sched, taps, eventbus.NewSyncEventBus(),
		domain.DefaultVisualizerConfig())
	require.NoError(t, err)
	defer svc.Dispose()

	svc.Update(domain.StatePlaying, mock.NewSource("a"))
	stale := sched.callback(0)

	svc.Update(domain.StateIdle, nil)
	stale(epoch)

	assert.Equal(t, domain.Uniform(12, 14), svc.Levels())
	assert.Equal(t, 1, sched.cancelled)
	assert.Len(t, sched.callbacks, 1, "a stale frame must not reschedule")
}

func TestVisualizerService_PublishesEvents(t *testing.T) {
	f := newVisualizerFixture(t, domain.DefaultVisualizerConfig(), 128)

	var states []domain.VisualizerStateChangedEvent
	var frames []uint64
	var acquired []domain.TapAcquiredEvent
	var released int

	f.bus.Subscribe(domain.EventVisualizerStateChanged, func(e domain.Event) {
		states = append(states, e.(domain.VisualizerStateChangedEvent))
	})
	f.bus.Subscribe(domain.EventLevelsUpdated, func(e domain.Event) {
		ev := e.(domain.LevelsUpdatedEvent)
		assert.Len(t, ev.Levels, 12)
		frames = append(frames, ev.Frame)
	})
	f.bus.Subscribe(domain.EventTapAcquired, func(e domain.Event) {
		acquired = append(acquired, e.(domain.TapAcquiredEvent))
	})
	f.bus.Subscribe(domain.EventTapReleased, func(domain.Event) { released++ })

	src := mock.NewSource("a")
	f.svc.Update(domain.StatePlaying, src)
	f.sched.Advance(3, frame)
	f.svc.Update(domain.StateIdle, src)

	require.Len(t, states, 2)
	assert.Equal(t, domain.StateIdle, states[0].Previous)
	assert.Equal(t, domain.StatePlaying, states[0].Current)
	assert.Equal(t, src.ID(), states[0].SourceID)
	assert.Equal(t, domain.StateIdle, states[1].Current)

	require.Len(t, acquired, 1)
	assert.Equal(t, 128, acquired[0].Bins)
	assert.Equal(t, 1, released)

	require.Len(t, frames, 4, "three playing frames and the idle snapshot")
	for i := 1; i < len(frames); i++ {
		assert.Greater(t, frames[i], frames[i-1])
	}
}

func TestVisualizerService_LevelsReturnsCopy(t *testing.T) {
	f := newVisualizerFixture(t, domain.DefaultVisualizerConfig(), 128)

	levels := f.svc.Levels()
	levels[0] = 99

	assert.Equal(t, 14, f.svc.Levels()[0])
}

func TestVisualizerService_HandlersMayReadLevels(t *testing.T) {
	f := newVisualizerFixture(t, domain.DefaultVisualizerConfig(), 128)

	var seen []domain.Levels
	f.bus.Subscribe(domain.EventLevelsUpdated, func(domain.Event) {
		seen = append(seen, f.svc.Levels())
	})

	f.svc.Update(domain.StateLoading, nil)
	f.sched.Advance(2, frame)

	assert.Len(t, seen, 2)
}

func TestVisualizerService_ConcurrentUpdates(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	sched := scheduler.NewTickerScheduler(logger.NewTestLogger(), 500)
	taps := mock.NewTapFactory(128)
	taps.SetData([]byte{10, 200, 30, 40, 50})

	svc, err := NewVisualizerService(logger.NewTestLogger(), sched, taps, eventbus.NewSyncEventBus(),
		domain.DefaultVisualizerConfig())
	require.NoError(t, err)

	sources := []ports.AudioSource{nil, mock.NewSource("a"), mock.NewSource("b")}
	states := []domain.VisualizerState{domain.StateIdle, domain.StateLoading, domain.StatePlaying}

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := rand.New(rand.NewPCG(uint64(w), 7))
			for range 200 {
				svc.Update(states[r.IntN(len(states))], sources[r.IntN(len(sources))])
				_ = svc.Levels()
				if r.IntN(10) == 0 {
					time.Sleep(time.Millisecond)
				}
			}
		}()
	}
	wg.Wait()

	require.NoError(t, svc.Dispose())
	require.NoError(t, sched.Close())

	assert.Zero(t, taps.Live(), "every acquired tap must be released")
	for _, h := range svc.Levels() {
		assert.GreaterOrEqual(t, h, 10)
		assert.LessOrEqual(t, h, 100)
	}
}
