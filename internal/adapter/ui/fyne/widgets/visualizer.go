// Package widgets provides custom Fyne widgets for the audiobars window.
package widgets

import (
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/charmbracelet/harmonica"
	"github.com/tejashwikalptaru/audiobars/internal/domain"
)

// Spring parameters for the on-screen easing. Critically damped so a bar never
// overshoots the level it was given.
const (
	springFrequency = 12.0
	springDamping   = 1.0

	// settleEpsilon is how close, in percent and percent per frame, a bar must be
	// to its target before it snaps and stops animating.
	settleEpsilon = 0.01
)

// springField eases a row of values towards their targets, one step per frame.
type springField struct {
	spring harmonica.Spring
	pos    []float64
	vel    []float64
}

func newSpringField(fps int) springField {
	return springField{spring: harmonica.NewSpring(harmonica.FPS(fps), springFrequency, springDamping)}
}

// resize starts every bar at the minimum height.
func (s *springField) resize(n int) {
	if len(s.pos) == n {
		return
	}
	s.pos = make([]float64, n)
	s.vel = make([]float64, n)
	for i := range s.pos {
		s.pos[i] = float64(domain.DefaultMinHeight)
	}
}

// step advances bar i by one frame and reports whether it has settled on target.
func (s *springField) step(i int, target float64) (float64, bool) {
	p, v := s.spring.Update(s.pos[i], s.vel[i], target)
	if math.Abs(p-target) < settleEpsilon && math.Abs(v) < settleEpsilon {
		p, v = target, 0
	}
	s.pos[i] = min(max(p, float64(domain.DefaultMinHeight)), domain.MaxHeight)
	s.vel[i] = v
	return s.pos[i], p == target && v == 0
}

// Bars is a widget that paints the bar-height sequence as vertical gradient bars.
// Heights are percentages of the drawable area, never drawn below 10%; a falling
// cap marks each recent peak.
//
// Between snapshots the widget keeps animating on its own ticker until every bar
// and cap has reached its target, so a single final snapshot is always shown in full.
type Bars struct {
	widget.BaseWidget

	raster  *canvas.Raster
	mu      sync.Mutex
	springs springField
	smooth  bool
	targets []float64 // last snapshot, clamped
	heights []float64 // percentages currently on screen
	caps    []float64 // falling cap positions, in percent

	// Animation loop
	interval  time.Duration
	animating bool
	stopped   bool
	stop      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	// Visual configuration
	capHeight  int
	capFalloff float64 // percent per frame the cap falls
	minGap     int

	paddingTop   float32
	paddingLeft  float32
	paddingRight float32

	// Layout cache (recalculated only when size or bar count changes)
	lastWidth        int
	lastHeight       int
	lastBars         int
	cachedBarWidth   int
	cachedActualGap  int
	cachedStartX     int
	cachedEffectiveW int
	cachedEffectiveH int
	cachedPaddingL   int
	cachedPaddingR   int
	cachedPaddingT   int
}

// NewBars creates a bars widget fed at fps frames per second.
// With smooth set, each bar eases towards its level instead of jumping.
func NewBars(fps int, smooth bool) *Bars {
	if fps <= 0 {
		fps = domain.DefaultFrameRate
	}
	fps = min(fps, domain.MaxFrameRate)
	b := &Bars{
		springs:      newSpringField(fps),
		smooth:       smooth,
		interval:     time.Second / time.Duration(fps),
		stop:         make(chan struct{}),
		capHeight:    2,
		capFalloff:   0.8,
		minGap:       4,
		paddingTop:   10,
		paddingLeft:  10,
		paddingRight: 10,
	}

	b.raster = canvas.NewRaster(b.draw)
	b.ExtendBaseWidget(b)

	return b
}

// CreateRenderer implements fyne.Widget.
func (b *Bars) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(b.raster)
}

// MinSize returns a minimal size so the widget expands to fill available space.
func (b *Bars) MinSize() fyne.Size {
	return fyne.NewSize(0, 0)
}

// SetLevels takes a new snapshot, advances one frame and requests a redraw.
// If bars or caps are still moving, the widget keeps animating until they settle.
// Must be called on the Fyne goroutine.
func (b *Bars) SetLevels(levels domain.Levels) {
	b.mu.Lock()
	settled := b.apply(levels)
	start := !settled && !b.animating && !b.stopped
	if start {
		b.animating = true
		b.wg.Add(1)
	}
	b.mu.Unlock()

	if start {
		go b.animate()
	}
	b.raster.Refresh()
}

// apply replaces the targets and advances one frame. Caller must hold b.mu.
func (b *Bars) apply(levels domain.Levels) bool {
	n := len(levels)
	if len(b.heights) != n {
		b.targets = make([]float64, n)
		b.heights = make([]float64, n)
		b.caps = make([]float64, n)
		b.springs.resize(n)
	}

	for i, level := range levels {
		b.targets[i] = float64(min(max(level, domain.DefaultMinHeight), domain.MaxHeight))
	}
	return b.advance()
}

// advance moves every bar and cap one frame towards its target and reports
// whether all of them are at rest. Caller must hold b.mu.
func (b *Bars) advance() bool {
	settled := true
	for i, target := range b.targets {
		if b.smooth {
			h, done := b.springs.step(i, target)
			b.heights[i] = h
			settled = settled && done
		} else {
			b.heights[i] = target
		}

		if b.heights[i] > b.caps[i] {
			b.caps[i] = b.heights[i]
		} else {
			b.caps[i] = max(b.caps[i]-b.capFalloff, b.heights[i])
		}
		settled = settled && b.caps[i] == b.heights[i]
	}
	return settled
}

// animate steps the bars at the frame interval until they settle or Stop is called.
func (b *Bars) animate() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.mu.Lock()
			settled := b.advance()
			if settled {
				b.animating = false
			}
			b.mu.Unlock()

			fyne.Do(b.raster.Refresh)
			if settled {
				return
			}
		case <-b.stop:
			b.mu.Lock()
			b.animating = false
			b.mu.Unlock()
			return
		}
	}
}

// Animating reports whether the widget is still easing towards its last snapshot.
func (b *Bars) Animating() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.animating
}

// Stop ends the animation loop and waits for it to exit. Later snapshots are
// drawn without it.
func (b *Bars) Stop() {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()

	b.stopOnce.Do(func() { close(b.stop) })
	b.wg.Wait()
}

// Heights returns the percentages currently on screen.
func (b *Bars) Heights() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]float64, len(b.heights))
	copy(out, b.heights)
	return out
}

// Reset clears the bars and their caps.
func (b *Bars) Reset() {
	b.mu.Lock()
	b.targets = nil
	b.heights = nil
	b.caps = nil
	b.springs.resize(0)
	b.mu.Unlock()

	b.raster.Refresh()
}

// draw is the raster generator function.
func (b *Bars) draw(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fillBackground(img, w, h)

	b.mu.Lock()
	heights := append([]float64(nil), b.heights...)
	caps := append([]float64(nil), b.caps...)
	b.mu.Unlock()

	n := len(heights)
	if n == 0 || w == 0 || h == 0 {
		return img
	}

	if b.lastWidth != w || b.lastHeight != h || b.lastBars != n {
		b.recalculateLayout(w, h, n)
	}
	if b.cachedBarWidth == 0 {
		return img
	}

	totalBarWidth := b.cachedBarWidth + b.cachedActualGap
	for i := range n {
		barX := b.cachedStartX + i*totalBarWidth
		b.drawSingleBar(img, barX, b.toPixels(heights[i]), h)
		b.drawCap(img, barX, b.toPixels(caps[i]), h)
	}

	return img
}

func (b *Bars) toPixels(percent float64) int {
	return int(percent / domain.MaxHeight * float64(b.cachedEffectiveH))
}

// gradientColor returns the bar color at pos (0.0 bottom to 1.0 top).
// Gradient: Red (#f00) at bottom -> Yellow (#ff0) middle -> Green (#0f0) top
func gradientColor(pos float64) color.RGBA {
	pos = min(max(pos, 0), 1)

	var r, g uint8
	if pos < 0.5 {
		r = 255
		g = uint8(pos * 2 * 255)
	} else {
		r = uint8((1 - (pos-0.5)*2) * 255)
		g = 255
	}

	return color.RGBA{R: r, G: g, B: 0, A: 255}
}

// recalculateLayout computes and caches size-dependent layout values.
func (b *Bars) recalculateLayout(w, h, n int) {
	b.lastWidth = w
	b.lastHeight = h
	b.lastBars = n

	b.cachedPaddingL = int(b.paddingLeft)
	b.cachedPaddingR = int(b.paddingRight)
	b.cachedPaddingT = int(b.paddingTop)

	b.cachedEffectiveW = w - b.cachedPaddingL - b.cachedPaddingR
	b.cachedEffectiveH = h - b.cachedPaddingT

	if b.cachedEffectiveW <= 0 || b.cachedEffectiveH <= 0 {
		b.cachedBarWidth = 0
		return
	}

	availableBarWidth := b.cachedEffectiveW - (n-1)*b.minGap
	b.cachedBarWidth = max(availableBarWidth/n, 1)

	b.cachedActualGap = b.minGap
	if n > 1 {
		remainingSpace := b.cachedEffectiveW - b.cachedBarWidth*n
		b.cachedActualGap = max(remainingSpace/(n-1), b.minGap)
	}

	usedWidth := n*b.cachedBarWidth + (n-1)*b.cachedActualGap
	b.cachedStartX = b.cachedPaddingL + (b.cachedEffectiveW-usedWidth)/2
}

func fillBackground(img *image.RGBA, w, h int) {
	for y := range h {
		for x := range w {
			img.Set(x, y, color.Black)
		}
	}
}

func (b *Bars) drawSingleBar(img *image.RGBA, barX, barH, h int) {
	maxX := img.Bounds().Max.X - b.cachedPaddingR

	for y := 0; y < barH && y < b.cachedEffectiveH; y++ {
		screenY := h - 1 - y
		col := gradientColor(float64(y) / float64(b.cachedEffectiveH))

		for x := barX; x < barX+b.cachedBarWidth && x < maxX; x++ {
			if x >= b.cachedPaddingL {
				img.Set(x, screenY, col)
			}
		}
	}
}

func (b *Bars) drawCap(img *image.RGBA, barX, capY, h int) {
	if capY <= 0 || capY >= b.cachedEffectiveH {
		return
	}

	maxX := img.Bounds().Max.X - b.cachedPaddingR
	screenY := h - 1 - capY

	for cy := 0; cy < b.capHeight && screenY+cy < h && screenY+cy >= b.cachedPaddingT; cy++ {
		for x := barX; x < barX+b.cachedBarWidth && x < maxX; x++ {
			if x >= b.cachedPaddingL {
				img.Set(x, screenY+cy, color.White)
			}
		}
	}
}
