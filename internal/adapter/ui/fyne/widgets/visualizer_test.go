package widgets

import (
	"image/color"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/audiobars/internal/domain"
)

func TestBars_SetLevelsWithoutSmoothing(t *testing.T) {
	test.NewTempApp(t)

	b := NewBars(60, false)
	b.SetLevels(domain.Levels{10, 55, 100, 33})

	assert.Equal(t, []float64{10, 55, 100, 33}, b.Heights())
}

func TestBars_ClampsOutOfRangeLevels(t *testing.T) {
	test.NewTempApp(t)

	b := NewBars(60, false)
	b.SetLevels(domain.Levels{-5, 3, 150})

	assert.Equal(t, []float64{10, 10, 100}, b.Heights())
}

func TestBars_SmoothingConvergesWithoutOvershoot(t *testing.T) {
	test.NewTempApp(t)

	b := NewBars(60, true)
	t.Cleanup(b.Stop)
	target := domain.Levels{80, 20}

	b.SetLevels(target)
	first := b.Heights()
	assert.Greater(t, first[0], 0.0)
	assert.Less(t, first[0], 80.0, "the first frame must not jump straight to the target")

	for range 120 {
		b.SetLevels(target)
		h := b.Heights()
		assert.LessOrEqual(t, h[0], 80.0+1e-6)
		assert.LessOrEqual(t, h[1], 20.0+1e-6)
	}

	final := b.Heights()
	assert.InDelta(t, 80, final[0], 0.5)
	assert.InDelta(t, 20, final[1], 0.5)
}

func TestBars_StartsAtMinimumHeight(t *testing.T) {
	test.NewTempApp(t)

	b := NewBars(60, true)
	t.Cleanup(b.Stop)
	b.SetLevels(domain.Uniform(12, domain.DefaultIdleHeight))

	for _, h := range b.Heights() {
		assert.GreaterOrEqual(t, h, float64(domain.DefaultMinHeight))
		assert.LessOrEqual(t, h, float64(domain.DefaultIdleHeight))
	}
}

func TestBars_AdvanceSettlesAfterLastSnapshot(t *testing.T) {
	b := NewBars(60, true)

	for range 60 {
		b.apply(domain.Uniform(4, 100))
	}
	b.apply(domain.Uniform(4, domain.DefaultIdleHeight))

	settled := false
	for range 1000 {
		if settled = b.advance(); settled {
			break
		}
		for _, h := range b.heights {
			require.GreaterOrEqual(t, h, float64(domain.DefaultMinHeight))
		}
	}

	require.True(t, settled, "bars must come to rest without further snapshots")
	assert.Equal(t, []float64{14, 14, 14, 14}, b.heights)
	assert.Equal(t, []float64{14, 14, 14, 14}, b.caps)
}

func TestBars_SingleIdleSnapshotAfterLoudLevels(t *testing.T) {
	test.NewTempApp(t)

	b := NewBars(60, true)
	t.Cleanup(b.Stop)

	for range 60 {
		b.SetLevels(domain.Uniform(12, 100))
	}
	b.SetLevels(domain.Uniform(12, domain.DefaultIdleHeight))

	belowMin := false
	require.Eventually(t, func() bool {
		heights := b.Heights()
		for _, h := range heights {
			if h < float64(domain.DefaultMinHeight) {
				belowMin = true
			}
			if h != float64(domain.DefaultIdleHeight) {
				return false
			}
		}
		return !b.Animating()
	}, 5*time.Second, 10*time.Millisecond)

	assert.False(t, belowMin, "no bar may be shown below the minimum height")
}

func TestBars_StopEndsAnimation(t *testing.T) {
	test.NewTempApp(t)

	b := NewBars(60, true)
	b.SetLevels(domain.Uniform(4, 100))
	require.True(t, b.Animating())

	b.Stop()
	assert.False(t, b.Animating())

	b.SetLevels(domain.Uniform(4, 20))
	assert.False(t, b.Animating(), "a stopped widget does not start a new loop")
	b.Stop()
}

func TestBars_BarCountChangeResizes(t *testing.T) {
	test.NewTempApp(t)

	b := NewBars(60, true)
	t.Cleanup(b.Stop)
	b.SetLevels(domain.Uniform(12, 14))
	require.Len(t, b.Heights(), 12)

	b.SetLevels(domain.Uniform(4, 14))
	assert.Len(t, b.Heights(), 4)

	b.Reset()
	assert.Empty(t, b.Heights())
}

func TestBars_CapsFallBehindBars(t *testing.T) {
	b := NewBars(60, false)

	b.apply(domain.Levels{90})
	b.apply(domain.Levels{10})

	assert.Equal(t, 10.0, b.heights[0])
	assert.InDelta(t, 90-b.capFalloff, b.caps[0], 1e-9)
}

func TestBars_Draw(t *testing.T) {
	b := NewBars(60, false)
	b.apply(domain.Levels{100, 10})

	img := b.draw(120, 110)
	require.Equal(t, 120, img.Bounds().Dx())

	// The padded top row is background.
	assert.Equal(t, color.RGBA{A: 255}, img.At(0, 0))

	// Bottom row of the first bar is red, top of the full bar is green.
	firstBar := b.cachedStartX + 1
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.At(firstBar, 109))
	_, g, _, _ := img.At(firstBar, b.cachedPaddingT+1).RGBA()
	assert.NotZero(t, g)

	// The short bar stops at 10% of the drawable height.
	secondBar := b.cachedStartX + b.cachedBarWidth + b.cachedActualGap + 1
	assert.Equal(t, color.RGBA{A: 255}, img.At(secondBar, 109-20))
}

func TestBars_DrawEmpty(t *testing.T) {
	b := NewBars(60, false)
	img := b.draw(10, 10)
	assert.Equal(t, color.RGBA{A: 255}, img.At(5, 5))
}

func TestGradientColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 255, A: 255}, gradientColor(0))
	assert.Equal(t, color.RGBA{R: 255, G: 255, A: 255}, gradientColor(0.5))
	assert.Equal(t, color.RGBA{G: 255, A: 255}, gradientColor(1))
	assert.Equal(t, gradientColor(1), gradientColor(3))
	assert.Equal(t, gradientColor(0), gradientColor(-1))
}
