package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-cropper/pkg/types"
)

func TestFrame(t *testing.T) {
	e := newTestEngine(t, 300, 300, 20)
	f := e.Frame(types.Dimension{Width: 150, Height: 600}, 1)

	assert.Equal(t, 2.0, f.Scale)
	assert.Equal(t, types.Dimension{Width: 300, Height: 1200}, f.Scaled)
	assert.Equal(t, types.Coordinate{X: 0, Y: -900}, f.Min)
	assert.Equal(t, types.Coordinate{}, f.Max)
}

func TestFrameAtMaximumMultiplierKeepsBoundsOrdered(t *testing.T) {
	e := newTestEngine(t, 300, 300, 20)
	max := e.ClampMultiplier(10)
	for _, dim := range []types.Dimension{{Width: 150, Height: 600}, {Width: 5000, Height: 301}, {Width: 300, Height: 300}} {
		f := e.Frame(dim, max)
		assert.LessOrEqual(t, f.Min.X, f.Max.X)
		assert.LessOrEqual(t, f.Min.Y, f.Max.Y)
	}
}

func TestOffsetNormalized(t *testing.T) {
	e := newTestEngine(t, 300, 300, 20)
	f := e.Frame(types.Dimension{Width: 150, Height: 600}, 1)

	assert.Equal(t, types.Coordinate{X: 0, Y: -450}, e.Offset(types.Coordinate{X: 0.5, Y: 0.5}, f))
	assert.Equal(t, types.Coordinate{X: 0.5, Y: 0.5}, e.Center(f))

	crop := e.Crop(e.Offset(e.Center(f), f), f)
	assert.Equal(t, types.CropRectangle{X: 10, Y: 235, Width: 130, Height: 130}, crop)
}

func TestOffsetPixelDelta(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Viewport = Viewport{Width: 300, Height: 300, Padding: 20}
	cfg.Convention = PixelDelta
	e, err := New(cfg)
	require.NoError(t, err)

	f := e.Frame(types.Dimension{Width: 150, Height: 600}, 1)
	assert.Equal(t, types.Coordinate{X: 0, Y: -900}, e.Offset(types.Coordinate{X: -40, Y: -1500}, f))
	assert.Equal(t, types.Coordinate{X: 0, Y: -450}, e.Center(f))
	assert.Equal(t, types.Coordinate{X: 3, Y: -7}, e.DragDelta(types.Coordinate{X: 3, Y: -7}, f))
	assert.Equal(t, types.Coordinate{X: 0, Y: 0}, e.Snap(types.Coordinate{X: 10, Y: 50}, f))
}

func TestDragDelta(t *testing.T) {
	e := newTestEngine(t, 300, 300, 20)
	f := e.Frame(types.Dimension{Width: 150, Height: 600}, 1)

	d := e.DragDelta(types.Coordinate{X: 25, Y: 90}, f)
	assert.Equal(t, 0.0, d.X)
	assert.InDelta(t, 0.1, d.Y, 1e-12)
}

func TestFocusPosition(t *testing.T) {
	e := newTestEngine(t, 300, 300, 20)
	f := e.Frame(types.Dimension{Width: 150, Height: 600}, 1)

	// centre of image is centre of pan range
	p := e.FocusPosition(types.Coordinate{X: 0.5, Y: 0.5}, f)
	assert.InDelta(t, 0.5, p.X, 1e-12)
	assert.InDelta(t, 0.5, p.Y, 1e-12)

	// a point near the top cannot be centred; position pins at the top
	p = e.FocusPosition(types.Coordinate{X: 0.5, Y: 0.01}, f)
	assert.Equal(t, 1.0, p.Y)

	// y = 0.25 -> 300px into the 1200px image; centring needs offset -150
	p = e.FocusPosition(types.Coordinate{X: 0.5, Y: 0.25}, f)
	assert.InDelta(t, 750.0/900.0, p.Y, 1e-12)
}

func TestCropClampsWhenConfigured(t *testing.T) {
	e := newTestEngine(t, 300, 300, 20)
	f := e.Frame(types.Dimension{Width: 150, Height: 600}, 1)

	// extrapolated past the top edge
	offset := e.Offset(types.Coordinate{X: 0.5, Y: 1.2}, f)
	assert.InDelta(t, 180.0, offset.Y, 1e-9)

	r := e.Crop(offset, f)
	assert.Equal(t, 0.0, r.Y)
	assert.Equal(t, 130.0, r.Height)

	cfg := e.Config()
	cfg.ClampToImage = false
	raw, err := New(cfg)
	require.NoError(t, err)
	assert.InDelta(t, -80.0, raw.Crop(offset, f).Y, 1e-9)
}
