package focus

import (
	"context"
	"image"
	"image/color"
	"testing"

	pigo "github.com/esimov/pigo/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-cropper/pkg/types"
)

func checkerImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := uint8(40)
			if (x/8+y/8)%2 == 0 {
				c = 220
			}
			img.SetNRGBA(x, y, color.NRGBA{c, c / 2, 255 - c, 255})
		}
	}
	return img
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyCenter, false},
		{"center", StrategyCenter, false},
		{" SmartCrop ", StrategySmartcrop, false},
		{"face", StrategyFace, false},
		{"vision", StrategyVision, false},
		{"saliency", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestCenter(t *testing.T) {
	p, err := Center{}.Focus(context.Background(), checkerImage(10, 10))
	require.NoError(t, err)
	assert.Equal(t, types.Coordinate{X: 0.5, Y: 0.5}, p)
}

func TestCenterOf(t *testing.T) {
	bounds := image.Rect(0, 0, 200, 100)
	assert.Equal(t, types.Coordinate{X: 0.25, Y: 0.5}, centerOf(image.Rect(0, 0, 100, 100), bounds))
	assert.Equal(t, CenterPoint, centerOf(image.Rectangle{}, bounds))

	// offset bounds
	assert.Equal(t, types.Coordinate{X: 0.5, Y: 0.5}, centerOf(image.Rect(10, 10, 30, 30), image.Rect(0, 0, 40, 40)))
	assert.Equal(t, types.Coordinate{X: 0.5, Y: 0.5}, centerOf(image.Rect(20, 20, 40, 40), image.Rect(10, 10, 50, 50)))
}

func TestNewSmartcrop(t *testing.T) {
	_, err := NewSmartcrop(types.Dimension{Width: 0, Height: 1})
	assert.Error(t, err)

	s, err := NewSmartcrop(types.Dimension{Width: 335, Height: 335})
	require.NoError(t, err)

	w, h := s.cropSize(image.Rect(0, 0, 150, 600))
	assert.Equal(t, 150, w)
	assert.Equal(t, 150, h)
}

func TestSmartcropFocus(t *testing.T) {
	s, err := NewSmartcrop(types.Dimension{Width: 1, Height: 1})
	require.NoError(t, err)

	p, err := s.Focus(context.Background(), checkerImage(120, 240))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, p.X, 0.0)
	assert.LessOrEqual(t, p.X, 1.0)
	assert.GreaterOrEqual(t, p.Y, 0.0)
	assert.LessOrEqual(t, p.Y, 1.0)
	// a square crop spans the full width of a portrait image
	assert.InDelta(t, 0.5, p.X, 0.1)
}

func TestSmartcropCancelled(t *testing.T) {
	s, err := NewSmartcrop(types.Dimension{Width: 1, Height: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Focus(ctx, checkerImage(50, 50))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFaceRejectsBadCascade(t *testing.T) {
	_, err := NewFace([]byte("nope"), DefaultFaceParams(), nil)
	assert.Error(t, err)

	_, err = LoadFace("/nonexistent/facefinder", DefaultFaceParams(), nil)
	assert.Error(t, err)
}

func TestBestFace(t *testing.T) {
	bounds := image.Rect(0, 0, 400, 200)
	dets := []pigo.Detection{
		{Row: 50, Col: 100, Scale: 40, Q: 8},
		{Row: 100, Col: 300, Scale: 60, Q: 12.5},
		{Row: 150, Col: 20, Scale: 30, Q: 2},
	}

	p, ok := bestFace(dets, 5, bounds)
	require.True(t, ok)
	assert.Equal(t, types.Coordinate{X: 0.75, Y: 0.5}, p)

	_, ok = bestFace(dets, 20, bounds)
	assert.False(t, ok)

	_, ok = bestFace(nil, 0, bounds)
	assert.False(t, ok)
}
