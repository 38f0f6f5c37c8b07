package viewport

import (
	"github.com/menta2k/image-cropper/pkg/types"
)

// Frame is the geometry of one image at one zoom multiplier
type Frame struct {
	Image      types.Dimension  `json:"image"`
	Multiplier float64          `json:"multiplier"`
	Scale      float64          `json:"scale"`
	Scaled     types.Dimension  `json:"scaled"`
	Min        types.Coordinate `json:"min"`
	Max        types.Coordinate `json:"max"`
}

// Frame computes the scale, scaled size and pan bounds of an image. The
// multiplier is used as given; pass it through ClampMultiplier first when it
// comes from user input.
func (e *Engine) Frame(image types.Dimension, multiplier float64) Frame {
	scale := e.BaseScaleFactor(image.Width, image.Height, multiplier)
	scaled := ScaledSize(image, scale)
	min, max := e.PanBounds(scaled)
	return Frame{
		Image:      image,
		Multiplier: multiplier,
		Scale:      scale,
		Scaled:     scaled,
		Min:        min,
		Max:        max,
	}
}

// Offset resolves a caller position into an image offset using the
// configured pan convention.
func (e *Engine) Offset(pos types.Coordinate, f Frame) types.Coordinate {
	if e.config.Convention == PixelDelta {
		return ClampOffset(pos, f.Min, f.Max)
	}
	return MapNormalizedPan(pos, f.Min, f.Max)
}

// Position is the inverse of Offset
func (e *Engine) Position(offset types.Coordinate, f Frame) types.Coordinate {
	if e.config.Convention == PixelDelta {
		return ClampOffset(offset, f.Min, f.Max)
	}
	return NormalizeOffset(offset, f.Min, f.Max)
}

// Snap brings a position released outside the pan bounds back inside
func (e *Engine) Snap(pos types.Coordinate, f Frame) types.Coordinate {
	if e.config.Convention == PixelDelta {
		return ClampOffset(pos, f.Min, f.Max)
	}
	return ClampNormalized(pos)
}

// Center returns the position that centres the scaled image in the viewport
func (e *Engine) Center(f Frame) types.Coordinate {
	return e.Position(MapNormalizedPan(types.Coordinate{X: 0.5, Y: 0.5}, f.Min, f.Max), f)
}

// DragDelta converts a gesture delta in display pixels into a position delta
// under the configured convention. In normalized convention an axis without
// pan range does not move.
func (e *Engine) DragDelta(delta types.Coordinate, f Frame) types.Coordinate {
	if e.config.Convention == PixelDelta {
		return delta
	}
	return types.Coordinate{
		X: scaleAxis(delta.X, f.Max.X-f.Min.X),
		Y: scaleAxis(delta.Y, f.Max.Y-f.Min.Y),
	}
}

func scaleAxis(d, span float64) float64 {
	if span == 0 {
		return 0
	}
	return d / span
}

// FocusPosition returns the in-bounds position that brings a normalized image
// point as close to the viewport centre as the pan bounds allow.
func (e *Engine) FocusPosition(point types.Coordinate, f Frame) types.Coordinate {
	vp := e.config.Viewport
	offset := types.Coordinate{
		X: vp.Width/2 - point.X*f.Scaled.Width,
		Y: vp.Height/2 - point.Y*f.Scaled.Height,
	}
	return e.Position(ClampOffset(offset, f.Min, f.Max), f)
}

// Crop returns the crop rectangle for an image offset, inset by the
// configured padding and clamped to the image when configured.
func (e *Engine) Crop(offset types.Coordinate, f Frame) types.CropRectangle {
	r := e.CropRectangle(offset, f.Scale, e.config.Viewport.Padding)
	if e.config.ClampToImage {
		r = e.ClampCrop(r, f.Image)
	}
	return r
}
