// Package viewport maps a pan position and a user zoom multiplier onto the
// crop rectangle of the source image that is visible through a fixed
// viewport.
//
// All functions are pure. The caller owns the current pan position and
// multiplier and passes them in on every call.
//
// Coordinates come in two flavours:
//
//   - a pan position, normalized so that {0,0} puts the scaled image at its
//     minimum offset (bottom-right corner touching the viewport) and {1,1}
//     puts its top-left corner at the viewport's top-left corner;
//   - an offset, the position in display pixels of the scaled image's top-left
//     corner relative to the viewport's top-left corner. Offsets are never
//     positive once in bounds.
package viewport

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/menta2k/image-cropper/pkg/types"
)

// ErrInvalidConfig is returned by New for unusable configurations
var ErrInvalidConfig = errors.New("invalid viewport configuration")

// Viewport is the fixed display region the image is panned inside
type Viewport struct {
	Width   float64 `json:"width" yaml:"width"`
	Height  float64 `json:"height" yaml:"height"`
	Padding float64 `json:"padding" yaml:"padding"`
}

// Size returns the viewport's extent
func (v Viewport) Size() types.Dimension {
	return types.Dimension{Width: v.Width, Height: v.Height}
}

// PanConvention selects how a caller's pan position is interpreted
type PanConvention int

const (
	// Normalized positions live in [0,1] per axis and are interpolated
	// between the pan bounds.
	Normalized PanConvention = iota
	// PixelDelta positions are display-pixel offsets clamped to the pan bounds.
	PixelDelta
)

func (c PanConvention) String() string {
	switch c {
	case Normalized:
		return "normalized"
	case PixelDelta:
		return "pixel"
	default:
		return fmt.Sprintf("PanConvention(%d)", int(c))
	}
}

// ParsePanConvention parses "normalized" or "pixel"
func ParsePanConvention(s string) (PanConvention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normalized", "normalised":
		return Normalized, nil
	case "pixel", "pixels", "pixel-delta":
		return PixelDelta, nil
	default:
		return Normalized, fmt.Errorf("unknown pan convention %q", s)
	}
}

// Config holds the engine's constants. ClampToImage keeps crop rectangles
// inside the source image bounds.
type Config struct {
	Viewport       Viewport
	Convention     PanConvention
	MinMultiplier  float64
	MaxMultiplier  float64
	MultiplierStep float64
	ClampToImage   bool
}

// DefaultConfig mirrors the crop screen: a square viewport with a 20px guide
// inset and a 1x..2x zoom slider in steps of 0.1.
func DefaultConfig() Config {
	return Config{
		Viewport:       Viewport{Width: 375, Height: 375, Padding: 20},
		Convention:     Normalized,
		MinMultiplier:  1,
		MaxMultiplier:  2,
		MultiplierStep: 0.1,
		ClampToImage:   true,
	}
}

// Validate checks that the configuration describes a usable viewport
func (c Config) Validate() error {
	v := c.Viewport
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"viewport width", v.Width},
		{"viewport height", v.Height},
		{"padding", v.Padding},
		{"minimum multiplier", c.MinMultiplier},
		{"maximum multiplier", c.MaxMultiplier},
		{"multiplier step", c.MultiplierStep},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be finite, got %g", ErrInvalidConfig, f.name, f.value)
		}
	}
	if !(v.Width > 0) || !(v.Height > 0) {
		return fmt.Errorf("%w: viewport must be positive, got %gx%g", ErrInvalidConfig, v.Width, v.Height)
	}
	if v.Padding < 0 || 2*v.Padding >= v.Width || 2*v.Padding >= v.Height {
		return fmt.Errorf("%w: padding %g leaves no crop area in %gx%g", ErrInvalidConfig, v.Padding, v.Width, v.Height)
	}
	if !(c.MinMultiplier > 0) {
		return fmt.Errorf("%w: minimum multiplier must be positive, got %g", ErrInvalidConfig, c.MinMultiplier)
	}
	if c.MaxMultiplier < c.MinMultiplier {
		return fmt.Errorf("%w: maximum multiplier %g below minimum %g", ErrInvalidConfig, c.MaxMultiplier, c.MinMultiplier)
	}
	if c.MultiplierStep < 0 {
		return fmt.Errorf("%w: multiplier step must not be negative", ErrInvalidConfig)
	}
	if c.Convention != Normalized && c.Convention != PixelDelta {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, c.Convention)
	}
	return nil
}

// Engine computes viewport geometry for a fixed configuration
type Engine struct {
	config Config
}

// New creates an engine after validating cfg
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{config: cfg}, nil
}

// Config returns the engine's configuration
func (e *Engine) Config() Config {
	return e.config
}

// Viewport returns the configured viewport
func (e *Engine) Viewport() Viewport {
	return e.config.Viewport
}

// BaseScaleFactor returns the cover-fit scale for an image multiplied by the
// user's zoom multiplier. The smaller image side is scaled up to the matching
// viewport side when it falls short; on a square image the width is checked
// first.
func (e *Engine) BaseScaleFactor(imageWidth, imageHeight, multiplier float64) float64 {
	vp := e.config.Viewport
	minSide := math.Min(imageWidth, imageHeight)
	base := 1.0
	switch {
	case minSide == imageWidth && minSide < vp.Width:
		base = vp.Width / minSide
	case minSide == imageHeight && minSide < vp.Height:
		base = vp.Height / minSide
	}
	return base * multiplier
}

// ScaledSize returns the on-screen size of an image at scale
func ScaledSize(image types.Dimension, scale float64) types.Dimension {
	return types.Dimension{Width: image.Width * scale, Height: image.Height * scale}
}

// PanBounds returns the minimum and maximum offsets of a scaled image. The
// maximum is always the origin. The minimum keeps the image's far edges on
// the viewport's far edges and is capped at the origin on an axis where the
// image does not overflow the viewport.
func (e *Engine) PanBounds(scaled types.Dimension) (min, max types.Coordinate) {
	vp := e.config.Viewport
	min = types.Coordinate{
		X: math.Min(vp.Width-scaled.Width, 0),
		Y: math.Min(vp.Height-scaled.Height, 0),
	}
	return min, types.Coordinate{}
}

// MapNormalizedPan interpolates a normalized position between min and max.
// Positions outside [0,1] extrapolate linearly.
func MapNormalizedPan(pos, min, max types.Coordinate) types.Coordinate {
	return types.Coordinate{
		X: min.X + pos.X*(max.X-min.X),
		Y: min.Y + pos.Y*(max.Y-min.Y),
	}
}

// NormalizeOffset is the inverse of MapNormalizedPan. An axis with no pan
// range normalizes to 0.5.
func NormalizeOffset(offset, min, max types.Coordinate) types.Coordinate {
	return types.Coordinate{
		X: normalizeAxis(offset.X, min.X, max.X),
		Y: normalizeAxis(offset.Y, min.Y, max.Y),
	}
}

func normalizeAxis(v, lo, hi float64) float64 {
	if hi == lo {
		return 0.5
	}
	return (v - lo) / (hi - lo)
}

// ClampNormalized clamps each axis of a normalized position to [0,1]
func ClampNormalized(pos types.Coordinate) types.Coordinate {
	return types.Coordinate{X: clamp(pos.X, 0, 1), Y: clamp(pos.Y, 0, 1)}
}

// ClampOffset clamps an offset into the pan bounds
func ClampOffset(offset, min, max types.Coordinate) types.Coordinate {
	return types.Coordinate{X: clamp(offset.X, min.X, max.X), Y: clamp(offset.Y, min.Y, max.Y)}
}

// CropRectangle maps the viewport, inset by padding on every side, back into
// source image pixels for an image drawn at offset and scale.
func (e *Engine) CropRectangle(offset types.Coordinate, scale, padding float64) types.CropRectangle {
	vp := e.config.Viewport
	return types.CropRectangle{
		X:      (padding - offset.X) / scale,
		Y:      (padding - offset.Y) / scale,
		Width:  (vp.Width - 2*padding) / scale,
		Height: (vp.Height - 2*padding) / scale,
	}
}

// ClampCrop fits r inside an image. The size is reduced only when it exceeds
// the image; otherwise the rectangle is shifted back inside.
func (e *Engine) ClampCrop(r types.CropRectangle, image types.Dimension) types.CropRectangle {
	w := clamp(r.Width, 0, image.Width)
	h := clamp(r.Height, 0, image.Height)
	return types.CropRectangle{
		X:      clamp(r.X, 0, image.Width-w),
		Y:      clamp(r.Y, 0, image.Height-h),
		Width:  w,
		Height: h,
	}
}

// ClampMultiplier bounds a zoom multiplier to the configured range and snaps
// it to the configured step.
func (e *Engine) ClampMultiplier(m float64) float64 {
	c := e.config
	if math.IsNaN(m) {
		return c.MinMultiplier
	}
	if c.MultiplierStep > 0 {
		steps := math.Round((m - c.MinMultiplier) / c.MultiplierStep)
		m = c.MinMultiplier + steps*c.MultiplierStep
		m = math.Round(m*1e9) / 1e9
	}
	return clamp(m, c.MinMultiplier, c.MaxMultiplier)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
