package types

import (
	"image"
	"math"
)

// Dimension is the extent of an image or viewport in pixels
type Dimension struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Min returns the smaller of the two sides
func (d Dimension) Min() float64 {
	return math.Min(d.Width, d.Height)
}

// Valid reports whether both sides are positive and finite
func (d Dimension) Valid() bool {
	return d.Width > 0 && d.Height > 0 && !math.IsInf(d.Width, 0) && !math.IsInf(d.Height, 0)
}

// DimensionOf returns the size of an image's bounds
func DimensionOf(r image.Rectangle) Dimension {
	return Dimension{Width: float64(r.Dx()), Height: float64(r.Dy())}
}

// Coordinate is a 2D point. Depending on context it is either a normalized
// pan position or an absolute pixel offset.
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns c+o
func (c Coordinate) Add(o Coordinate) Coordinate {
	return Coordinate{X: c.X + o.X, Y: c.Y + o.Y}
}

// CropRectangle is a region in the original image's pixel space
type CropRectangle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Offset returns the top-left corner of the rectangle
func (r CropRectangle) Offset() Coordinate {
	return Coordinate{X: r.X, Y: r.Y}
}

// Size returns the width and height of the rectangle
func (r CropRectangle) Size() Dimension {
	return Dimension{Width: r.Width, Height: r.Height}
}

// Rect rounds the rectangle to whole pixels
func (r CropRectangle) Rect() image.Rectangle {
	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	x1 := int(math.Round(r.X + r.Width))
	y1 := int(math.Round(r.Y + r.Height))
	return image.Rect(x0, y0, x1, y1)
}

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the normalized center point of the box
func (b Box) Center() Coordinate {
	return Coordinate{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// Primary represents the primary subject detected in an image
type Primary struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
	Cx         float64 `json:"cx"`
	Cy         float64 `json:"cy"`
}

// AnalysisResult contains the subject located by a vision model
type AnalysisResult struct {
	Primary     Primary  `json:"primary"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// OutputOptions controls how a cropped image is written
type OutputOptions struct {
	Format   string
	Quality  int
	Lossless bool
}
