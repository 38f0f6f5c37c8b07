package cropper

import (
	"fmt"
	"image"

	"github.com/menta2k/image-cropper/pkg/types"
	"github.com/menta2k/image-cropper/pkg/viewport"
)

// Executor cuts a rectangle given in source pixels out of an image
type Executor interface {
	Crop(img image.Image, offset types.Coordinate, size types.Dimension) (image.Image, error)
}

// Session holds the pan and zoom state of one image in the viewport. It is
// owned by a single caller and is not safe for concurrent use.
type Session struct {
	engine     *viewport.Engine
	image      types.Dimension
	multiplier float64
	frame      viewport.Frame
	position   types.Coordinate
	dragStart  types.Coordinate
	dragging   bool
}

// NewSession starts a session at the minimum multiplier with the image centred
func NewSession(engine *viewport.Engine, image types.Dimension) (*Session, error) {
	if engine == nil {
		return nil, fmt.Errorf("nil viewport engine")
	}
	if !image.Valid() {
		return nil, fmt.Errorf("invalid image dimensions %gx%g", image.Width, image.Height)
	}

	s := &Session{
		engine:     engine,
		image:      image,
		multiplier: engine.Config().MinMultiplier,
	}
	s.frame = engine.Frame(image, s.multiplier)
	s.position = engine.Center(s.frame)
	return s, nil
}

// Image returns the natural size of the session's image
func (s *Session) Image() types.Dimension {
	return s.image
}

// Multiplier returns the current user zoom multiplier
func (s *Session) Multiplier() float64 {
	return s.multiplier
}

// SetMultiplier changes the zoom multiplier and returns the value actually
// applied after bounds and step snapping. A normalized position is kept as
// is; a pixel position is carried over proportionally.
func (s *Session) SetMultiplier(m float64) float64 {
	m = s.engine.ClampMultiplier(m)
	old := s.frame
	s.multiplier = m
	s.frame = s.engine.Frame(s.image, m)

	if s.engine.Config().Convention == viewport.PixelDelta {
		s.position = s.rescale(s.position, old)
		s.dragStart = s.rescale(s.dragStart, old)
	}
	return m
}

func (s *Session) rescale(offset types.Coordinate, old viewport.Frame) types.Coordinate {
	n := viewport.NormalizeOffset(offset, old.Min, old.Max)
	return viewport.MapNormalizedPan(n, s.frame.Min, s.frame.Max)
}

// Frame returns the geometry for the current multiplier
func (s *Session) Frame() viewport.Frame {
	return s.frame
}

// Position returns the pan position under the engine's convention
func (s *Session) Position() types.Coordinate {
	return s.position
}

// SetPosition replaces the pan position. It is not clamped; call EndDrag or
// Snap to bring it back in bounds.
func (s *Session) SetPosition(p types.Coordinate) {
	s.position = p
}

// Snap brings the position back inside the pan bounds
func (s *Session) Snap() types.Coordinate {
	s.position = s.engine.Snap(s.position, s.frame)
	return s.position
}

// FocusOn pans so that a normalized image point sits as close to the
// viewport centre as the bounds allow
func (s *Session) FocusOn(point types.Coordinate) types.Coordinate {
	s.position = s.engine.FocusPosition(point, s.frame)
	return s.position
}

// BeginDrag records the position a gesture starts from
func (s *Session) BeginDrag() {
	s.dragStart = s.position
	s.dragging = true
}

// Dragging reports whether a gesture is in progress
func (s *Session) Dragging() bool {
	return s.dragging
}

// DragBy moves the image by a gesture's accumulated display-pixel delta
// since BeginDrag. The position may leave the bounds until EndDrag.
func (s *Session) DragBy(delta types.Coordinate) types.Coordinate {
	if !s.dragging {
		s.BeginDrag()
	}
	s.position = s.dragStart.Add(s.engine.DragDelta(delta, s.frame))
	return s.position
}

// EndDrag finishes a gesture and snaps the position back in bounds
func (s *Session) EndDrag() types.Coordinate {
	s.dragging = false
	return s.Snap()
}

// Offset returns the display offset of the scaled image
func (s *Session) Offset() types.Coordinate {
	return s.engine.Offset(s.position, s.frame)
}

// CropRectangle returns the visible region in source image pixels
func (s *Session) CropRectangle() types.CropRectangle {
	return s.engine.Crop(s.Offset(), s.frame)
}

// Cropper commits sessions through an Executor
type Cropper struct {
	executor Executor
}

// New creates a Cropper
func New(executor Executor) *Cropper {
	return &Cropper{executor: executor}
}

// CropResult contains the result of a committed crop
type CropResult struct {
	Image    image.Image
	Rect     types.CropRectangle
	Frame    viewport.Frame
	Position types.Coordinate
}

// Commit crops img to what the session currently shows. img must be the
// image the session was created for.
func (c *Cropper) Commit(s *Session, img image.Image) (CropResult, error) {
	if s.Dragging() {
		s.EndDrag()
	}

	got := types.DimensionOf(img.Bounds())
	if got != s.Image() {
		return CropResult{}, fmt.Errorf("image is %gx%g but session was opened for %gx%g",
			got.Width, got.Height, s.image.Width, s.image.Height)
	}

	rect := s.CropRectangle()
	cropped, err := c.executor.Crop(img, rect.Offset(), rect.Size())
	if err != nil {
		return CropResult{}, fmt.Errorf("crop failed: %w", err)
	}

	return CropResult{
		Image:    cropped,
		Rect:     rect,
		Frame:    s.frame,
		Position: s.position,
	}, nil
}
