package focus

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	pigo "github.com/esimov/pigo/core"

	"github.com/menta2k/image-cropper/pkg/types"
)

// FaceParams tunes the pigo cascade run
type FaceParams struct {
	MinSize      int
	MaxSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IoUThreshold float64
	MinQuality   float32
}

// DefaultFaceParams returns the pigo settings used for photo-sized input
func DefaultFaceParams() FaceParams {
	return FaceParams{
		MinSize:      20,
		MaxSize:      1000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinQuality:   5,
	}
}

// Face focuses on the most confident face found by a pigo cascade. Images
// without a face fall back to another Focuser.
type Face struct {
	classifier *pigo.Pigo
	params     FaceParams
	fallback   Focuser
}

// NewFace unpacks a pigo face cascade (the "facefinder" model)
func NewFace(cascade []byte, params FaceParams, fallback Focuser) (*Face, error) {
	classifier, err := unpack(cascade)
	if err != nil {
		return nil, err
	}
	if fallback == nil {
		fallback = Center{}
	}
	return &Face{classifier: classifier, params: params, fallback: fallback}, nil
}

// LoadFace reads a cascade file and creates a Face focuser from it
func LoadFace(path string, params FaceParams, fallback Focuser) (*Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read face cascade: %w", err)
	}
	return NewFace(data, params, fallback)
}

// unpack guards pigo's Unpack, which indexes into the cascade without
// bounds checks
func unpack(cascade []byte) (classifier *pigo.Pigo, err error) {
	if len(cascade) < 16 {
		return nil, fmt.Errorf("face cascade too short (%d bytes)", len(cascade))
	}
	defer func() {
		if r := recover(); r != nil {
			classifier, err = nil, fmt.Errorf("malformed face cascade: %v", r)
		}
	}()
	classifier, err = pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack face cascade: %w", err)
	}
	return classifier, nil
}

// Focus implements Focuser
func (f *Face) Focus(ctx context.Context, img image.Image) (types.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return types.Coordinate{}, err
	}

	src := imaging.Clone(img)
	bounds := src.Bounds()
	cp := pigo.CascadeParams{
		MinSize:     f.params.MinSize,
		MaxSize:     f.params.MaxSize,
		ShiftFactor: f.params.ShiftFactor,
		ScaleFactor: f.params.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(src),
			Rows:   bounds.Dy(),
			Cols:   bounds.Dx(),
			Dim:    bounds.Dx(),
		},
	}

	dets := f.classifier.RunCascade(cp, 0.0)
	dets = f.classifier.ClusterDetections(dets, f.params.IoUThreshold)

	if p, ok := bestFace(dets, f.params.MinQuality, bounds); ok {
		return p, nil
	}
	return f.fallback.Focus(ctx, img)
}

// bestFace returns the normalized centre of the highest-quality detection
func bestFace(dets []pigo.Detection, minQ float32, bounds image.Rectangle) (types.Coordinate, bool) {
	best := -1
	for i, d := range dets {
		if d.Q < minQ {
			continue
		}
		if best < 0 || d.Q > dets[best].Q {
			best = i
		}
	}
	if best < 0 {
		return types.Coordinate{}, false
	}

	d := dets[best]
	half := d.Scale / 2
	r := image.Rect(d.Col-half, d.Row-half, d.Col+half, d.Row+half)
	if r.Empty() {
		r = image.Rect(d.Col, d.Row, d.Col+1, d.Row+1)
	}
	return centerOf(r, bounds), true
}
