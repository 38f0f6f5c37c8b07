package focus

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/muesli/smartcrop"

	"github.com/menta2k/image-cropper/pkg/types"
)

// Smartcrop focuses on the centre of the most interesting region with the
// aspect ratio of the crop area, as scored by muesli/smartcrop.
type Smartcrop struct {
	aspect    types.Dimension
	resampler imaging.ResampleFilter
}

// NewSmartcrop creates a Smartcrop focuser for crops of the given size. Only
// the ratio of width to height matters.
func NewSmartcrop(aspect types.Dimension) (*Smartcrop, error) {
	if !aspect.Valid() {
		return nil, fmt.Errorf("invalid smartcrop aspect %gx%g", aspect.Width, aspect.Height)
	}
	return &Smartcrop{aspect: aspect, resampler: imaging.Lanczos}, nil
}

// Focus implements Focuser. smartcrop cannot be interrupted, so on
// cancellation the analysis keeps running in the background and its result
// is dropped.
func (s *Smartcrop) Focus(ctx context.Context, img image.Image) (types.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return types.Coordinate{}, err
	}

	// smartcrop expects a zero-origin image
	src := imaging.Clone(img)
	w, h := s.cropSize(src.Bounds())
	analyzer := smartcrop.NewAnalyzer(&resizer{resampler: s.resampler})

	type cropResult struct {
		crop image.Rectangle
		err  error
	}
	resultChan := make(chan cropResult, 1)

	go func() {
		crop, err := analyzer.FindBestCrop(src, w, h)
		resultChan <- cropResult{crop: crop, err: err}
	}()

	select {
	case <-ctx.Done():
		return types.Coordinate{}, ctx.Err()
	case result := <-resultChan:
		if result.err != nil {
			return types.Coordinate{}, fmt.Errorf("finding best crop: %w", result.err)
		}
		return centerOf(result.crop, src.Bounds()), nil
	}
}

// cropSize is the largest crop with the configured aspect that fits bounds
func (s *Smartcrop) cropSize(bounds image.Rectangle) (int, int) {
	bw, bh := float64(bounds.Dx()), float64(bounds.Dy())
	scale := math.Min(bw/s.aspect.Width, bh/s.aspect.Height)
	w := min(bounds.Dx(), max(1, int(math.Round(s.aspect.Width*scale))))
	h := min(bounds.Dy(), max(1, int(math.Round(s.aspect.Height*scale))))
	return w, h
}

// resizer implements the smartcrop options.Resizer interface with imaging
type resizer struct {
	resampler imaging.ResampleFilter
}

func (r *resizer) Resize(img image.Image, width, height uint) image.Image {
	return imaging.Resize(img, int(width), int(height), r.resampler)
}
