// Package focus picks the image point a new crop session is framed around.
// Every strategy returns a normalized point in [0,1]x[0,1] image space that
// viewport.Engine.FocusPosition turns into a pan position.
package focus

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/menta2k/image-cropper/pkg/types"
)

// Focuser locates the point of interest of an image
type Focuser interface {
	Focus(ctx context.Context, img image.Image) (types.Coordinate, error)
}

// Strategy names a focus implementation
type Strategy string

const (
	StrategyCenter    Strategy = "center"
	StrategySmartcrop Strategy = "smartcrop"
	StrategyFace      Strategy = "face"
	StrategyVision    Strategy = "vision"
)

// ParseStrategy accepts a strategy name case-insensitively; "" means center
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StrategyCenter, nil
	case StrategyCenter, StrategySmartcrop, StrategyFace, StrategyVision:
		return st, nil
	default:
		return "", fmt.Errorf("unknown focus strategy %q (expected center, smartcrop, face or vision)", s)
	}
}

// CenterPoint is the middle of the image
var CenterPoint = types.Coordinate{X: 0.5, Y: 0.5}

// Center always frames the middle of the image
type Center struct{}

// Focus implements Focuser
func (Center) Focus(ctx context.Context, img image.Image) (types.Coordinate, error) {
	return CenterPoint, nil
}

// centerOf returns the centre of r in the normalized space of bounds
func centerOf(r, bounds image.Rectangle) types.Coordinate {
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || r.Empty() {
		return CenterPoint
	}
	cx := float64(r.Min.X+r.Max.X)/2 - float64(bounds.Min.X)
	cy := float64(r.Min.Y+r.Max.Y)/2 - float64(bounds.Min.Y)
	return types.Coordinate{
		X: clamp01(cx / float64(w)),
		Y: clamp01(cy / float64(h)),
	}
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
