package client

import (
	"context"
	"time"

	"github.com/menta2k/image-cropper/pkg/types"
)

// DefaultTimeout applies to vision requests whose context has no deadline.
// Local vision models on CPU are slow.
const DefaultTimeout = 300 * time.Second

// VisionClient asks a vision model where the subject of an image is
type VisionClient interface {
	AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.AnalysisResult, error)
}

// WithDefaultTimeout returns ctx unchanged when it already has a deadline
func WithDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}
