package analyzer

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/menta2k/image-cropper/pkg/processing"
	"github.com/menta2k/image-cropper/pkg/types"
)

// Opener returns a reader for an image file path or URL
type Opener interface {
	Open(ctx context.Context, source string) (io.ReadCloser, error)
}

// ImageAnalyzer reports the natural size of images without decoding pixels
type ImageAnalyzer struct {
	config Config
	opener Opener
}

// Config holds configuration for the image analyzer
type Config struct {
	SupportedFormats []string
	MinImageSize     int
}

// DefaultConfig returns the formats the cropper can read and a 1px minimum
func DefaultConfig() Config {
	return Config{
		SupportedFormats: []string{"jpeg", "png", "webp"},
		MinImageSize:     1,
	}
}

// New creates a new ImageAnalyzer with default configuration
func New() *ImageAnalyzer {
	return NewWithConfig(DefaultConfig(), processing.NewProcessor())
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(config Config, opener Opener) *ImageAnalyzer {
	if opener == nil {
		opener = processing.NewProcessor()
	}
	return &ImageAnalyzer{config: config, opener: opener}
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int
	Height      int
	AspectRatio float64
	Format      string
}

// Dimension returns the image size as used by the viewport engine
func (i ImageInfo) Dimension() types.Dimension {
	return types.Dimension{Width: float64(i.Width), Height: float64(i.Height)}
}

// GetImageInfo reads only the image header of uri
func (a *ImageAnalyzer) GetImageInfo(ctx context.Context, uri string) (ImageInfo, error) {
	r, err := a.opener.Open(ctx, uri)
	if err != nil {
		return ImageInfo{}, err
	}
	defer r.Close()

	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to read image header of %s: %w", uri, err)
	}
	if !a.isFormatSupported(format) {
		return ImageInfo{}, fmt.Errorf("unsupported image format: %s", format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, fmt.Errorf("invalid image size %dx%d", cfg.Width, cfg.Height)
	}

	return ImageInfo{
		Width:       cfg.Width,
		Height:      cfg.Height,
		AspectRatio: float64(cfg.Width) / float64(cfg.Height),
		Format:      format,
	}, nil
}

// GetImageSize returns the natural width and height of the image at uri
func (a *ImageAnalyzer) GetImageSize(ctx context.Context, uri string) (types.Dimension, error) {
	info, err := a.GetImageInfo(ctx, uri)
	if err != nil {
		return types.Dimension{}, err
	}
	return info.Dimension(), nil
}

func (a *ImageAnalyzer) isFormatSupported(format string) bool {
	if len(a.config.SupportedFormats) == 0 {
		return true
	}
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}

// ValidateImage checks if an image meets minimum requirements
func (a *ImageAnalyzer) ValidateImage(dim types.Dimension) error {
	minSide := float64(a.config.MinImageSize)
	if !dim.Valid() || dim.Width < minSide || dim.Height < minSide {
		return fmt.Errorf("image too small: %gx%g (minimum: %d)",
			dim.Width, dim.Height, a.config.MinImageSize)
	}
	return nil
}
