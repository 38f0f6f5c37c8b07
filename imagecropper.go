// Package imagecropper frames an image inside a fixed viewport and crops
// whatever the viewport's guide shows.
//
// The image is scaled so its shorter side covers the viewport, then a user
// zoom multiplier is applied on top. Panning moves the scaled image within
// bounds that keep the viewport covered, and the region under the inset crop
// guide is mapped back to source pixels.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		imagecropper "github.com/menta2k/image-cropper"
//		"github.com/menta2k/image-cropper/pkg/types"
//	)
//
//	func main() {
//		ic, err := imagecropper.New()
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		ctx := context.Background()
//		doc, err := ic.Open(ctx, "photo.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		s, err := ic.NewSession(doc)
//		if err != nil {
//			log.Fatal(err)
//		}
//		s.SetMultiplier(1.5)
//		s.DragBy(types.Coordinate{X: -40, Y: 0})
//		s.EndDrag()
//
//		result, err := ic.Commit(s, doc)
//		if err != nil {
//			log.Fatal(err)
//		}
//		if err := ic.Save(result, "photo_cropped.jpg", types.OutputOptions{Format: "jpg", Quality: 90}); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of these components:
//
//  1. Viewport (pkg/viewport): scale, pan bounds and crop geometry
//  2. Cropper (pkg/cropper): per-image pan/zoom sessions and crop commits
//  3. Analyzer (pkg/analyzer): image size lookup from file or URL headers
//  4. Processing (pkg/processing): pixel loading, cropping, encoding and previews
//  5. Focus (pkg/focus, pkg/detection): initial framing on the centre, a
//     smartcrop region, a face or a vision-model subject
package imagecropper

import (
	"context"
	"fmt"
	"image"
	"log"

	"github.com/menta2k/image-cropper/internal/config"
	"github.com/menta2k/image-cropper/pkg/analyzer"
	"github.com/menta2k/image-cropper/pkg/client"
	"github.com/menta2k/image-cropper/pkg/cropper"
	"github.com/menta2k/image-cropper/pkg/detection"
	"github.com/menta2k/image-cropper/pkg/focus"
	"github.com/menta2k/image-cropper/pkg/llamacpp"
	"github.com/menta2k/image-cropper/pkg/ollama"
	"github.com/menta2k/image-cropper/pkg/processing"
	"github.com/menta2k/image-cropper/pkg/types"
	"github.com/menta2k/image-cropper/pkg/viewport"
)

// Version of the image cropper library
const Version = "1.0.0"

// ImageCropper provides a high-level interface for viewport cropping
type ImageCropper struct {
	engine    *viewport.Engine
	analyzer  *analyzer.ImageAnalyzer
	processor *processing.Processor
	cropper   *cropper.Cropper
	focuser   focus.Focuser
	logger    *log.Logger
}

// Option customizes an ImageCropper
type Option func(*ImageCropper)

// WithFocuser replaces the configured focus strategy
func WithFocuser(f focus.Focuser) Option {
	return func(ic *ImageCropper) { ic.focuser = f }
}

// WithLogger sets where degraded-focus warnings go
func WithLogger(l *log.Logger) Option {
	return func(ic *ImageCropper) { ic.logger = l }
}

// WithProcessor replaces the pixel processor, e.g. to use another HTTP client
func WithProcessor(p *processing.Processor) Option {
	return func(ic *ImageCropper) { ic.processor = p }
}

// New creates a new ImageCropper with default configuration
func New(opts ...Option) (*ImageCropper, error) {
	return NewFromConfig(config.Default(), opts...)
}

// NewFromConfig creates an ImageCropper from an application configuration
func NewFromConfig(cfg *config.Config, opts ...Option) (*ImageCropper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	ec, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}
	engine, err := viewport.New(ec)
	if err != nil {
		return nil, err
	}

	ic := &ImageCropper{
		engine:    engine,
		processor: processing.NewProcessor(),
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(ic)
	}

	ic.analyzer = analyzer.NewWithConfig(analyzer.Config{
		SupportedFormats: cfg.Analyzer.SupportedFormats,
		MinImageSize:     cfg.Analyzer.MinImageSize,
	}, ic.processor)
	ic.cropper = cropper.New(ic.processor)

	if ic.focuser == nil {
		ic.focuser, err = NewFocuser(cfg.Focus, engine.Viewport(), ic.processor)
		if err != nil {
			return nil, err
		}
	}
	return ic, nil
}

// NewFocuser builds the focus strategy named by cfg. Smartcrop looks for
// regions shaped like the viewport's crop guide.
func NewFocuser(cfg config.FocusConfig, vp viewport.Viewport, p *processing.Processor) (focus.Focuser, error) {
	strategy, err := focus.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	switch strategy {
	case focus.StrategySmartcrop:
		return focus.NewSmartcrop(types.Dimension{
			Width:  vp.Width - 2*vp.Padding,
			Height: vp.Height - 2*vp.Padding,
		})
	case focus.StrategyFace:
		return focus.LoadFace(cfg.Cascade, focus.DefaultFaceParams(), focus.Center{})
	case focus.StrategyVision:
		var vc client.VisionClient
		switch cfg.Backend {
		case "llamacpp":
			vc, err = llamacpp.NewClient(cfg.URL)
		default:
			vc, err = ollama.NewClient(cfg.URL)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", cfg.Backend, err)
		}
		f := detection.NewSubjectFocuser(vc, p, cfg.Model)
		if cfg.MinConfidence > 0 {
			f.WithMinConfidence(cfg.MinConfidence)
		}
		return f, nil
	default:
		return focus.Center{}, nil
	}
}

// Engine returns the viewport geometry engine
func (ic *ImageCropper) Engine() *viewport.Engine {
	return ic.engine
}

// Processor returns the pixel processor
func (ic *ImageCropper) Processor() *processing.Processor {
	return ic.processor
}

// Document is a loaded source image together with its natural size
type Document struct {
	Source string
	Image  image.Image
	Size   types.Dimension
	Format string
}

// ImageSize looks up and validates the natural size of source without
// decoding its pixels
func (ic *ImageCropper) ImageSize(ctx context.Context, source string) (analyzer.ImageInfo, error) {
	info, err := ic.analyzer.GetImageInfo(ctx, source)
	if err != nil {
		return analyzer.ImageInfo{}, err
	}
	if err := ic.analyzer.ValidateImage(info.Dimension()); err != nil {
		return analyzer.ImageInfo{}, err
	}
	return info, nil
}

// Open reads the size of source and then loads its pixels. EXIF rotation
// may swap the header dimensions; the decoded bounds win.
//
// The size check fails fast on unsupported or undersized inputs before any
// pixels are decoded. For URL sources this costs a second request: the
// header read and the pixel load each fetch the resource. Callers that
// already hold the pixels can build a Document directly.
func (ic *ImageCropper) Open(ctx context.Context, source string) (*Document, error) {
	info, err := ic.ImageSize(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to read image size: %w", err)
	}

	img, err := ic.processor.LoadImageSmart(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	return &Document{
		Source: source,
		Image:  img,
		Size:   types.DimensionOf(img.Bounds()),
		Format: info.Format,
	}, nil
}

// NewSession starts a pan/zoom session for doc
func (ic *ImageCropper) NewSession(doc *Document) (*cropper.Session, error) {
	return cropper.NewSession(ic.engine, doc.Size)
}

// Focus pans the session onto the configured focus point. A failing
// strategy is logged and leaves the image centred.
func (ic *ImageCropper) Focus(ctx context.Context, s *cropper.Session, doc *Document) types.Coordinate {
	point, err := ic.focuser.Focus(ctx, doc.Image)
	if err != nil {
		ic.logger.Printf("Warning: focus failed for %s, centring instead: %v", doc.Source, err)
		point = focus.CenterPoint
	}
	return s.FocusOn(point)
}

// Commit crops doc to what the session shows
func (ic *ImageCropper) Commit(s *cropper.Session, doc *Document) (cropper.CropResult, error) {
	return ic.cropper.Commit(s, doc.Image)
}

// Preview renders the viewport as the user sees it, crop guide included
func (ic *ImageCropper) Preview(s *cropper.Session, doc *Document) image.Image {
	vp := ic.engine.Viewport()
	canvas := ic.processor.RenderPreview(doc.Image, s.Frame(), s.Offset(), vp)
	return ic.processor.DrawCropGuide(canvas, vp)
}

// Save writes a committed crop to path
func (ic *ImageCropper) Save(result cropper.CropResult, path string, opts types.OutputOptions) error {
	return ic.processor.SaveImage(result.Image, path, opts)
}

// ProcessOptions describe one non-interactive crop
type ProcessOptions struct {
	// Multiplier is the user zoom; zero keeps the minimum.
	Multiplier float64
	// Pan, when set, replaces the focus strategy with an explicit position
	// in the engine's pan convention.
	Pan *types.Coordinate
	// Drag is applied as a single gesture after focusing or panning.
	Drag   types.Coordinate
	Output types.OutputOptions
}

// ProcessImage opens source, frames it per opts and writes the crop to
// outputPath
func (ic *ImageCropper) ProcessImage(ctx context.Context, source, outputPath string, opts ProcessOptions) (*cropper.CropResult, error) {
	doc, err := ic.Open(ctx, source)
	if err != nil {
		return nil, err
	}

	s, err := ic.Frame(ctx, doc, opts)
	if err != nil {
		return nil, err
	}

	result, err := ic.Commit(s, doc)
	if err != nil {
		return nil, err
	}

	if err := ic.Save(result, outputPath, opts.Output); err != nil {
		return nil, fmt.Errorf("failed to save crop: %w", err)
	}
	return &result, nil
}

// Frame creates a session for doc and applies zoom, focus or pan, and drag
func (ic *ImageCropper) Frame(ctx context.Context, doc *Document, opts ProcessOptions) (*cropper.Session, error) {
	s, err := ic.NewSession(doc)
	if err != nil {
		return nil, err
	}

	if opts.Multiplier > 0 {
		s.SetMultiplier(opts.Multiplier)
	}
	if opts.Pan != nil {
		s.SetPosition(*opts.Pan)
		s.Snap()
	} else {
		ic.Focus(ctx, s, doc)
	}
	if opts.Drag != (types.Coordinate{}) {
		s.BeginDrag()
		s.DragBy(opts.Drag)
		s.EndDrag()
	}
	return s, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
