package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/image-cropper/pkg/types"
)

// ErrEmptyCrop is returned when a crop rectangle covers no pixels of the image
var ErrEmptyCrop = errors.New("empty crop rectangle")

// DefaultQuality is used for lossy formats when no valid quality is given
const DefaultQuality = 90

const userAgent = "Image-Cropper/1.0 (+https://github.com/menta2k/image-cropper)"

// Processor handles image loading, cropping and encoding
type Processor struct {
	client *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewProcessorWithClient creates a processor that downloads through client
func NewProcessorWithClient(client *http.Client) *Processor {
	return &Processor{client: client}
}

// IsURL reports whether source should be fetched over http
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Open returns a reader for a file path or an http(s) URL
func (p *Processor) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	if !IsURL(source) {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open image file: %w", err)
		}
		return f, nil
	}

	parsedURL, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		resp.Body.Close()
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}
	return resp.Body, nil
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders, EXIF orientation applied)
	if img, err := imaging.Open(path, imaging.AutoOrientation(true)); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	img, err := p.decodeImageFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// LoadImageFromURL downloads and decodes an image
func (p *Processor) LoadImageFromURL(ctx context.Context, imageURL string) (image.Image, error) {
	body, err := p.Open(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	imageData, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return p.decodeImageFromBytes(imageData)
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(ctx context.Context, source string) (image.Image, error) {
	if IsURL(source) {
		return p.LoadImageFromURL(ctx, source)
	}
	return p.LoadImage(source)
}

// decodeImageFromBytes decodes an image from byte data with WebP fallback
func (p *Processor) decodeImageFromBytes(data []byte) (image.Image, error) {
	if img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// Crop cuts the rectangle at offset with size, both in source pixels, out of
// img. Fractional coordinates are rounded to whole pixels and the result is
// intersected with the image bounds.
func (p *Processor) Crop(img image.Image, offset types.Coordinate, size types.Dimension) (image.Image, error) {
	r := types.CropRectangle{X: offset.X, Y: offset.Y, Width: size.Width, Height: size.Height}.Rect()

	bounds := img.Bounds()
	rect := r.Add(bounds.Min).Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("%w: %v in %v", ErrEmptyCrop, r, bounds)
	}
	return imaging.Crop(img, rect), nil
}

// CropToRect crops img to a crop rectangle
func (p *Processor) CropToRect(img image.Image, r types.CropRectangle) (image.Image, error) {
	return p.Crop(img, r.Offset(), r.Size())
}

// EncodeImage encodes an image as jpg, png or webp
func (p *Processor) EncodeImage(w io.Writer, img image.Image, opts types.OutputOptions) error {
	switch strings.ToLower(opts.Format) {
	case "webp":
		return webp.Encode(w, img, &webp.Options{Lossless: opts.Lossless, Quality: float32(quality(opts))})
	case "png":
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case "jpg", "jpeg", "":
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality(opts)))
	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
}

func quality(opts types.OutputOptions) int {
	if opts.Quality <= 0 || opts.Quality > 100 {
		return DefaultQuality
	}
	return opts.Quality
}

// EncodeBase64 encodes an image and returns it base64 encoded. When maxDim is
// positive the image is first shrunk so its long side fits.
func (p *Processor) EncodeBase64(img image.Image, opts types.OutputOptions, maxDim int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	if err := p.EncodeImage(&buf, img, opts); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path string, opts types.OutputOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := p.EncodeImage(f, img, opts); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
