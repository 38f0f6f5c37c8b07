package imagecropper

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/menta2k/image-cropper/internal/config"
	"github.com/menta2k/image-cropper/pkg/focus"
	"github.com/menta2k/image-cropper/pkg/processing"
	"github.com/menta2k/image-cropper/pkg/types"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	// Create a pattern with a bright subject in the lower third
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if y > 2*height/3 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{64, 64, 64, 255})
			}
		}
	}

	return img
}

func writeTestImage(t *testing.T, width, height int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(width, height)); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "portrait.png")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

type fixedFocuser struct {
	point types.Coordinate
	err   error
}

func (f fixedFocuser) Focus(ctx context.Context, img image.Image) (types.Coordinate, error) {
	return f.point, f.err
}

func TestNew(t *testing.T) {
	ic, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if ic.engine == nil || ic.analyzer == nil || ic.processor == nil || ic.cropper == nil {
		t.Error("component is nil")
	}

	if _, ok := ic.focuser.(focus.Center); !ok {
		t.Errorf("expected center focus by default, got %T", ic.focuser)
	}
}

func TestNewFromConfigRejectsInvalid(t *testing.T) {
	cfg := config.Default()
	cfg.Viewport.Padding = 500
	if _, err := NewFromConfig(cfg); err == nil {
		t.Error("expected error for padding larger than the viewport")
	}
}

func TestNewFocuser(t *testing.T) {
	cfg := config.Default()
	vp := cfg.Viewport
	p := processing.NewProcessor()

	cfg.Focus.Strategy = "smartcrop"
	f, err := NewFocuser(cfg.Focus, vp, p)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f.(*focus.Smartcrop); !ok {
		t.Errorf("expected *focus.Smartcrop, got %T", f)
	}

	cfg.Focus.Strategy = "vision"
	cfg.Focus.Backend = "llamacpp"
	cfg.Focus.URL = "http://localhost:8080"
	if _, err := NewFocuser(cfg.Focus, vp, p); err != nil {
		t.Errorf("vision focuser: %v", err)
	}

	cfg.Focus.Strategy = "face"
	cfg.Focus.Cascade = filepath.Join(t.TempDir(), "missing")
	if _, err := NewFocuser(cfg.Focus, vp, p); err == nil {
		t.Error("expected error for missing cascade")
	}
}

func TestProcessImageCentred(t *testing.T) {
	ic, err := New()
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "out.png")

	result, err := ic.ProcessImage(context.Background(), writeTestImage(t, 150, 600), out, ProcessOptions{
		Output: types.OutputOptions{Format: "png"},
	})
	if err != nil {
		t.Fatalf("ProcessImage() error: %v", err)
	}

	// 150px wide image in a 375px viewport is scaled 2.5x; the guide is 335px
	want := types.CropRectangle{X: 8, Y: 233, Width: 134, Height: 134}
	if result.Rect != want {
		t.Errorf("expected crop %+v, got %+v", want, result.Rect)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 134 || cfg.Height != 134 {
		t.Errorf("expected 134x134 output, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestFrameFocusAndPan(t *testing.T) {
	ic, err := New(WithFocuser(fixedFocuser{point: types.Coordinate{X: 0.5, Y: 1}}))
	if err != nil {
		t.Fatal(err)
	}
	doc, err := ic.Open(context.Background(), writeTestImage(t, 150, 600))
	if err != nil {
		t.Fatal(err)
	}

	s, err := ic.Frame(context.Background(), doc, ProcessOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.CropRectangle(); got.Y != 458 {
		t.Errorf("expected focus on the bottom edge (y=458), got %+v", got)
	}

	s, err = ic.Frame(context.Background(), doc, ProcessOptions{Pan: &types.Coordinate{X: 0.5, Y: 3}})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.CropRectangle(); got.Y != 8 {
		t.Errorf("expected pan snapped to the top (y=8), got %+v", got)
	}

	s, err = ic.Frame(context.Background(), doc, ProcessOptions{Multiplier: 2, Pan: &types.Coordinate{X: 0.5, Y: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.CropRectangle().Width; got != 67 {
		t.Errorf("expected zoomed crop width 67, got %v", got)
	}
}

func TestFocusFailureCentres(t *testing.T) {
	var logs bytes.Buffer
	ic, err := New(
		WithFocuser(fixedFocuser{err: errors.New("model offline")}),
		WithLogger(log.New(&logs, "", 0)),
	)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := ic.Open(context.Background(), writeTestImage(t, 150, 600))
	if err != nil {
		t.Fatal(err)
	}
	s, err := ic.NewSession(doc)
	if err != nil {
		t.Fatal(err)
	}

	p := ic.Focus(context.Background(), s, doc)
	if p != (types.Coordinate{X: 0.5, Y: 0.5}) {
		t.Errorf("expected centred position, got %+v", p)
	}
	if !strings.Contains(logs.String(), "model offline") {
		t.Errorf("expected warning to be logged, got %q", logs.String())
	}
}

func TestOpenFromURLAndPreview(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(800, 400)); err != nil {
		t.Fatal(err)
	}
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	ic, err := New(WithProcessor(processing.NewProcessorWithClient(srv.Client())))
	if err != nil {
		t.Fatal(err)
	}

	doc, err := ic.Open(context.Background(), srv.URL+"/wide.png")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if doc.Size != (types.Dimension{Width: 800, Height: 400}) || doc.Format != "png" {
		t.Errorf("unexpected document %+v", doc)
	}
	// one request for the header, one for the pixels
	if n := requests.Load(); n != 2 {
		t.Errorf("expected 2 requests, got %d", n)
	}

	s, err := ic.NewSession(doc)
	if err != nil {
		t.Fatal(err)
	}
	preview := ic.Preview(s, doc)
	if preview.Bounds() != image.Rect(0, 0, 375, 375) {
		t.Errorf("expected 375x375 preview, got %v", preview.Bounds())
	}
}

func TestOpenMissing(t *testing.T) {
	ic, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ic.Open(context.Background(), filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Error("expected error for missing image")
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() != Version {
		t.Errorf("GetVersion() = %s, want %s", GetVersion(), Version)
	}
}
