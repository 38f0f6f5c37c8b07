package processing

import (
	"image"
	"image/color"
	"math"

	"git.sr.ht/~sbinet/gg"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/menta2k/image-cropper/pkg/types"
	"github.com/menta2k/image-cropper/pkg/viewport"
)

var (
	previewBackground = color.RGBA{128, 128, 128, 255}
	cropBoxColor      = color.NRGBA{255, 204, 0, 255}
	guideFill         = color.NRGBA{255, 255, 255, 89}
)

// RenderPreview draws img into a viewport-sized canvas at the frame's scale
// with its top-left corner at offset. Uncovered areas are gray.
func (p *Processor) RenderPreview(img image.Image, f viewport.Frame, offset types.Coordinate, vp viewport.Viewport) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, int(math.Round(vp.Width)), int(math.Round(vp.Height))))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(previewBackground), image.Point{}, draw.Src)

	x0 := int(math.Round(offset.X))
	y0 := int(math.Round(offset.Y))
	dr := image.Rect(x0, y0, x0+int(math.Round(f.Scaled.Width)), y0+int(math.Round(f.Scaled.Height)))
	draw.CatmullRom.Scale(canvas, dr, img, img.Bounds(), draw.Over, nil)
	return canvas
}

// DrawCropGuide overlays the inset crop guide on a rendered preview: a
// translucent rounded rectangle with a dotted white border.
func (p *Processor) DrawCropGuide(canvas *image.RGBA, vp viewport.Viewport) image.Image {
	pad := vp.Padding
	w := vp.Width - 2*pad
	h := vp.Height - 2*pad
	radius := math.Min(2*pad, math.Min(w, h)/2)

	dc := gg.NewContextForRGBA(canvas)
	dc.DrawRoundedRectangle(pad, pad, w, h, radius)
	dc.SetColor(guideFill)
	dc.FillPreserve()
	dc.SetRGBA(1, 1, 1, 1)
	dc.SetLineWidth(4)
	dc.SetDash(4, 6)
	dc.Stroke()
	return dc.Image()
}

// CreateDebugOverlay outlines a crop rectangle on a copy of the source image
func (p *Processor) CreateDebugOverlay(img image.Image, crop types.CropRectangle) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()
	stroke := int(math.Max(2, 0.004*float64(min(w, h)))) // ~0.4% of min side

	drawBox(nrgba, crop.Rect(), cropBoxColor, stroke)

	// crop centre crosshair
	cross := int(math.Max(4, 0.01*float64(min(w, h))))
	cx := int(math.Round(crop.X + crop.Width/2))
	cy := int(math.Round(crop.Y + crop.Height/2))
	drawHLine(nrgba, cy, cx-cross, cx+cross, color.NRGBA{255, 0, 0, 255})
	drawVLine(nrgba, cx, cy-cross, cy+cross, color.NRGBA{255, 0, 0, 255})

	return nrgba
}

func drawBox(img *image.NRGBA, r image.Rectangle, c color.NRGBA, stroke int) {
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return
	}
	for s := 0; s < stroke; s++ {
		drawHLine(img, r.Min.Y+s, r.Min.X, r.Max.X, c)
		drawHLine(img, r.Max.Y-1-s, r.Min.X, r.Max.X, c)
		drawVLine(img, r.Min.X+s, r.Min.Y, r.Max.Y, c)
		drawVLine(img, r.Max.X-1-s, r.Min.Y, r.Max.Y, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	b := img.Bounds()
	if y < 0 || y >= b.Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	x0 = max(x0, 0)
	x1 = min(x1, b.Dx())
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	b := img.Bounds()
	if x < 0 || x >= b.Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	y0 = max(y0, 0)
	y1 = min(y1, b.Dy())
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
