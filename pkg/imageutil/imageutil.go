// Package imageutil holds the raster helpers shared by capture, grounding and
// the step log.
package imageutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/arnavsurve/deskagent/pkg/types"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// FitWithin downscales img so that neither side exceeds maxDim, keeping the
// aspect ratio. Images already within bounds are returned unchanged.
func FitWithin(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}

	var nw, nh int
	if w > h {
		nw = maxDim
		nh = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		nh = maxDim
		nw = int(float64(w) * float64(maxDim) / float64(h))
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// EncodePNG returns img encoded as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// SavePNG writes img to path.
func SavePNG(path string, img image.Image) error {
	data, err := EncodePNG(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return nil
}

// candidateColors mark the first, second and third ranked candidates.
var candidateColors = []color.RGBA{
	{R: 255, A: 255},
	{R: 255, G: 165, A: 255},
	{R: 255, G: 255, A: 255},
}

const markerRadius = 20

// Annotate returns a copy of img with up to three candidate points marked by
// a ring, a crosshair and a "#n: (x,y)" label.
func Annotate(img image.Image, points []types.PredictedPoint) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	for i, p := range points {
		if i >= len(candidateColors) {
			break
		}
		c := candidateColors[i]
		px := int(p.X * float64(b.Dx()))
		py := int(p.Y * float64(b.Dy()))

		drawRing(out, px, py, markerRadius, 3, c)
		drawLine(out, px-markerRadius-10, py, px+markerRadius+10, py, c)
		drawLine(out, px, py-markerRadius-10, px, py+markerRadius+10, c)

		d := &font.Drawer{
			Dst:  out,
			Src:  image.NewUniform(c),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(px+markerRadius+5, py-10+13),
		}
		d.DrawString(fmt.Sprintf("#%d: (%d,%d)", i+1, px, py))
	}
	return out
}

func drawRing(img *image.RGBA, cx, cy, r, width int, c color.RGBA) {
	outer := r * r
	inner := (r - width) * (r - width)
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			dx, dy := x-cx, y-cy
			d := dx*dx + dy*dy
			if d <= outer && d >= inner {
				setPixel(img, x, y, c)
			}
		}
	}
}

// drawLine handles the horizontal and vertical strokes of the crosshair.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	if y0 == y1 {
		for x := x0; x <= x1; x++ {
			setPixel(img, x, y0, c)
			setPixel(img, x, y0+1, c)
		}
		return
	}
	for y := y0; y <= y1; y++ {
		setPixel(img, x0, y, c)
		setPixel(img, x0+1, y, c)
	}
}

func setPixel(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}
