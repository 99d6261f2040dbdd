package live

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"github.com/ivlev/ministudio/internal/anim"
	"github.com/ivlev/ministudio/internal/system"
)

const magnifierSize = 200

// magnify samples grab around the pointer into a pooled 200x200 canvas.
// The source rectangle is 400/m wide, so m=2 shows the area at 1:1 and
// larger levels zoom in. The caller owns the returned buffer.
func magnify(grab image.Image, pointer image.Point, level, eased float64) *image.RGBA {
	canvas := system.GetImage(image.Rect(0, 0, magnifierSize, magnifierSize))

	m := anim.Lerp(1, level, eased)
	if m <= 0 {
		m = 1
	}
	half := float64(magnifierSize) / m
	src := image.Rect(
		int(math.Round(float64(pointer.X)-half)),
		int(math.Round(float64(pointer.Y)-half)),
		int(math.Round(float64(pointer.X)+half)),
		int(math.Round(float64(pointer.Y)+half)),
	)
	if src, dst, ok := clipSource(src, canvas.Rect, grab.Bounds()); ok {
		draw.ApproxBiLinear.Scale(canvas, dst, grab, src, draw.Src, nil)
	}

	wash := image.NewUniform(color.NRGBA{R: 0xff, A: uint8(math.Round(0.2 * clamp01(eased) * 0xff))})
	draw.Draw(canvas, canvas.Rect, wash, image.Point{}, draw.Over)
	return canvas
}

// clipSource intersects src with bounds and shrinks dst by the same proportions.
func clipSource(src, dst, bounds image.Rectangle) (image.Rectangle, image.Rectangle, bool) {
	clipped := src.Intersect(bounds)
	if clipped.Empty() || src.Empty() {
		return image.Rectangle{}, image.Rectangle{}, false
	}
	sx := float64(dst.Dx()) / float64(src.Dx())
	sy := float64(dst.Dy()) / float64(src.Dy())
	out := image.Rect(
		dst.Min.X+int(math.Round(float64(clipped.Min.X-src.Min.X)*sx)),
		dst.Min.Y+int(math.Round(float64(clipped.Min.Y-src.Min.Y)*sy)),
		dst.Min.X+int(math.Round(float64(clipped.Max.X-src.Min.X)*sx)),
		dst.Min.Y+int(math.Round(float64(clipped.Max.Y-src.Min.Y)*sy)),
	)
	if out.Empty() {
		return image.Rectangle{}, image.Rectangle{}, false
	}
	return clipped, out, true
}
