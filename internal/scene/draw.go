package scene

import (
	"image"
	"math"

	"github.com/gogpu/gg"
)

// rectF is a floating point rectangle [X0,X1)x[Y0,Y1).
type rectF struct{ X0, Y0, X1, Y1 float64 }

func (r rectF) empty() bool { return r.X1-r.X0 <= 0 || r.Y1-r.Y0 <= 0 }

// blit draws the src region of img into the local rectangle dst under the
// context's current transform. Only translation and positive scale are
// honoured. Both rectangles are clipped (the source to the image, the
// destination to the canvas) with the opposite side adjusted in proportion,
// so partially visible layers are cropped rather than squeezed.
func blit(dc *gg.Context, img *gg.ImageBuf, src, dst rectF, opacity float64) {
	if img == nil || opacity <= 0 || src.empty() || dst.empty() {
		return
	}
	m := dc.GetTransform()
	if m.B != 0 || m.D != 0 || m.A <= 0 || m.E <= 0 {
		return
	}
	x0, y0 := dc.TransformPoint(dst.X0, dst.Y0)
	x1, y1 := dc.TransformPoint(dst.X1, dst.Y1)
	dev := rectF{x0, y0, x1, y1}

	iw, ih := img.Bounds()
	src, dev = clipPair(src, dev, rectF{0, 0, float64(iw), float64(ih)})
	dev, src = clipPair(dev, src, rectF{0, 0, float64(dc.Width()), float64(dc.Height())})
	if src.empty() || dev.empty() {
		return
	}

	sr := image.Rect(
		int(math.Floor(src.X0)), int(math.Floor(src.Y0)),
		int(math.Ceil(src.X1)), int(math.Ceil(src.Y1)),
	)
	dx0, dy0 := math.Round(dev.X0), math.Round(dev.Y0)
	dw, dh := math.Round(dev.X1)-dx0, math.Round(dev.Y1)-dy0
	if sr.Empty() || dw <= 0 || dh <= 0 {
		return
	}

	interp := gg.InterpBilinear
	if int(dw) == sr.Dx() && int(dh) == sr.Dy() {
		interp = gg.InterpNearest
	}

	dc.Push()
	dc.Identity()
	dc.DrawImageEx(img, gg.DrawImageOptions{
		X:             dx0,
		Y:             dy0,
		DstWidth:      dw,
		DstHeight:     dh,
		SrcRect:       &sr,
		Interpolation: interp,
		Opacity:       math.Min(opacity, 1),
		BlendMode:     gg.BlendNormal,
	})
	dc.Pop()
}

// clipPair clips a to bounds and shrinks the paired rectangle b by the
// same fractions.
func clipPair(a, b, bounds rectF) (rectF, rectF) {
	aw, ah := a.X1-a.X0, a.Y1-a.Y0
	bw, bh := b.X1-b.X0, b.Y1-b.Y0
	if aw <= 0 || ah <= 0 {
		return a, b
	}
	ca := rectF{
		X0: math.Max(a.X0, bounds.X0),
		Y0: math.Max(a.Y0, bounds.Y0),
		X1: math.Min(a.X1, bounds.X1),
		Y1: math.Min(a.Y1, bounds.Y1),
	}
	cb := rectF{
		X0: b.X0 + (ca.X0-a.X0)/aw*bw,
		Y0: b.Y0 + (ca.Y0-a.Y0)/ah*bh,
		X1: b.X1 - (a.X1-ca.X1)/aw*bw,
		Y1: b.Y1 - (a.Y1-ca.Y1)/ah*bh,
	}
	return ca, cb
}

// fillRect fills a local rectangle with the given colour under the current transform.
func fillRect(dc *gg.Context, x, y, w, h float64, r, g, b, a float64) error {
	if a <= 0 || w <= 0 || h <= 0 {
		return nil
	}
	dc.SetRGBA(r, g, b, a)
	dc.DrawRectangle(x, y, w, h)
	return dc.Fill()
}
