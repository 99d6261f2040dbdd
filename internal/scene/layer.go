package scene

import (
	"image"
	"log/slog"

	"github.com/gogpu/gg"
)

// Layer is a named drawable owned by exactly one Scene.
// The set of layers is closed: ImageLayer and TitleLayer.
type Layer interface {
	Name() string
	Opacity() float64
	Transform() gg.Matrix
	// Render paints the layer into dc. The scene has already applied
	// Transform; size is the scene resolution.
	Render(size image.Point, dc *gg.Context)

	sealed()
}

type base struct {
	name      string
	opacity   float64
	transform gg.Matrix
	log       *slog.Logger
}

func (b *base) Name() string         { return b.name }
func (b *base) Opacity() float64     { return b.opacity }
func (b *base) Transform() gg.Matrix { return b.transform }
func (b *base) sealed()              {}

// ImageLayer draws a shared, read-only image at the origin.
type ImageLayer struct {
	base
	img image.Image
}

func NewImageLayer(name string, img image.Image, opacity float64, transform gg.Matrix) *ImageLayer {
	return &ImageLayer{
		base: base{name: name, opacity: opacity, transform: transform, log: slog.Default()},
		img:  img,
	}
}

func (l *ImageLayer) Image() image.Image { return l.img }

func (l *ImageLayer) Render(_ image.Point, dc *gg.Context) {
	if l.img == nil {
		l.log.Warn("trying to render null frame", "layer", l.name)
		return
	}
	if l.opacity <= 0 {
		return
	}
	b := l.img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	blit(dc, gg.ImageBufFromImage(l.img), rectF{0, 0, w, h}, rectF{0, 0, w, h}, l.opacity)
}
