package scene

import (
	"image"
	"log/slog"

	"github.com/gogpu/gg"
)

// TitleLayer draws a lower-third banner: drop shadow, white bar, title and subtitle.
// Geometry is proportional to the scene: band height H/10, bar width 8W/10.
type TitleLayer struct {
	base
	title    string
	subtitle string
	fonts    *Fonts
}

func NewTitleLayer(name, title, subtitle string, opacity float64, transform gg.Matrix, fonts *Fonts) *TitleLayer {
	return &TitleLayer{
		base:     base{name: name, opacity: opacity, transform: transform, log: slog.Default()},
		title:    title,
		subtitle: subtitle,
		fonts:    fonts,
	}
}

func (l *TitleLayer) Title() string    { return l.title }
func (l *TitleLayer) Subtitle() string { return l.subtitle }

func (l *TitleLayer) Render(size image.Point, dc *gg.Context) {
	h := size.Y / 10
	w := size.X * 8 / 10
	hh := h * 3 / 2
	shadow := h / 7
	top := float64(size.Y - 2*h)

	if err := fillRect(dc, 0, top+float64(shadow), float64(w+shadow), float64(hh), 0, 0, 0, 0.2*l.opacity); err != nil {
		l.log.Warn("title shadow fill failed", "layer", l.name, "error", err)
	}
	if err := fillRect(dc, 0, top, float64(w), float64(hh), 1, 1, 1, l.opacity); err != nil {
		l.log.Warn("title bar fill failed", "layer", l.name, "error", err)
	}

	if l.fonts == nil {
		return
	}
	dc.SetRGBA(0, 0, 0, l.opacity)
	// Text is placed in device space, so map the baseline through the transform.
	if l.fonts.Regular != nil && l.title != "" {
		dc.SetFont(l.fonts.Regular.Face(float64(hh) * 0.5))
		x, y := dc.TransformPoint(float64(hh), top+float64(hh)*0.5)
		dc.DrawString(l.title, x, y)
	}
	if l.fonts.Bold != nil && l.subtitle != "" {
		dc.SetFont(l.fonts.Bold.Face(float64(hh) * 0.35))
		x, y := dc.TransformPoint(float64(hh), top+float64(hh)*0.85)
		dc.DrawString(l.subtitle, x, y)
	}
}
