package screen

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"
)

var ErrNoPage = errors.New("no such page")

const (
	defaultDeckRate = 30
	defaultDPI      = 96
)

// Deck presents a document as a screen, one page at a time, letterboxed
// into a fixed size. The pointer rests at the centre.
type Deck struct {
	mu    sync.Mutex
	pages pages
	size  image.Point
	rate  float64
	dpi   int

	index   int
	current *image.RGBA
}

func NewDeck(p pages, opts Options) (*Deck, error) {
	if p.PageCount() == 0 {
		p.Close()
		return nil, ErrNoPage
	}
	d := &Deck{pages: p, size: opts.Size, rate: opts.RefreshRate, dpi: opts.DPI}
	if d.size.X <= 0 || d.size.Y <= 0 {
		d.size = image.Pt(1280, 720)
	}
	if d.rate <= 0 {
		d.rate = defaultDeckRate
	}
	if d.dpi <= 0 {
		d.dpi = defaultDPI
	}
	if err := d.show(0); err != nil {
		p.Close()
		return nil, err
	}
	return d, nil
}

func (d *Deck) show(index int) error {
	if index < 0 || index >= d.pages.PageCount() {
		return fmt.Errorf("%w: %d", ErrNoPage, index)
	}
	page, err := d.pages.RenderPage(index, d.dpi)
	if err != nil {
		return fmt.Errorf("render page %d: %w", index, err)
	}
	d.current = letterbox(page, d.size)
	d.index = index
	return nil
}

// letterbox scales img to fit size keeping its aspect ratio, centred on black.
func letterbox(img image.Image, size image.Point) *image.RGBA {
	out := image.NewRGBA(image.Rectangle{Max: size})
	draw.Draw(out, out.Rect, image.NewUniform(color.Black), image.Point{}, draw.Src)

	b := img.Bounds()
	if b.Empty() {
		return out
	}
	scale := min(float64(size.X)/float64(b.Dx()), float64(size.Y)/float64(b.Dy()))
	w, h := int(float64(b.Dx())*scale), int(float64(b.Dy())*scale)
	x, y := (size.X-w)/2, (size.Y-h)/2
	draw.CatmullRom.Scale(out, image.Rect(x, y, x+w, y+h), img, b, draw.Over, nil)
	return out
}

func (d *Deck) Size() image.Point { return d.size }

func (d *Deck) Grab() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current, nil
}

func (d *Deck) Cursor() image.Point { return d.size.Div(2) }

func (d *Deck) RefreshRate() float64 { return d.rate }

// Page is the zero-based index of the shown page.
func (d *Deck) Page() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.index
}

func (d *Deck) Next() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.show(d.index + 1)
}

func (d *Deck) Prev() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.show(d.index - 1)
}

func (d *Deck) Close() error { return d.pages.Close() }
