package screen

import (
	"image"
	"sync"
)

// Static always shows the same image.
type Static struct {
	mu     sync.Mutex
	img    image.Image
	cursor image.Point
	rate   float64
}

func NewStatic(img image.Image, rate float64) *Static {
	if rate <= 0 {
		rate = 60
	}
	b := img.Bounds()
	return &Static{img: img, rate: rate, cursor: image.Pt(b.Dx()/2, b.Dy()/2)}
}

func (s *Static) Size() image.Point { return s.img.Bounds().Size() }

func (s *Static) Grab() (image.Image, error) { return s.img, nil }

func (s *Static) Cursor() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Static) SetCursor(p image.Point) {
	s.mu.Lock()
	s.cursor = p
	s.mu.Unlock()
}

func (s *Static) RefreshRate() float64 { return s.rate }

func (s *Static) Close() error { return nil }
