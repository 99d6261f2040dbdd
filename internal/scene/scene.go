// Package scene composites one output frame from an ordered set of layers.
package scene

import (
	"fmt"
	"image"
	"log/slog"
	"slices"
	"sync"

	"github.com/gogpu/gg"
)

// Completion is what a scene produces once it has run.
type Completion struct {
	ID    uint64
	Image *image.RGBA
	// SaveErr is set when the frame could not be written to Path.
	SaveErr error
	Path    string
}

type owned struct {
	img     *image.RGBA
	release func(*image.RGBA)
}

// Scene is a self-contained unit of work: an identifier, an optional output
// path, a target size and z-ordered layers. Once submitted it is only read.
//
// Layer names are unique. Adding a layer under an existing name replaces the
// layer but keeps the name's original z-order position.
type Scene struct {
	id     uint64
	path   string
	size   image.Point
	order  []string
	layers map[string]Layer
	fonts  *Fonts
	log    *slog.Logger

	mu       sync.Mutex
	owned    []owned
	released bool
}

type Option func(*Scene)

func WithFonts(f *Fonts) Option {
	return func(s *Scene) { s.fonts = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scene) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates an empty scene. An empty path disables saving.
func New(id uint64, path string, size image.Point, opts ...Option) *Scene {
	s := &Scene{
		id:     id,
		path:   path,
		size:   size,
		layers: make(map[string]Layer),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fonts == nil {
		if f, err := DefaultFonts(); err == nil {
			s.fonts = f
		} else {
			s.log.Warn("no fonts for title layers", "error", err)
		}
	}
	return s
}

func (s *Scene) ID() uint64              { return s.id }
func (s *Scene) Path() string            { return s.path }
func (s *Scene) Size() image.Point       { return s.size }
func (s *Scene) Layer(name string) Layer { return s.layers[name] }

// Order returns the layer names back-to-front.
func (s *Scene) Order() []string { return slices.Clone(s.order) }

func (s *Scene) add(l Layer) {
	if _, exists := s.layers[l.Name()]; !exists {
		s.order = append(s.order, l.Name())
	}
	s.layers[l.Name()] = l
}

func (s *Scene) AddImageLayer(name string, img image.Image, opacity float64, transform gg.Matrix) {
	l := NewImageLayer(name, img, opacity, transform)
	l.log = s.log
	s.add(l)
}

func (s *Scene) AddTitleLayer(name, title, subtitle string, opacity float64, transform gg.Matrix) {
	l := NewTitleLayer(name, title, subtitle, opacity, transform, s.fonts)
	l.log = s.log
	s.add(l)
}

// Own hands a buffer to the scene; release is called from Release.
func (s *Scene) Own(img *image.RGBA, release func(*image.RGBA)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owned = append(s.owned, owned{img: img, release: release})
}

// Run paints all layers onto a transparent canvas, saves it when a path is
// set and returns the result. Save failures are logged and reported in the
// completion, never fatal. Safe to call from any goroutine.
func (s *Scene) Run() Completion {
	c := Completion{ID: s.id, Path: s.path}
	if s.size.X <= 0 || s.size.Y <= 0 {
		c.Image = image.NewRGBA(image.Rect(0, 0, max(s.size.X, 0), max(s.size.Y, 0)))
		return c
	}

	dc := gg.NewContext(s.size.X, s.size.Y)
	defer dc.Close()

	for _, name := range s.order {
		l, ok := s.layers[name]
		if !ok || l == nil || l.Opacity() <= 0 {
			continue
		}
		dc.Push()
		dc.SetTransform(l.Transform())
		l.Render(s.size, dc)
		dc.Pop()
	}

	if s.path != "" {
		if err := dc.SavePNG(s.path); err != nil {
			c.SaveErr = fmt.Errorf("save frame %d: %w", s.id, err)
			s.log.Warn("frame save failed", "id", s.id, "path", s.path, "error", err)
		}
	} else {
		_ = dc.FlushGPU()
	}

	if img, ok := dc.Image().(*image.RGBA); ok {
		c.Image = img
	}
	return c
}

// Release returns owned buffers. Only the first call has an effect.
func (s *Scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	for _, o := range s.owned {
		if o.release != nil {
			o.release(o.img)
		}
	}
	s.owned = nil
}
