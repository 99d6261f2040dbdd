package screen

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

var ErrNoScreen = errors.New("no screen available")

// Screen is a capturable display.
type Screen interface {
	Size() image.Point
	// Grab returns a snapshot of the display. The image is not modified afterwards.
	Grab() (image.Image, error)
	// Cursor is the pointer position in screen coordinates.
	Cursor() image.Point
	// RefreshRate in Hz.
	RefreshRate() float64
	Close() error
}

// Pager is implemented by screens that show one page at a time.
type Pager interface {
	Next() error
	Prev() error
}

type Options struct {
	Size        image.Point
	RefreshRate float64
	DPI         int
}

// Open parses a source description: "x11", "pdf:<file>" or "images:<dir>".
func Open(source string, opts Options) (Screen, error) {
	kind, arg, _ := strings.Cut(source, ":")
	switch kind {
	case "x11", "":
		return OpenX11(opts)
	case "pdf":
		pages, err := newPDFPages(arg)
		if err != nil {
			return nil, fmt.Errorf("open pdf %s: %w", arg, err)
		}
		return NewDeck(pages, opts)
	case "images":
		pages, err := newImagePages(arg)
		if err != nil {
			return nil, fmt.Errorf("open images %s: %w", arg, err)
		}
		return NewDeck(pages, opts)
	default:
		return nil, fmt.Errorf("unknown screen source: %s", source)
	}
}
