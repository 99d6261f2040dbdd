package gpufilter

import (
	"fmt"
	"image"
	"log/slog"
)

// Filter turns a captured frame into an image ready for compositing.
type Filter interface {
	Run(frame Frame) (*image.RGBA, error)
	Close() error
}

// New returns a filter by config name.
func New(variant string, driver Driver, log *slog.Logger) (Filter, error) {
	switch variant {
	case "emboss":
		return NewVideoFilter(driver, log), nil
	case "passthrough", "none", "":
		return Passthrough{}, nil
	default:
		return nil, fmt.Errorf("unknown filter variant: %s", variant)
	}
}

// Passthrough copies the frame into an owned RGBA image.
type Passthrough struct{}

func (Passthrough) Run(frame Frame) (*image.RGBA, error) { return frame.Snapshot() }

func (Passthrough) Close() error { return nil }
