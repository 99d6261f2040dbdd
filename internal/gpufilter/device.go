package gpufilter

import "image"

// TextureID names a texture inside one device context. Zero is never a valid id.
type TextureID uint32

type Access int

const (
	ReadOnly Access = iota
	WriteOnly
)

// Platform is one compute platform exposed by a driver.
type Platform struct {
	Name   string
	Vendor string
}

// Driver is the entry point to a compute device that shares textures with
// the graphics context.
type Driver interface {
	// GraphicsVendor is the vendor string of the active graphics context.
	GraphicsVendor() string
	Platforms() ([]Platform, error)
	NewContext(p Platform) (Context, error)
}

type Context interface {
	NewQueue() (Queue, error)
	BuildProgram(src string) (Program, error)
	NewTexture(w, h int) (Texture, error)
	// Texture looks up a texture created elsewhere in the shared graphics context.
	Texture(id TextureID) (Texture, bool)
	// WrapTexture creates an interop memory object over tex.
	WrapTexture(tex Texture, access Access) (Mem, error)
	// Finish blocks until pending graphics work is complete.
	Finish() error
	Release() error
}

type Texture interface {
	ID() TextureID
	Size() image.Point
	Upload(img *image.RGBA) error
	Download() (*image.RGBA, error)
	Delete() error
}

type Mem interface {
	Texture() Texture
	Release() error
}

type Program interface {
	Kernel(name string) (Kernel, error)
	Release() error
}

type Kernel interface {
	Name() string
	SetArg(i int, v any) error
	Release() error
}

// Queue commands run in submission order; Finish waits for all of them.
type Queue interface {
	Acquire(mems ...Mem) error
	Enqueue(k Kernel, w, h int) error
	ReleaseObjects(mems ...Mem) error
	Finish() error
	Release() error
}
