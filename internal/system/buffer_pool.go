package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// ImagePool переиспользует *image.RGBA одинакового размера между кадрами,
// чтобы не нагружать GC на частоте композитинга.
type ImagePool struct {
	mu    sync.RWMutex
	pools map[image.Rectangle]*sync.Pool

	gets   atomic.Uint64
	allocs atomic.Uint64
}

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Rectangle]*sync.Pool)}
}

var globalPool = NewImagePool()

// GetImage возвращает очищенный (прозрачный) буфер из общего пула.
func GetImage(rect image.Rectangle) *image.RGBA {
	return globalPool.Get(rect)
}

// PutImage возвращает буфер в общий пул.
func PutImage(img *image.RGBA) {
	globalPool.Put(img)
}

func (p *ImagePool) pool(rect image.Rectangle) *sync.Pool {
	p.mu.RLock()
	pool, ok := p.pools[rect]
	p.mu.RUnlock()
	if ok {
		return pool
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Double check
	if pool, ok = p.pools[rect]; ok {
		return pool
	}
	pool = &sync.Pool{
		New: func() any {
			p.allocs.Add(1)
			return image.NewRGBA(rect)
		},
	}
	p.pools[rect] = pool
	return pool
}

// Get returns a zeroed buffer with the given bounds.
func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	p.gets.Add(1)
	img := p.pool(rect).Get().(*image.RGBA)
	clear(img.Pix)
	return img
}

// Put hands img back. Buffers of sizes never requested through Get are dropped.
func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.mu.RLock()
	pool, ok := p.pools[img.Rect]
	p.mu.RUnlock()
	if ok {
		pool.Put(img)
	}
}

// Stats reports how many buffers were requested and how many had to be allocated.
func (p *ImagePool) Stats() (gets, allocs uint64) {
	return p.gets.Load(), p.allocs.Load()
}
