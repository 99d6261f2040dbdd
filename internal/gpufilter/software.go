package gpufilter

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"regexp"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	ErrTextureInUse  = errors.New("texture still wrapped by a memory object")
	ErrNotAcquired   = errors.New("memory object not acquired")
	ErrReleased      = errors.New("object already released")
	ErrUnknownKernel = errors.New("unknown kernel")
)

// nativeKernels maps kernel names to Go implementations of the device code.
var nativeKernels = map[string]func(in, out *image.RGBA, factor float32, y0, y1 int){
	embossKernel: embossRows,
}

var kernelDecl = regexp.MustCompile(`__kernel\s+void\s+(\w+)\s*\(`)

// SoftwareDriver executes kernels on the CPU. Textures are plain RGBA buffers
// shared by every context the driver creates.
type SoftwareDriver struct {
	vendor    string
	platforms []Platform
	bands     int

	mu       sync.Mutex
	nextID   TextureID
	textures map[TextureID]*softTexture
	mems     int
	objects  int
}

type SoftwareOption func(*SoftwareDriver)

func WithVendor(v string) SoftwareOption { return func(d *SoftwareDriver) { d.vendor = v } }

func WithPlatforms(p ...Platform) SoftwareOption {
	return func(d *SoftwareDriver) { d.platforms = p }
}

// WithBands sets how many row bands a kernel launch is split into.
func WithBands(n int) SoftwareOption {
	return func(d *SoftwareDriver) {
		if n > 0 {
			d.bands = n
		}
	}
}

func NewSoftwareDriver(opts ...SoftwareOption) *SoftwareDriver {
	d := &SoftwareDriver{
		vendor:    "Go software renderer",
		platforms: []Platform{{Name: "Go CPU", Vendor: "gogpu"}},
		bands:     runtime.NumCPU(),
		textures:  make(map[TextureID]*softTexture),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *SoftwareDriver) GraphicsVendor() string { return d.vendor }

func (d *SoftwareDriver) Platforms() ([]Platform, error) {
	if len(d.platforms) == 0 {
		return nil, errors.New("no compute platforms")
	}
	return append([]Platform(nil), d.platforms...), nil
}

func (d *SoftwareDriver) NewContext(p Platform) (Context, error) {
	d.track(1)
	return &softContext{d: d, platform: p}, nil
}

// CreateTexture allocates a texture outside any filter, as a capture
// pipeline uploading into the shared graphics context would.
func (d *SoftwareDriver) CreateTexture(img *image.RGBA) TextureID {
	t := d.newTexture(img.Rect.Dx(), img.Rect.Dy())
	_ = t.Upload(img)
	return t.id
}

// LiveTextures counts textures that were created and not yet deleted.
func (d *SoftwareDriver) LiveTextures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.textures)
}

// LiveMems counts interop memory objects not yet released.
func (d *SoftwareDriver) LiveMems() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mems
}

// LiveObjects counts contexts, queues, programs and kernels not yet released.
func (d *SoftwareDriver) LiveObjects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.objects
}

func (d *SoftwareDriver) track(n int) {
	d.mu.Lock()
	d.objects += n
	d.mu.Unlock()
}

func (d *SoftwareDriver) newTexture(w, h int) *softTexture {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	t := &softTexture{d: d, id: d.nextID, pix: image.NewRGBA(image.Rect(0, 0, w, h))}
	d.textures[t.id] = t
	return t
}

func (d *SoftwareDriver) run(fn func(in, out *image.RGBA, factor float32, y0, y1 int), in, out *image.RGBA, factor float32, h int) error {
	bands := min(d.bands, h)
	if bands < 1 {
		return nil
	}
	step := (h + bands - 1) / bands

	var g errgroup.Group
	for y := 0; y < h; y += step {
		y0, y1 := y, min(y+step, h)
		g.Go(func() error {
			fn(in, out, factor, y0, y1)
			return nil
		})
	}
	return g.Wait()
}

type softContext struct {
	d        *SoftwareDriver
	platform Platform
	released bool
}

func (c *softContext) NewQueue() (Queue, error) {
	c.d.track(1)
	return &softQueue{d: c.d}, nil
}

func (c *softContext) BuildProgram(src string) (Program, error) {
	p := &softProgram{d: c.d, kernels: make(map[string]bool)}
	for _, m := range kernelDecl.FindAllStringSubmatch(src, -1) {
		if _, ok := nativeKernels[m[1]]; !ok {
			return nil, fmt.Errorf("build program: %w %q", ErrUnknownKernel, m[1])
		}
		p.kernels[m[1]] = true
	}
	if len(p.kernels) == 0 {
		return nil, errors.New("build program: no kernels declared")
	}
	c.d.track(1)
	return p, nil
}

func (c *softContext) NewTexture(w, h int) (Texture, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("texture size %dx%d", w, h)
	}
	return c.d.newTexture(w, h), nil
}

func (c *softContext) Texture(id TextureID) (Texture, bool) {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	t, ok := c.d.textures[id]
	return t, ok
}

func (c *softContext) WrapTexture(tex Texture, access Access) (Mem, error) {
	t, ok := tex.(*softTexture)
	if !ok || t.d != c.d {
		return nil, errors.New("texture belongs to another driver")
	}
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	if _, live := c.d.textures[t.id]; !live {
		return nil, fmt.Errorf("wrap texture %d: %w", t.id, ErrReleased)
	}
	t.wrapped++
	c.d.mems++
	return &softMem{tex: t, access: access}, nil
}

func (c *softContext) Finish() error { return nil }

func (c *softContext) Release() error {
	if c.released {
		return ErrReleased
	}
	c.released = true
	c.d.track(-1)
	return nil
}

type softTexture struct {
	d       *SoftwareDriver
	id      TextureID
	pix     *image.RGBA
	wrapped int
}

func (t *softTexture) ID() TextureID     { return t.id }
func (t *softTexture) Size() image.Point { return t.pix.Rect.Size() }

func (t *softTexture) Upload(img *image.RGBA) error {
	if img.Rect.Size() != t.pix.Rect.Size() {
		return fmt.Errorf("upload %v into texture %v", img.Rect.Size(), t.pix.Rect.Size())
	}
	w := img.Rect.Dx() * 4
	for y := 0; y < img.Rect.Dy(); y++ {
		src := img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y):][:w]
		copy(t.pix.Pix[y*t.pix.Stride:][:w], src)
	}
	return nil
}

func (t *softTexture) Download() (*image.RGBA, error) {
	out := image.NewRGBA(t.pix.Rect)
	copy(out.Pix, t.pix.Pix)
	return out, nil
}

func (t *softTexture) Delete() error {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	if _, ok := t.d.textures[t.id]; !ok {
		return fmt.Errorf("delete texture %d: %w", t.id, ErrReleased)
	}
	if t.wrapped > 0 {
		return fmt.Errorf("delete texture %d: %w", t.id, ErrTextureInUse)
	}
	delete(t.d.textures, t.id)
	return nil
}

type softMem struct {
	tex      *softTexture
	access   Access
	acquired bool
	released bool
}

func (m *softMem) Texture() Texture { return m.tex }

func (m *softMem) Release() error {
	if m.released {
		return ErrReleased
	}
	m.released = true
	d := m.tex.d
	d.mu.Lock()
	m.tex.wrapped--
	d.mems--
	d.mu.Unlock()
	return nil
}

type softProgram struct {
	d        *SoftwareDriver
	kernels  map[string]bool
	released bool
}

func (p *softProgram) Kernel(name string) (Kernel, error) {
	if !p.kernels[name] {
		return nil, fmt.Errorf("%w %q", ErrUnknownKernel, name)
	}
	p.d.track(1)
	return &softKernel{d: p.d, name: name, args: make(map[int]any)}, nil
}

func (p *softProgram) Release() error {
	if p.released {
		return ErrReleased
	}
	p.released = true
	p.d.track(-1)
	return nil
}

type softKernel struct {
	d        *SoftwareDriver
	name     string
	args     map[int]any
	released bool
}

func (k *softKernel) Name() string { return k.name }

func (k *softKernel) SetArg(i int, v any) error {
	if i < 0 || i > 2 {
		return fmt.Errorf("kernel %s: arg index %d", k.name, i)
	}
	k.args[i] = v
	return nil
}

func (k *softKernel) Release() error {
	if k.released {
		return ErrReleased
	}
	k.released = true
	k.d.track(-1)
	return nil
}

// softQueue records commands and executes them on Finish.
type softQueue struct {
	d        *SoftwareDriver
	cmds     []func() error
	released bool
}

func (q *softQueue) Acquire(mems ...Mem) error {
	q.cmds = append(q.cmds, func() error {
		for _, m := range mems {
			sm, ok := m.(*softMem)
			if !ok || sm.released {
				return fmt.Errorf("acquire: %w", ErrReleased)
			}
			sm.acquired = true
		}
		return nil
	})
	return nil
}

func (q *softQueue) Enqueue(k Kernel, w, h int) error {
	sk, ok := k.(*softKernel)
	if !ok || sk.released {
		return fmt.Errorf("enqueue: %w", ErrReleased)
	}
	in, _ := sk.args[0].(*softMem)
	out, _ := sk.args[1].(*softMem)
	factor, ok := sk.args[2].(float32)
	if in == nil || out == nil || !ok {
		return fmt.Errorf("enqueue %s: arguments not set", sk.name)
	}
	fn := nativeKernels[sk.name]

	q.cmds = append(q.cmds, func() error {
		if !in.acquired || !out.acquired {
			return fmt.Errorf("enqueue %s: %w", sk.name, ErrNotAcquired)
		}
		if in.access != ReadOnly || out.access != WriteOnly {
			return fmt.Errorf("enqueue %s: wrong memory access flags", sk.name)
		}
		dst := out.tex.pix.SubImage(image.Rect(0, 0, w, h)).(*image.RGBA)
		return q.d.run(fn, in.tex.pix, dst, factor, dst.Rect.Dy())
	})
	return nil
}

func (q *softQueue) ReleaseObjects(mems ...Mem) error {
	q.cmds = append(q.cmds, func() error {
		for _, m := range mems {
			if sm, ok := m.(*softMem); ok {
				sm.acquired = false
			}
		}
		return nil
	})
	return nil
}

func (q *softQueue) Finish() error {
	cmds := q.cmds
	q.cmds = nil
	var errs []error
	for _, c := range cmds {
		if err := c(); err != nil {
			slog.Debug("software queue command failed", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (q *softQueue) Release() error {
	if q.released {
		return ErrReleased
	}
	q.released = true
	q.cmds = nil
	q.d.track(-1)
	return nil
}
