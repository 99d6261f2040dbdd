package gpufilter

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
)

var ErrNotInitialized = errors.New("video filter not initialized")

// vendorPlatforms maps a graphics vendor to the compute platform name that
// can share its textures.
var vendorPlatforms = []struct{ vendor, platform string }{
	{"NVIDIA", "NVIDIA"},
	{"Intel", "Intel"},
	{"ATI", "AMD"},
}

// PickPlatform selects the platform matching the graphics vendor, or the first one.
func PickPlatform(vendor string, platforms []Platform) Platform {
	for _, vp := range vendorPlatforms {
		if !strings.Contains(vendor, vp.vendor) {
			continue
		}
		for _, p := range platforms {
			if strings.Contains(p.Name, vp.platform) {
				return p
			}
		}
	}
	return platforms[0]
}

// VideoFilter runs the Emboss kernel over camera frames through textures
// shared with the compute device.
type VideoFilter struct {
	mu     sync.Mutex
	driver Driver
	log    *slog.Logger
	factor float32

	inited bool
	ctx    Context
	queue  Queue
	prog   Program
	kernel Kernel

	size      image.Point
	temp      Texture
	out       Texture
	lastInput TextureID
	inMem     Mem
	outMem    Mem
}

func NewVideoFilter(driver Driver, log *slog.Logger) *VideoFilter {
	if log == nil {
		log = slog.Default()
	}
	return &VideoFilter{driver: driver, log: log.With("component", "gpufilter"), factor: embossFactor}
}

// Init creates the compute context, queue and kernel. Only the first call
// does any work; if it fails the filter stays disabled.
func (f *VideoFilter) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.init()
}

func (f *VideoFilter) init() error {
	if f.inited {
		if f.kernel == nil {
			return ErrNotInitialized
		}
		return nil
	}
	f.inited = true

	if err := f.setup(); err != nil {
		f.log.Error("compute init failed, filter disabled", "error", err)
		f.releaseDevice()
		return fmt.Errorf("%w: %w", ErrNotInitialized, err)
	}
	return nil
}

func (f *VideoFilter) setup() error {
	if f.driver == nil {
		return errors.New("no compute driver")
	}
	platforms, err := f.driver.Platforms()
	if err != nil {
		return fmt.Errorf("list platforms: %w", err)
	}
	if len(platforms) == 0 {
		return errors.New("no compute platforms")
	}
	vendor := f.driver.GraphicsVendor()
	p := PickPlatform(vendor, platforms)
	f.log.Info("compute platform selected", "vendor", vendor, "platform", p.Name)

	if f.ctx, err = f.driver.NewContext(p); err != nil {
		return fmt.Errorf("create context: %w", err)
	}
	if f.queue, err = f.ctx.NewQueue(); err != nil {
		return fmt.Errorf("create queue: %w", err)
	}
	if f.prog, err = f.ctx.BuildProgram(embossSource); err != nil {
		return fmt.Errorf("build program: %w", err)
	}
	if f.kernel, err = f.prog.Kernel(embossKernel); err != nil {
		return fmt.Errorf("kernel %s: %w", embossKernel, err)
	}
	return nil
}

// Run filters one frame and returns the result in system memory.
func (f *VideoFilter) Run(frame Frame) (*image.RGBA, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.init(); err != nil {
		return nil, err
	}
	if err := frame.Validate(); err != nil {
		f.log.Warn("Invalid input format", "format", frame.Format.String(), "handle", int(frame.Handle), "trace_id", frame.TraceID)
		return nil, err
	}

	var packed *image.RGBA
	if frame.Handle == HandleNone {
		var err error
		if packed, err = frame.ToRGBA(); err != nil {
			return nil, err
		}
	}

	size := image.Pt(frame.Width, frame.Height)
	if size != f.size {
		if err := f.releaseTextures(); err != nil {
			return nil, err
		}
		f.size = size
	}

	in, err := f.inputTexture(frame, packed)
	if err != nil {
		return nil, err
	}
	if f.lastInput != 0 && f.lastInput != in.ID() && f.inMem != nil {
		if err := f.inMem.Release(); err != nil {
			return nil, fmt.Errorf("release input mem: %w", err)
		}
		f.inMem = nil
	}
	f.lastInput = in.ID()

	if f.out == nil {
		if f.out, err = f.ctx.NewTexture(size.X, size.Y); err != nil {
			return nil, fmt.Errorf("create output texture: %w", err)
		}
	}
	if f.inMem == nil {
		if f.inMem, err = f.ctx.WrapTexture(in, ReadOnly); err != nil {
			return nil, fmt.Errorf("wrap input texture %d: %w", in.ID(), err)
		}
	}
	if f.outMem == nil {
		if f.outMem, err = f.ctx.WrapTexture(f.out, WriteOnly); err != nil {
			return nil, fmt.Errorf("wrap output texture: %w", err)
		}
	}

	if err := f.execute(size); err != nil {
		return nil, err
	}
	return f.out.Download()
}

func (f *VideoFilter) inputTexture(frame Frame, packed *image.RGBA) (Texture, error) {
	if frame.Handle == HandleTexture {
		tex, ok := f.ctx.Texture(frame.Texture)
		if !ok {
			return nil, fmt.Errorf("%w: unknown texture %d", ErrUnsupportedFrame, frame.Texture)
		}
		if tex.Size() != f.size {
			return nil, fmt.Errorf("%w: texture %d is %v, frame says %v", ErrUnsupportedFrame, frame.Texture, tex.Size(), f.size)
		}
		return tex, nil
	}

	if f.temp == nil {
		var err error
		if f.temp, err = f.ctx.NewTexture(f.size.X, f.size.Y); err != nil {
			return nil, fmt.Errorf("create upload texture: %w", err)
		}
	}
	if err := f.temp.Upload(packed); err != nil {
		return nil, fmt.Errorf("upload frame: %w", err)
	}
	return f.temp, nil
}

func (f *VideoFilter) execute(size image.Point) error {
	if err := f.ctx.Finish(); err != nil {
		return fmt.Errorf("finish graphics: %w", err)
	}
	// Аргументы до Acquire: иначе при ошибке захват остаётся в очереди.
	args := []any{f.inMem, f.outMem, f.factor}
	for i, a := range args {
		if err := f.kernel.SetArg(i, a); err != nil {
			return fmt.Errorf("set arg %d: %w", i, err)
		}
	}
	if err := f.queue.Acquire(f.inMem, f.outMem); err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	enqueueErr := f.queue.Enqueue(f.kernel, size.X, size.Y)
	if enqueueErr != nil {
		f.log.Warn("kernel enqueue failed", "error", enqueueErr)
	}
	if err := f.queue.ReleaseObjects(f.inMem, f.outMem); err != nil {
		return fmt.Errorf("release objects: %w", err)
	}
	if err := f.queue.Finish(); err != nil {
		return fmt.Errorf("finish queue: %w", err)
	}
	if enqueueErr != nil {
		return fmt.Errorf("enqueue %s: %w", f.kernel.Name(), enqueueErr)
	}
	return nil
}

// releaseTextures drops the interop objects first and only then the
// textures they wrap. Textures owned by the capture side are never deleted.
func (f *VideoFilter) releaseTextures() error {
	var errs []error
	for _, m := range []*Mem{&f.inMem, &f.outMem} {
		if *m != nil {
			errs = append(errs, (*m).Release())
			*m = nil
		}
	}
	for _, t := range []*Texture{&f.temp, &f.out} {
		if *t != nil {
			errs = append(errs, (*t).Delete())
			*t = nil
		}
	}
	f.lastInput = 0
	f.size = image.Point{}
	return errors.Join(errs...)
}

func (f *VideoFilter) releaseDevice() error {
	var errs []error
	if f.kernel != nil {
		errs = append(errs, f.kernel.Release())
		f.kernel = nil
	}
	if f.prog != nil {
		errs = append(errs, f.prog.Release())
		f.prog = nil
	}
	if f.queue != nil {
		errs = append(errs, f.queue.Release())
		f.queue = nil
	}
	if f.ctx != nil {
		errs = append(errs, f.ctx.Release())
		f.ctx = nil
	}
	return errors.Join(errs...)
}

// Close releases every device object. The filter cannot be used afterwards.
func (f *VideoFilter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inited = true
	return errors.Join(f.releaseTextures(), f.releaseDevice())
}
