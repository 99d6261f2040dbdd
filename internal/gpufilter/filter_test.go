package gpufilter

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 7), uint8(y * 7), 0, 0xff})
		}
	}
	return img
}

func flat(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestVideoFilter_FlatFrameIsMidGray(t *testing.T) {
	d := NewSoftwareDriver(WithBands(3))
	f := NewVideoFilter(d, nil)
	defer f.Close()

	out, err := f.Run(FrameFromImage(flat(8, 6, color.RGBA{200, 10, 50, 0xff})))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 8, 6), out.Rect)
	for i := 0; i < len(out.Pix); i += 4 {
		assert.Equal(t, []uint8{128, 128, 128, 0xff}, out.Pix[i:i+4])
	}
}

func TestVideoFilter_KernelValues(t *testing.T) {
	d := NewSoftwareDriver()
	f := NewVideoFilter(d, nil)
	defer f.Close()

	in := gradient(5, 5)
	out, err := f.Run(FrameFromImage(in))
	require.NoError(t, err)

	// Внутренняя точка: разница (+14, +14, 0), 127.5 + 28/5.
	assert.Equal(t, uint8(133), out.RGBAAt(2, 2).R)
	assert.Equal(t, out.RGBAAt(2, 2).R, out.RGBAAt(2, 2).G)

	// Угол: соседи зажаты по краю, разница только в одну сторону.
	assert.Equal(t, uint8(130), out.RGBAAt(0, 0).R)
	assert.Equal(t, uint8(0xff), out.RGBAAt(4, 4).A)
}

func TestVideoFilter_BandsDoNotChangeResult(t *testing.T) {
	in := gradient(16, 13)
	var results []*image.RGBA
	for _, bands := range []int{1, 4, 13, 64} {
		f := NewVideoFilter(NewSoftwareDriver(WithBands(bands)), nil)
		out, err := f.Run(FrameFromImage(in))
		require.NoError(t, err)
		results = append(results, out)
		require.NoError(t, f.Close())
	}
	for _, r := range results[1:] {
		assert.Equal(t, results[0].Pix, r.Pix)
	}
}

func TestVideoFilter_MemsCreatedOncePerTexture(t *testing.T) {
	d := NewSoftwareDriver()
	f := NewVideoFilter(d, nil)

	for i := 0; i < 5; i++ {
		_, err := f.Run(FrameFromImage(gradient(4, 4)))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, d.LiveMems())
	assert.Equal(t, 2, d.LiveTextures(), "temp + output")
	firstIn := f.inMem

	_, err := f.Run(FrameFromImage(gradient(4, 4)))
	require.NoError(t, err)
	assert.Same(t, firstIn, f.inMem)

	require.NoError(t, f.Close())
	assert.Zero(t, d.LiveMems())
	assert.Zero(t, d.LiveTextures())
	assert.Zero(t, d.LiveObjects())
}

func TestVideoFilter_TextureHandleIdentityChange(t *testing.T) {
	d := NewSoftwareDriver()
	f := NewVideoFilter(d, nil)
	defer f.Close()

	a := d.CreateTexture(gradient(4, 4))
	b := d.CreateTexture(flat(4, 4, color.RGBA{9, 9, 9, 0xff}))

	_, err := f.Run(Frame{Handle: HandleTexture, Texture: a, Width: 4, Height: 4})
	require.NoError(t, err)
	memA := f.inMem
	require.NotNil(t, memA)
	assert.Equal(t, a, memA.Texture().ID())

	// Та же текстура: объект переиспользуется.
	_, err = f.Run(Frame{Handle: HandleTexture, Texture: a, Width: 4, Height: 4})
	require.NoError(t, err)
	assert.Same(t, memA, f.inMem)

	out, err := f.Run(Frame{Handle: HandleTexture, Texture: b, Width: 4, Height: 4})
	require.NoError(t, err)
	assert.NotSame(t, memA, f.inMem)
	assert.Equal(t, b, f.inMem.Texture().ID())
	assert.Equal(t, 2, d.LiveMems(), "old input mem released")
	assert.Equal(t, uint8(128), out.RGBAAt(1, 1).R)

	// Текстура A больше не обёрнута, её можно удалить.
	tex, ok := f.ctx.Texture(a)
	require.True(t, ok)
	assert.NoError(t, tex.Delete())
}

func TestVideoFilter_SwitchBetweenMemoryAndHandle(t *testing.T) {
	d := NewSoftwareDriver()
	f := NewVideoFilter(d, nil)
	defer f.Close()

	_, err := f.Run(FrameFromImage(gradient(4, 4)))
	require.NoError(t, err)
	tempID := f.temp.ID()

	h := d.CreateTexture(gradient(4, 4))
	_, err = f.Run(Frame{Handle: HandleTexture, Texture: h, Width: 4, Height: 4})
	require.NoError(t, err)
	assert.Equal(t, h, f.inMem.Texture().ID())

	_, err = f.Run(FrameFromImage(gradient(4, 4)))
	require.NoError(t, err)
	assert.Equal(t, tempID, f.inMem.Texture().ID())
	assert.Equal(t, 2, d.LiveMems())
}

func TestVideoFilter_ResizeRecreatesResources(t *testing.T) {
	d := NewSoftwareDriver()
	f := NewVideoFilter(d, nil)

	_, err := f.Run(FrameFromImage(gradient(4, 4)))
	require.NoError(t, err)
	oldOut := f.out.ID()

	out, err := f.Run(FrameFromImage(gradient(6, 3)))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 6, 3), out.Rect)
	assert.NotEqual(t, oldOut, f.out.ID())
	assert.Equal(t, 2, d.LiveTextures())
	assert.Equal(t, 2, d.LiveMems())

	require.NoError(t, f.Close())
	assert.Zero(t, d.LiveTextures())
}

func TestVideoFilter_RejectsInvalidFrames(t *testing.T) {
	d := NewSoftwareDriver()
	f := NewVideoFilter(d, nil)
	defer f.Close()

	tests := []struct {
		name  string
		frame Frame
	}{
		{"zero size", Frame{Format: FormatRGBA}},
		{"no planes", Frame{Format: FormatRGBA, Width: 2, Height: 2}},
		{"short plane", Frame{Format: FormatRGBA, Width: 2, Height: 2, Planes: [][]byte{make([]byte, 4)}, Strides: []int{8}}},
		{"unsupported handle", Frame{Handle: HandleUnsupported, Width: 2, Height: 2}},
		{"zero texture", Frame{Handle: HandleTexture, Width: 2, Height: 2}},
		{"unknown texture", Frame{Handle: HandleTexture, Texture: 999, Width: 2, Height: 2}},
		{"invalid format", Frame{Format: FormatInvalid, Width: 2, Height: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := f.Run(tt.frame)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, ErrUnsupportedFrame)
		})
	}
}

func TestVideoFilter_InitFailureIsPermanent(t *testing.T) {
	d := NewSoftwareDriver(WithPlatforms())
	f := NewVideoFilter(d, nil)

	assert.ErrorIs(t, f.Init(), ErrNotInitialized)
	_, err := f.Run(FrameFromImage(gradient(2, 2)))
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Zero(t, d.LiveObjects())
	assert.NoError(t, f.Close())
}

func TestVideoFilter_InitIdempotent(t *testing.T) {
	d := NewSoftwareDriver()
	f := NewVideoFilter(d, nil)
	require.NoError(t, f.Init())
	objects := d.LiveObjects()
	require.NoError(t, f.Init())
	assert.Equal(t, objects, d.LiveObjects())
	assert.Equal(t, 4, objects, "context, queue, program, kernel")

	require.NoError(t, f.Close())
	_, err := f.Run(FrameFromImage(gradient(2, 2)))
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestPickPlatform(t *testing.T) {
	platforms := []Platform{{Name: "Portable"}, {Name: "AMD Accelerated Parallel Processing"}, {Name: "Intel(R) OpenCL"}, {Name: "NVIDIA CUDA"}}
	tests := []struct {
		vendor string
		want   string
	}{
		{"NVIDIA Corporation", "NVIDIA CUDA"},
		{"Intel Open Source Technology Center", "Intel(R) OpenCL"},
		{"ATI Technologies Inc.", "AMD Accelerated Parallel Processing"},
		{"Mesa", "Portable"},
	}
	for _, tt := range tests {
		t.Run(tt.vendor, func(t *testing.T) {
			assert.Equal(t, tt.want, PickPlatform(tt.vendor, platforms).Name)
		})
	}
}

func TestSoftwareDriver_DeleteWrappedTexture(t *testing.T) {
	d := NewSoftwareDriver()
	c, err := d.NewContext(Platform{})
	require.NoError(t, err)
	tex, err := c.NewTexture(2, 2)
	require.NoError(t, err)
	m, err := c.WrapTexture(tex, ReadOnly)
	require.NoError(t, err)

	assert.ErrorIs(t, tex.Delete(), ErrTextureInUse)
	require.NoError(t, m.Release())
	assert.NoError(t, tex.Delete())
	assert.ErrorIs(t, m.Release(), ErrReleased)
}

func TestSoftwareDriver_EnqueueRequiresAcquire(t *testing.T) {
	d := NewSoftwareDriver()
	c, _ := d.NewContext(Platform{})
	q, _ := c.NewQueue()
	p, err := c.BuildProgram(embossSource)
	require.NoError(t, err)
	k, err := p.Kernel(embossKernel)
	require.NoError(t, err)

	in, _ := c.NewTexture(2, 2)
	out, _ := c.NewTexture(2, 2)
	mi, _ := c.WrapTexture(in, ReadOnly)
	mo, _ := c.WrapTexture(out, WriteOnly)
	require.NoError(t, k.SetArg(0, mi))
	require.NoError(t, k.SetArg(1, mo))
	require.NoError(t, k.SetArg(2, float32(5)))

	require.NoError(t, q.Enqueue(k, 2, 2))
	assert.ErrorIs(t, q.Finish(), ErrNotAcquired)
}

func TestSoftwareDriver_BuildUnknownKernel(t *testing.T) {
	c, _ := NewSoftwareDriver().NewContext(Platform{})
	_, err := c.BuildProgram("__kernel void Blur(image2d_t a) {}")
	assert.ErrorIs(t, err, ErrUnknownKernel)
}

// faultyDriver wraps the software driver to make kernel calls fail.
type faultyDriver struct {
	*SoftwareDriver
	setArg  error
	enqueue error
	queue   *countingQueue
}

func (d *faultyDriver) NewContext(p Platform) (Context, error) {
	ctx, err := d.SoftwareDriver.NewContext(p)
	if err != nil {
		return nil, err
	}
	return &faultyContext{Context: ctx, d: d}, nil
}

type faultyContext struct {
	Context
	d *faultyDriver
}

func (c *faultyContext) NewQueue() (Queue, error) {
	q, err := c.Context.NewQueue()
	if err != nil {
		return nil, err
	}
	c.d.queue = &countingQueue{Queue: q, fail: c.d.enqueue}
	return c.d.queue, nil
}

func (c *faultyContext) BuildProgram(src string) (Program, error) {
	p, err := c.Context.BuildProgram(src)
	if err != nil {
		return nil, err
	}
	return &faultyProgram{Program: p, fail: c.d.setArg}, nil
}

type faultyProgram struct {
	Program
	fail error
}

func (p *faultyProgram) Kernel(name string) (Kernel, error) {
	k, err := p.Program.Kernel(name)
	if err != nil || p.fail == nil {
		return k, err
	}
	return &faultyKernel{Kernel: k, fail: p.fail}, nil
}

type faultyKernel struct {
	Kernel
	fail error
}

func (k *faultyKernel) SetArg(int, any) error { return k.fail }

type countingQueue struct {
	Queue
	fail     error
	acquires int
	releases int
}

func (q *countingQueue) Acquire(mems ...Mem) error {
	q.acquires++
	return q.Queue.Acquire(mems...)
}

func (q *countingQueue) ReleaseObjects(mems ...Mem) error {
	q.releases++
	return q.Queue.ReleaseObjects(mems...)
}

func (q *countingQueue) Enqueue(k Kernel, w, h int) error {
	if q.fail != nil {
		return q.fail
	}
	return q.Queue.Enqueue(k, w, h)
}

func TestVideoFilter_SetArgFailureLeavesNothingAcquired(t *testing.T) {
	errArg := errors.New("bad argument")
	d := &faultyDriver{SoftwareDriver: NewSoftwareDriver(), setArg: errArg}
	f := NewVideoFilter(d, nil)
	defer f.Close()

	out, err := f.Run(FrameFromImage(gradient(4, 4)))
	assert.ErrorIs(t, err, errArg)
	assert.Nil(t, out)
	require.NotNil(t, d.queue)
	assert.Zero(t, d.queue.acquires, "захват не ставится в очередь")
	assert.Zero(t, d.queue.releases)
}

func TestVideoFilter_EnqueueFailureIsReported(t *testing.T) {
	errEnqueue := errors.New("out of resources")
	d := &faultyDriver{SoftwareDriver: NewSoftwareDriver(), enqueue: errEnqueue}
	f := NewVideoFilter(d, nil)
	defer f.Close()

	frame := FrameFromImage(flat(4, 4, color.RGBA{90, 20, 200, 0xff}))
	out, err := f.Run(frame)
	assert.ErrorIs(t, err, errEnqueue)
	assert.Nil(t, out, "старое содержимое выходной текстуры не отдаётся")
	assert.Equal(t, 1, d.queue.acquires)
	assert.Equal(t, 1, d.queue.releases, "объекты отпущены и при ошибке")

	d.queue.fail = nil
	out, err = f.Run(frame)
	require.NoError(t, err)
	assert.Equal(t, uint8(128), out.RGBAAt(1, 1).R)
}
