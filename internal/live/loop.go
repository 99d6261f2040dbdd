package live

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gg"

	"github.com/ivlev/ministudio/internal/anim"
	"github.com/ivlev/ministudio/internal/scene"
	"github.com/ivlev/ministudio/internal/screen"
	"github.com/ivlev/ministudio/internal/session"
	"github.com/ivlev/ministudio/internal/system"
)

var ErrAlreadyRunning = errors.New("loop already started")

type State int32

const (
	Stopped State = iota
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// Frame is one composited image handed to the preview sink.
type Frame struct {
	ID    uint64
	Image *image.RGBA
}

// Sink receives delivered frames in non-decreasing id order, never concurrently.
type Sink func(Frame)

// Presets hold the switch options for each overlay.
type Presets struct {
	Camera    []anim.Option
	Magnifier []anim.Option
	Title     []anim.Option
	Logo      []anim.Option
}

func DefaultPresets() Presets {
	return Presets{
		Magnifier: []anim.Option{
			anim.WithCurves(anim.OutBack, anim.OutQuad),
			anim.WithDurations(100*time.Millisecond, 500*time.Millisecond),
		},
		Title: []anim.Option{anim.WithCurves(anim.OutBounce, anim.OutCubic)},
	}
}

type Stats struct {
	Submitted     uint64
	Delivered     uint64
	Stale         uint64
	GrabFailures  uint64
	SaveFailures  uint64
	CameraFrames  uint64
	CameraDropped uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("submitted=%d delivered=%d stale=%d grab_failures=%d save_failures=%d camera=%d camera_dropped=%d",
		s.Submitted, s.Delivered, s.Stale, s.GrabFailures, s.SaveFailures, s.CameraFrames, s.CameraDropped)
}

type Option func(*Loop)

func WithWorkers(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.workers = n
		}
	}
}

func WithLogger(log *slog.Logger) Option { return func(l *Loop) { l.log = log } }

func WithFonts(f *scene.Fonts) Option { return func(l *Loop) { l.fonts = f } }

func WithLogo(img image.Image) Option { return func(l *Loop) { l.logo = img } }

func WithPresets(p Presets) Option { return func(l *Loop) { l.presets = p } }

// WithRefreshRate overrides the screen's refresh rate for pacing.
func WithRefreshRate(hz float64) Option { return func(l *Loop) { l.refresh = hz } }

// WithSessionBase sets the directory that receives session folders when saving.
func WithSessionBase(dir string) Option { return func(l *Loop) { l.sessionBase = dir } }

// Loop grabs the screen at a quarter of its refresh rate, composites the
// overlays and delivers the frames in order.
type Loop struct {
	screen      screen.Screen
	sink        Sink
	log         *slog.Logger
	workers     int
	fonts       *scene.Fonts
	logo        image.Image
	presets     Presets
	refresh     float64
	sessionBase string

	p      params
	camera Mailbox

	started atomic.Bool
	state   atomic.Int32
	stop    atomic.Bool
	done    chan struct{}
	session atomic.Pointer[session.Session]
	lastDir atomic.Pointer[string]

	submitted    atomic.Uint64
	delivered    atomic.Uint64
	stale        atomic.Uint64
	grabFailures atomic.Uint64
	saveFailures atomic.Uint64
}

func New(scr screen.Screen, sink Sink, opts ...Option) *Loop {
	l := &Loop{
		screen:      scr,
		sink:        sink,
		log:         slog.Default(),
		workers:     system.DefaultWorkers(),
		presets:     DefaultPresets(),
		sessionBase: system.MoviesDir(),
		done:        make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	l.log = l.log.With("component", "live")
	l.p.cameraOpacity.Store(1)
	l.p.magLevel.Store(1)
	l.p.pipSize.Store(1)
	l.p.text.Store(&Text{})
	if l.sink == nil {
		l.sink = func(Frame) {}
	}
	return l
}

func (l *Loop) State() State { return State(l.state.Load()) }

// Done is closed when the loop has stopped.
func (l *Loop) Done() <-chan struct{} { return l.done }

// PutCameraFrame stores the newest camera image. The image must not be modified afterwards.
func (l *Loop) PutCameraFrame(img *image.RGBA) { l.camera.Put(img) }

func (l *Loop) Stats() Stats {
	return Stats{
		Submitted:     l.submitted.Load(),
		Delivered:     l.delivered.Load(),
		Stale:         l.stale.Load(),
		GrabFailures:  l.grabFailures.Load(),
		SaveFailures:  l.saveFailures.Load(),
		CameraFrames:  l.camera.Received(),
		CameraDropped: l.camera.Dropped(),
	}
}

// SessionDir is the directory of the current or most recent session, if any.
func (l *Loop) SessionDir() string {
	if d := l.lastDir.Load(); d != nil {
		return *d
	}
	return ""
}

// Start launches the scheduler. A loop runs once. It returns
// screen.ErrNoScreen without entering Running when there is nothing to grab.
func (l *Loop) Start(ctx context.Context) error {
	if l.started.Swap(true) {
		return ErrAlreadyRunning
	}
	if l.screen == nil {
		l.log.Error("no screen, live loop not started")
		close(l.done)
		return screen.ErrNoScreen
	}
	l.state.Store(int32(Running))
	go l.run(ctx)
	return nil
}

// Stop asks the scheduler to finish after the current tick.
func (l *Loop) Stop() {
	if l.state.CompareAndSwap(int32(Running), int32(Stopping)) {
		l.stop.Store(true)
	}
}

// Wait blocks until the loop has stopped.
func (l *Loop) Wait() { <-l.done }

type result struct {
	c        scene.Completion
	sc       *scene.Scene
	sess     *session.Session
	terminal bool
}

type ticker struct {
	size   image.Point
	nextID uint64
	last   time.Time
	grab   image.Image

	camera    *anim.Switch
	magnifier *anim.Switch
	title     *anim.Switch
	logo      *anim.Switch

	logoTrans gg.Matrix
	pipTrans  gg.Matrix
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	defer l.state.Store(int32(Stopped))

	size := l.screen.Size()
	t := &ticker{
		size:      size,
		nextID:    1,
		camera:    anim.NewSwitch(l.presets.Camera...),
		magnifier: anim.NewSwitch(l.presets.Magnifier...),
		title:     anim.NewSwitch(l.presets.Title...),
		logo:      anim.NewSwitch(l.presets.Logo...),
		pipTrans: gg.Scale(0.4, 0.4).
			Multiply(gg.Translate(0.1*float64(size.X), 0.1*float64(size.Y))),
	}
	if l.logo != nil {
		t.logoTrans = gg.Translate(0.9*float64(size.X)-float64(l.logo.Bounds().Dx()), 0.1*float64(size.Y))
	}

	results := make(chan result, l.workers)
	pool := newPool(l.workers, results)

	var delivery sync.WaitGroup
	delivery.Add(1)
	go func() {
		defer delivery.Done()
		l.deliver(results)
	}()

	results <- result{c: l.black(t.take())}
	l.log.Info("live loop started", "width", size.X, "height", size.Y, "workers", l.workers, "refresh", l.rate())

	period := l.period()
	t.last = time.Now()
	for !l.stop.Load() && ctx.Err() == nil {
		start := time.Now()
		l.tick(t, pool)

		if sleep := period - time.Since(start); sleep > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(sleep):
			}
		}
	}

	l.state.Store(int32(Stopping))
	results <- result{c: l.black(t.take()), terminal: true}
	pool.close()
	close(results)
	delivery.Wait()
	l.endSession()

	l.log.Info("live loop stopped", "stats", l.Stats().String())
}

func (t *ticker) take() uint64 {
	id := t.nextID
	t.nextID++
	return id
}

func (l *Loop) rate() float64 {
	if l.refresh > 0 {
		return l.refresh
	}
	return l.screen.RefreshRate()
}

// period is a quarter of the display refresh rate.
func (l *Loop) period() time.Duration {
	r := l.rate()
	if r <= 0 {
		r = 60
	}
	return time.Duration(float64(time.Second) / (r / 4))
}

func (l *Loop) black(id uint64) scene.Completion {
	img := image.NewRGBA(image.Rectangle{Max: l.screen.Size()})
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return scene.Completion{ID: id, Image: img}
}

func (l *Loop) tick(t *ticker, pool *pool) {
	now := time.Now()
	elapsed := now.Sub(t.last)
	t.last = now

	if !l.p.hold.Load() || t.grab == nil {
		grab, err := l.screen.Grab()
		if err != nil || grab == nil {
			l.grabFailures.Add(1)
			l.log.Warn("screen grab failed", "error", err)
			return
		}
		t.grab = grab
	}

	t.camera.SetEnabled(l.p.cameraEnabled.Load())
	t.magnifier.SetEnabled(l.p.magEnabled.Load())
	t.title.SetEnabled(l.p.titleEnabled.Load())
	t.logo.SetEnabled(l.p.logoEnabled.Load() && l.logo != nil)
	camVal := t.camera.Update(elapsed)
	magVal := t.magnifier.Update(elapsed)
	titleVal := t.title.Update(elapsed)
	logoVal := t.logo.Update(elapsed)

	sess := l.syncSession()
	id := t.take()
	path := ""
	if sess != nil {
		path = sess.FramePath(id)
	}

	opts := []scene.Option{scene.WithLogger(l.log)}
	if l.fonts != nil {
		opts = append(opts, scene.WithFonts(l.fonts))
	}
	sc := scene.New(id, path, t.size, opts...)
	sc.AddImageLayer("screen", t.grab, 1, gg.Identity())

	if cam := l.camera.Latest(); cam != nil && t.camera.Value() > 0 {
		pip := l.p.pipSize.Load()
		sc.AddImageLayer("camera", cam, l.p.cameraOpacity.Load()*camVal, t.pipTrans.Multiply(gg.Scale(pip, pip)))
	}
	if t.magnifier.Value() > 0 {
		ptr := l.screen.Cursor()
		canvas := magnify(t.grab, ptr, l.p.magLevel.Load(), magVal)
		sc.Own(canvas, system.PutImage)
		pos := gg.Translate(float64(ptr.X-magnifierSize/2), float64(ptr.Y-magnifierSize/2))
		sc.AddImageLayer("magnifier", canvas, magVal, pos)
	}
	if t.title.Value() > 0 {
		text := l.Text()
		sc.AddTitleLayer("title", text.Title, text.Subtitle, 1, gg.Translate((titleVal-1)*float64(t.size.X), 0))
	}
	if t.logo.Value() > 0 {
		sc.AddImageLayer("logo", l.logo, logoVal, t.logoTrans)
	}

	if sess != nil {
		sess.Hold()
	}
	l.submitted.Add(1)
	pool.submit(sc, sess)
}

// syncSession opens or closes the session to match the saving flag.
func (l *Loop) syncSession() *session.Session {
	cur := l.session.Load()
	want := l.p.saving.Load()
	switch {
	case want && cur == nil:
		text := l.Text()
		size := l.screen.Size()
		s, err := session.Create(l.sessionBase, session.Manifest{
			Project:  text.Project,
			Title:    text.Title,
			Subtitle: text.Subtitle,
			Size:     [2]int{size.X, size.Y},
			FPS:      l.rate() / 4,
		})
		if err != nil {
			l.log.Error("cannot start session, saving disabled", "error", err)
			l.p.saving.Store(false)
			return nil
		}
		l.log.Info("saving frames", "dir", s.Dir(), "session", s.ID())
		l.session.Store(s)
		dir := s.Dir()
		l.lastDir.Store(&dir)
		return s
	case !want && cur != nil:
		l.endSession()
		return nil
	}
	return cur
}

// endSession detaches the session. Its manifest is written once the frames
// still rendering into it have been delivered.
func (l *Loop) endSession() {
	s := l.session.Swap(nil)
	if s == nil {
		return
	}
	closed, err := s.End()
	l.sessionClosed(s, closed, err)
}

func (l *Loop) sessionClosed(s *session.Session, closed bool, err error) {
	if err != nil {
		l.log.Warn("session manifest not written", "dir", s.Dir(), "error", err)
		return
	}
	if closed {
		l.log.Info("session closed", "dir", s.Dir(), "frames", s.Frames())
	}
}

func (l *Loop) deliver(results <-chan result) {
	var hw highWater
	for r := range results {
		if r.c.SaveErr != nil {
			l.saveFailures.Add(1)
		}
		if r.sess != nil {
			closed, err := r.sess.Done(r.c.SaveErr == nil && r.c.Path != "")
			l.sessionClosed(r.sess, closed, err)
		}

		if hw.accept(r.c.ID) {
			l.delivered.Add(1)
			l.sink(Frame{ID: r.c.ID, Image: r.c.Image})
		} else {
			l.stale.Add(1)
		}
		if r.terminal {
			hw.finish()
		}
		if r.sc != nil {
			r.sc.Release()
		}
	}
}
