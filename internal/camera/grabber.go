package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/ivlev/ministudio/internal/gpufilter"
)

// TestDevice selects videotestsrc instead of a V4L2 device.
const TestDevice = "test"

type Config struct {
	Device string
	Width  int
	Height int
	FPS    int
	Format gpufilter.PixelFormat
}

// Grabber captures camera frames with GStreamer, runs them through the
// filter and hands the images to deliver.
type Grabber struct {
	cfg     Config
	filter  gpufilter.Filter
	deliver func(*image.RGBA)
	log     *slog.Logger

	pipeline *gst.Pipeline
	appsink  *app.Sink
	frames   chan gpufilter.Frame
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	closeOnce sync.Once
	closeErr  error

	captured atomic.Uint64
	dropped  atomic.Uint64
	failed   atomic.Uint64
}

func NewGrabber(cfg Config, filter gpufilter.Filter, deliver func(*image.RGBA), log *slog.Logger) *Grabber {
	if log == nil {
		log = slog.Default()
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	return &Grabber{
		cfg:     cfg,
		filter:  filter,
		deliver: deliver,
		log:     log.With("component", "camera", "device", cfg.Device),
		frames:  make(chan gpufilter.Frame, 1),
	}
}

func (g *Grabber) build() error {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	var src *gst.Element
	if g.cfg.Device == TestDevice {
		if src, err = gst.NewElement("videotestsrc"); err != nil {
			return fmt.Errorf("create videotestsrc: %w", err)
		}
		src.SetProperty("is-live", true)
	} else {
		if src, err = gst.NewElement("v4l2src"); err != nil {
			return fmt.Errorf("create v4l2src: %w", err)
		}
		src.SetProperty("device", g.cfg.Device)
	}

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return fmt.Errorf("create videoconvert: %w", err)
	}
	scale, err := gst.NewElement("videoscale")
	if err != nil {
		return fmt.Errorf("create videoscale: %w", err)
	}
	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return fmt.Errorf("create capsfilter: %w", err)
	}
	caps := fmt.Sprintf("video/x-raw,format=%s,width=%d,height=%d,framerate=%d/1",
		capsFormat(g.cfg.Format), g.cfg.Width, g.cfg.Height, g.cfg.FPS)
	capsfilter.SetProperty("caps", gst.NewCapsFromString(caps))

	appsink, err := app.NewAppSink()
	if err != nil {
		return fmt.Errorf("create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1)
	appsink.SetProperty("drop", true)

	pipeline.AddMany(src, convert, scale, capsfilter, appsink.Element)
	if err := gst.ElementLinkMany(src, convert, scale, capsfilter, appsink.Element); err != nil {
		return fmt.Errorf("link pipeline: %w", err)
	}

	appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: g.onSample,
	})
	g.pipeline, g.appsink = pipeline, appsink
	g.log.Debug("camera pipeline built", "caps", caps)
	return nil
}

func (g *Grabber) onSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}
	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return gst.FlowOK
	}
	// GStreamer переиспользует буфер.
	owned := make([]byte, len(data))
	copy(owned, data)
	buffer.Unmap()

	frame, err := splitFrame(g.cfg.Format, g.cfg.Width, g.cfg.Height, owned)
	if err != nil {
		g.failed.Add(1)
		g.log.Warn("bad camera buffer", "error", err)
		return gst.FlowOK
	}
	g.captured.Add(1)
	g.offer(frame)
	return gst.FlowOK
}

// offer keeps only the newest frame waiting for the filter.
func (g *Grabber) offer(f gpufilter.Frame) {
	for {
		select {
		case g.frames <- f:
			return
		default:
		}
		select {
		case <-g.frames:
			g.dropped.Add(1)
		default:
		}
	}
}

// Start builds and plays the pipeline. Frames are filtered on a single goroutine.
// The grabber owns the filter: a failed Start has already released it.
func (g *Grabber) Start(ctx context.Context) error {
	if err := g.build(); err != nil {
		g.Close()
		return err
	}
	ctx, g.cancel = context.WithCancel(ctx)

	g.wg.Add(2)
	go func() {
		defer g.wg.Done()
		g.process(ctx)
	}()
	go func() {
		defer g.wg.Done()
		if err := g.monitor(ctx); err != nil {
			g.log.Error("camera stopped", "error", err)
		}
	}()

	if err := g.pipeline.SetState(gst.StatePlaying); err != nil {
		g.Close()
		return fmt.Errorf("start pipeline: %w", err)
	}
	g.log.Info("camera started", "width", g.cfg.Width, "height", g.cfg.Height, "format", g.cfg.Format.String())
	return nil
}

func (g *Grabber) process(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-g.frames:
			g.handle(f)
		}
	}
}

func (g *Grabber) handle(f gpufilter.Frame) {
	img, err := g.filter.Run(f)
	if err != nil {
		g.failed.Add(1)
		g.log.Debug("camera frame dropped by filter", "trace_id", f.TraceID, "error", err)
		return
	}
	g.deliver(img)
}

func (g *Grabber) monitor(ctx context.Context) error {
	bus := g.pipeline.GetPipelineBus()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			return errors.New("end of stream")
		case gst.MessageError:
			gerr := msg.ParseError()
			return fmt.Errorf("pipeline error: %s (%s)", gerr.Error(), gerr.DebugString())
		}
	}
}

type Stats struct {
	Captured uint64
	Dropped  uint64
	Failed   uint64
}

func (g *Grabber) Stats() Stats {
	return Stats{Captured: g.captured.Load(), Dropped: g.dropped.Load(), Failed: g.failed.Load()}
}

// Close stops the pipeline and the filter goroutine, then releases the
// filter. Later calls return the first result.
func (g *Grabber) Close() error {
	g.closeOnce.Do(func() {
		if g.cancel != nil {
			g.cancel()
		}
		var errs []error
		if g.pipeline != nil {
			errs = append(errs, g.pipeline.SetState(gst.StateNull))
		}
		g.wg.Wait()
		errs = append(errs, g.filter.Close())
		g.closeErr = errors.Join(errs...)
	})
	return g.closeErr
}
