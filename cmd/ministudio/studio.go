package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/ivlev/ministudio/internal/camera"
	"github.com/ivlev/ministudio/internal/config"
	"github.com/ivlev/ministudio/internal/control"
	"github.com/ivlev/ministudio/internal/gpufilter"
	"github.com/ivlev/ministudio/internal/live"
	"github.com/ivlev/ministudio/internal/remote"
	"github.com/ivlev/ministudio/internal/scene"
	"github.com/ivlev/ministudio/internal/screen"
	"github.com/ivlev/ministudio/internal/simulator"
	"github.com/ivlev/ministudio/internal/system"
	"github.com/ivlev/ministudio/internal/video"
)

type options struct {
	configPath   string
	settingsPath string
	control      string
	stats        bool
	preview      bool
	log          *slog.Logger
}

// studio holds what outlives a single live loop.
type studio struct {
	cfg     *config.Config
	log     *slog.Logger
	screen  screen.Screen
	fonts   *scene.Fonts
	logo    image.Image
	presets live.Presets
	sink    live.Sink

	current atomic.Pointer[live.Loop]
	camera  *camera.Grabber
}

func textOf(cfg *config.Config) live.Text {
	return live.Text{Project: cfg.Project, Title: cfg.Title, Subtitle: cfg.Subtitle}
}

func presetsOf(cfg *config.Config) (live.Presets, error) {
	p := live.DefaultPresets()
	for name, preset := range cfg.Switches {
		opts, err := preset.Options()
		if err != nil {
			return p, fmt.Errorf("switch %s: %w", name, err)
		}
		switch name {
		case "camera":
			p.Camera = append(p.Camera, opts...)
		case "magnifier":
			p.Magnifier = append(p.Magnifier, opts...)
		case "title":
			p.Title = append(p.Title, opts...)
		case "logo":
			p.Logo = append(p.Logo, opts...)
		default:
			return p, fmt.Errorf("unknown switch %q", name)
		}
	}
	return p, nil
}

func newStudio(cfg *config.Config, log *slog.Logger) (*studio, error) {
	s := &studio{cfg: cfg, log: log}

	scr, err := screen.Open(cfg.Screen, screen.Options{
		Size:        image.Pt(cfg.Width, cfg.Height),
		RefreshRate: cfg.RefreshRate,
	})
	if err != nil {
		// Без экрана петля не стартует, но пульт и экспорт работают.
		log.Error("screen unavailable", "source", cfg.Screen, "error", err)
	} else {
		s.screen = scr
		fmt.Printf("[*] Экран: %s %dx%d @ %.0f Гц\n", cfg.Screen, scr.Size().X, scr.Size().Y, scr.RefreshRate())
	}

	if s.fonts, err = scene.LoadFonts(cfg.Fonts.Regular, cfg.Fonts.Bold); err != nil {
		return nil, fmt.Errorf("fonts: %w", err)
	}

	fallback := cfg.Project
	if fallback == "" {
		fallback = "ministudio"
	}
	size := image.Pt(cfg.Width, cfg.Height)
	if s.screen != nil {
		size = s.screen.Size()
	}
	if s.logo, err = live.LoadLogo(cfg.Logo, fallback, size); err != nil {
		log.Warn("logo not loaded", "path", cfg.Logo, "error", err)
	}

	if s.presets, err = presetsOf(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *studio) newLoop() *live.Loop {
	l := live.New(s.screen, s.sink,
		live.WithWorkers(s.cfg.Workers),
		live.WithLogger(s.log),
		live.WithFonts(s.fonts),
		live.WithLogo(s.logo),
		live.WithPresets(s.presets),
		live.WithRefreshRate(s.cfg.RefreshRate),
		live.WithSessionBase(s.cfg.OutputDir),
	)
	if prev := s.current.Swap(l); prev != nil {
		s.report(prev)
	}
	return l
}

func (s *studio) loopStats() live.Stats {
	if l := s.current.Load(); l != nil {
		return l.Stats()
	}
	return live.Stats{}
}

func (s *studio) report(l *live.Loop) {
	st := l.Stats()
	s.log.Info("live loop finished", "stats", st.String())
	if dir := l.SessionDir(); dir != "" {
		fmt.Printf("[+] Сессия: %s\n", dir)
	}
}

// startCamera runs the camera in the background; frames go to whichever loop is current.
func (s *studio) startCamera(ctx context.Context) {
	if !s.cfg.Camera.Enabled {
		return
	}
	format, err := camera.ParseFormat(s.cfg.Camera.Format)
	if err != nil {
		s.log.Error("camera disabled", "error", err)
		return
	}
	filter, err := gpufilter.New(s.cfg.Camera.Filter, gpufilter.NewSoftwareDriver(), s.log)
	if err != nil {
		s.log.Error("camera disabled", "error", err)
		return
	}
	g := camera.NewGrabber(camera.Config{
		Device: s.cfg.Camera.Device,
		Width:  s.cfg.Camera.Width,
		Height: s.cfg.Camera.Height,
		FPS:    s.cfg.Camera.FPS,
		Format: format,
	}, filter, func(img *image.RGBA) {
		if l := s.current.Load(); l != nil {
			l.PutCameraFrame(img)
		}
	}, s.log)
	if err := g.Start(ctx); err != nil {
		// Фильтр уже закрыт грабером.
		s.log.Error("camera not started", "error", err)
		return
	}
	s.camera = g
}

// startPreview sets the sink to an ffplay window.
func (s *studio) startPreview(ctx context.Context) *video.Preview {
	if s.screen == nil {
		return nil
	}
	rate := s.screen.RefreshRate()
	if s.cfg.RefreshRate > 0 {
		rate = s.cfg.RefreshRate
	}
	p, err := video.NewPreview(ctx, s.screen.Size(), rate/4)
	if err != nil {
		s.log.Warn("preview unavailable", "error", err)
		return nil
	}
	var failed atomic.Bool
	s.sink = func(f live.Frame) {
		if failed.Load() {
			return
		}
		if err := p.Write(f.Image); err != nil {
			failed.Store(true)
			s.log.Warn("preview closed", "frame", f.ID, "error", err)
		}
	}
	return p
}

func (s *studio) close() {
	if s.camera != nil {
		if err := s.camera.Close(); err != nil {
			s.log.Warn("camera close", "error", err)
		}
		st := s.camera.Stats()
		s.log.Info("camera stopped", "captured", st.Captured, "dropped", st.Dropped, "failed", st.Failed)
	}
	if l := s.current.Load(); l != nil {
		s.report(l)
	}
	if s.screen != nil {
		s.screen.Close()
	}
}

func printHost(l *live.Loop) {
	if l != nil {
		fmt.Printf("[*] Кадры: %s\n", l.Stats())
	}
	if host, err := system.Host(); err == nil {
		fmt.Printf("[*] %s\n", host)
	}
}

func runStudio(ctx context.Context, cfg *config.Config, o options) error {
	s, err := newStudio(cfg, o.log)
	if err != nil {
		return err
	}
	defer s.close()

	if o.preview {
		if p := s.startPreview(ctx); p != nil {
			defer p.Close()
		}
	}
	s.startCamera(ctx)

	settings, err := config.LoadSettings(o.settingsPath)
	if err != nil {
		o.log.Warn("settings not loaded", "path", o.settingsPath, "error", err)
	}

	ropts := []control.Option{
		control.WithLogger(o.log),
		control.WithText(textOf(cfg)),
		control.WithPanelHook(func(open bool) {
			if open {
				fmt.Printf("[*] Настройки: %s (изменения применяются на лету)\n", o.configPath)
			}
		}),
	}
	if pager, ok := s.screen.(screen.Pager); ok {
		ropts = append(ropts, control.WithPager(pager))
	}
	router := control.NewRouter(ctx, func() control.Loop { return s.newLoop() }, settings, ropts...)
	defer func() {
		router.Close()
		if err := config.SaveSettings(o.settingsPath, router.Settings()); err != nil {
			o.log.Warn("settings not saved", "path", o.settingsPath, "error", err)
		}
		if o.stats {
			printHost(s.current.Load())
		}
	}()

	if err := config.Watch(ctx, o.configPath, func(c *config.Config) { router.SetText(textOf(c)) }); err != nil {
		o.log.Warn("config watch disabled", "error", err)
	}

	fmt.Println("[*] MiniStudio готова")
	switch o.control {
	case "simulator":
		return simulator.Run(ctx, router.Handle, router.Status)
	case "mqtt":
		r := remote.New(cfg.MQTT, router, s.loopStats, o.log)
		if err := r.Connect(ctx); err != nil {
			return err
		}
		fmt.Printf("[*] Управление: %s\n", r.ControlTopic())
		<-ctx.Done()
		r.Close()
		return nil
	case "none":
		// Без пульта эфир идёт до Ctrl+C.
		router.Handle(control.ButtonEvent("Play", false))
		<-ctx.Done()
		return nil
	default:
		return fmt.Errorf("unknown control source %q", o.control)
	}
}

// recordSink calls done after n composited frames. The black start frame
// (id 1) is not written to disk and does not count.
func recordSink(n uint64, done func()) live.Sink {
	var composited atomic.Uint64
	return func(f live.Frame) {
		if f.ID <= 1 {
			return
		}
		if composited.Add(1) == n {
			done()
		}
	}
}

// runRecord records a fixed number of frames headless.
func runRecord(ctx context.Context, cfg *config.Config, args []string, stats bool, log *slog.Logger) error {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	framesPtr := fs.Uint64("frames", 60, "Сколько кадров записать")
	fs.Parse(args)

	s, err := newStudio(cfg, log)
	if err != nil {
		return err
	}
	defer s.close()
	if s.screen == nil {
		return screen.ErrNoScreen
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.sink = recordSink(*framesPtr, cancel)
	s.startCamera(ctx)

	l := s.newLoop()
	l.SetText(textOf(cfg))
	l.SetSaving(true)
	if err := l.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("[*] Запись %d кадров...\n", *framesPtr)
	l.Wait()

	if stats {
		printHost(l)
	}
	fmt.Printf("[+++] Готово: %s\n", l.SessionDir())
	return nil
}
