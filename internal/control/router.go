package control

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ivlev/ministudio/internal/config"
	"github.com/ivlev/ministudio/internal/live"
	"github.com/ivlev/ministudio/internal/screen"
)

const dialStep = 0.05

// Loop is the part of live.Loop the router drives.
type Loop interface {
	Start(ctx context.Context) error
	Stop()
	Wait()

	SetCameraEnabled(on bool)
	SetCameraOpacity(v float64)
	SetMagnifierEnabled(on bool)
	SetMagnifierLevel(level float64)
	SetPIPSize(size float64)
	SetTitleEnabled(on bool)
	SetLogoEnabled(on bool)
	SetHold(on bool)
	SetSaving(on bool)
	SetText(t live.Text)
}

// LoopFactory builds a fresh loop for every Play/Record.
type LoopFactory func() Loop

// Status is a snapshot of the router state.
type Status struct {
	Live          bool    `json:"live"`
	Saving        bool    `json:"saving"`
	Camera        bool    `json:"camera"`
	CameraOpacity float64 `json:"camera_opacity"`
	Magnifier     bool    `json:"magnifier"`
	MagLevel      float64 `json:"mag_level"`
	PIPMode       bool    `json:"pip_mode"`
	PIPSize       float64 `json:"pip_size"`
	Title         bool    `json:"title"`
	Logo          bool    `json:"logo"`
	Hold          bool    `json:"hold"`
	Panel         bool    `json:"panel"`
}

type Option func(*Router)

// WithPager lets Rew/Fwd turn pages on slide-deck screens.
func WithPager(p screen.Pager) Option { return func(r *Router) { r.pager = p } }

// WithPanelHook is called when InputC+D toggles the configuration panel.
func WithPanelHook(fn func(open bool)) Option { return func(r *Router) { r.onPanel = fn } }

func WithLogger(log *slog.Logger) Option { return func(r *Router) { r.log = log } }

func WithText(t live.Text) Option { return func(r *Router) { r.text = t } }

// Router maps control surface events onto the live loop and owns its lifecycle.
type Router struct {
	mu      sync.Mutex
	ctx     context.Context
	newLoop LoopFactory
	loop    Loop
	pager   screen.Pager
	onPanel func(bool)
	log     *slog.Logger

	text          live.Text
	saving        bool
	cameraEnabled bool
	cameraOpacity float64
	magEnabled    bool
	magLevel      float64
	pipMode       bool
	pipSize       float64
	titleEnabled  bool
	logoEnabled   bool
	hold          bool
	panel         bool
}

func NewRouter(ctx context.Context, newLoop LoopFactory, s config.Settings, opts ...Option) *Router {
	r := &Router{
		ctx:           ctx,
		newLoop:       newLoop,
		log:           slog.Default(),
		cameraOpacity: 1,
		magLevel:      s.MagLevel,
		pipSize:       s.PIPSize,
		titleEnabled:  s.TitleEnabled,
		logoEnabled:   s.LogoEnabled,
		cameraEnabled: s.CameraEnabled,
	}
	for _, o := range opts {
		o(r)
	}
	r.log = r.log.With("component", "control")
	return r
}

func (r *Router) Handle(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log.Debug("control event", "event", ev.String())

	switch ev.Kind {
	case Button:
		r.button(ev.Name, ev.Pressed)
	case Slider:
		r.slider(ev.Name, ev.Value)
	case Knob:
		r.knob(ev.Name, ev.Up)
	}
}

func (r *Router) button(name string, pressed bool) {
	running := r.loop != nil

	if !pressed {
		switch name {
		case "Play":
			r.setRecording(true, false)
		case "Record":
			r.setRecording(true, true)
		case "Stop":
			r.setRecording(false, false)
		case "InputC+D":
			r.panel = !r.panel
			if r.onPanel != nil {
				r.onPanel(r.panel)
			}
		case "Rew":
			r.page(false)
		case "Fwd":
			r.page(true)
		}
	}

	// Кнопки, действующие пока удерживаются.
	switch name {
	case "F1":
		if running {
			r.magEnabled = pressed
			r.loop.SetMagnifierEnabled(pressed)
		}
	case "F2":
		r.hold = pressed
		if running {
			r.loop.SetHold(pressed)
		}
	case "F3":
		if running {
			r.pipMode = pressed
		}
	}

	if pressed && running {
		switch name {
		case "Aux1":
			r.cameraEnabled = !r.cameraEnabled
			r.loop.SetCameraEnabled(r.cameraEnabled)
		case "Aux2":
			r.titleEnabled = !r.titleEnabled
			r.loop.SetTitleEnabled(r.titleEnabled)
		case "Aux3":
			r.log.Info("presentation toggle is not supported")
		case "Aux4":
			r.logoEnabled = !r.logoEnabled
			r.loop.SetLogoEnabled(r.logoEnabled)
		}
	}
}

func (r *Router) slider(name string, v float64) {
	if name != "Channel1" {
		return
	}
	r.cameraOpacity = v
	if r.loop != nil {
		r.loop.SetCameraOpacity(v)
	}
}

func (r *Router) knob(name string, up bool) {
	if name != "BigDial" {
		return
	}
	factor := 1 - dialStep
	if up {
		factor = 1 + dialStep
	}
	switch {
	case r.magEnabled:
		if next := r.magLevel * factor; next > 0 {
			r.magLevel = next
			if r.loop != nil {
				r.loop.SetMagnifierLevel(next)
			}
		}
	case r.pipMode:
		if next := r.pipSize * factor; next > 0 {
			r.pipSize = next
			if r.loop != nil {
				r.loop.SetPIPSize(next)
			}
		}
	}
}

func (r *Router) page(forward bool) {
	if r.pager == nil {
		return
	}
	var err error
	if forward {
		err = r.pager.Next()
	} else {
		err = r.pager.Prev()
	}
	if err != nil {
		r.log.Debug("page change ignored", "error", err)
	}
}

// setRecording starts a loop when run is set and none is live, pushing the
// whole parameter set into it, or stops the live loop. Saving follows rec
// whenever a loop remains.
func (r *Router) setRecording(run, rec bool) {
	if run {
		if r.loop == nil {
			l := r.newLoop()
			l.SetText(r.text)
			l.SetCameraEnabled(r.cameraEnabled)
			l.SetCameraOpacity(r.cameraOpacity)
			l.SetMagnifierEnabled(r.magEnabled)
			l.SetMagnifierLevel(r.magLevel)
			l.SetPIPSize(r.pipSize)
			l.SetTitleEnabled(r.titleEnabled)
			l.SetLogoEnabled(r.logoEnabled)
			l.SetHold(r.hold)
			l.SetSaving(rec)
			if err := l.Start(r.ctx); err != nil {
				r.log.Error("live loop did not start", "error", err)
				return
			}
			r.loop = l
			r.log.Info("live started", "saving", rec)
		}
	} else if r.loop != nil {
		r.loop.Stop()
		r.loop.Wait()
		r.loop = nil
		r.log.Info("live stopped")
	}

	r.saving = rec && r.loop != nil
	if r.loop != nil {
		r.loop.SetSaving(rec)
	}
}

// SetText updates the title card, including on a live loop.
func (r *Router) SetText(t live.Text) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = t
	if r.loop != nil {
		r.loop.SetText(t)
	}
}

func (r *Router) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		Live:          r.loop != nil,
		Saving:        r.saving,
		Camera:        r.cameraEnabled,
		CameraOpacity: r.cameraOpacity,
		Magnifier:     r.magEnabled,
		MagLevel:      r.magLevel,
		PIPMode:       r.pipMode,
		PIPSize:       r.pipSize,
		Title:         r.titleEnabled,
		Logo:          r.logoEnabled,
		Hold:          r.hold,
		Panel:         r.panel,
	}
}

// Settings returns the values persisted between runs.
func (r *Router) Settings() config.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return config.Settings{
		MagLevel:      r.magLevel,
		PIPSize:       r.pipSize,
		TitleEnabled:  r.titleEnabled,
		LogoEnabled:   r.logoEnabled,
		CameraEnabled: r.cameraEnabled,
	}
}

// Close stops a live loop.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setRecording(false, false)
}
