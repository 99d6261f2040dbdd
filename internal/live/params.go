package live

import (
	"math"
	"sync/atomic"
)

type atomicFloat struct{ bits atomic.Uint64 }

func (f *atomicFloat) Load() float64   { return math.Float64frombits(f.bits.Load()) }
func (f *atomicFloat) Store(v float64) { f.bits.Store(math.Float64bits(v)) }

// Text is the title card content.
type Text struct {
	Project  string
	Title    string
	Subtitle string
}

// params are written by control goroutines and read once per tick by the scheduler.
type params struct {
	cameraEnabled atomic.Bool
	cameraOpacity atomicFloat
	magEnabled    atomic.Bool
	magLevel      atomicFloat
	pipSize       atomicFloat
	titleEnabled  atomic.Bool
	logoEnabled   atomic.Bool
	hold          atomic.Bool
	saving        atomic.Bool
	text          atomic.Pointer[Text]
}

func (l *Loop) SetCameraEnabled(on bool)        { l.p.cameraEnabled.Store(on) }
func (l *Loop) SetCameraOpacity(v float64)      { l.p.cameraOpacity.Store(clamp01(v)) }
func (l *Loop) SetMagnifierEnabled(on bool)     { l.p.magEnabled.Store(on) }
func (l *Loop) SetMagnifierLevel(level float64) { l.p.magLevel.Store(level) }
func (l *Loop) SetPIPSize(size float64)         { l.p.pipSize.Store(size) }
func (l *Loop) SetTitleEnabled(on bool)         { l.p.titleEnabled.Store(on) }
func (l *Loop) SetLogoEnabled(on bool)          { l.p.logoEnabled.Store(on) }

// SetHold freezes the screen layer on the last grab.
func (l *Loop) SetHold(on bool) { l.p.hold.Store(on) }

// SetSaving starts or ends writing frames into a session directory.
func (l *Loop) SetSaving(on bool) { l.p.saving.Store(on) }

func (l *Loop) SetText(t Text) { l.p.text.Store(&t) }

func (l *Loop) Text() Text { return *l.p.text.Load() }

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
