// Package anim drives eased on/off transitions for the studio overlays.
package anim

import "time"

const (
	DefaultInTime   = 1000 * time.Millisecond
	DefaultOutTime  = 500 * time.Millisecond
	DefaultSnapDist = 0.01
)

// Switch tracks the transition progress of one visual toggle.
//
// Progress moves toward 1 while enabled and toward 0 while disabled, at a
// rate of elapsed/duration per Update. Once within the snap distance of the
// target it is clamped to the exact bound. A Switch is not safe for
// concurrent use; the compositor owns it on its scheduler goroutine.
type Switch struct {
	enabled  bool
	value    float64
	snapDist float64

	inCurve, outCurve Curve
	inTime, outTime   time.Duration

	curve    Curve
	easeTime time.Duration
}

type Option func(*Switch)

// WithCurves sets the curves used while turning on and off.
func WithCurves(in, out Curve) Option {
	return func(s *Switch) {
		if in != nil {
			s.inCurve = in
		}
		if out != nil {
			s.outCurve = out
		}
	}
}

// WithDurations sets how long a full on and off transition takes.
func WithDurations(in, out time.Duration) Option {
	return func(s *Switch) {
		s.inTime = in
		s.outTime = out
	}
}

func WithSnapDist(d float64) Option {
	return func(s *Switch) { s.snapDist = d }
}

// NewSwitch returns a disabled switch at progress 0. Defaults: InQuad on,
// OutQuad off, 1000ms on, 500ms off, snap distance 0.01.
func NewSwitch(opts ...Option) *Switch {
	s := &Switch{
		snapDist: DefaultSnapDist,
		inCurve:  InQuad,
		outCurve: OutQuad,
		inTime:   DefaultInTime,
		outTime:  DefaultOutTime,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.curve = s.inCurve
	s.easeTime = s.inTime
	return s
}

// SetEnabled changes direction. Calling it with the current state is a no-op.
func (s *Switch) SetEnabled(enabled bool) {
	if s.enabled == enabled {
		return
	}
	s.enabled = enabled
	if enabled {
		s.curve, s.easeTime = s.inCurve, s.inTime
	} else {
		s.curve, s.easeTime = s.outCurve, s.outTime
	}
}

func (s *Switch) Enabled() bool { return s.enabled }

// Value returns the raw, un-eased progress in [0,1].
func (s *Switch) Value() float64 { return s.value }

// Eased returns the active curve evaluated at the current progress.
func (s *Switch) Eased() float64 { return s.curve(s.value) }

// Update advances progress by elapsed and returns the eased value.
// A non-positive duration completes the transition at once.
func (s *Switch) Update(elapsed time.Duration) float64 {
	dir := -1.0
	if s.enabled {
		dir = 1.0
	}
	if s.easeTime <= 0 {
		s.value = (dir + 1) / 2
		return s.curve(s.value)
	}
	if elapsed > 0 {
		s.value += float64(elapsed) / float64(s.easeTime) * dir
	}
	switch {
	case s.enabled && s.value > 1-s.snapDist:
		s.value = 1
	case !s.enabled && s.value < s.snapDist:
		s.value = 0
	}
	// Snap distance may be zero, so clamp independently.
	if s.value > 1 {
		s.value = 1
	} else if s.value < 0 {
		s.value = 0
	}
	return s.curve(s.value)
}
