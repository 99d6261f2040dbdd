package anim

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwitchConvergesToOne(t *testing.T) {
	tests := []struct {
		name string
		sw   *Switch
		step time.Duration
	}{
		{"default", NewSwitch(), 16 * time.Millisecond},
		{"magnifier", NewSwitch(WithCurves(OutBack, OutQuad), WithDurations(100*time.Millisecond, 500*time.Millisecond)), 7 * time.Millisecond},
		{"title", NewSwitch(WithCurves(OutBounce, OutCubic)), 33 * time.Millisecond},
		{"single step", NewSwitch(), 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.sw.SetEnabled(true)
			var total time.Duration
			var eased float64
			for total < tt.sw.inTime {
				eased = tt.sw.Update(tt.step)
				total += tt.step
			}
			assert.Equal(t, 1.0, tt.sw.Value())
			assert.InDelta(t, tt.sw.inCurve(1), eased, 1e-9)
			assert.InDelta(t, 1.0, tt.sw.Eased(), 1e-9)
		})
	}
}

func TestSwitchDisableReturnsToZero(t *testing.T) {
	sw := NewSwitch()
	sw.SetEnabled(true)
	sw.Update(2 * time.Second)
	require.Equal(t, 1.0, sw.Value())

	sw.SetEnabled(false)
	for i := 0; i < 40; i++ {
		sw.Update(20 * time.Millisecond)
	}
	assert.Equal(t, 0.0, sw.Value())
	assert.Equal(t, 0.0, sw.Eased())
}

func TestSwitchStaysInBounds(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	sw := NewSwitch(WithCurves(OutBack, OutQuad), WithDurations(100*time.Millisecond, 500*time.Millisecond))

	for i := 0; i < 5000; i++ {
		if r.Intn(7) == 0 {
			sw.SetEnabled(!sw.Enabled())
		}
		sw.Update(time.Duration(r.Intn(120)) * time.Millisecond)
		v := sw.Value()
		if v < 0 || v > 1 {
			t.Fatalf("step %d: value %f out of [0,1]", i, v)
		}
	}
}

func TestSwitchSetEnabledIsNoopWhenUnchanged(t *testing.T) {
	sw := NewSwitch(WithDurations(1000*time.Millisecond, 100*time.Millisecond))
	sw.SetEnabled(true)
	sw.Update(500 * time.Millisecond)
	sw.SetEnabled(true)
	sw.Update(250 * time.Millisecond)
	assert.InDelta(t, 0.75, sw.Value(), 1e-9)
}

func TestSwitchNonPositiveDuration(t *testing.T) {
	sw := NewSwitch(WithDurations(0, -time.Second))
	sw.SetEnabled(true)
	assert.Equal(t, 1.0, sw.Update(10*time.Millisecond))
	sw.SetEnabled(false)
	assert.Equal(t, 0.0, sw.Update(10*time.Millisecond))
}

func TestSwitchLinearProgress(t *testing.T) {
	sw := NewSwitch(WithCurves(Linear, Linear))
	sw.SetEnabled(true)
	prev := 0.0
	for i := 0; i < 9; i++ {
		v := sw.Update(100 * time.Millisecond)
		assert.Greater(t, v, prev)
		prev = v
	}
	assert.InDelta(t, 0.9, sw.Value(), 1e-9)
}

func TestCurvesEndpoints(t *testing.T) {
	for name, c := range curves {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, 0.0, c(0), 1e-9)
			assert.InDelta(t, 1.0, c(1), 1e-9)
		})
	}
}

func TestParseCurve(t *testing.T) {
	c, err := ParseCurve("Out-Back")
	require.NoError(t, err)
	assert.InDelta(t, OutBack(0.3), c(0.3), 1e-12)

	_, err = ParseCurve("wobble")
	assert.Error(t, err)
}

func TestLerp(t *testing.T) {
	assert.Equal(t, 1.0, Lerp(1, 3, 0))
	assert.Equal(t, 2.0, Lerp(1, 3, 0.5))
	assert.Equal(t, 3.0, Lerp(1, 3, 1))
}
