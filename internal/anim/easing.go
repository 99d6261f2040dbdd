package anim

import (
	"fmt"
	"math"
	"strings"
)

// Curve maps raw progress in [0,1] to an eased value.
type Curve func(t float64) float64

// Linear is the identity curve.
func Linear(t float64) float64 { return t }

func InQuad(t float64) float64 { return t * t }

func OutQuad(t float64) float64 { return -t * (t - 2) }

func InOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - pow(-2*t+2, 2)/2
}

func InCubic(t float64) float64 { return t * t * t }

func OutCubic(t float64) float64 {
	t--
	return t*t*t + 1
}

// InOutCubic applies smooth easing function
func InOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - pow(-2*t+2, 3)/2
}

// OutBack overshoots the target slightly before settling.
func OutBack(t float64) float64 {
	const s = 1.70158
	t--
	return t*t*((s+1)*t+s) + 1
}

// OutBounce settles with decaying bounces.
func OutBounce(t float64) float64 {
	const n1, d1 = 7.5625, 2.75
	switch {
	case t < 1/d1:
		return n1 * t * t
	case t < 2/d1:
		t -= 1.5 / d1
		return n1*t*t + 0.75
	case t < 2.5/d1:
		t -= 2.25 / d1
		return n1*t*t + 0.9375
	default:
		t -= 2.625 / d1
		return n1*t*t + 0.984375
	}
}

var curves = map[string]Curve{
	"linear":     Linear,
	"inquad":     InQuad,
	"outquad":    OutQuad,
	"inoutquad":  InOutQuad,
	"incubic":    InCubic,
	"outcubic":   OutCubic,
	"inoutcubic": InOutCubic,
	"outback":    OutBack,
	"outbounce":  OutBounce,
}

// ParseCurve resolves a curve by name ("OutBack", "out-back", "out_back").
func ParseCurve(name string) (Curve, error) {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(name))
	c, ok := curves[key]
	if !ok {
		return nil, fmt.Errorf("unknown easing curve: %s", name)
	}
	return c, nil
}

// Lerp performs linear interpolation between a and b
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// pow calculates x^n
func pow(x float64, n int) float64 {
	return math.Pow(x, float64(n))
}
