// Package animation computes the continuous values used to animate scenes and
// captions. Every function is a pure function of elapsed frames and
// parameters so any frame can be evaluated out of order.
package animation

import "math"

// Transition names the scene entry/exit effect.
type Transition string

const (
	TransitionNone  Transition = "none"
	TransitionFade  Transition = "fade"
	TransitionSlide Transition = "slide"
)

// CaptionAnimation names the entrance effect applied to each caption page.
type CaptionAnimation string

const (
	CaptionNone    CaptionAnimation = "none"
	CaptionFadeIn  CaptionAnimation = "fadeIn"
	CaptionSlideUp CaptionAnimation = "slideUp"
	CaptionScale   CaptionAnimation = "scale"
)

// SpringConfig describes a damped harmonic oscillator.
type SpringConfig struct {
	Damping   float64 `json:"damping" toml:"damping"`
	Stiffness float64 `json:"stiffness" toml:"stiffness"`
	Mass      float64 `json:"mass" toml:"mass"`
}

// Params carries the tunable animation constants.
type Params struct {
	CaptionWindowFrames     int          `json:"captionWindowFrames" toml:"caption_window_frames"`
	CaptionSlidePx          float64      `json:"captionSlidePx" toml:"caption_slide_px"`
	KenBurnsEndScale        float64      `json:"kenBurnsEndScale" toml:"ken_burns_end_scale"`
	KenBurnsEndTranslatePct float64      `json:"kenBurnsEndTranslatePct" toml:"ken_burns_end_translate_pct"`
	Spring                  SpringConfig `json:"spring" toml:"spring"`
	SpringStepSeconds       float64      `json:"springStepSeconds" toml:"spring_step_seconds"`
}

// DefaultParams returns the stock animation constants.
func DefaultParams() Params {
	return Params{
		CaptionWindowFrames:     15,
		CaptionSlidePx:          50,
		KenBurnsEndScale:        1.2,
		KenBurnsEndTranslatePct: -10,
		Spring:                  SpringConfig{Damping: 100, Stiffness: 200, Mass: 0.5},
		SpringStepSeconds:       DefaultSpringStep,
	}
}

// Normalized replaces unusable values with defaults.
func (p Params) Normalized() Params {
	def := DefaultParams()
	if p.CaptionWindowFrames <= 0 {
		p.CaptionWindowFrames = def.CaptionWindowFrames
	}
	if p.CaptionSlidePx <= 0 || math.IsNaN(p.CaptionSlidePx) {
		p.CaptionSlidePx = def.CaptionSlidePx
	}
	if p.KenBurnsEndScale <= 0 || math.IsNaN(p.KenBurnsEndScale) {
		p.KenBurnsEndScale = def.KenBurnsEndScale
	}
	if math.IsNaN(p.KenBurnsEndTranslatePct) {
		p.KenBurnsEndTranslatePct = def.KenBurnsEndTranslatePct
	}
	if p.Spring.Mass <= 0 || p.Spring.Stiffness <= 0 || p.Spring.Damping < 0 {
		p.Spring = def.Spring
	}
	if p.SpringStepSeconds <= 0 {
		p.SpringStepSeconds = def.SpringStepSeconds
	}
	return p
}

// Clamp01 limits v to [0,1].
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Lerp interpolates between from and to at t, where t is clamped to [0,1].
func Lerp(from, to, t float64) float64 {
	return from + (to-from)*Clamp01(t)
}

func ramp(elapsed, window int) float64 {
	if window <= 0 {
		return 1
	}
	return Clamp01(float64(elapsed) / float64(window))
}

// TransitionOpacity returns the scene opacity at elapsed frames into a scene
// lasting duration frames. Fades ramp in over the first window frames and out
// over the last window frames.
func TransitionOpacity(kind Transition, elapsed, duration, window int) float64 {
	switch kind {
	case TransitionFade, TransitionSlide:
	default:
		return 1
	}
	if duration <= 0 {
		return 0
	}
	if window > duration {
		window = duration
	}
	entry := ramp(elapsed, window)
	exit := ramp(duration-elapsed, window)
	return Clamp01(math.Min(entry, exit))
}

// SlideOffsetPct returns the horizontal offset as a percentage of frame
// width. It moves from 100 to 0 across the entry window.
func SlideOffsetPct(kind Transition, elapsed, window int) float64 {
	if kind != TransitionSlide {
		return 0
	}
	return Lerp(100, 0, ramp(elapsed, window))
}

// CaptionOpacity returns the caption page opacity for fadeIn.
func CaptionOpacity(anim CaptionAnimation, elapsed int, p Params) float64 {
	if anim != CaptionFadeIn {
		return 1
	}
	return ramp(elapsed, p.Normalized().CaptionWindowFrames)
}

// CaptionOffset returns the vertical caption offset in pixels for slideUp.
func CaptionOffset(anim CaptionAnimation, elapsed int, p Params) float64 {
	if anim != CaptionSlideUp {
		return 0
	}
	p = p.Normalized()
	return Lerp(p.CaptionSlidePx, 0, ramp(elapsed, p.CaptionWindowFrames))
}

// CaptionScaleFactor returns the caption scale for the spring entrance.
func CaptionScaleFactor(anim CaptionAnimation, elapsed, fps int, p Params) float64 {
	if anim != CaptionScale {
		return 1
	}
	p = p.Normalized()
	return Spring(elapsed, fps, p.Spring, p.SpringStepSeconds)
}

// Transform is a uniform scale plus translation in percent of frame size.
type Transform struct {
	Scale         float64 `json:"scale"`
	TranslateXPct float64 `json:"translateXPct"`
	TranslateYPct float64 `json:"translateYPct"`
}

// Identity is the no-op transform.
var Identity = Transform{Scale: 1}

// KenBurns returns the slow zoom/pan transform for a background at elapsed
// frames into a scene of duration frames.
func KenBurns(enabled bool, elapsed, duration int, p Params) Transform {
	if !enabled || duration <= 0 {
		return Identity
	}
	p = p.Normalized()
	progress := Clamp01(float64(elapsed) / float64(duration))
	translate := Lerp(0, p.KenBurnsEndTranslatePct, progress)
	return Transform{
		Scale:         Lerp(1, p.KenBurnsEndScale, progress),
		TranslateXPct: translate,
		TranslateYPct: translate,
	}
}
