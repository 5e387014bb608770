package animation

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestTransitionOpacity(t *testing.T) {
	tests := []struct {
		name     string
		kind     Transition
		elapsed  int
		duration int
		window   int
		want     float64
	}{
		{name: "none is opaque", kind: TransitionNone, elapsed: 0, duration: 100, window: 10, want: 1},
		{name: "fade starts transparent", kind: TransitionFade, elapsed: 0, duration: 100, window: 10, want: 0},
		{name: "fade mid entry", kind: TransitionFade, elapsed: 5, duration: 100, window: 10, want: 0.5},
		{name: "fade interior", kind: TransitionFade, elapsed: 50, duration: 100, window: 10, want: 1},
		{name: "fade exit", kind: TransitionFade, elapsed: 95, duration: 100, window: 10, want: 0.5},
		{name: "fade end", kind: TransitionFade, elapsed: 100, duration: 100, window: 10, want: 0},
		{name: "slide also fades", kind: TransitionSlide, elapsed: 5, duration: 100, window: 10, want: 0.5},
		{name: "past end clamps", kind: TransitionFade, elapsed: 140, duration: 100, window: 10, want: 0},
		{name: "unknown kind is opaque", kind: Transition("wipe"), elapsed: 0, duration: 100, window: 10, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TransitionOpacity(tt.kind, tt.elapsed, tt.duration, tt.window)
			if !almostEqual(got, tt.want, 1e-9) {
				t.Fatalf("TransitionOpacity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSlideOffsetPct(t *testing.T) {
	if got := SlideOffsetPct(TransitionSlide, 0, 10); got != 100 {
		t.Fatalf("entry offset = %v, want 100", got)
	}
	if got := SlideOffsetPct(TransitionSlide, 5, 10); !almostEqual(got, 50, 1e-9) {
		t.Fatalf("mid offset = %v, want 50", got)
	}
	if got := SlideOffsetPct(TransitionSlide, 30, 10); got != 0 {
		t.Fatalf("settled offset = %v, want 0", got)
	}
	if got := SlideOffsetPct(TransitionFade, 0, 10); got != 0 {
		t.Fatalf("fade should not slide, got %v", got)
	}
}

func TestCaptionEntranceCurvesClamp(t *testing.T) {
	p := DefaultParams()
	if got := CaptionOpacity(CaptionFadeIn, 0, p); got != 0 {
		t.Fatalf("fadeIn at 0 = %v", got)
	}
	if got := CaptionOpacity(CaptionFadeIn, 15, p); got != 1 {
		t.Fatalf("fadeIn at window end = %v", got)
	}
	if got := CaptionOpacity(CaptionFadeIn, 40, p); got != 1 {
		t.Fatalf("fadeIn must not extrapolate, got %v", got)
	}
	if got := CaptionOpacity(CaptionFadeIn, -3, p); got != 0 {
		t.Fatalf("fadeIn before start = %v", got)
	}
	if got := CaptionOpacity(CaptionSlideUp, 0, p); got != 1 {
		t.Fatalf("slideUp opacity = %v", got)
	}

	if got := CaptionOffset(CaptionSlideUp, 0, p); got != 50 {
		t.Fatalf("slideUp at 0 = %v", got)
	}
	if got := CaptionOffset(CaptionSlideUp, 15, p); got != 0 {
		t.Fatalf("slideUp at window end = %v", got)
	}
	if got := CaptionOffset(CaptionFadeIn, 0, p); got != 0 {
		t.Fatalf("fadeIn offset = %v", got)
	}
}

func TestCaptionWindowIsConfigurable(t *testing.T) {
	p := DefaultParams()
	p.CaptionWindowFrames = 30
	if got := CaptionOpacity(CaptionFadeIn, 15, p); !almostEqual(got, 0.5, 1e-9) {
		t.Fatalf("fadeIn with 30-frame window at 15 = %v", got)
	}
}

func TestSpringStartsAtZeroAndSettles(t *testing.T) {
	cfg := DefaultParams().Spring
	if got := Spring(0, 30, cfg, DefaultSpringStep); got != 0 {
		t.Fatalf("spring at 0 = %v", got)
	}
	prev := 0.0
	for frame := 1; frame <= 90; frame++ {
		v := Spring(frame, 30, cfg, DefaultSpringStep)
		if v < prev-1e-9 {
			t.Fatalf("overdamped spring should not oscillate: frame %d %v < %v", frame, v, prev)
		}
		if v > 1+1e-9 {
			t.Fatalf("overdamped spring should not overshoot: frame %d = %v", frame, v)
		}
		prev = v
	}
	if !almostEqual(prev, 1, 0.01) {
		t.Fatalf("spring did not settle near 1 after 3s: %v", prev)
	}
}

func TestSpringMatchesClosedForm(t *testing.T) {
	// Overdamped solution: x(t) = 1 + A·e^(r1·t) + B·e^(r2·t) with x(0)=0, x'(0)=0.
	cfg := SpringConfig{Damping: 100, Stiffness: 200, Mass: 0.5}
	a := cfg.Damping / cfg.Mass
	b := cfg.Stiffness / cfg.Mass
	disc := math.Sqrt(a*a - 4*b)
	r1 := (-a + disc) / 2
	r2 := (-a - disc) / 2
	bCoef := r1 / (r2 - r1)
	aCoef := -1 - bCoef

	for _, frame := range []int{1, 5, 15, 30, 60} {
		tm := float64(frame) / 30
		want := 1 + aCoef*math.Exp(r1*tm) + bCoef*math.Exp(r2*tm)
		got := Spring(frame, 30, cfg, DefaultSpringStep)
		if !almostEqual(got, want, 1e-6) {
			t.Fatalf("frame %d: spring = %v, closed form = %v", frame, got, want)
		}
	}
}

func TestSpringUnderdampedOvershoots(t *testing.T) {
	cfg := SpringConfig{Damping: 10, Stiffness: 100, Mass: 1}
	if cfg.DampingRatio() >= 1 {
		t.Fatalf("expected underdamped config, ratio %v", cfg.DampingRatio())
	}
	peak := 0.0
	for frame := 1; frame <= 60; frame++ {
		peak = math.Max(peak, Spring(frame, 30, cfg, DefaultSpringStep))
	}
	if peak <= 1 {
		t.Fatalf("expected overshoot, peak %v", peak)
	}
}

func TestSpringIsDeterministic(t *testing.T) {
	cfg := DefaultParams().Spring
	first := Spring(17, 30, cfg, DefaultSpringStep)
	for i := 0; i < 3; i++ {
		if again := Spring(17, 30, cfg, DefaultSpringStep); again != first {
			t.Fatalf("spring is not deterministic: %v vs %v", again, first)
		}
	}
}

func TestDefaultSpringDampingRatio(t *testing.T) {
	if got := DefaultParams().Spring.DampingRatio(); !almostEqual(got, 5, 1e-9) {
		t.Fatalf("default damping ratio = %v, want 5", got)
	}
}

func TestCaptionScaleFactor(t *testing.T) {
	p := DefaultParams()
	if got := CaptionScaleFactor(CaptionFadeIn, 3, 30, p); got != 1 {
		t.Fatalf("non-scale animation = %v", got)
	}
	if got := CaptionScaleFactor(CaptionScale, 0, 30, p); got != 0 {
		t.Fatalf("scale at 0 = %v", got)
	}
	if got := CaptionScaleFactor(CaptionScale, 10, 30, p); got <= 0 || got >= 1 {
		t.Fatalf("scale mid-entrance = %v", got)
	}
}

func TestKenBurns(t *testing.T) {
	p := DefaultParams()
	if got := KenBurns(false, 50, 100, p); got != Identity {
		t.Fatalf("disabled ken burns = %+v", got)
	}
	start := KenBurns(true, 0, 100, p)
	if start != Identity {
		t.Fatalf("start transform = %+v", start)
	}
	mid := KenBurns(true, 50, 100, p)
	if !almostEqual(mid.Scale, 1.1, 1e-9) || !almostEqual(mid.TranslateXPct, -5, 1e-9) || !almostEqual(mid.TranslateYPct, -5, 1e-9) {
		t.Fatalf("mid transform = %+v", mid)
	}
	end := KenBurns(true, 200, 100, p)
	if !almostEqual(end.Scale, 1.2, 1e-9) || !almostEqual(end.TranslateXPct, -10, 1e-9) {
		t.Fatalf("end transform should clamp, got %+v", end)
	}
}

func TestNormalizedFillsDefaults(t *testing.T) {
	got := Params{}.Normalized()
	want := DefaultParams()
	want.KenBurnsEndTranslatePct = 0
	if got != want {
		t.Fatalf("Normalized() = %+v, want %+v", got, want)
	}
}
