package animation

import "math"

// DefaultSpringStep is the fixed integration step in seconds.
const DefaultSpringStep = 0.001

// maxSpringSeconds caps integration; every sane configuration has settled
// well before this.
const maxSpringSeconds = 30.0

// Spring returns the position of a damped oscillator released at rest from 0
// toward a target of 1, evaluated elapsed frames after release.
//
// The system m·x'' = -k·(x-1) - c·x' is integrated with fourth-order
// Runge-Kutta at a fixed step. Evaluation always starts from t=0, so the
// result depends only on its arguments.
func Spring(elapsed, fps int, cfg SpringConfig, step float64) float64 {
	if elapsed <= 0 || fps <= 0 {
		return 0
	}
	if cfg.Mass <= 0 || cfg.Stiffness <= 0 || cfg.Damping < 0 {
		cfg = DefaultParams().Spring
	}
	if step <= 0 || math.IsNaN(step) {
		step = DefaultSpringStep
	}

	t := math.Min(float64(elapsed)/float64(fps), maxSpringSeconds)
	steps := int(math.Floor(t / step))
	rem := t - float64(steps)*step

	x, v := 0.0, 0.0
	for i := 0; i < steps; i++ {
		x, v = rk4(x, v, step, cfg)
	}
	if rem > 1e-12 {
		x, _ = rk4(x, v, rem, cfg)
	}
	return x
}

func springAccel(x, v float64, cfg SpringConfig) float64 {
	return (-cfg.Stiffness*(x-1) - cfg.Damping*v) / cfg.Mass
}

func rk4(x, v, h float64, cfg SpringConfig) (float64, float64) {
	k1x, k1v := v, springAccel(x, v, cfg)
	k2x, k2v := v+0.5*h*k1v, springAccel(x+0.5*h*k1x, v+0.5*h*k1v, cfg)
	k3x, k3v := v+0.5*h*k2v, springAccel(x+0.5*h*k2x, v+0.5*h*k2v, cfg)
	k4x, k4v := v+h*k3v, springAccel(x+h*k3x, v+h*k3v, cfg)
	x += h / 6 * (k1x + 2*k2x + 2*k3x + k4x)
	v += h / 6 * (k1v + 2*k2v + 2*k3v + k4v)
	return x, v
}

// DampingRatio reports ζ = c / (2·√(k·m)). Values below 1 overshoot.
func (c SpringConfig) DampingRatio() float64 {
	if c.Mass <= 0 || c.Stiffness <= 0 {
		return 0
	}
	return c.Damping / (2 * math.Sqrt(c.Stiffness*c.Mass))
}
