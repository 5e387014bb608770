// Package timeline turns resolved scenes into a frame-indexed render plan and
// derives per-frame draw instructions from it.
//
// Compose places scenes end to end using cumulative audio durations, pads the
// final scene, and paginates each scene's captions on a scene-relative frame
// axis. Render is a pure function of (plan, frame): it recomputes the scene
// layer, caption page, active word highlighting, and animation values for a
// single frame without any cached state, so seeking is always correct.
package timeline
