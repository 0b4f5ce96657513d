package core

import (
	"github.com/signalsfoundry/holo-globe/model"
)

// FocusConfig tunes programmatic focus transitions.
type FocusConfig struct {
	Blend   float64 // fraction of the remaining turn taken per tick
	Epsilon float64 // radians; below this the target is snapped and cleared
}

// DefaultFocusConfig returns the blend and snap tolerance of the globe.
func DefaultFocusConfig() FocusConfig {
	return FocusConfig{Blend: 0.08, Epsilon: 0.01}
}

// FocusOrientation returns the orientation that turns (lat, lng) toward the
// camera on +Z. With XYZ Euler order the yaw brings the point into the YZ
// plane and the pitch then lifts it onto the view axis. Pitch is clamped so
// the target is always reachable under the orbit bound.
func FocusOrientation(lat, lng, pitchLimit float64) model.Orientation {
	return model.Orientation{
		Pitch: ClampPitch(lat*degToRad, pitchLimit),
		Yaw:   -lng * degToRad,
	}
}

// FocusAnimator converges an orientation toward a requested target.
//
// Only one target is pending at a time; a new request replaces it and manual
// input cancels it.
type FocusAnimator struct {
	cfg    FocusConfig
	target *model.FocusTarget
}

// NewFocusAnimator constructs an idle animator.
func NewFocusAnimator(cfg FocusConfig) *FocusAnimator {
	return &FocusAnimator{cfg: cfg}
}

// Request replaces any pending target. A zero Epsilon takes the configured
// default.
func (f *FocusAnimator) Request(t model.FocusTarget) {
	if t.Epsilon <= 0 {
		t.Epsilon = f.cfg.Epsilon
	}
	f.target = &t
}

// Cancel discards the pending target, if any. It reports whether a target
// was dropped.
func (f *FocusAnimator) Cancel() bool {
	had := f.target != nil
	f.target = nil
	return had
}

// Pending returns the current target.
func (f *FocusAnimator) Pending() (model.FocusTarget, bool) {
	if f.target == nil {
		return model.FocusTarget{}, false
	}
	return *f.target, true
}

// Step moves current one blend step toward the target. converged is true on
// the tick the target is snapped and cleared. With no target, current is
// returned unchanged.
//
// Each axis turns on its own shorter arc, so pitch stays inside the orbit
// bound for the whole transition whatever the yaw distance.
func (f *FocusAnimator) Step(current model.Orientation) (next model.Orientation, converged bool) {
	if f.target == nil {
		return current, false
	}

	next = BlendOrientation(current, f.target.Orientation, f.cfg.Blend)
	to := QuaternionFromOrientation(f.target.Orientation)
	if AngularDistance(QuaternionFromOrientation(next), to).Radians() < f.target.Epsilon {
		next = f.target.Orientation
		f.target = nil
		return next, true
	}
	return next, false
}
