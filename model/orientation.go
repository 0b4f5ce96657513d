package model

import "math"

// Orientation is the globe rotation as XYZ-order Euler angles in radians.
//
// Pitch (rotation about X) is bounded by the orbit controller. Roll is zero
// for all manual input and only becomes non-zero while a focus transition
// interpolates between two orientations.
type Orientation struct {
	Pitch float64
	Yaw   float64
	Roll  float64
}

// AngularVelocity is the per-tick rotation rate applied to an Orientation.
type AngularVelocity struct {
	PitchRate float64
	YawRate   float64
}

// Magnitude returns the Euclidean norm of the velocity.
func (v AngularVelocity) Magnitude() float64 {
	return math.Hypot(v.PitchRate, v.YawRate)
}

// Scale returns v with both rates multiplied by f.
func (v AngularVelocity) Scale(f float64) AngularVelocity {
	return AngularVelocity{PitchRate: v.PitchRate * f, YawRate: v.YawRate * f}
}
