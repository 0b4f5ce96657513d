package core

import (
	"math"

	"github.com/signalsfoundry/holo-globe/model"
)

// OrbitConfig holds the tuning constants of the orbit controller. All rates
// are per tick; distances are in scene units.
type OrbitConfig struct {
	DragSensitivity      float64 // radians per pixel of pointer motion
	Damping              float64 // velocity multiplier per tick after release
	GestureDamping       float64 // velocity multiplier per tick while a gesture drives
	GestureRotation      float64 // radians per unit of gesture rotate control
	IdleDrift            float64 // floor and hold value of the idle yaw rate
	PitchLimit           float64 // |pitch| bound in radians
	ClickMotionThreshold float64 // per-axis rate above which a click is a fling release

	InitialDistance    float64
	WheelSpeed         float64
	WheelMinDistance   float64
	WheelMaxDistance   float64
	GestureMinDistance float64
	GestureMaxDistance float64
}

// DefaultOrbitConfig returns the tuning used by the interactive globe.
func DefaultOrbitConfig() OrbitConfig {
	return OrbitConfig{
		DragSensitivity:      0.003,
		Damping:              0.95,
		GestureDamping:       0.9,
		GestureRotation:      0.08,
		IdleDrift:            0.00005,
		PitchLimit:           0.6,
		ClickMotionThreshold: 0.002,

		InitialDistance:    2.5,
		WheelSpeed:         0.0015,
		WheelMinDistance:   1.25,
		WheelMaxDistance:   5.0,
		GestureMinDistance: 1.1,
		GestureMaxDistance: 5.0,
	}
}

// OrbitController accumulates the globe orientation from pointer drags,
// gesture controls and inertia, and owns the camera distance.
//
// It is not safe for concurrent use; the engine loop owns it.
type OrbitController struct {
	cfg OrbitConfig

	orientation model.Orientation
	velocity    model.AngularVelocity
	distance    float64

	dragging     bool
	lastX, lastY float64
}

// NewOrbitController returns a controller at rest orientation, drifting
// slowly about the yaw axis.
func NewOrbitController(cfg OrbitConfig) *OrbitController {
	return &OrbitController{
		cfg:      cfg,
		velocity: model.AngularVelocity{YawRate: cfg.IdleDrift},
		distance: cfg.InitialDistance,
	}
}

// Config returns the controller tuning.
func (c *OrbitController) Config() OrbitConfig { return c.cfg }

// Orientation returns the current globe orientation.
func (c *OrbitController) Orientation() model.Orientation { return c.orientation }

// Velocity returns the current angular velocity.
func (c *OrbitController) Velocity() model.AngularVelocity { return c.velocity }

// Distance returns the camera distance from the globe centre.
func (c *OrbitController) Distance() float64 { return c.distance }

// Dragging reports whether a pointer drag is in progress.
func (c *OrbitController) Dragging() bool { return c.dragging }

// SetOrientation overwrites the orientation, e.g. from a focus transition.
// Pitch is clamped like any other source.
func (c *OrbitController) SetOrientation(o model.Orientation) {
	c.orientation = o
	c.clamp()
}

// DragStart begins a manual drag at client position (x, y) and stops any
// residual motion.
func (c *OrbitController) DragStart(x, y float64) {
	c.dragging = true
	c.velocity = model.AngularVelocity{}
	c.lastX, c.lastY = x, y
}

// DragMove turns pointer motion into velocity and applies it at once. It
// returns false when no drag is active so callers can treat the move as a
// hover instead.
func (c *OrbitController) DragMove(x, y float64) bool {
	if !c.dragging {
		return false
	}
	dx := x - c.lastX
	dy := y - c.lastY
	c.velocity = model.AngularVelocity{
		PitchRate: dy * c.cfg.DragSensitivity,
		YawRate:   dx * c.cfg.DragSensitivity,
	}
	c.apply(c.velocity)
	c.lastX, c.lastY = x, y
	return true
}

// DragEnd releases the drag; the last velocity then coasts and decays.
func (c *OrbitController) DragEnd() {
	c.dragging = false
}

// Wheel zooms the camera by a scroll delta.
func (c *OrbitController) Wheel(deltaY float64) {
	d := c.distance + deltaY*c.cfg.WheelSpeed
	c.distance = math.Max(c.cfg.WheelMinDistance, math.Min(c.cfg.WheelMaxDistance, d))
}

// Step advances one tick. An active gesture control rotates and zooms
// directly while bleeding off inertia; otherwise the current velocity is
// applied, decaying toward the idle drift once no drag is held.
func (c *OrbitController) Step(ctrl model.Control) {
	if ctrl.Active() {
		c.orientation.Yaw += ctrl.RotY * c.cfg.GestureRotation
		c.orientation.Pitch += ctrl.RotX * c.cfg.GestureRotation
		if ctrl.ZoomDelta != 0 {
			d := c.distance + ctrl.ZoomDelta
			c.distance = math.Max(c.cfg.GestureMinDistance, math.Min(c.cfg.GestureMaxDistance, d))
		}
		c.velocity = c.velocity.Scale(c.cfg.GestureDamping)
		c.clamp()
		return
	}

	if !c.dragging {
		c.velocity = c.velocity.Scale(c.cfg.Damping)
		if c.velocity.Magnitude() < c.cfg.IdleDrift {
			c.velocity = model.AngularVelocity{YawRate: c.cfg.IdleDrift}
		}
	}
	c.apply(c.velocity)
}

// Moving reports whether either velocity component exceeds threshold.
func (c *OrbitController) Moving(threshold float64) bool {
	return math.Abs(c.velocity.PitchRate) > threshold || math.Abs(c.velocity.YawRate) > threshold
}

// Flinging reports whether the globe is still moving fast enough that a
// click should count as the end of a drag rather than a pick.
func (c *OrbitController) Flinging() bool {
	return c.Moving(c.cfg.ClickMotionThreshold)
}

func (c *OrbitController) apply(v model.AngularVelocity) {
	c.orientation.Pitch += v.PitchRate
	c.orientation.Yaw += v.YawRate
	c.clamp()
}

func (c *OrbitController) clamp() {
	c.orientation.Pitch = ClampPitch(c.orientation.Pitch, c.cfg.PitchLimit)
}
