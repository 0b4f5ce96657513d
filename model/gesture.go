package model

import (
	"time"

	"github.com/golang/geo/r2"
)

// Hand landmark indices used by the gesture classifier. The layout follows
// the common 21-point hand model.
const (
	LandmarkWrist     = 0
	LandmarkThumbTip  = 4
	LandmarkIndexTip  = 8
	LandmarkMiddleMCP = 9
	LandmarkMiddleTip = 12
	LandmarkRingTip   = 16
	LandmarkPinkyTip  = 20

	HandLandmarkCount = 21
)

// FingertipLandmarks lists the five fingertip indices.
var FingertipLandmarks = [5]int{
	LandmarkThumbTip,
	LandmarkIndexTip,
	LandmarkMiddleTip,
	LandmarkRingTip,
	LandmarkPinkyTip,
}

// Landmark is a normalized key point; X and Y are in [0, 1] image space.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Image drops the depth estimate and returns the landmark in the image plane.
func (l Landmark) Image() r2.Point {
	return r2.Point{X: l.X, Y: l.Y}
}

// Hand is the ordered landmark set of one tracked hand.
type Hand []Landmark

// GestureFrame is one perception sample. An empty Hands slice means no hand
// was detected at that instant.
type GestureFrame struct {
	Seq   uint64    `json:"seq"`
	At    time.Time `json:"at"`
	Hands []Hand    `json:"hands"`
}

// ControlKind identifies the control a gesture frame produced.
type ControlKind int

const (
	ControlNone ControlKind = iota
	ControlRotate
	ControlZoom
)

func (k ControlKind) String() string {
	switch k {
	case ControlRotate:
		return "rotate"
	case ControlZoom:
		return "zoom"
	default:
		return "none"
	}
}

// Control is a discrete rotate or zoom delta derived from hand motion.
type Control struct {
	Kind      ControlKind
	RotX      float64
	RotY      float64
	ZoomDelta float64
}

// Active reports whether the control drives the globe.
func (c Control) Active() bool {
	return c.Kind != ControlNone
}

// GesturePhase is the classifier state machine phase.
type GesturePhase int

const (
	// GestureIdle has no history; the next hand frame only seeds it.
	GestureIdle GesturePhase = iota
	// GestureTracking has history from the previous hand frame.
	GestureTracking
	// GestureResetting keeps history while counting hand-absent frames.
	GestureResetting
)

func (p GesturePhase) String() string {
	switch p {
	case GestureTracking:
		return "tracking"
	case GestureResetting:
		return "resetting"
	default:
		return "idle"
	}
}

// PalmPoint is a 2D palm center in normalized image space.
type PalmPoint = r2.Point

// GestureState is the trailing classifier state carried between frames.
type GestureState struct {
	Phase    GesturePhase
	Palm     PalmPoint
	Openness float64
	Absent   int
}

// HasHistory reports whether a previous hand frame is available to diff
// against.
func (s GestureState) HasHistory() bool {
	return s.Phase != GestureIdle
}

// Reset returns the empty Idle state. Resetting an already reset state
// yields the same value.
func (s GestureState) Reset() GestureState {
	return GestureState{}
}
