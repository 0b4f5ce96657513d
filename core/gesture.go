package core

import (
	"math"

	"github.com/signalsfoundry/holo-globe/model"
)

// GestureConfig holds the thresholds of the gesture classifier. Distances
// are in normalized image units.
type GestureConfig struct {
	MoveThreshold     float64 // palm displacement that counts as a swipe
	RotateSensitivity float64 // rotate control per unit of palm displacement
	ZoomThreshold     float64 // openness change that counts as a pinch/spread
	ZoomGain          float64 // camera distance per unit of openness change
	AbsentLimit       int     // hand-absent frames tolerated before a reset
}

// DefaultGestureConfig returns the thresholds used for webcam hand tracking.
func DefaultGestureConfig() GestureConfig {
	return GestureConfig{
		MoveThreshold:     0.003,
		RotateSensitivity: 4.0,
		ZoomThreshold:     0.005,
		ZoomGain:          15,
		AbsentLimit:       3,
	}
}

// Emission is the classifier output for one frame. When Emitted is false the
// frame produced no signal and consumers keep whatever control they last
// received; an emitted ControlNone tells them to fall back to inertia.
type Emission struct {
	Control model.Control
	Emitted bool
}

// GestureClassifier turns hand landmark frames into rotate/zoom controls.
//
// Classify is a pure transition function over model.GestureState; the
// classifier itself only carries configuration.
type GestureClassifier struct {
	cfg GestureConfig
}

// NewGestureClassifier constructs a classifier.
func NewGestureClassifier(cfg GestureConfig) *GestureClassifier {
	return &GestureClassifier{cfg: cfg}
}

// Classify computes the next state and emission for frame given prev.
//
// Rotation and zoom are mutually exclusive per frame: once the palm moves
// beyond the move threshold the openness change is ignored, so a swipe never
// zooms by accident.
func (g *GestureClassifier) Classify(prev model.GestureState, frame model.GestureFrame) (model.GestureState, Emission) {
	hand, ok := primaryHand(frame)
	if !ok {
		return g.absent(prev)
	}

	palm := PalmCenter(hand)
	open := Openness(hand)
	next := model.GestureState{
		Phase:    model.GestureTracking,
		Palm:     palm,
		Openness: open,
	}

	if !prev.HasHistory() {
		return next, Emission{Emitted: true}
	}

	if d := palm.Sub(prev.Palm); d.Norm() > g.cfg.MoveThreshold {
		return next, Emission{
			Emitted: true,
			Control: model.Control{
				Kind: model.ControlRotate,
				RotX: d.Y * g.cfg.RotateSensitivity,
				RotY: d.X * g.cfg.RotateSensitivity,
			},
		}
	}

	dOpen := open - prev.Openness
	if math.Abs(dOpen) > g.cfg.ZoomThreshold {
		// Spreading the hand moves the camera closer.
		return next, Emission{
			Emitted: true,
			Control: model.Control{
				Kind:      model.ControlZoom,
				ZoomDelta: -dOpen * g.cfg.ZoomGain,
			},
		}
	}

	return next, Emission{Emitted: true}
}

func (g *GestureClassifier) absent(prev model.GestureState) (model.GestureState, Emission) {
	next := prev
	next.Absent++
	if next.Absent > g.cfg.AbsentLimit {
		return prev.Reset(), Emission{Emitted: true}
	}
	if next.HasHistory() {
		next.Phase = model.GestureResetting
	}
	return next, Emission{}
}

// PalmCenter is the midpoint of the wrist and the middle finger base.
func PalmCenter(h model.Hand) model.PalmPoint {
	return h[model.LandmarkWrist].Image().Add(h[model.LandmarkMiddleMCP].Image()).Mul(0.5)
}

// Openness is the mean image-plane distance from the wrist to the five
// fingertips.
func Openness(h model.Hand) float64 {
	w := h[model.LandmarkWrist].Image()
	total := 0.0
	for _, i := range model.FingertipLandmarks {
		total += h[i].Image().Sub(w).Norm()
	}
	return total / float64(len(model.FingertipLandmarks))
}

// primaryHand returns the first detected hand. Hands with an incomplete
// landmark set count as not detected.
func primaryHand(frame model.GestureFrame) (model.Hand, bool) {
	if len(frame.Hands) == 0 {
		return nil, false
	}
	h := frame.Hands[0]
	if len(h) < model.HandLandmarkCount {
		return nil, false
	}
	return h, true
}
