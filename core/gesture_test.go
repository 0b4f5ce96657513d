package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/holo-globe/model"
)

// testHand builds a 21-point hand whose palm centre is (px, py) and whose
// five fingertips all sit at distance spread from the wrist.
func testHand(px, py, spread float64) model.Hand {
	h := make(model.Hand, model.HandLandmarkCount)
	for i := range h {
		h[i] = model.Landmark{X: px, Y: py}
	}
	wrist := model.Landmark{X: px, Y: py + 0.1}
	h[model.LandmarkWrist] = wrist
	h[model.LandmarkMiddleMCP] = model.Landmark{X: px, Y: py - 0.1}
	for i, idx := range model.FingertipLandmarks {
		a := math.Pi/6 + float64(i)*math.Pi/6
		h[idx] = model.Landmark{X: wrist.X + spread*math.Cos(a), Y: wrist.Y - spread*math.Sin(a)}
	}
	return h
}

func frameOf(hands ...model.Hand) model.GestureFrame {
	return model.GestureFrame{Hands: hands}
}

func TestPalmCenterAndOpenness(t *testing.T) {
	h := testHand(0.4, 0.6, 0.25)
	p := PalmCenter(h)
	assert.InDelta(t, 0.4, p.X, 1e-12)
	assert.InDelta(t, 0.6, p.Y, 1e-12)
	assert.InDelta(t, 0.25, Openness(h), 1e-12)
}

func TestClassifyFirstFrameSeedsHistory(t *testing.T) {
	g := NewGestureClassifier(DefaultGestureConfig())

	st, em := g.Classify(model.GestureState{}, frameOf(testHand(0.5, 0.5, 0.2)))
	assert.True(t, em.Emitted)
	assert.Equal(t, model.ControlNone, em.Control.Kind)
	assert.Equal(t, model.GestureTracking, st.Phase)
	assert.InDelta(t, 0.2, st.Openness, 1e-12)
}

func TestClassifyRotate(t *testing.T) {
	g := NewGestureClassifier(DefaultGestureConfig())

	st, _ := g.Classify(model.GestureState{}, frameOf(testHand(0.5, 0.5, 0.2)))
	_, em := g.Classify(st, frameOf(testHand(0.51, 0.48, 0.2)))

	require.True(t, em.Emitted)
	assert.Equal(t, model.ControlRotate, em.Control.Kind)
	assert.InDelta(t, -0.08, em.Control.RotX, 1e-9)
	assert.InDelta(t, 0.04, em.Control.RotY, 1e-9)
	assert.Zero(t, em.Control.ZoomDelta)
}

func TestClassifyRotationSuppressesZoom(t *testing.T) {
	g := NewGestureClassifier(DefaultGestureConfig())

	st, _ := g.Classify(model.GestureState{}, frameOf(testHand(0.2, 0.5, 0.1)))
	for i := 1; i <= 10; i++ {
		// Palm moves and the hand opens a lot on every frame.
		var em Emission
		st, em = g.Classify(st, frameOf(testHand(0.2+float64(i)*0.01, 0.5, 0.1+float64(i)*0.05)))
		require.True(t, em.Emitted)
		require.Equal(t, model.ControlRotate, em.Control.Kind, "frame %d", i)
		require.Zero(t, em.Control.ZoomDelta)
	}
}

func TestClassifySwipeSequenceNeverZooms(t *testing.T) {
	g := NewGestureClassifier(DefaultGestureConfig())

	// The palm circles in 0.02 steps while the hand alternately opens and
	// closes far beyond the zoom threshold.
	const frames = 24
	st, _ := g.Classify(model.GestureState{}, frameOf(testHand(0.5, 0.5, 0.1)))
	kinds := map[model.ControlKind]int{}
	for i := 1; i <= frames; i++ {
		a := float64(i) * 2 * math.Pi / 16
		spread := 0.1
		if i%2 == 1 {
			spread = 0.3
		}
		var em Emission
		st, em = g.Classify(st, frameOf(testHand(0.5+0.05*math.Cos(a), 0.5+0.05*math.Sin(a), spread)))
		require.True(t, em.Emitted, "frame %d", i)
		kinds[em.Control.Kind]++
		assert.Zero(t, em.Control.ZoomDelta, "frame %d", i)
	}

	assert.Equal(t, map[model.ControlKind]int{model.ControlRotate: frames}, kinds)
}

func TestClassifyZoom(t *testing.T) {
	g := NewGestureClassifier(DefaultGestureConfig())

	st, _ := g.Classify(model.GestureState{}, frameOf(testHand(0.5, 0.5, 0.2)))

	st, em := g.Classify(st, frameOf(testHand(0.5, 0.5, 0.21)))
	require.True(t, em.Emitted)
	assert.Equal(t, model.ControlZoom, em.Control.Kind)
	assert.InDelta(t, -0.15, em.Control.ZoomDelta, 1e-9, "spreading moves the camera in")

	_, em = g.Classify(st, frameOf(testHand(0.5, 0.5, 0.19)))
	assert.Equal(t, model.ControlZoom, em.Control.Kind)
	assert.InDelta(t, 0.3, em.Control.ZoomDelta, 1e-9)
}

func TestClassifyBelowThresholdsIsNone(t *testing.T) {
	g := NewGestureClassifier(DefaultGestureConfig())

	st, _ := g.Classify(model.GestureState{}, frameOf(testHand(0.5, 0.5, 0.2)))
	_, em := g.Classify(st, frameOf(testHand(0.501, 0.501, 0.203)))

	assert.True(t, em.Emitted)
	assert.Equal(t, model.ControlNone, em.Control.Kind)
}

func TestClassifyShortDropoutKeepsContinuity(t *testing.T) {
	g := NewGestureClassifier(DefaultGestureConfig())

	st, _ := g.Classify(model.GestureState{}, frameOf(testHand(0.5, 0.5, 0.2)))
	for i := 0; i < 3; i++ {
		var em Emission
		st, em = g.Classify(st, frameOf())
		assert.False(t, em.Emitted, "absent frame %d must not emit", i)
		assert.Equal(t, model.GestureResetting, st.Phase)
	}

	st, em := g.Classify(st, frameOf(testHand(0.7, 0.5, 0.2)))
	assert.Equal(t, model.ControlRotate, em.Control.Kind, "history survives three absent frames")
	assert.Zero(t, st.Absent)
}

func TestClassifyLongDropoutResets(t *testing.T) {
	g := NewGestureClassifier(DefaultGestureConfig())

	st, _ := g.Classify(model.GestureState{}, frameOf(testHand(0.5, 0.5, 0.2)))
	var em Emission
	for i := 0; i < 4; i++ {
		st, em = g.Classify(st, frameOf())
	}
	assert.True(t, em.Emitted, "the reset frame tells consumers to fall back to inertia")
	assert.Equal(t, model.ControlNone, em.Control.Kind)
	assert.Equal(t, model.GestureState{}, st)

	// The hand reappears far away: no jump.
	_, em = g.Classify(st, frameOf(testHand(0.9, 0.1, 0.6)))
	assert.True(t, em.Emitted)
	assert.Equal(t, model.ControlNone, em.Control.Kind)
}

func TestClassifyIncompleteHandIsAbsent(t *testing.T) {
	g := NewGestureClassifier(DefaultGestureConfig())

	st, _ := g.Classify(model.GestureState{}, frameOf(testHand(0.5, 0.5, 0.2)))
	st, em := g.Classify(st, frameOf(testHand(0.9, 0.5, 0.2)[:10]))
	assert.False(t, em.Emitted)
	assert.Equal(t, 1, st.Absent)
}

func TestClassifyUsesFirstHand(t *testing.T) {
	g := NewGestureClassifier(DefaultGestureConfig())

	st, _ := g.Classify(model.GestureState{}, frameOf(testHand(0.5, 0.5, 0.2), testHand(0.1, 0.1, 0.1)))
	assert.Equal(t, model.PalmPoint{X: 0.5, Y: 0.5}, st.Palm)
}

func TestGestureStateResetIsIdempotent(t *testing.T) {
	s := model.GestureState{Phase: model.GestureResetting, Palm: model.PalmPoint{X: 1}, Openness: 0.3, Absent: 2}
	once := s.Reset()
	assert.Equal(t, once, once.Reset())
	assert.False(t, once.HasHistory())
}
