// Package engine composes the orbit controller, gesture classifier, focus
// animator and pick resolver into the per-frame interaction engine of the
// globe.
//
// An Engine is single-threaded: every method must be called from the
// goroutine that ticks it, normally through a Loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/jonboulle/clockwork"

	"github.com/signalsfoundry/holo-globe/core"
	"github.com/signalsfoundry/holo-globe/internal/logging"
	"github.com/signalsfoundry/holo-globe/internal/observability"
	"github.com/signalsfoundry/holo-globe/model"
)

var (
	// ErrViewportNotReady is returned by picks made before the viewport has
	// a drawable size.
	ErrViewportNotReady = errors.New("viewport not ready")
	// ErrMissedGlobe is returned when the pick ray does not hit the globe.
	ErrMissedGlobe = errors.New("pick missed the globe")
	// ErrDragRelease is returned for clicks that end a fling rather than
	// select a location.
	ErrDragRelease = errors.New("click suppressed while the globe is moving")
	// ErrInvalidCoordinates is returned for focus requests outside the
	// geographic range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// MetricsRecorder receives engine measurements. *observability.EngineCollector
// satisfies it.
type MetricsRecorder interface {
	ObserveTick()
	ObservePick(kind, outcome string)
	ObserveRegionLookup(d time.Duration)
	ObserveControl(kind string)
	ObserveAcquisitionFailure(kind string)
	ObserveFocusRequest()
	ObserveFocusConverged(ticks int)
	SetView(pitch, yaw, roll, distance float64)
}

// FrameSource yields gesture frames newer than a sequence number.
type FrameSource interface {
	Since(seq uint64) (model.GestureFrame, bool)
}

// DragStateListener is told whenever the dragging flag changes, at most once
// per tick.
type DragStateListener func(dragging bool)

// Highlight identifies the region under the hover cursor.
type Highlight struct {
	ID   string
	Name string
}

// Snapshot is a copy of the engine state for renderers and RPC callers.
type Snapshot struct {
	Tick        uint64
	Orientation model.Orientation
	Velocity    model.AngularVelocity
	Distance    float64
	Dragging    bool
	Viewport    core.Viewport
	Control     model.Control
	Gesture     model.GestureState
	Focus       *model.FocusTarget
	Highlighted *Highlight
	Marker      *r3.Vector
	Cursor      *r3.Vector
}

// Engine is the real-time interaction engine of the globe.
type Engine struct {
	orbit      *core.OrbitController
	classifier *core.GestureClassifier
	focus      *core.FocusAnimator
	resolver   *core.PickResolver
	throttle   *core.HoverThrottle

	fov      float64
	viewport core.Viewport

	frames  FrameSource
	lastSeq uint64
	gesture model.GestureState
	control model.Control

	focusTicks  int
	highlighted *Highlight
	marker      *r3.Vector
	cursor      *r3.Vector

	ticks        uint64
	lastDragging bool

	clock   clockwork.Clock
	log     logging.Logger
	metrics MetricsRecorder
	sink    PickSink
	onDrag  DragStateListener

	orbitCfg   core.OrbitConfig
	gestureCfg core.GestureConfig
	focusCfg   core.FocusConfig
	hoverEvery time.Duration
	regions    core.RegionLookup
}

// Option customises Engine construction.
type Option func(*Engine)

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock sets the clock used for hover throttling and focus timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithPickSink sets where hover and click results go.
func WithPickSink(s PickSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithDragListener registers the drag-state listener.
func WithDragListener(fn DragStateListener) Option {
	return func(e *Engine) { e.onDrag = fn }
}

// WithRegions sets the boundary lookup used to name picks.
func WithRegions(r core.RegionLookup) Option {
	return func(e *Engine) { e.regions = r }
}

// WithFrames sets the gesture frame source.
func WithFrames(f FrameSource) Option {
	return func(e *Engine) { e.frames = f }
}

// WithOrbitConfig overrides the orbit tuning.
func WithOrbitConfig(cfg core.OrbitConfig) Option {
	return func(e *Engine) { e.orbitCfg = cfg }
}

// WithGestureConfig overrides the gesture thresholds.
func WithGestureConfig(cfg core.GestureConfig) Option {
	return func(e *Engine) { e.gestureCfg = cfg }
}

// WithFocusConfig overrides the focus transition tuning.
func WithFocusConfig(cfg core.FocusConfig) Option {
	return func(e *Engine) { e.focusCfg = cfg }
}

// WithHoverInterval overrides the hover throttle interval.
func WithHoverInterval(d time.Duration) Option {
	return func(e *Engine) { e.hoverEvery = d }
}

// WithViewport sets the initial viewport.
func WithViewport(v core.Viewport) Option {
	return func(e *Engine) { e.viewport = v }
}

// WithFOV sets the vertical field of view in degrees.
func WithFOV(deg float64) Option {
	return func(e *Engine) { e.fov = deg }
}

// New constructs an Engine. Without options it has no regions, no gesture
// source, an unsized viewport and default tuning.
func New(opts ...Option) *Engine {
	e := &Engine{
		fov:        core.DefaultFOV,
		orbitCfg:   core.DefaultOrbitConfig(),
		gestureCfg: core.DefaultGestureConfig(),
		focusCfg:   core.DefaultFocusConfig(),
		hoverEvery: core.DefaultHoverInterval,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	e.log = logging.OrNoop(e.log)
	if e.metrics == nil {
		e.metrics = (*observability.EngineCollector)(nil)
	}
	if e.sink == nil {
		e.sink = noopSink{}
	}

	e.orbit = core.NewOrbitController(e.orbitCfg)
	e.classifier = core.NewGestureClassifier(e.gestureCfg)
	e.focus = core.NewFocusAnimator(e.focusCfg)
	e.resolver = core.NewPickResolver(e.regions)
	e.throttle = core.NewHoverThrottle(e.clock, e.hoverEvery)
	return e
}

// SetViewport updates the client-space rectangle after a resize.
func (e *Engine) SetViewport(v core.Viewport) {
	e.viewport = v
}

func (e *Engine) camera() core.Camera {
	return core.Camera{FOV: e.fov, Distance: e.orbit.Distance(), Viewport: e.viewport}
}

// PointerDown starts a manual drag. Any pending focus transition is dropped.
func (e *Engine) PointerDown(ctx context.Context, x, y float64) {
	if t, ok := e.focus.Pending(); ok {
		e.focus.Cancel()
		e.log.Debug(ctx, "focus cancelled by manual input", logging.String("focus_id", t.ID))
	}
	e.orbit.DragStart(x, y)
}

// PointerMove rotates the globe while dragging and hovers otherwise.
//
// resolved is true when a hover resolution ran; res is then the hit, or nil
// when the pointer is off the globe. Throttled hovers on the globe still move
// the cursor but report resolved == false.
func (e *Engine) PointerMove(ctx context.Context, x, y float64) (res *model.PickResult, resolved bool) {
	if e.orbit.DragMove(x, y) {
		return nil, false
	}
	return e.hover(ctx, x, y)
}

// PointerUp ends a drag; the release velocity then coasts.
func (e *Engine) PointerUp() {
	e.orbit.DragEnd()
}

// PointerLeave ends any drag and clears the hover state.
func (e *Engine) PointerLeave(ctx context.Context) {
	e.orbit.DragEnd()
	e.clearHover(ctx)
}

func (e *Engine) hover(ctx context.Context, x, y float64) (*model.PickResult, bool) {
	if !e.viewport.Ready() {
		return nil, false
	}
	local, ok := e.resolver.Hit(e.camera(), e.orbit.Orientation(), x, y)
	if !ok {
		e.metrics.ObservePick(string(model.PickHover), observability.PickOutcomeMiss)
		e.clearHover(ctx)
		return nil, true
	}

	e.cursor = &local
	if !e.throttle.Allow() {
		e.metrics.ObservePick(string(model.PickHover), observability.PickOutcomeThrottled)
		return nil, false
	}

	res, _ := e.resolveLocal(local, model.PickHover)
	if res.HasRegion {
		e.highlighted = &Highlight{ID: res.RegionID, Name: res.Region}
	} else {
		e.highlighted = nil
	}
	e.sink.Hover(ctx, &res)
	return &res, true
}

// clearHover reports an off-globe hover once per transition from a set
// cursor or highlight; further moves off the globe stay silent.
func (e *Engine) clearHover(ctx context.Context) {
	if e.cursor == nil && e.highlighted == nil {
		return
	}
	e.cursor = nil
	e.highlighted = nil
	e.sink.Hover(ctx, nil)
}

// Click resolves a deliberate selection. Clicks are never throttled, but a
// click while the globe is still flinging is treated as the end of a drag.
func (e *Engine) Click(ctx context.Context, x, y float64) (model.PickResult, error) {
	kind := string(model.PickClick)
	ctx, span := observability.StartPickSpan(ctx, kind, x, y)
	defer span.End()

	fail := func(outcome string, err error) (model.PickResult, error) {
		e.metrics.ObservePick(kind, outcome)
		observability.EndPick(span, outcome, 0, 0, "", err)
		return model.PickResult{}, err
	}
	if e.orbit.Flinging() {
		return fail(observability.PickOutcomeFling, ErrDragRelease)
	}
	if !e.viewport.Ready() {
		return fail(observability.PickOutcomeNotReady, ErrViewportNotReady)
	}
	local, ok := e.resolver.Hit(e.camera(), e.orbit.Orientation(), x, y)
	if !ok {
		return fail(observability.PickOutcomeMiss, ErrMissedGlobe)
	}

	res, outcome := e.resolveLocal(local, model.PickClick)
	e.marker = &local
	observability.EndPick(span, outcome, res.Coordinates.Lat, res.Coordinates.Lng, res.Region, nil)

	e.sink.Click(ctx, res)
	return res, nil
}

func (e *Engine) resolveLocal(local r3.Vector, kind model.PickKind) (model.PickResult, string) {
	start := time.Now()
	res := e.resolver.ResolveLocal(local)
	e.metrics.ObserveRegionLookup(time.Since(start))

	res.Kind = kind
	outcome := observability.PickOutcomeNoRegion
	if res.HasRegion {
		outcome = observability.PickOutcomeRegion
	}
	e.metrics.ObservePick(string(kind), outcome)
	return res, outcome
}

// Wheel zooms the camera by a scroll delta.
func (e *Engine) Wheel(deltaY float64) {
	e.orbit.Wheel(deltaY)
}

// Focus places the marker at (lat, lng) and starts turning that point toward
// the camera, replacing any pending focus.
func (e *Engine) Focus(ctx context.Context, lat, lng float64) (model.FocusTarget, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return model.FocusTarget{}, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinates, lat, lng)
	}

	target := model.FocusTarget{
		ID:          logging.NewInteractionID(),
		Coordinates: model.Coordinates{Lat: lat, Lng: lng},
		Orientation: core.FocusOrientation(lat, lng, e.orbitCfg.PitchLimit),
		RequestedAt: e.clock.Now(),
	}
	if prev, ok := e.focus.Pending(); ok {
		e.log.Debug(ctx, "focus replaced", logging.String("focus_id", prev.ID))
	}
	e.focus.Request(target)
	target, _ = e.focus.Pending()
	e.focusTicks = 0

	marker := core.LatLngToVector(lat, lng, core.GlobeRadius)
	e.marker = &marker

	e.metrics.ObserveFocusRequest()
	e.log.Info(ctx, "focus requested",
		logging.String("focus_id", target.ID),
		logging.Float("lat", lat),
		logging.Float("lng", lng),
	)
	return target, nil
}

// CancelFocus drops any pending focus transition.
func (e *Engine) CancelFocus() bool {
	return e.focus.Cancel()
}

// GestureUnavailable records that hand tracking stopped. The engine drops
// any active gesture control and keeps running on pointer input alone.
func (e *Engine) GestureUnavailable(ctx context.Context, kind string, err error) {
	e.metrics.ObserveAcquisitionFailure(kind)
	e.log.Warn(ctx, "gesture input unavailable; continuing with pointer input",
		logging.String("kind", kind),
		logging.Err(err),
	)
	e.gesture = e.gesture.Reset()
	e.control = model.Control{}
}

// Tick advances one frame: classify the newest gesture frame, step the
// orbit, blend any focus transition and report drag changes.
func (e *Engine) Tick(ctx context.Context) {
	e.ticks++

	if e.frames != nil {
		if f, ok := e.frames.Since(e.lastSeq); ok {
			e.lastSeq = f.Seq
			e.classify(ctx, f)
		}
	}

	e.orbit.Step(e.control)

	if _, pending := e.focus.Pending(); pending {
		e.focusTicks++
		next, converged := e.focus.Step(e.orbit.Orientation())
		e.orbit.SetOrientation(next)
		if converged {
			e.metrics.ObserveFocusConverged(e.focusTicks)
			e.log.Debug(ctx, "focus converged", logging.Int("ticks", e.focusTicks))
		}
	}

	if d := e.orbit.Dragging(); d != e.lastDragging {
		e.lastDragging = d
		if e.onDrag != nil {
			e.onDrag(d)
		}
	}

	o := e.orbit.Orientation()
	e.metrics.ObserveTick()
	e.metrics.SetView(o.Pitch, o.Yaw, o.Roll, e.orbit.Distance())
}

func (e *Engine) classify(ctx context.Context, f model.GestureFrame) {
	next, em := e.classifier.Classify(e.gesture, f)
	if next.Phase != e.gesture.Phase {
		e.log.Debug(ctx, "gesture phase changed",
			logging.String("from", e.gesture.Phase.String()),
			logging.String("to", next.Phase.String()),
		)
	}
	e.gesture = next
	if !em.Emitted {
		return
	}
	e.control = em.Control
	e.metrics.ObserveControl(em.Control.Kind.String())
}

// Snapshot copies the current state.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Tick:        e.ticks,
		Orientation: e.orbit.Orientation(),
		Velocity:    e.orbit.Velocity(),
		Distance:    e.orbit.Distance(),
		Dragging:    e.orbit.Dragging(),
		Viewport:    e.viewport,
		Control:     e.control,
		Gesture:     e.gesture,
	}
	if t, ok := e.focus.Pending(); ok {
		s.Focus = &t
	}
	if e.highlighted != nil {
		h := *e.highlighted
		s.Highlighted = &h
	}
	if e.marker != nil {
		m := *e.marker
		s.Marker = &m
	}
	if e.cursor != nil {
		c := *e.cursor
		s.Cursor = &c
	}
	return s
}
