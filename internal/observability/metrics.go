package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Pick outcomes used as the "outcome" label of globe_picks_total.
const (
	PickOutcomeRegion    = "region"
	PickOutcomeNoRegion  = "no_region"
	PickOutcomeMiss      = "miss"
	PickOutcomeThrottled = "throttled"
	PickOutcomeFling     = "fling"
	PickOutcomeNotReady  = "not_ready"
)

// EngineCollector bundles Prometheus metrics for the interaction engine and
// its gRPC surface, and provides helpers to wire them into gRPC servers and
// HTTP handlers.
type EngineCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec

	Ticks           prometheus.Counter
	Picks           *prometheus.CounterVec
	GestureControls *prometheus.CounterVec
	GestureFailures *prometheus.CounterVec
	FocusRequests   prometheus.Counter
	FocusTicks      prometheus.Histogram
	RegionLookups   prometheus.Histogram
	Orientation     *prometheus.GaugeVec
	CameraDistance  prometheus.Gauge
	PublishedClicks *prometheus.CounterVec
}

// NewEngineCollector registers engine metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
// Registering twice against the same registry reuses the existing
// collectors.
func NewEngineCollector(reg prometheus.Registerer) (*EngineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &EngineCollector{gatherer: gatherer}
	var err error

	if c.RPCRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_rpc_requests_total",
		Help: "Total number of handled globe RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "globe_rpc_requests_total"); err != nil {
		return nil, err
	}
	if c.RPCDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "globe_rpc_request_duration_seconds",
		Help:    "Globe RPC latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"service", "method"}), "globe_rpc_request_duration_seconds"); err != nil {
		return nil, err
	}
	if c.Ticks, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "globe_ticks_total",
		Help: "Frames advanced by the engine loop.",
	}), "globe_ticks_total"); err != nil {
		return nil, err
	}
	if c.Picks, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_picks_total",
		Help: "Pick resolutions, labeled by kind (hover, click) and outcome.",
	}, []string{"kind", "outcome"}), "globe_picks_total"); err != nil {
		return nil, err
	}
	if c.GestureControls, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_gesture_controls_total",
		Help: "Controls emitted by the gesture classifier, labeled by kind.",
	}, []string{"kind"}), "globe_gesture_controls_total"); err != nil {
		return nil, err
	}
	if c.GestureFailures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_gesture_acquisition_failures_total",
		Help: "Hand tracking acquisition failures, labeled by failure kind.",
	}, []string{"kind"}), "globe_gesture_acquisition_failures_total"); err != nil {
		return nil, err
	}
	if c.FocusRequests, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "globe_focus_requests_total",
		Help: "Programmatic focus requests accepted by the engine.",
	}), "globe_focus_requests_total"); err != nil {
		return nil, err
	}
	if c.FocusTicks, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "globe_focus_convergence_ticks",
		Help:    "Ticks taken by a focus transition to converge.",
		Buckets: []float64{5, 10, 20, 30, 40, 50, 60, 80, 120},
	}), "globe_focus_convergence_ticks"); err != nil {
		return nil, err
	}
	if c.RegionLookups, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "globe_region_lookup_duration_seconds",
		Help:    "Latency of resolving a pick against the boundary dataset.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
	}), "globe_region_lookup_duration_seconds"); err != nil {
		return nil, err
	}
	if c.Orientation, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "globe_orientation_radians",
		Help: "Current globe orientation, labeled by axis.",
	}, []string{"axis"}), "globe_orientation_radians"); err != nil {
		return nil, err
	}
	if c.CameraDistance, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "globe_camera_distance",
		Help: "Current camera distance from the globe centre.",
	}), "globe_camera_distance"); err != nil {
		return nil, err
	}
	if c.PublishedClicks, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_click_publish_total",
		Help: "Click results handed to the message broker, labeled by result.",
	}, []string{"result"}), "globe_click_publish_total"); err != nil {
		return nil, err
	}

	return c, nil
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *EngineCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		if c.RPCRequests != nil {
			c.RPCRequests.WithLabelValues(service, method, code).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		}

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *EngineCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// The methods below let the engine drive metrics without importing
// Prometheus. All of them are no-ops on a nil collector.

// ObserveTick counts one engine frame.
func (c *EngineCollector) ObserveTick() {
	if c == nil {
		return
	}
	c.Ticks.Inc()
}

// ObservePick counts one pick by kind and outcome.
func (c *EngineCollector) ObservePick(kind, outcome string) {
	if c == nil {
		return
	}
	c.Picks.WithLabelValues(kind, outcome).Inc()
}

// ObserveRegionLookup records the time taken to resolve a pick.
func (c *EngineCollector) ObserveRegionLookup(d time.Duration) {
	if c == nil {
		return
	}
	c.RegionLookups.Observe(d.Seconds())
}

// ObserveControl counts one gesture emission by control kind.
func (c *EngineCollector) ObserveControl(kind string) {
	if c == nil {
		return
	}
	c.GestureControls.WithLabelValues(kind).Inc()
}

// ObserveAcquisitionFailure counts one hand tracking failure.
func (c *EngineCollector) ObserveAcquisitionFailure(kind string) {
	if c == nil {
		return
	}
	c.GestureFailures.WithLabelValues(kind).Inc()
}

// ObserveFocusRequest counts an accepted focus request.
func (c *EngineCollector) ObserveFocusRequest() {
	if c == nil {
		return
	}
	c.FocusRequests.Inc()
}

// ObserveFocusConverged records how many ticks a focus transition took.
func (c *EngineCollector) ObserveFocusConverged(ticks int) {
	if c == nil {
		return
	}
	c.FocusTicks.Observe(float64(ticks))
}

// SetView updates the orientation and camera gauges.
func (c *EngineCollector) SetView(pitch, yaw, roll, distance float64) {
	if c == nil {
		return
	}
	c.Orientation.WithLabelValues("pitch").Set(pitch)
	c.Orientation.WithLabelValues("yaw").Set(yaw)
	c.Orientation.WithLabelValues("roll").Set(roll)
	c.CameraDistance.Set(distance)
}

// ObservePublish counts one broker hand-off result ("ok" or "error").
func (c *EngineCollector) ObservePublish(result string) {
	if c == nil {
		return
	}
	c.PublishedClicks.WithLabelValues(result).Inc()
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

// register adds c to reg, returning the already registered collector of the
// same type when one exists under that name.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
