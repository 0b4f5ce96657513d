package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewEngineCollector(reg)
	if err != nil {
		t.Fatalf("NewEngineCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/globe.v1.GlobeService/Focus"}

	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		time.Sleep(2 * time.Millisecond)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("GlobeService", "Focus", "OK")); got != 1 {
		t.Fatalf("globe_rpc_requests_total = %v, want 1", got)
	}

	if count := histogramSampleCount(t, reg, "globe_rpc_request_duration_seconds", map[string]string{
		"service": "GlobeService",
		"method":  "Focus",
	}); count != 1 {
		t.Fatalf("globe_rpc_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewEngineCollector(reg)
	require.NoError(t, err)

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/globe.v1.GlobeService/Hover"}

	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.InvalidArgument, "boom")
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.RPCRequests.WithLabelValues("GlobeService", "Hover", "InvalidArgument")))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *EngineCollector
	c.ObserveTick()
	c.ObservePick("hover", PickOutcomeMiss)
	c.ObserveControl("rotate")
	c.ObserveFocusRequest()
	c.ObserveFocusConverged(3)
	c.ObserveRegionLookup(time.Millisecond)
	c.ObserveAcquisitionFailure("other")
	c.ObservePublish("ok")
	c.SetView(0, 0, 0, 2.5)
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewEngineCollector(reg)
	require.NoError(t, err)
	second, err := NewEngineCollector(reg)
	require.NoError(t, err)

	second.ObserveTick()
	assert.Equal(t, 1.0, testutil.ToFloat64(first.Ticks))
}

func TestMetricsHandlerExposesEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewEngineCollector(reg)
	require.NoError(t, err)

	collector.ObserveTick()
	collector.ObservePick("click", PickOutcomeRegion)
	collector.ObserveControl("zoom")
	collector.ObserveFocusRequest()
	collector.ObserveFocusConverged(42)
	collector.ObserveRegionLookup(20 * time.Microsecond)
	collector.SetView(0.25, 1.5, 0, 3)
	collector.RPCRequests.WithLabelValues("svc", "method", "OK").Inc()
	collector.RPCDurations.WithLabelValues("svc", "method").Observe(0.01)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"globe_rpc_requests_total",
		"globe_rpc_request_duration_seconds",
		"globe_ticks_total 1",
		`globe_picks_total{kind="click",outcome="region"} 1`,
		`globe_gesture_controls_total{kind="zoom"} 1`,
		"globe_focus_requests_total 1",
		"globe_focus_convergence_ticks_sum 42",
		"globe_region_lookup_duration_seconds_count 1",
		`globe_orientation_radians{axis="yaw"} 1.5`,
		"globe_camera_distance 3",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output:\n%s", metric, body)
		}
	}
}

func TestSplitMethod(t *testing.T) {
	cases := map[string][2]string{
		"":                             {"unknown", "unknown"},
		"/globe.v1.GlobeService/Wheel": {"GlobeService", "Wheel"},
		"Service/Method":               {"Service", "Method"},
		"nomethod":                     {"unknown", "unknown"},
	}
	for in, want := range cases {
		s, m := SplitMethod(in)
		assert.Equal(t, want, [2]string{s, m}, in)
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
