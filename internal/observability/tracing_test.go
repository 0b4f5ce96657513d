package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func keepTracerProvider(t *testing.T) {
	t.Helper()
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	keepTracerProvider(t)
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	return rec
}

func attrsOf(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, kv := range s.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestInitTracingDisabledInstallsNoop(t *testing.T) {
	keepTracerProvider(t)

	shutdown, err := InitTracing(context.Background(), DefaultTracingConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.IsType(t, noop.TracerProvider{}, otel.GetTracerProvider())
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	keepTracerProvider(t)

	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Exporter = "zipkin"
	_, err := InitTracing(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"zipkin"`)
}

func TestInitTracingStdoutExportsPickSpans(t *testing.T) {
	keepTracerProvider(t)

	var buf bytes.Buffer
	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.Writer = &buf
	shutdown, err := InitTracing(context.Background(), cfg, nil)
	require.NoError(t, err)

	_, span := StartPickSpan(context.Background(), "click", 400, 300)
	EndPick(span, PickOutcomeRegion, 35, 139, "Japan", nil)
	span.End()
	ShutdownWithTimeout(context.Background(), shutdown, nil)

	out := buf.String()
	assert.Contains(t, out, "engine.pick.click")
	assert.Contains(t, out, "geo.region")
	assert.Contains(t, out, "Japan")
}

func TestEndPickRecordsResolvedCoordinate(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartPickSpan(context.Background(), "click", 12, 34)
	EndPick(span, PickOutcomeNoRegion, -12.5, 100.25, "", nil)
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "engine.pick.click", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)

	attrs := attrsOf(spans[0])
	assert.Equal(t, "click", attrs[AttrPickKind].AsString())
	assert.Equal(t, 12.0, attrs[AttrScreenX].AsFloat64())
	assert.Equal(t, 34.0, attrs[AttrScreenY].AsFloat64())
	assert.Equal(t, PickOutcomeNoRegion, attrs[AttrPickOutcome].AsString())
	assert.Equal(t, -12.5, attrs[AttrLat].AsFloat64())
	assert.Equal(t, 100.25, attrs[AttrLng].AsFloat64())
	_, hasRegion := attrs[AttrRegion]
	assert.False(t, hasRegion, "ocean picks carry no region")
}

func TestEndPickRecordsFailure(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartPickSpan(context.Background(), "click", 1, 1)
	EndPick(span, PickOutcomeMiss, 0, 0, "", errors.New("ray missed the globe"))
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "ray missed the globe", spans[0].Status().Description)

	attrs := attrsOf(spans[0])
	assert.Equal(t, PickOutcomeMiss, attrs[AttrPickOutcome].AsString())
	_, hasLat := attrs[AttrLat]
	assert.False(t, hasLat)
}
