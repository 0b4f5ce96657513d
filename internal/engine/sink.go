package engine

import (
	"context"

	"github.com/signalsfoundry/holo-globe/internal/logging"
	"github.com/signalsfoundry/holo-globe/model"
)

// PickSink receives resolved picks. Sinks are called from the engine loop and
// must not block; I/O belongs on a goroutine or an async client.
type PickSink interface {
	// Hover receives a throttled hover result, or nil once the pointer is no
	// longer over the globe.
	Hover(ctx context.Context, res *model.PickResult)
	// Click receives every accepted click.
	Click(ctx context.Context, res model.PickResult)
}

// PickSinkFuncs adapts plain functions to PickSink. Nil fields are skipped.
type PickSinkFuncs struct {
	OnHover func(ctx context.Context, res *model.PickResult)
	OnClick func(ctx context.Context, res model.PickResult)
}

func (f PickSinkFuncs) Hover(ctx context.Context, res *model.PickResult) {
	if f.OnHover != nil {
		f.OnHover(ctx, res)
	}
}

func (f PickSinkFuncs) Click(ctx context.Context, res model.PickResult) {
	if f.OnClick != nil {
		f.OnClick(ctx, res)
	}
}

// MultiSink fans picks out to several sinks in order.
type MultiSink []PickSink

func (m MultiSink) Hover(ctx context.Context, res *model.PickResult) {
	for _, s := range m {
		s.Hover(ctx, res)
	}
}

func (m MultiSink) Click(ctx context.Context, res model.PickResult) {
	for _, s := range m {
		s.Click(ctx, res)
	}
}

// LogSink writes picks to a structured logger: hovers at debug, clicks at
// info.
type LogSink struct {
	Log logging.Logger
}

func (s LogSink) Hover(ctx context.Context, res *model.PickResult) {
	log := logging.OrNoop(s.Log)
	if res == nil {
		log.Debug(ctx, "hover cleared")
		return
	}
	log.Debug(ctx, "hover", pickFields(*res)...)
}

func (s LogSink) Click(ctx context.Context, res model.PickResult) {
	logging.OrNoop(s.Log).Info(ctx, "location selected", pickFields(res)...)
}

func pickFields(res model.PickResult) []logging.Field {
	fields := []logging.Field{
		logging.Float("lat", res.Coordinates.Lat),
		logging.Float("lng", res.Coordinates.Lng),
	}
	if res.HasRegion {
		fields = append(fields,
			logging.String("region", res.Region),
			logging.String("region_id", res.RegionID),
		)
	}
	return fields
}

type noopSink struct{}

func (noopSink) Hover(context.Context, *model.PickResult) {}
func (noopSink) Click(context.Context, model.PickResult)  {}
