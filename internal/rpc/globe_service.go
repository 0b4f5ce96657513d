package rpc

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/holo-globe/core"
	"github.com/signalsfoundry/holo-globe/internal/engine"
	"github.com/signalsfoundry/holo-globe/internal/logging"
	"github.com/signalsfoundry/holo-globe/model"
)

// GlobeService serves engine operations over gRPC. Every call is executed on
// the engine loop, between two frames.
type GlobeService struct {
	loop *engine.Loop
	log  logging.Logger
}

var _ GlobeServiceServer = (*GlobeService)(nil)

// NewGlobeService constructs a GlobeService bound to loop.
func NewGlobeService(loop *engine.Loop, log logging.Logger) *GlobeService {
	return &GlobeService{loop: loop, log: logging.OrNoop(log)}
}

func (s *GlobeService) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}

// do runs fn on the engine loop and maps any error to a status.
func (s *GlobeService) do(ctx context.Context, fn func(context.Context, *engine.Engine) (map[string]any, error)) (*structpb.Struct, error) {
	var (
		out    map[string]any
		runErr error
	)
	if err := s.loop.Do(ctx, func(ctx context.Context, e *engine.Engine) {
		out, runErr = fn(ctx, e)
	}); err != nil {
		return nil, ToStatusError(err)
	}
	if runErr != nil {
		return nil, ToStatusError(runErr)
	}
	resp, err := newStruct(out)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return resp, nil
}

// Focus turns the globe toward {lat, lng}.
func (s *GlobeService) Focus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	lat, err := number(in, "lat")
	if err != nil {
		return nil, ToStatusError(err)
	}
	lng, err := number(in, "lng")
	if err != nil {
		return nil, ToStatusError(err)
	}

	return s.do(ctx, func(ctx context.Context, e *engine.Engine) (map[string]any, error) {
		target, err := e.Focus(ctx, lat, lng)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"id":    target.ID,
			"pitch": target.Orientation.Pitch,
			"yaw":   target.Orientation.Yaw,
		}, nil
	})
}

// CancelFocus drops any pending focus transition.
func (s *GlobeService) CancelFocus(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return s.do(ctx, func(_ context.Context, e *engine.Engine) (map[string]any, error) {
		return map[string]any{"cancelled": e.CancelFocus()}, nil
	})
}

// Hover moves the pointer to {x, y}. resolved is false while throttled or
// dragging; on_globe is false once the pointer is off the globe.
func (s *GlobeService) Hover(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	x, y, err := point(in)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return s.do(ctx, func(ctx context.Context, e *engine.Engine) (map[string]any, error) {
		return hoverFields(e.PointerMove(ctx, x, y)), nil
	})
}

func hoverFields(res *model.PickResult, resolved bool) map[string]any {
	out := map[string]any{"resolved": resolved, "on_globe": res != nil}
	if res != nil {
		for k, v := range pickFields(*res) {
			out[k] = v
		}
	}
	return out
}

// Click selects the location under {x, y}.
func (s *GlobeService) Click(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	x, y, err := point(in)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return s.do(ctx, func(ctx context.Context, e *engine.Engine) (map[string]any, error) {
		res, err := e.Click(ctx, x, y)
		if err != nil {
			return nil, err
		}
		s.logger(ctx).Info(ctx, "click resolved",
			logging.Float("lat", res.Coordinates.Lat),
			logging.Float("lng", res.Coordinates.Lng),
			logging.String("region", res.Region),
		)
		return pickFields(res), nil
	})
}

// Pointer forwards a raw pointer event: {action: down|move|up|leave, x, y}.
func (s *GlobeService) Pointer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	action := text(in, "action")
	var x, y float64
	switch action {
	case "down", "move":
		var err error
		if x, y, err = point(in); err != nil {
			return nil, ToStatusError(err)
		}
	case "up", "leave":
	default:
		return nil, ToStatusError(fmt.Errorf("%w: unknown pointer action %q", ErrInvalidRequest, action))
	}

	return s.do(ctx, func(ctx context.Context, e *engine.Engine) (map[string]any, error) {
		switch action {
		case "down":
			e.PointerDown(ctx, x, y)
		case "move":
			return hoverFields(e.PointerMove(ctx, x, y)), nil
		case "up":
			e.PointerUp()
		case "leave":
			e.PointerLeave(ctx)
		}
		return map[string]any{}, nil
	})
}

// Wheel zooms by {delta_y} and returns the new camera distance.
func (s *GlobeService) Wheel(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	dy, err := number(in, "delta_y")
	if err != nil {
		return nil, ToStatusError(err)
	}
	return s.do(ctx, func(_ context.Context, e *engine.Engine) (map[string]any, error) {
		e.Wheel(dy)
		return map[string]any{"distance": e.Snapshot().Distance}, nil
	})
}

// SetViewport sets the client rectangle {left, top, width, height}. Left and
// top default to zero.
func (s *GlobeService) SetViewport(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	w, err := number(in, "width")
	if err != nil {
		return nil, ToStatusError(err)
	}
	h, err := number(in, "height")
	if err != nil {
		return nil, ToStatusError(err)
	}
	if w < 0 || h < 0 {
		return nil, ToStatusError(fmt.Errorf("%w: viewport size must not be negative", ErrInvalidRequest))
	}
	vp := core.Viewport{
		Left:   in.GetFields()["left"].GetNumberValue(),
		Top:    in.GetFields()["top"].GetNumberValue(),
		Width:  w,
		Height: h,
	}
	return s.do(ctx, func(_ context.Context, e *engine.Engine) (map[string]any, error) {
		e.SetViewport(vp)
		return map[string]any{"ready": vp.Ready()}, nil
	})
}

// GetState returns the snapshot published after the latest frame. It does
// not wait for the loop.
func (s *GlobeService) GetState(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	resp, err := newStruct(snapshotFields(s.loop.Snapshot()))
	if err != nil {
		return nil, ToStatusError(err)
	}
	return resp, nil
}
