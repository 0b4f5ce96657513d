package rpc

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/holo-globe/internal/engine"
	"github.com/signalsfoundry/holo-globe/model"
)

func number(in *structpb.Struct, key string) (float64, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidRequest, key)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidRequest, key)
	}
	if math.IsNaN(n.NumberValue) || math.IsInf(n.NumberValue, 0) {
		return 0, fmt.Errorf("%w: %s must be finite", ErrInvalidRequest, key)
	}
	return n.NumberValue, nil
}

func point(in *structpb.Struct) (x, y float64, err error) {
	if x, err = number(in, "x"); err != nil {
		return 0, 0, err
	}
	if y, err = number(in, "y"); err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func text(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return out, nil
}

func pickFields(res model.PickResult) map[string]any {
	m := map[string]any{
		"kind": string(res.Kind),
		"lat":  res.Coordinates.Lat,
		"lng":  res.Coordinates.Lng,
	}
	if res.HasRegion {
		m["region"] = res.Region
		m["region_id"] = res.RegionID
	}
	return m
}

func snapshotFields(s engine.Snapshot) map[string]any {
	m := map[string]any{
		"tick":       s.Tick,
		"pitch":      s.Orientation.Pitch,
		"yaw":        s.Orientation.Yaw,
		"roll":       s.Orientation.Roll,
		"pitch_rate": s.Velocity.PitchRate,
		"yaw_rate":   s.Velocity.YawRate,
		"distance":   s.Distance,
		"dragging":   s.Dragging,
		"control":    s.Control.Kind.String(),
		"gesture":    s.Gesture.Phase.String(),
		"viewport": map[string]any{
			"left":   s.Viewport.Left,
			"top":    s.Viewport.Top,
			"width":  s.Viewport.Width,
			"height": s.Viewport.Height,
		},
	}
	if s.Focus != nil {
		m["focus"] = map[string]any{
			"id":  s.Focus.ID,
			"lat": s.Focus.Coordinates.Lat,
			"lng": s.Focus.Coordinates.Lng,
		}
	}
	if s.Highlighted != nil {
		m["highlighted"] = map[string]any{"id": s.Highlighted.ID, "name": s.Highlighted.Name}
	}
	if s.Marker != nil {
		m["marker"] = []any{s.Marker.X, s.Marker.Y, s.Marker.Z}
	}
	if s.Cursor != nil {
		m["cursor"] = []any{s.Cursor.X, s.Cursor.Y, s.Cursor.Z}
	}
	return m
}
