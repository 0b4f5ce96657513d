package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a thin GlobeService client over any connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with the given request fields.
func (c *Client) Call(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Focus requests a focus transition toward (lat, lng).
func (c *Client) Focus(ctx context.Context, lat, lng float64) (*structpb.Struct, error) {
	return c.Call(ctx, MethodFocus, map[string]any{"lat": lat, "lng": lng})
}

// CancelFocus drops any pending focus transition.
func (c *Client) CancelFocus(ctx context.Context) (*structpb.Struct, error) {
	return c.Call(ctx, MethodCancelFocus, nil)
}

// Hover moves the pointer over the globe.
func (c *Client) Hover(ctx context.Context, x, y float64) (*structpb.Struct, error) {
	return c.Call(ctx, MethodHover, map[string]any{"x": x, "y": y})
}

// Click selects the location under (x, y).
func (c *Client) Click(ctx context.Context, x, y float64) (*structpb.Struct, error) {
	return c.Call(ctx, MethodClick, map[string]any{"x": x, "y": y})
}

// Pointer sends a raw pointer event.
func (c *Client) Pointer(ctx context.Context, action string, x, y float64) (*structpb.Struct, error) {
	return c.Call(ctx, MethodPointer, map[string]any{"action": action, "x": x, "y": y})
}

// Wheel zooms the camera.
func (c *Client) Wheel(ctx context.Context, deltaY float64) (*structpb.Struct, error) {
	return c.Call(ctx, MethodWheel, map[string]any{"delta_y": deltaY})
}

// SetViewport sizes the client rectangle.
func (c *Client) SetViewport(ctx context.Context, left, top, width, height float64) (*structpb.Struct, error) {
	return c.Call(ctx, MethodViewport, map[string]any{
		"left": left, "top": top, "width": width, "height": height,
	})
}

// GetState fetches the latest engine snapshot.
func (c *Client) GetState(ctx context.Context) (*structpb.Struct, error) {
	return c.Call(ctx, MethodGetState, nil)
}
