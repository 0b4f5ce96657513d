package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/holo-globe/internal/engine"
)

// ErrInvalidRequest marks malformed request payloads.
var ErrInvalidRequest = errors.New("invalid request")

// ToStatusError maps engine errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, engine.ErrInvalidCoordinates):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, engine.ErrViewportNotReady):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, engine.ErrMissedGlobe):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, engine.ErrDragRelease):
		return status.Error(codes.Aborted, err.Error())

	case errors.Is(err, engine.ErrLoopClosed):
		return status.Error(codes.Unavailable, err.Error())

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
