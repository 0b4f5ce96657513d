package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/signalsfoundry/holo-globe/internal/logging"
)

// InteractionIDMetadataKey carries a caller-chosen interaction ID.
const InteractionIDMetadataKey = "x-interaction-id"

// InteractionIDUnaryServerInterceptor ensures an interaction_id is present
// on the context, sourcing it from inbound metadata if provided, and attaches
// a per-request logger annotated with interaction_id and method.
func InteractionIDUnaryServerInterceptor(base logging.Logger) grpc.UnaryServerInterceptor {
	base = logging.OrNoop(base)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if incoming := firstHeader(md, InteractionIDMetadataKey); incoming != "" {
				ctx = logging.ContextWithInteractionID(ctx, incoming)
			}
		}

		ctx, reqLog := logging.WithInteractionLogger(ctx, base.With(logging.String("method", info.FullMethod)))
		ctx = logging.ContextWithLogger(ctx, reqLog)

		return handler(ctx, req)
	}
}

func firstHeader(md metadata.MD, key string) string {
	if md == nil {
		return ""
	}
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
