package server

import (
	"context"
	"path"
	"time"

	"github.com/nanoncore/nano-usi/metrics"
	"github.com/nrednav/cuid2"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type traceIDKey struct{}

var generate, _ = cuid2.Init(
	cuid2.WithLength(32),
)

// TraceID returns the trace id the interceptor attached to ctx
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// UnaryInterceptor tags each call with a trace id, logs it once finished
// and records request metrics
func UnaryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.L()
	}

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		traceID := generate()
		ctx = context.WithValue(ctx, traceIDKey{}, traceID)
		method := path.Base(info.FullMethod)

		resp, err := handler(ctx, req)

		code := status.Code(err)
		elapsed := time.Since(start)
		metrics.RPCRequests.WithLabelValues(method, code.String()).Inc()
		metrics.RPCDuration.WithLabelValues(method).Observe(elapsed.Seconds())

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("code", code.String()),
			zap.Float64("elapsed_time_sec", elapsed.Seconds()),
			zap.String("trace_id", traceID),
		}
		if in, ok := req.(*SwitchInput); ok {
			fields = append(fields,
				zap.Stringer("switch", in.Descriptor()),
				zap.Int32("port", in.DevicePort),
			)
		}
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			fields = append(fields, zap.String("sourceAddr", p.Addr.String()))
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
			logger.Warn("finished handling", fields...)
		} else {
			logger.Info("finished handling", fields...)
		}
		return resp, err
	}
}
