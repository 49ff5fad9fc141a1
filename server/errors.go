package server

import (
	"context"
	"errors"

	"github.com/nanoncore/nano-usi/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errorCodes = map[types.ErrorCode]codes.Code{
	types.CodeConnection:       codes.Unavailable,
	types.CodeConnectionClosed: codes.Aborted,
	types.CodeAuthentication:   codes.Unauthenticated,
	types.CodeCommandTimeout:   codes.DeadlineExceeded,
	types.CodeSessionBusy:      codes.ResourceExhausted,
	types.CodeResponseParse:    codes.DataLoss,
	types.CodeInvalidInput:     codes.InvalidArgument,
	types.CodeUnsupported:      codes.Unimplemented,
}

// toStatus converts a controller error into a gRPC status error
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codes.Internal
	if c, ok := errorCodes[types.CodeOf(err)]; ok {
		code = c
	} else if errors.Is(err, context.Canceled) {
		code = codes.Canceled
	} else if errors.Is(err, context.DeadlineExceeded) {
		code = codes.DeadlineExceeded
	}
	return status.Error(code, err.Error())
}
