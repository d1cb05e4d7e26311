package grpc

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// toStatus renders err as a gRPC status and records its domain code in the
// error-code trailer. Anything that is not a DomainError becomes Internal
// with a generic message.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	de, ok := common.AsDomainError(err)
	if !ok {
		s.logger.Error(ctx, "request failed", "error", err)
		setErrorCode(ctx, common.CodeInternal)
		return status.Error(codes.Internal, "internal error")
	}
	setErrorCode(ctx, de.Code)
	return status.Error(codeFor(de.StatusCode), de.Message)
}

func codeFor(httpStatus int) codes.Code {
	switch httpStatus {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.AlreadyExists
	default:
		return codes.Internal
	}
}

// setErrorCode is a no-op outside a server stream.
func setErrorCode(ctx context.Context, code string) {
	_ = grpc.SetTrailer(ctx, metadata.Pairs(common.ErrorCodeTrailerName, code))
}
