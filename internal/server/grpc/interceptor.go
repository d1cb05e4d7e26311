package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const payloadKey ctxKey = "jwtPayload"

// protected lists the methods that need an access token.
var protected = map[string]bool{
	pb.AuthService_Me_FullMethodName: true,
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if protected[info.FullMethod] {

		var accessToken string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(common.AccessTokenHeaderName)
			if len(values) > 0 {
				accessToken = values[0]
			}
		}
		if len(accessToken) == 0 {
			setErrorCode(ctx, common.CodeTokenInvalid)
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		payload, err := s.sessions.Authenticate(ctx, accessToken)
		if err != nil {
			return nil, s.toStatus(ctx, err)
		}

		ctx = context.WithValue(ctx, payloadKey, payload)

	}

	return handler(ctx, req)
}

func payloadFromContext(ctx context.Context) (models.JwtPayload, bool) {
	p, ok := ctx.Value(payloadKey).(models.JwtPayload)
	return p, ok
}
