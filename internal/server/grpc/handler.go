package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	email, password := pb.String(req, pb.FieldEmail), pb.String(req, pb.FieldPassword)
	if err := s.policy.Credentials(email, password); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	pair, err := s.sessions.RegisterAndLogin(ctx, email, password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return tokenPair(pair), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	email, password := pb.String(req, pb.FieldEmail), pb.String(req, pb.FieldPassword)
	if err := s.policy.Credentials(email, password); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	pair, err := s.sessions.Login(ctx, email, password)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return tokenPair(pair), nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	token := pb.String(req, pb.FieldRefreshToken)
	if err := s.policy.RefreshToken(token); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	pair, err := s.sessions.Refresh(ctx, token)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return tokenPair(pair), nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	token := pb.String(req, pb.FieldRefreshToken)
	if err := s.policy.RefreshToken(token); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	if err := s.sessions.Logout(ctx, token); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &structpb.Struct{}, nil
}

// Me returns the profile of the caller identified by the access token.
func (s *GRPCServer) Me(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {

	payload, ok := payloadFromContext(ctx)
	if !ok {
		return nil, s.toStatus(ctx, common.ErrTokenInvalid)
	}
	if !payload.Role.Valid() {
		return nil, s.toStatus(ctx, common.ErrForbidden)
	}

	u, err := s.profiles.GetProfile(ctx, payload.Sub)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return profile(u), nil
}

func tokenPair(p *models.TokenPair) *structpb.Struct {
	return pb.Strings(map[string]string{
		pb.FieldAccessToken:  p.AccessToken,
		pb.FieldRefreshToken: p.RefreshToken,
	})
}

func profile(u *models.User) *structpb.Struct {
	return pb.Strings(map[string]string{
		pb.FieldID:        u.ID,
		pb.FieldEmail:     u.Email.String(),
		pb.FieldRole:      string(u.Role),
		pb.FieldCreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	})
}
