package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	conn        *grpc.ClientConn
	client      pb.AuthServiceClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches the access token to Me calls. When the
// server answers TOKEN_INVALID and a refresh token is known, the pair is
// rotated once and the call retried.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	if method != pb.AuthService_Me_FullMethodName {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	var trailer metadata.MD
	callOpts := append(opts, grpc.Trailer(&trailer))

	err := invoker(withAccessToken(ctx, s.tokens().AccessToken), method, req, reply, cc, callOpts...)
	if err == nil {
		return nil
	}

	if status.Code(err) != codes.Unauthenticated {
		return err
	}
	if ec := trailer.Get(common.ErrorCodeTrailerName); len(ec) == 0 || ec[0] != common.CodeTokenInvalid {
		return err
	}
	if s.RefreshToken() == "" {
		return err
	}

	if err := s.Refresh(ctx); err != nil {
		return err
	}

	// tokens refreshed, retrying with the new access token
	return invoker(withAccessToken(ctx, s.tokens().AccessToken), method, req, reply, cc, opts...)
}

func NewAuthClient(endpointURL string, timeout time.Duration) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout}
	err := c.InitGRPCClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewAuthServiceClient(conn)
	return nil
}

func (s *GRPCClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *GRPCClient) tokens() models.Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Tokens{AccessToken: s.accessToken, RefreshToken: s.refreshToken}
}

func (s *GRPCClient) setTokens(resp *structpb.Struct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = pb.String(resp, pb.FieldAccessToken)
	s.refreshToken = pb.String(resp, pb.FieldRefreshToken)
}

func (s *GRPCClient) RefreshToken() string {
	return s.tokens().RefreshToken
}

// SetRefreshToken restores a refresh token saved by an earlier run. The
// access token is cleared; call Refresh to obtain a new pair.
func (s *GRPCClient) SetRefreshToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = token
}

func credentials(email string, password []byte) *structpb.Struct {
	return pb.Strings(map[string]string{pb.FieldEmail: email, pb.FieldPassword: string(password)})
}

func (s *GRPCClient) Register(ctx context.Context, email string, password []byte) error {

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Register(ctx, credentials(email, password))
	if err != nil {
		return s.mapError(err)
	}

	s.setTokens(resp)
	return nil
}

func (s *GRPCClient) Login(ctx context.Context, email string, password []byte) error {

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Login(ctx, credentials(email, password))
	if err != nil {
		return s.mapError(err)
	}

	s.setTokens(resp)
	return nil
}

// Refresh exchanges the current refresh token for a new pair.
func (s *GRPCClient) Refresh(ctx context.Context) error {

	token := s.RefreshToken()
	if token == "" {
		return ErrNotLoggedIn
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Refresh(ctx, pb.Strings(map[string]string{pb.FieldRefreshToken: token}))
	if err != nil {
		return s.mapError(err)
	}

	s.setTokens(resp)
	return nil
}

// Logout revokes the refresh token on the server and forgets both tokens.
func (s *GRPCClient) Logout(ctx context.Context) error {

	token := s.RefreshToken()
	if token == "" {
		return ErrNotLoggedIn
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.client.Logout(ctx, pb.Strings(map[string]string{pb.FieldRefreshToken: token})); err != nil {
		return s.mapError(err)
	}

	s.SetRefreshToken("")
	return nil
}

func (s *GRPCClient) Me(ctx context.Context) (*models.Profile, error) {

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.client.Me(ctx, &structpb.Struct{})
	if err != nil {
		return nil, s.mapError(err)
	}

	p := &models.Profile{
		ID:    pb.String(resp, pb.FieldID),
		Email: pb.String(resp, pb.FieldEmail),
		Role:  pb.String(resp, pb.FieldRole),
	}
	if raw := pb.String(resp, pb.FieldCreatedAt); raw != "" {
		if p.CreatedAt, err = time.Parse(time.RFC3339, raw); err != nil {
			return nil, fmt.Errorf("parse createdAt: %w", err)
		}
	}
	return p, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidInput, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
