package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
	"google.golang.org/grpc"
)

// Sessions is the session core as seen by the transport.
type Sessions interface {
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	RegisterAndLogin(ctx context.Context, email, password string) (*models.TokenPair, error)
	Refresh(ctx context.Context, token string) (*models.TokenPair, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, accessToken string) (models.JwtPayload, error)
}

type Profiles interface {
	GetProfile(ctx context.Context, userID string) (*models.User, error)
}

type GRPCServer struct {
	address  string
	sessions Sessions
	profiles Profiles
	policy   validation.Policy
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, ss Sessions, ps Profiles, policy validation.Policy) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		sessions: ss,
		profiles: ps,
		policy:   policy,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	pb.RegisterAuthServiceServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	defer close(stopped)

	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping gRPC server...")
			srv.GracefulStop()
		case <-stopped:
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
