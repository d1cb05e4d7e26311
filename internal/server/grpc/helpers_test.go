package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type fakeSessions struct {
	pair *models.TokenPair
	err  error

	payload models.JwtPayload
	authErr error

	calls     int
	lastEmail string
	lastToken string
}

func (f *fakeSessions) Login(_ context.Context, email, _ string) (*models.TokenPair, error) {
	f.calls++
	f.lastEmail = email
	return f.pair, f.err
}

func (f *fakeSessions) RegisterAndLogin(_ context.Context, email, _ string) (*models.TokenPair, error) {
	f.calls++
	f.lastEmail = email
	return f.pair, f.err
}

func (f *fakeSessions) Refresh(_ context.Context, token string) (*models.TokenPair, error) {
	f.calls++
	f.lastToken = token
	return f.pair, f.err
}

func (f *fakeSessions) Logout(_ context.Context, token string) error {
	f.calls++
	f.lastToken = token
	return f.err
}

func (f *fakeSessions) Authenticate(_ context.Context, token string) (models.JwtPayload, error) {
	if token != "good" {
		return models.JwtPayload{}, common.ErrTokenInvalid
	}
	return f.payload, f.authErr
}

type fakeProfiles struct {
	users map[string]*models.User
}

func (f *fakeProfiles) GetProfile(_ context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, common.NewUserNotFound(id)
	}
	return u, nil
}

var created = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(ss *fakeSessions) *GRPCServer {
	ps := &fakeProfiles{users: map[string]*models.User{
		"u1": {ID: "u1", Email: models.MustEmail("a@b.com"), Role: models.RoleUser, CreatedAt: created},
	}}
	return NewGRPCServer("127.0.0.1:0", nopLogger{}, ss, ps, validation.NewPolicy(8))
}
