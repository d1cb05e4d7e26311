package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/google/uuid"
)

// Registrar creates identities; *UserService is the production value.
type Registrar interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
}

// Recorder receives one observation per finished operation.
// *metrics.Collector satisfies it.
type Recorder interface {
	Observe(operation string, started time.Time, err error)
	Revocation(reason string, won bool)
}

type nopRecorder struct{}

func (nopRecorder) Observe(string, time.Time, error) {}
func (nopRecorder) Revocation(string, bool)          {}

// SessionService issues, rotates and revokes sessions. It keeps no mutable
// state of its own between requests; races between concurrent refreshes
// are settled by the refresh-token store.
type SessionService struct {
	users      users.Repository
	registrar  Registrar
	verifier   auth.CredentialVerifier
	tokens     auth.TokenService
	refresh    refreshtokens.Repository
	refreshTTL time.Duration

	log     logging.Logger
	metrics Recorder
	now     func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// SessionOption configures optional SessionService dependencies.
type SessionOption func(*SessionService)

func WithLogger(log logging.Logger) SessionOption {
	return func(s *SessionService) {
		if log != nil {
			s.log = log.With("module", "sessions")
		}
	}
}

func WithRecorder(r Recorder) SessionOption {
	return func(s *SessionService) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithClock replaces time.Now. Expiry checks and new record lifetimes use it.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSessionService(
	userRepo users.Repository,
	registrar Registrar,
	verifier auth.CredentialVerifier,
	tokens auth.TokenService,
	refresh refreshtokens.Repository,
	refreshTTL time.Duration,
	opts ...SessionOption,
) *SessionService {
	s := &SessionService{
		users:      userRepo,
		registrar:  registrar,
		verifier:   verifier,
		tokens:     tokens,
		refresh:    refresh,
		refreshTTL: refreshTTL,
		log:        logging.Nop{},
		metrics:    nopRecorder{},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Login checks the credentials and opens a new session. An unknown email
// and a wrong password fail identically with INVALID_CREDENTIALS.
func (s *SessionService) Login(ctx context.Context, email, password string) (pair *models.TokenPair, err error) {
	defer func(start time.Time) { s.metrics.Observe("login", start, err) }(time.Now())
	return s.login(ctx, email, password)
}

// RegisterAndLogin creates the identity and then logs in with the same
// credentials. A registration failure is returned as is and no login is
// attempted.
func (s *SessionService) RegisterAndLogin(ctx context.Context, email, password string) (pair *models.TokenPair, err error) {
	defer func(start time.Time) { s.metrics.Observe("register", start, err) }(time.Now())

	if _, err := s.registrar.Register(ctx, email, password); err != nil {
		return nil, err
	}
	return s.login(ctx, email, password)
}

// Refresh exchanges an active refresh token for a new pair and revokes the
// presented one. Of several concurrent calls with the same token exactly
// one succeeds; the others get INVALID_CREDENTIALS.
func (s *SessionService) Refresh(ctx context.Context, token string) (pair *models.TokenPair, err error) {
	defer func(start time.Time) { s.metrics.Observe("refresh", start, err) }(time.Now())

	rec, err := s.refresh.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	now := s.now()
	if !rec.IsValid(now) {
		return nil, common.ErrInvalidCredentials
	}

	user, err := s.users.GetByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewUserNotFound(rec.UserID)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	pair, next, err := s.mint(user, now)
	if err != nil {
		return nil, err
	}

	if rotator, ok := s.refresh.(refreshtokens.Rotator); ok {
		err := rotator.Rotate(ctx, token, next, now)
		switch {
		case errors.Is(err, refreshtokens.ErrNotActive):
			s.metrics.Revocation("rotate", false)
			return nil, common.ErrInvalidCredentials
		case err != nil:
			return nil, fmt.Errorf("rotate refresh token: %w", err)
		}
		s.metrics.Revocation("rotate", true)
		s.log.Debug(ctx, "refresh token rotated", "user_id", user.ID)
		return pair, nil
	}

	// Stores without Rotate: the successor is persisted first so a failing
	// revoke never leaves the user without a usable token. The revoke is a
	// compare-and-set and losing it withdraws the successor again.
	if err := s.refresh.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	won, err := s.refresh.RevokeByToken(ctx, token, now)
	if err != nil {
		s.withdraw(ctx, next.Token, now)
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	s.metrics.Revocation("rotate", won)
	if !won {
		s.withdraw(ctx, next.Token, now)
		return nil, common.ErrInvalidCredentials
	}

	s.log.Debug(ctx, "refresh token rotated", "user_id", user.ID)
	return pair, nil
}

// Logout revokes the token if it is still active. Unknown and already
// revoked tokens are accepted silently.
func (s *SessionService) Logout(ctx context.Context, token string) (err error) {
	defer func(start time.Time) { s.metrics.Observe("logout", start, err) }(time.Now())

	won, err := s.refresh.RevokeByToken(ctx, token, s.now())
	if err != nil {
		s.log.Error(ctx, "logout failed", "error", err)
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	s.metrics.Revocation("logout", won)
	return nil
}

// Authenticate verifies an access token and returns its payload.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (payload models.JwtPayload, err error) {
	defer func(start time.Time) { s.metrics.Observe("authenticate", start, err) }(time.Now())
	return s.tokens.VerifyAccessToken(accessToken)
}

func (s *SessionService) login(ctx context.Context, rawEmail, password string) (*models.TokenPair, error) {
	email, err := models.NewEmail(rawEmail)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Spend the same work as a real comparison.
			s.verifier.Verify(password, s.dummy())
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !s.verifier.Verify(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	pair, rec, err := s.mint(user, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.refresh.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return pair, nil
}

// mint signs a new pair for user and builds the unsaved refresh record.
func (s *SessionService) mint(user *models.User, now time.Time) (*models.TokenPair, *models.RefreshToken, error) {
	payload := user.Payload()

	access, err := s.tokens.GenerateAccessToken(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("generate refresh token: %w", err)
	}

	rec := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, rec, nil
}

// withdraw revokes a successor token that must not outlive a failed
// rotation. It runs even if the request context is already cancelled.
func (s *SessionService) withdraw(ctx context.Context, token string, at time.Time) {
	if _, err := s.refresh.RevokeByToken(context.WithoutCancel(ctx), token, at); err != nil {
		s.log.Warn(ctx, "failed to withdraw successor refresh token", "error", err)
	}
}

// dummy returns a hash to compare against when the email is unknown. It is
// derived lazily from the verifier when that can also hash.
func (s *SessionService) dummy() string {
	s.dummyOnce.Do(func() {
		if h, ok := s.verifier.(auth.PasswordHasher); ok {
			s.dummyHash, _ = h.Hash(uuid.NewString())
		}
	})
	return s.dummyHash
}
