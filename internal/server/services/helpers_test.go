package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "correct-horse"
	refreshTTL   = 7 * 24 * time.Hour
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// spyRefresh counts calls and can fail selected operations.
type spyRefresh struct {
	refreshtokens.Repository

	mu        sync.Mutex
	saves     int
	revokes   int
	saveErr   error
	revokeErr func(token string) error
	findErr   error
}

func (s *spyRefresh) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.Repository.FindByToken(ctx, token)
}

func (s *spyRefresh) Save(ctx context.Context, rec *models.RefreshToken) error {
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.Repository.Save(ctx, rec)
}

func (s *spyRefresh) RevokeByToken(ctx context.Context, token string, at time.Time) (bool, error) {
	s.mu.Lock()
	s.revokes++
	s.mu.Unlock()
	if s.revokeErr != nil {
		if err := s.revokeErr(token); err != nil {
			return false, err
		}
	}
	return s.Repository.RevokeByToken(ctx, token, at)
}

func (s *spyRefresh) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type observation struct {
	operation string
	err       error
}

type fakeRecorder struct {
	mu           sync.Mutex
	observations []observation
	revocations  map[bool]int
}

func (f *fakeRecorder) Observe(operation string, _ time.Time, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observations = append(f.observations, observation{operation, err})
}

func (f *fakeRecorder) Revocation(_ string, won bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revocations == nil {
		f.revocations = map[bool]int{}
	}
	f.revocations[won]++
}

type fixture struct {
	clock    *testClock
	users    *users.MemoryRepository
	refresh  refreshtokens.Repository
	hasher   *auth.BcryptHasher
	tokens   *auth.JWTService
	userSvc  *UserService
	sessions *SessionService
	recorder *fakeRecorder
}

func newFixture(t *testing.T, refresh refreshtokens.Repository) *fixture {
	t.Helper()
	if refresh == nil {
		refresh = refreshtokens.NewMemoryRepository()
	}

	f := &fixture{
		clock:    newTestClock(),
		users:    users.NewMemoryRepository(),
		refresh:  refresh,
		hasher:   auth.NewBcryptHasher(bcrypt.MinCost),
		recorder: &fakeRecorder{},
		tokens: auth.NewJWTService(auth.JWTConfig{
			Secret:     []byte("test-secret"),
			AccessTTL:  15 * time.Minute,
			RefreshTTL: refreshTTL,
		}),
	}
	f.userSvc = NewUserService(f.users, f.hasher, nil)
	f.sessions = NewSessionService(f.users, f.userSvc, f.hasher, f.tokens, f.refresh, refreshTTL,
		WithClock(f.clock.Now),
		WithRecorder(f.recorder),
	)
	return f
}

func (f *fixture) registerAndLogin(t *testing.T) *models.TokenPair {
	t.Helper()
	pair, err := f.sessions.RegisterAndLogin(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	return pair
}

// rotatingSpy exposes the wrapped store's Rotate and counts calls.
type rotatingSpy struct {
	*spyRefresh
	rotator   refreshtokens.Rotator
	rotations int
}

func (r *rotatingSpy) Rotate(ctx context.Context, oldToken string, next *models.RefreshToken, at time.Time) error {
	r.rotations++
	return r.rotator.Rotate(ctx, oldToken, next, at)
}
