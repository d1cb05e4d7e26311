package refreshtokens

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract checks the behaviour every backend must share.
func runStoreContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	t.Helper()

	t.Run("find unknown", func(t *testing.T) {
		_, err := newRepo(t).FindByToken(context.Background(), "nope")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("save then find", func(t *testing.T) {
		ctx := context.Background()
		r := newRepo(t)
		expires := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)

		rec := &models.RefreshToken{UserID: "u1", Token: "tok", ExpiresAt: expires}
		require.NoError(t, r.Save(ctx, rec))
		require.NotEmpty(t, rec.ID)

		got, err := r.FindByToken(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, "u1", got.UserID)
		assert.True(t, got.ExpiresAt.Equal(expires))
		assert.Nil(t, got.RevokedAt)
		assert.True(t, got.IsValid(time.Now()))
	})

	t.Run("save is upsert by id", func(t *testing.T) {
		ctx := context.Background()
		r := newRepo(t)

		rec := &models.RefreshToken{UserID: "u1", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
		require.NoError(t, r.Save(ctx, rec))
		created := rec.CreatedAt

		rec.Revoke(time.Now())
		require.NoError(t, r.Save(ctx, rec))

		got, err := r.FindByToken(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		require.NotNil(t, got.RevokedAt)
		assert.True(t, got.CreatedAt.Equal(created))
		assert.False(t, got.IsValid(time.Now()))
	})

	t.Run("revoke is compare-and-set", func(t *testing.T) {
		ctx := context.Background()
		r := newRepo(t)
		require.NoError(t, r.Save(ctx, &models.RefreshToken{UserID: "u1", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}))

		at := time.Now()
		ok, err := r.RevokeByToken(ctx, "tok", at)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = r.RevokeByToken(ctx, "tok", at.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := r.FindByToken(ctx, "tok")
		require.NoError(t, err)
		require.NotNil(t, got.RevokedAt)
		assert.Equal(t, at.UnixNano(), got.RevokedAt.UnixNano())
	})

	t.Run("revoke unknown is a no-op", func(t *testing.T) {
		ok, err := newRepo(t).RevokeByToken(context.Background(), "ghost", time.Now())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

// runConcurrentRevoke races many revocations of one token and expects
// exactly one winner.
func runConcurrentRevoke(t *testing.T, r Repository) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, r.Save(ctx, &models.RefreshToken{UserID: "u1", Token: "shared", ExpiresAt: time.Now().Add(time.Hour)}))

	const workers = 16
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		wins  atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := r.RevokeByToken(ctx, "shared", time.Now())
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

type rotatingRepository interface {
	Repository
	Rotator
}

// runRotateContract checks Rotate on a backend. count reports how many
// token records the backend holds.
func runRotateContract(t *testing.T, newRepo func(t *testing.T) (rotatingRepository, func() int)) {
	t.Helper()

	seed := func(t *testing.T, r Repository, expires time.Time) {
		t.Helper()
		require.NoError(t, r.Save(context.Background(), &models.RefreshToken{UserID: "u1", Token: "old", ExpiresAt: expires}))
	}

	t.Run("rotates active token", func(t *testing.T) {
		ctx := context.Background()
		r, count := newRepo(t)
		seed(t, r, time.Now().Add(time.Hour))

		at := time.Now()
		next := &models.RefreshToken{UserID: "u1", Token: "new", ExpiresAt: at.Add(time.Hour)}
		require.NoError(t, r.Rotate(ctx, "old", next, at))
		assert.NotEmpty(t, next.ID)

		old, err := r.FindByToken(ctx, "old")
		require.NoError(t, err)
		require.NotNil(t, old.RevokedAt)
		assert.Equal(t, at.UnixNano(), old.RevokedAt.UnixNano())

		got, err := r.FindByToken(ctx, "new")
		require.NoError(t, err)
		assert.Equal(t, next.ID, got.ID)
		assert.True(t, got.IsValid(at))
		assert.Equal(t, 2, count())
	})

	inactive := []struct {
		name    string
		prepare func(t *testing.T, r Repository) time.Time
	}{
		{"unknown", func(t *testing.T, r Repository) time.Time { return time.Now() }},
		{"revoked", func(t *testing.T, r Repository) time.Time {
			seed(t, r, time.Now().Add(time.Hour))
			_, err := r.RevokeByToken(context.Background(), "old", time.Now())
			require.NoError(t, err)
			return time.Now()
		}},
		{"expired", func(t *testing.T, r Repository) time.Time {
			expires := time.Now().Add(time.Minute)
			seed(t, r, expires)
			return expires
		}},
	}
	for _, tc := range inactive {
		t.Run("not active: "+tc.name, func(t *testing.T) {
			ctx := context.Background()
			r, count := newRepo(t)
			at := tc.prepare(t, r)
			before := count()

			next := &models.RefreshToken{UserID: "u1", Token: "new", ExpiresAt: at.Add(time.Hour)}
			err := r.Rotate(ctx, "old", next, at)
			assert.ErrorIs(t, err, ErrNotActive)

			_, err = r.FindByToken(ctx, "new")
			assert.ErrorIs(t, err, common.ErrorNotFound)
			assert.Equal(t, before, count())
		})
	}

	t.Run("concurrent rotations store one successor", func(t *testing.T) {
		ctx := context.Background()
		r, count := newRepo(t)
		seed(t, r, time.Now().Add(time.Hour))

		const workers = 16
		var (
			wg       sync.WaitGroup
			start    = make(chan struct{})
			wins     atomic.Int32
			inactive atomic.Int32
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				next := &models.RefreshToken{
					UserID:    "u1",
					Token:     fmt.Sprintf("next-%d", i),
					ExpiresAt: time.Now().Add(time.Hour),
				}
				err := r.Rotate(ctx, "old", next, time.Now())
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, ErrNotActive):
					inactive.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
		assert.Equal(t, int32(workers-1), inactive.Load())
		assert.Equal(t, 2, count())
	})
}
