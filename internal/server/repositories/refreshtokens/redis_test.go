package refreshtokens

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRepoTest(t *testing.T, retention time.Duration) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisRepository(rdb, "rt", retention), mr
}

func TestRedisRepository_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Repository {
		repo, _ := newRedisRepoTest(t, 0)
		return repo
	})
}

func TestRedisRepository_ConcurrentRevoke(t *testing.T) {
	repo, _ := newRedisRepoTest(t, 0)
	runConcurrentRevoke(t, repo)
}

func TestRedisRepository_KeyLayout(t *testing.T) {
	repo, mr := newRedisRepoTest(t, 0)

	rec := &models.RefreshToken{ID: "r1", UserID: "u1", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Save(context.Background(), rec))

	assert.True(t, mr.Exists("rt:tok:tok"))
	got, err := mr.Get("rt:id:r1")
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
	assert.Equal(t, "u1", mr.HGet("rt:tok:tok", "user_id"))
	assert.Equal(t, "", mr.HGet("rt:tok:tok", "revoked_at"))
	assert.Equal(t, time.Duration(0), mr.TTL("rt:tok:tok"))
}

func TestRedisRepository_RetentionSetsTTL(t *testing.T) {
	repo, mr := newRedisRepoTest(t, 24*time.Hour)

	rec := &models.RefreshToken{UserID: "u1", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Save(context.Background(), rec))

	ttl := mr.TTL("rt:tok:tok")
	assert.Greater(t, ttl, 24*time.Hour)
	assert.LessOrEqual(t, ttl, 25*time.Hour)

	mr.FastForward(26 * time.Hour)
	_, err := repo.FindByToken(context.Background(), "tok")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRedisRepository_TokenOwnedByOtherRecord(t *testing.T) {
	repo, _ := newRedisRepoTest(t, 0)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &models.RefreshToken{ID: "r1", UserID: "u1", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}))
	err := repo.Save(ctx, &models.RefreshToken{ID: "r2", UserID: "u2", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)})
	assert.Error(t, err)

	got, err := repo.FindByToken(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
}

func TestRedisRepository_CorruptRecord(t *testing.T) {
	repo, mr := newRedisRepoTest(t, 0)
	mr.HSet("rt:tok:bad", "id", "r1", "expires_at", "not-a-number")

	_, err := repo.FindByToken(context.Background(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt expires_at")
}

func TestRedisRepository_Unavailable(t *testing.T) {
	repo, mr := newRedisRepoTest(t, 0)
	mr.Close()

	_, err := repo.FindByToken(context.Background(), "tok")
	assert.True(t, errors.Is(err, ErrRedisUnavailable))

	_, err = repo.RevokeByToken(context.Background(), "tok", time.Now())
	assert.True(t, errors.Is(err, ErrRedisUnavailable))
}

// tokenRecords counts refresh-token hashes under the "rt" prefix.
func tokenRecords(mr *miniredis.Miniredis) int {
	n := 0
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, "rt:tok:") {
			n++
		}
	}
	return n
}

func TestRedisRepository_Rotate(t *testing.T) {
	runRotateContract(t, func(t *testing.T) (rotatingRepository, func() int) {
		repo, mr := newRedisRepoTest(t, 0)
		return repo, func() int { return tokenRecords(mr) }
	})
}

func TestRedisRepository_RotateSetsRetention(t *testing.T) {
	repo, mr := newRedisRepoTest(t, 24*time.Hour)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &models.RefreshToken{UserID: "u1", Token: "old", ExpiresAt: time.Now().Add(time.Hour)}))

	next := &models.RefreshToken{ID: "r2", UserID: "u1", Token: "new", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Rotate(ctx, "old", next, time.Now()))

	assert.Greater(t, mr.TTL("rt:tok:new"), 24*time.Hour)
	assert.Greater(t, mr.TTL("rt:id:r2"), 24*time.Hour)
	got, err := mr.Get("rt:id:r2")
	require.NoError(t, err)
	assert.Equal(t, "new", got)
}

func TestRedisRepository_RotateRejectsTakenSuccessor(t *testing.T) {
	repo, _ := newRedisRepoTest(t, 0)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &models.RefreshToken{UserID: "u1", Token: "old", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, repo.Save(ctx, &models.RefreshToken{UserID: "u1", Token: "taken", ExpiresAt: time.Now().Add(time.Hour)}))

	err := repo.Rotate(ctx, "old", &models.RefreshToken{UserID: "u1", Token: "taken", ExpiresAt: time.Now().Add(time.Hour)}, time.Now())
	require.Error(t, err)

	old, err := repo.FindByToken(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, old.RevokedAt)
}
