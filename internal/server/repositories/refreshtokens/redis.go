package refreshtokens

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Each record is a hash under <prefix>:tok:<token>; <prefix>:id:<id> maps
// the record id back to its token so saves can be keyed by id.
const saveScript = `
local owner = redis.call("HGET", KEYS[1], "id")
if owner and owner ~= ARGV[1] then
  return redis.error_reply("ERR token belongs to another record")
end
local known = redis.call("GET", KEYS[2])
if known and known ~= ARGV[3] then
  return redis.error_reply("ERR record id bound to another token")
end
redis.call("HSET", KEYS[1],
  "id", ARGV[1],
  "user_id", ARGV[2],
  "token", ARGV[3],
  "expires_at", ARGV[4],
  "revoked_at", ARGV[5],
  "updated_at", ARGV[7])
redis.call("HSETNX", KEYS[1], "created_at", ARGV[6])
redis.call("SET", KEYS[2], ARGV[3])
local ttl = tonumber(ARGV[8])
if ttl > 0 then
  redis.call("PEXPIRE", KEYS[1], ttl)
  redis.call("PEXPIRE", KEYS[2], ttl)
end
return 1
`

const revokeScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local revoked = redis.call("HGET", KEYS[1], "revoked_at")
if revoked and revoked ~= "" then
  return 0
end
redis.call("HSET", KEYS[1], "revoked_at", ARGV[1], "updated_at", ARGV[1])
return 1
`

// rotateScript revokes the active record under KEYS[1] and stores its
// successor under KEYS[2]/KEYS[3] in one step. Timestamps are decimal
// nanoseconds; comparing them by length first keeps the check exact.
// Returns 1 when rotated and 0 when the old token is not active.
const rotateScript = `
local function before(a, b)
  if #a ~= #b then
    return #a < #b
  end
  return a < b
end
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local revoked = redis.call("HGET", KEYS[1], "revoked_at")
if revoked and revoked ~= "" then
  return 0
end
local expires = redis.call("HGET", KEYS[1], "expires_at")
if not expires or not before(ARGV[1], expires) then
  return 0
end
if redis.call("EXISTS", KEYS[2]) == 1 or redis.call("EXISTS", KEYS[3]) == 1 then
  return redis.error_reply("ERR successor already stored")
end
redis.call("HSET", KEYS[1], "revoked_at", ARGV[1], "updated_at", ARGV[1])
redis.call("HSET", KEYS[2],
  "id", ARGV[2],
  "user_id", ARGV[3],
  "token", ARGV[4],
  "expires_at", ARGV[5],
  "revoked_at", "",
  "created_at", ARGV[6],
  "updated_at", ARGV[6])
redis.call("SET", KEYS[3], ARGV[4])
local ttl = tonumber(ARGV[7])
if ttl > 0 then
  redis.call("PEXPIRE", KEYS[2], ttl)
  redis.call("PEXPIRE", KEYS[3], ttl)
end
return 1
`

var (
	saveLua   = redis.NewScript(saveScript)
	revokeLua = redis.NewScript(revokeScript)
	rotateLua = redis.NewScript(rotateScript)
)

// RedisRepository stores refresh tokens in Redis. Every mutating operation
// is a Lua script, so each one is atomic on the server regardless of how
// many processes share the instance.
//
// With a positive retention a record is dropped by Redis that long after
// its expiry; zero keeps records forever.
type RedisRepository struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

func NewRedisRepository(client redis.UniversalClient, prefix string, retention time.Duration) *RedisRepository {
	if prefix == "" {
		prefix = "rt"
	}
	return &RedisRepository{
		redis:     client,
		prefix:    prefix,
		retention: retention,
		now:       time.Now,
	}
}

func (r *RedisRepository) tokenKey(token string) string {
	return r.prefix + ":tok:" + token
}

func (r *RedisRepository) idKey(id string) string {
	return r.prefix + ":id:" + id
}

func (r *RedisRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	fields, err := r.redis.HGetAll(ctx, r.tokenKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, common.ErrorNotFound
	}
	return decodeRecord(fields)
}

func (r *RedisRepository) Save(ctx context.Context, rec *models.RefreshToken) error {
	now := r.now().UTC()
	stamp(rec, now)

	keys := []string{r.tokenKey(rec.Token), r.idKey(rec.ID)}
	err := saveLua.Run(ctx, r.redis, keys,
		rec.ID,
		rec.UserID,
		rec.Token,
		encodeTime(&rec.ExpiresAt),
		encodeTime(rec.RevokedAt),
		encodeTime(&rec.CreatedAt),
		encodeTime(&rec.UpdatedAt),
		r.ttl(rec, now),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (r *RedisRepository) RevokeByToken(ctx context.Context, token string, at time.Time) (bool, error) {
	n, err := revokeLua.Run(ctx, r.redis, []string{r.tokenKey(token)}, encodeTime(&at)).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

// Rotate revokes oldToken and stores next in a single script run. It
// returns ErrNotActive when oldToken is unknown, revoked or expired at at.
func (r *RedisRepository) Rotate(ctx context.Context, oldToken string, next *models.RefreshToken, at time.Time) error {
	now := r.now().UTC()
	stamp(next, now)
	next.RevokedAt = nil

	keys := []string{r.tokenKey(oldToken), r.tokenKey(next.Token), r.idKey(next.ID)}
	n, err := rotateLua.Run(ctx, r.redis, keys,
		encodeTime(&at),
		next.ID,
		next.UserID,
		next.Token,
		encodeTime(&next.ExpiresAt),
		encodeTime(&now),
		r.ttl(next, now),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if n == 0 {
		return ErrNotActive
	}
	return nil
}

// ttl is the key lifetime in milliseconds for rec, or zero for none.
func (r *RedisRepository) ttl(rec *models.RefreshToken, now time.Time) int64 {
	if r.retention <= 0 {
		return 0
	}
	ttl := rec.ExpiresAt.Add(r.retention).Sub(now).Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}
	return ttl
}

func encodeTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return strconv.FormatInt(t.UnixNano(), 10)
}

func decodeTime(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n).UTC(), nil
}

func decodeRecord(fields map[string]string) (*models.RefreshToken, error) {
	rec := &models.RefreshToken{
		ID:     fields["id"],
		UserID: fields["user_id"],
		Token:  fields["token"],
	}

	var err error
	if rec.ExpiresAt, err = decodeTime(fields["expires_at"]); err != nil {
		return nil, fmt.Errorf("corrupt expires_at: %w", err)
	}
	if rec.CreatedAt, err = decodeTime(fields["created_at"]); err != nil {
		return nil, fmt.Errorf("corrupt created_at: %w", err)
	}
	if rec.UpdatedAt, err = decodeTime(fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("corrupt updated_at: %w", err)
	}
	if v := fields["revoked_at"]; v != "" {
		t, err := decodeTime(v)
		if err != nil {
			return nil, fmt.Errorf("corrupt revoked_at: %w", err)
		}
		rec.RevokedAt = &t
	}

	return rec, nil
}
