package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// MemoryRepository is the in-process reference store. Every operation runs
// under one mutex, which makes Save, RevokeByToken and Rotate linearizable
// within a single process.
type MemoryRepository struct {
	mu      sync.Mutex
	byToken map[string]models.RefreshToken
	tokenOf map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byToken: make(map[string]models.RefreshToken),
		tokenOf: make(map[string]string),
	}
}

func (r *MemoryRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byToken[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneRecord(rec), nil
}

func (r *MemoryRepository) Save(ctx context.Context, rec *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stamp(rec, time.Now().UTC())

	if prev, ok := r.tokenOf[rec.ID]; ok {
		stored := r.byToken[prev]
		stored.RevokedAt = copyTime(rec.RevokedAt)
		stored.UpdatedAt = rec.UpdatedAt
		r.byToken[prev] = stored
		return nil
	}

	if _, taken := r.byToken[rec.Token]; taken {
		return common.ErrorAlreadyExists
	}

	r.byToken[rec.Token] = *cloneRecord(*rec)
	r.tokenOf[rec.ID] = rec.Token
	return nil
}

func (r *MemoryRepository) RevokeByToken(ctx context.Context, token string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byToken[token]
	if !ok || rec.RevokedAt != nil {
		return false, nil
	}
	rec.Revoke(at)
	r.byToken[token] = rec
	return true, nil
}

// Rotate revokes oldToken and stores next under the same lock, so no
// other caller can observe one step without the other.
func (r *MemoryRepository) Rotate(ctx context.Context, oldToken string, next *models.RefreshToken, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byToken[oldToken]
	if !ok || !old.IsValid(at) {
		return ErrNotActive
	}

	stamp(next, time.Now().UTC())
	next.RevokedAt = nil
	if _, taken := r.byToken[next.Token]; taken {
		return common.ErrorAlreadyExists
	}
	if _, known := r.tokenOf[next.ID]; known {
		return common.ErrorAlreadyExists
	}

	old.Revoke(at)
	r.byToken[oldToken] = old
	r.byToken[next.Token] = *cloneRecord(*next)
	r.tokenOf[next.ID] = next.Token
	return nil
}

func cloneRecord(rec models.RefreshToken) *models.RefreshToken {
	rec.RevokedAt = copyTime(rec.RevokedAt)
	return &rec
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
