// Package refreshtokens declares the refresh-token store contract and its
// PostgreSQL, Redis and in-memory implementations.
//
// Records are soft-revoked and never deleted by the application, so a
// replayed token is recognized as "known but no longer valid".
package refreshtokens

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// ErrNotActive is returned by Rotate when the token being rotated is
// unknown, expired or was already revoked by a concurrent caller.
var ErrNotActive = errors.New("refresh token is not active")

// Repository persists refresh-token records.
type Repository interface {
	// FindByToken returns the record for token or common.ErrorNotFound.
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// Save upserts rec keyed by its ID. An empty ID is assigned before the
	// first write. Later saves overwrite revoked_at and updated_at.
	Save(ctx context.Context, rec *models.RefreshToken) error

	// RevokeByToken sets revoked_at for an active record. It is a
	// compare-and-set: it reports true only for the caller that performed
	// the transition. Unknown or already revoked tokens yield (false, nil).
	RevokeByToken(ctx context.Context, token string, at time.Time) (bool, error)
}

// Rotator is implemented by stores that can revoke the presented token and
// persist its successor as one atomic step.
type Rotator interface {
	// Rotate revokes oldToken and saves next, or does neither. It returns
	// ErrNotActive when oldToken is no longer active at the given instant.
	Rotate(ctx context.Context, oldToken string, next *models.RefreshToken, at time.Time) error
}
