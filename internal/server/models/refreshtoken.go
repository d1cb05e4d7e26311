package models

import "time"

// RefreshToken is the persisted record behind a refresh token string.
//
// A record is created active, may be revoked exactly once and is never
// deleted by the application: a replayed token is then seen as "known but
// invalid" rather than "unknown".
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsValid is the only acceptance rule for refresh tokens: not revoked and not
// yet expired at now.
func (t *RefreshToken) IsValid(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}

// Revoke marks the record revoked at the given instant. Revoking an already
// revoked record keeps the original timestamp.
func (t *RefreshToken) Revoke(at time.Time) {
	if t.RevokedAt != nil {
		return
	}
	revokedAt := at
	t.RevokedAt = &revokedAt
	t.UpdatedAt = at
}
