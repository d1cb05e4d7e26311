package models

import "time"

// Role is the authorization role attached to an identity and embedded into
// issued tokens.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is an identity as stored by the user-management collaborator.
type User struct {
	ID           string
	Email        Email
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Payload returns the claims embedded into tokens issued for u.
func (u *User) Payload() JwtPayload {
	return JwtPayload{Sub: u.ID, Email: u.Email.String(), Role: u.Role}
}
