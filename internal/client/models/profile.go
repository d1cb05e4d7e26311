// Package models holds the client-side view of server data.
package models

import "time"

// Profile is the signed-in identity as reported by the server.
type Profile struct {
	ID        string
	Email     string
	Role      string
	CreatedAt time.Time
}

type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Session is what the CLI keeps between runs.
type Session struct {
	Email        string
	RefreshToken string
}
