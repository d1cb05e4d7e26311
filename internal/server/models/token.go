package models

// JwtPayload is the set of application claims embedded in both access and
// refresh tokens.
type JwtPayload struct {
	Sub   string
	Email string
	Role  Role
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
