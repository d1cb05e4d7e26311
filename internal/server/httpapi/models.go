package httpapi

import (
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type profileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toProfileResponse(u *models.User) profileResponse {
	return profileResponse{
		ID:        u.ID,
		Email:     u.Email.String(),
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.UTC(),
	}
}
