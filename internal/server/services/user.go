package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// UserService creates and reads identities.
type UserService struct {
	users  users.Repository
	hasher auth.PasswordHasher
	log    logging.Logger
}

func NewUserService(repo users.Repository, hasher auth.PasswordHasher, log logging.Logger) *UserService {
	if log == nil {
		log = logging.Nop{}
	}
	return &UserService{users: repo, hasher: hasher, log: log.With("module", "users")}
}

// Register validates and normalizes the email, hashes the password and
// stores a new USER. Uniqueness is left to the store; a violation surfaces
// as EMAIL_ALREADY_EXISTS.
func (s *UserService) Register(ctx context.Context, rawEmail, password string) (*models.User, error) {
	email, err := models.NewEmail(rawEmail)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, &models.User{Email: email, PasswordHash: hash, Role: models.RoleUser})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.NewEmailAlreadyExists(email.String())
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// GetProfile returns the identity with the given id or USER_NOT_FOUND.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewUserNotFound(userID)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}
