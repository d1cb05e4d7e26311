// Package users declares the user repository contract and its PostgreSQL and
// in-memory implementations.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository stores identities. Lookups of absent users return
// common.ErrorNotFound and creating a duplicate email returns
// common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email models.Email) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}
