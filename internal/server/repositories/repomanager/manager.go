// Package repomanager groups the repositories of one storage backend behind
// a single value and owns that backend's lifecycle (migrations, closing).
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	RefreshTokens() refreshtokens.Repository
	Close() error
}
