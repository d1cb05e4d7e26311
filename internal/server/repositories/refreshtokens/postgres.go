package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository stores refresh tokens in the refresh_tokens table over
// dbx.DBTX (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	query :=
		`SELECT id, user_id, token, expires_at, revoked_at, created_at, updated_at
		 FROM refresh_tokens
		 WHERE token = $1
		 `

	var (
		rec       models.RefreshToken
		revokedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, token).
		Scan(&rec.ID, &rec.UserID, &rec.Token, &rec.ExpiresAt, &revokedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if revokedAt.Valid {
		t := revokedAt.Time
		rec.RevokedAt = &t
	}

	return &rec, nil
}

func (r *PostgresRepository) Save(ctx context.Context, rec *models.RefreshToken) error {
	return save(ctx, r.db, rec)
}

func save(ctx context.Context, db dbx.DBTX, rec *models.RefreshToken) error {
	stamp(rec, time.Now().UTC())

	query :=
		`INSERT INTO refresh_tokens (id, user_id, token, expires_at, revoked_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE
		 SET revoked_at = EXCLUDED.revoked_at, updated_at = EXCLUDED.updated_at
		 `

	_, err := db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.Token, rec.ExpiresAt, nullTime(rec.RevokedAt), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) RevokeByToken(ctx context.Context, token string, at time.Time) (bool, error) {
	return revoke(ctx, r.db, token, at, false)
}

// revoke performs the conditional update. With onlyUnexpired set the row
// must also still be within its lifetime at the given instant.
func revoke(ctx context.Context, db dbx.DBTX, token string, at time.Time, onlyUnexpired bool) (bool, error) {
	query :=
		`UPDATE refresh_tokens
		 SET revoked_at = $2, updated_at = $2
		 WHERE token = $1 AND revoked_at IS NULL
		 `
	args := []any{token, at}
	if onlyUnexpired {
		query += `AND expires_at > $2
		 `
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	ok, err := dbx.Affected(res)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// Rotate revokes oldToken and inserts next in one transaction. When the
// repository is already bound to a transaction the statements join it.
func (r *PostgresRepository) Rotate(ctx context.Context, oldToken string, next *models.RefreshToken, at time.Time) error {
	rotate := func(ctx context.Context, tx dbx.DBTX) error {
		ok, err := revoke(ctx, tx, oldToken, at, true)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotActive
		}
		return save(ctx, tx, next)
	}

	if db, ok := r.db.(*sql.DB); ok {
		return dbx.WithTx(ctx, db, nil, rotate)
	}
	return rotate(ctx, r.db)
}

func stamp(rec *models.RefreshToken, now time.Time) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
