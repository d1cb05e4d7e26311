// Package services contains application services for the gophauth client.
// This file defines the authentication service: register, login, resume a
// saved session, refresh, logout and profile lookup, keeping the local
// session cache in step with the tokens the server hands out.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/repositories/session"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register / Login: obtain a token pair and remember the session.
//   - Resume: restore the saved session and exchange its refresh token.
//   - Refresh: rotate the current pair.
//   - Logout: revoke the refresh token and forget the session.
//   - Me: fetch the signed-in profile.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Register(ctx context.Context, email string, password []byte) error
	Login(ctx context.Context, email string, password []byte) error
	Resume(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.Profile, error)
	Close(ctx context.Context) error
}

type authService struct {
	client   client.Client
	sessions session.Repository
	email    string
}

func NewAuthService(c client.Client, sessions session.Repository) AuthService {
	return &authService{client: c, sessions: sessions}
}

func (a *authService) Register(ctx context.Context, email string, password []byte) error {
	if err := a.client.Register(ctx, email, password); err != nil {
		return fmt.Errorf("register error: %w", err)
	}
	a.email = email
	return a.remember(ctx)
}

func (a *authService) Login(ctx context.Context, email string, password []byte) error {
	if err := a.client.Login(ctx, email, password); err != nil {
		return fmt.Errorf("login error: %w", err)
	}
	a.email = email
	return a.remember(ctx)
}

// Resume restores the saved session and returns its email. A session the
// server no longer accepts is dropped from the cache.
func (a *authService) Resume(ctx context.Context) (string, error) {
	s, err := a.sessions.Load(ctx)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", client.ErrNotLoggedIn
	}

	a.client.SetRefreshToken(s.RefreshToken)
	if err := a.client.Refresh(ctx); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.client.SetRefreshToken("")
			if cerr := a.sessions.Clear(ctx); cerr != nil {
				return "", cerr
			}
		}
		return "", fmt.Errorf("resume error: %w", err)
	}

	a.email = s.Email
	return s.Email, a.remember(ctx)
}

func (a *authService) Refresh(ctx context.Context) error {
	if err := a.client.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh error: %w", err)
	}
	return a.remember(ctx)
}

func (a *authService) Logout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		return fmt.Errorf("logout error: %w", err)
	}
	a.email = ""
	return a.sessions.Clear(ctx)
}

// Me may rotate the pair on the way, so the cache is updated afterwards.
func (a *authService) Me(ctx context.Context) (*models.Profile, error) {
	before := a.client.RefreshToken()
	p, err := a.client.Me(ctx)
	if err != nil {
		return nil, err
	}
	if a.client.RefreshToken() != before {
		if err := a.remember(ctx); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}

func (a *authService) remember(ctx context.Context) error {
	if err := a.sessions.Save(ctx, models.Session{Email: a.email, RefreshToken: a.client.RefreshToken()}); err != nil {
		return fmt.Errorf("session saving error: %w", err)
	}
	return nil
}
