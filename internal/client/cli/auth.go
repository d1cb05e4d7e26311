package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// credentials prompts for an email and a password. The caller must wipe
// the password.
func (a *App) credentials() (string, []byte, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", nil, err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

// Register creates an account and signs in with it.
func (a *App) Register(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	err = a.authService.Register(ctx, email, password)
	a.track(err)
	if err != nil {
		return err
	}

	a.email = email
	fmt.Fprintln(a.out, "Success!")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	err = a.authService.Login(ctx, email, password)
	a.track(err)
	if err != nil {
		return err
	}

	a.email = email
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	err := a.authService.Refresh(ctx)
	a.track(err)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Tokens refreshed")
	return nil
}

// Logout revokes the session on the server and forgets it locally.
func (a *App) Logout(ctx context.Context) error {
	err := a.authService.Logout(ctx)
	a.track(err)
	if err != nil {
		return err
	}
	a.email = ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Me(ctx context.Context) error {
	p, err := a.authService.Me(ctx)
	a.track(err)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "id:      %s\nemail:   %s\nrole:    %s\ncreated: %s\n",
		p.ID, p.Email, p.Role, p.CreatedAt.Local().Format(time.RFC1123))
	return nil
}
