package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
)

func (a *App) getStatus() string {
	s := ""
	if a.email != "" {
		s = a.email + " "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// resume picks up the session saved by an earlier run, if any.
func (a *App) resume(ctx context.Context) {
	email, err := a.authService.Resume(ctx)
	a.track(err)
	switch {
	case err == nil:
		a.email = email
		log.Printf("Resumed session for %s", email)
	case errors.Is(err, client.ErrNotLoggedIn):
	default:
		log.Printf("Could not resume session: %s", err.Error())
	}
}

// Root resumes the saved session and runs the REPL until exit.
func (a *App) Root(ctx context.Context) {
	log.Println("Welcome to gophauth CLI (type 'help' for commands)")

	a.resume(ctx)

	runREPL(ctx, a, a.getStatus, a.reader)
}
