package cli

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	err   error
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(ctx context.Context) error {
	f.calls = append(f.calls, "register")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Refresh(ctx context.Context) error {
	f.calls = append(f.calls, "refresh")
	return f.err
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}
func (f *fakeExec) Me(ctx context.Context) error { f.calls = append(f.calls, "me"); return f.err }

func capturePrint(t *testing.T) *strings.Builder {
	t.Helper()
	var sb strings.Builder
	orig := printFn
	printFn = func(a ...any) (int, error) {
		for _, v := range a {
			sb.WriteString(v.(string))
		}
		return 0, nil
	}
	t.Cleanup(func() { printFn = orig })
	return &sb
}

func TestRunREPL_Commands(t *testing.T) {
	out := capturePrint(t)

	input := strings.Join([]string{
		"help",
		"",
		"login",
		"help",
		"me",
		"refresh",
		"logout",
		"register",
		"bogus",
		"exit",
		"me",
	}, "\n") + "\n"

	f := &fakeExec{}
	runREPL(context.Background(), f, func() string { return "" }, bufio.NewReader(strings.NewReader(input)))

	assert.Equal(t, []string{"login", "me", "refresh", "logout", "register"}, f.calls)
	s := out.String()
	assert.Contains(t, s, "Available commands: register, login, exit")
	assert.Contains(t, s, "Available commands: me, refresh, logout, exit")
	assert.Contains(t, s, "Unknown command: bogus")
	assert.Contains(t, s, "Bye!")
}

func TestRunREPL_PrintsErrorsAndContinues(t *testing.T) {
	out := capturePrint(t)

	f := &fakeExec{loggedIn: true, err: errors.New("boom")}
	runREPL(context.Background(), f, func() string { return "(a@b.c online)" },
		bufio.NewReader(strings.NewReader("me\nrefresh\nquit\n")))

	assert.Equal(t, []string{"me", "refresh"}, f.calls)
	assert.Equal(t, 2, strings.Count(out.String(), "Error: boom"))
	assert.Contains(t, out.String(), "gauth (a@b.c online)> ")
}

func TestRunREPL_EOFStops(t *testing.T) {
	capturePrint(t)

	f := &fakeExec{}
	runREPL(context.Background(), f, func() string { return "" }, bufio.NewReader(strings.NewReader("whoami")))

	assert.Equal(t, []string{"me"}, f.calls)
}
