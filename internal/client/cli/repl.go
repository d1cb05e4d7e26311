package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printFn is a test seam for the prompt and other user-facing output.
var printFn = fmt.Print

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) error
}

// runREPL reads one command per line from reader and dispatches it to a.
// The loop exits on EOF or when the user types "exit" or "quit".
//
//	Not logged in:  help, register, login, exit
//	Logged in:      help, me, refresh, logout, exit
//
// Errors returned by handlers are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printFn(fmt.Sprintf("gauth %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printFn("Available commands: me, refresh, logout, exit\n")
			} else {
				printFn("Available commands: register, login, exit\n")
			}

		case "register":
			cmdErr = a.Register(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "refresh":
			cmdErr = a.Refresh(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "me", "whoami":
			cmdErr = a.Me(ctx)

		case "exit", "quit":
			printFn("Bye!\n")
			return

		default:
			printFn(fmt.Sprintf("Unknown command: %s\n", cmd))
		}

		if cmdErr != nil {
			printFn(fmt.Sprintf("Error: %s\n", cmdErr.Error()))
		}
	}
}
