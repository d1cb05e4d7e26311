// Package cli provides the interactive gophauth command-line client.
//
// It wires configuration, the local session cache, the gRPC API client and
// an interactive REPL. On start it tries to resume the saved session; after
// that the user drives it with commands.
//
// Key features:
//   - register / login (password read without echo)
//   - refresh / logout
//   - me (profile of the signed-in user)
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
package cli
