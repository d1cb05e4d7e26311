// Package client contains client-side building blocks for gophauth.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface):
//     Register, Login, Refresh, Logout and Me.
//  2. A concrete gRPC implementation (see GRPCClient) that keeps the current
//     token pair, injects the access token via an interceptor, refreshes it
//     once when the server rejects it, and maps gRPC status codes to
//     sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) for the CLI
//     session cache, an SQLite database with embedded goose migrations.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized, ErrAlreadyExists,
// ErrInvalidInput, ErrNotLoggedIn.
package client
