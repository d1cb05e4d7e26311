// Package services holds the server-side business logic: UserService owns
// identities and SessionService composes credential verification, token
// issuance and the refresh-token store into Login, RegisterAndLogin,
// Refresh and Logout.
package services
