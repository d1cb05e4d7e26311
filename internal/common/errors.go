// Package common defines shared constants, sentinel errors and the domain
// error taxonomy used across the gophauth server and client. Callers should
// use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Token parsing errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Stable machine-readable error codes rendered at the transport boundary.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailAlreadyExists = "EMAIL_ALREADY_EXISTS"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeInvalidEmail       = "INVALID_EMAIL"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeForbidden          = "FORBIDDEN"
	CodeInternal           = "INTERNAL_ERROR"
)

// DomainError is a typed failure carrying everything a transport needs to
// render it: an HTTP-style status code, a stable error code and a
// human-readable message.
//
// Two DomainErrors match under errors.Is when their codes are equal, so
// callers can compare against the package-level values regardless of the
// message an individual error was built with.
type DomainError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrInvalidCredentials = &DomainError{StatusCode: http.StatusUnauthorized, Code: CodeInvalidCredentials, Message: "Invalid credentials"}
	ErrEmailAlreadyExists = &DomainError{StatusCode: http.StatusConflict, Code: CodeEmailAlreadyExists, Message: "Email already exists"}
	ErrUserNotFound       = &DomainError{StatusCode: http.StatusNotFound, Code: CodeUserNotFound, Message: "User not found"}
	ErrInvalidEmail       = &DomainError{StatusCode: http.StatusBadRequest, Code: CodeInvalidEmail, Message: "Invalid email format"}
	ErrTokenInvalid       = &DomainError{StatusCode: http.StatusUnauthorized, Code: CodeTokenInvalid, Message: "Invalid or expired token"}
	ErrValidationFailed   = &DomainError{StatusCode: http.StatusBadRequest, Code: CodeValidationFailed, Message: "Validation failed"}
	ErrForbidden          = &DomainError{StatusCode: http.StatusForbidden, Code: CodeForbidden, Message: "Forbidden"}
)

// NewEmailAlreadyExists builds an EMAIL_ALREADY_EXISTS error naming the email.
func NewEmailAlreadyExists(email string) *DomainError {
	return &DomainError{
		StatusCode: http.StatusConflict,
		Code:       CodeEmailAlreadyExists,
		Message:    fmt.Sprintf("User with email %s already exists", email),
	}
}

// NewUserNotFound builds a USER_NOT_FOUND error naming the user id.
func NewUserNotFound(userID string) *DomainError {
	return &DomainError{
		StatusCode: http.StatusNotFound,
		Code:       CodeUserNotFound,
		Message:    fmt.Sprintf("User with id %s not found", userID),
	}
}

// NewInvalidEmail builds an INVALID_EMAIL error echoing the rejected input.
func NewInvalidEmail(raw string) *DomainError {
	return &DomainError{
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidEmail,
		Message:    fmt.Sprintf("Invalid email format: %s", raw),
	}
}

// NewValidationFailed builds a VALIDATION_FAILED error with a custom message.
func NewValidationFailed(msg string) *DomainError {
	return &DomainError{
		StatusCode: http.StatusBadRequest,
		Code:       CodeValidationFailed,
		Message:    msg,
	}
}

// AsDomainError extracts a *DomainError from err's chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
