package models

import (
	"regexp"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Email is a normalized (trimmed, lower-cased) and syntactically validated
// email address. The zero value is not a valid Email; use NewEmail.
type Email struct {
	value string
}

// NewEmail normalizes raw and validates it. Invalid input yields an
// INVALID_EMAIL domain error.
func NewEmail(raw string) (Email, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if !emailPattern.MatchString(normalized) {
		return Email{}, common.NewInvalidEmail(raw)
	}
	return Email{value: normalized}, nil
}

// MustEmail is NewEmail for values known to be valid, such as rows read back
// from storage. It panics on invalid input.
func MustEmail(raw string) Email {
	e, err := NewEmail(raw)
	if err != nil {
		panic(err)
	}
	return e
}

func (e Email) String() string {
	return e.value
}

func (e Email) Equal(other Email) bool {
	return e.value == other.value
}
