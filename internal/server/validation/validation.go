// Package validation checks request shapes at the transport boundary,
// before anything reaches the session core.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// Policy holds the input rules shared by the HTTP and gRPC transports.
type Policy struct {
	MinPasswordLength int
}

func NewPolicy(minPasswordLength int) Policy {
	if minPasswordLength < 1 {
		minPasswordLength = 1
	}
	return Policy{MinPasswordLength: minPasswordLength}
}

// Credentials checks an email/password pair. Email syntax is left to the
// core, which reports INVALID_EMAIL; here it only has to be present.
func (p Policy) Credentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return common.NewValidationFailed("email is required")
	}
	if utf8.RuneCountInString(password) < p.MinPasswordLength {
		return common.NewValidationFailed(fmt.Sprintf("password must be at least %d characters long", p.MinPasswordLength))
	}
	if len(password) > MaxPasswordBytes {
		return common.NewValidationFailed(fmt.Sprintf("password must be at most %d bytes long", MaxPasswordBytes))
	}
	return nil
}

func (p Policy) RefreshToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return common.NewValidationFailed("refreshToken is required")
	}
	return nil
}
