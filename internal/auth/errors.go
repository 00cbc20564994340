package auth

import (
	"errors"
	"fmt"
)

// The orchestrator surfaces a closed set of failures. Boundary layers
// match these with errors.Is and map them to transport status codes;
// nothing should ever branch on error strings.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password does not meet strength requirements")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is locked due to failed login attempts")
	ErrAccountDeactivated = errors.New("account is deactivated")
	ErrEmailNotVerified   = errors.New("email address is not verified")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenUsed          = errors.New("token has already been used")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrTokenNotFound      = errors.New("token not found")
	ErrSamePassword       = errors.New("new password must differ from the current password")
	ErrNotFound           = errors.New("not found")
)

// PolicyViolation reports which password rule failed. It unwraps to
// ErrWeakPassword so callers that don't care about the rule can treat
// every violation uniformly.
type PolicyViolation struct {
	Rule    string
	Message string
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("weak password: %s", e.Message)
}

func (e *PolicyViolation) Unwrap() error {
	return ErrWeakPassword
}
