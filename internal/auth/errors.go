package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"hrcore.io/internal/credential"
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password and invalid
	// or expired reset tokens alike, so callers cannot probe which accounts
	// exist.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrAccountInactive    = errors.New("auth: account inactive")
	ErrAccountLocked      = errors.New("auth: account locked")
	ErrNotFound           = errors.New("auth: not found")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrWeakPassword       = errors.New("auth: weak password")
)

// LockedError carries the remaining lock duration for legitimate-user
// feedback. It unwraps to ErrAccountLocked.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("auth: account locked until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e *LockedError) Unwrap() error { return ErrAccountLocked }

// WeakPasswordError reports every violated strength rule in one error so the
// caller can present the complete list. It unwraps to ErrWeakPassword.
type WeakPasswordError struct {
	Violations []credential.Violation
}

func (e *WeakPasswordError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message()
	}
	return "auth: weak password: " + strings.Join(msgs, "; ")
}

func (e *WeakPasswordError) Unwrap() error { return ErrWeakPassword }
