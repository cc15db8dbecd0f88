package auth

import (
	"context"
	"time"

	"hrcore.io/internal/authz"
)

// User is the durable account record. Users are deactivated, never hard
// deleted. A non-root role must carry a company id before it can act on
// tenant-scoped routes.
type User struct {
	ID                  string
	Email               string
	Role                authz.Role
	CompanyID           string // empty for root accounts
	EmployeeID          string // set when the account backs an employee record
	Active              bool
	MustChangePassword  bool
	PasswordHash        string
	PasswordUpdatedAt   time.Time
	ResetTokenHash      string
	ResetTokenExpiresAt time.Time
	FailedLogins        int
	LockedUntil         time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// UserStore describes persistence operations required by the auth subsystem.
// Implementations must make RecordFailedLogin and ConsumeResetToken
// read-modify-write atomic: two concurrent failed attempts may not race past
// the lockout threshold, and a reset token may not be consumed twice.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePassword replaces the hash and the must-change flag.
	UpdatePassword(ctx context.Context, userID, passwordHash string, mustChange bool) error

	// SetResetToken stores a new token hash and expiry, replacing any prior
	// token in the same write.
	SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// ConsumeResetToken sets the new password hash and clears the token in
	// one conditional write. It returns ErrNotFound when tokenHash no longer
	// matches the stored value, which makes tokens single-use.
	ConsumeResetToken(ctx context.Context, userID, tokenHash, newPasswordHash string) error

	// RecordFailedLogin increments the failure counter and, when the counter
	// reaches threshold, sets the lock expiry, all in a single atomic
	// update. It returns the post-update counter and lock expiry.
	RecordFailedLogin(ctx context.Context, userID string, threshold int, lockFor time.Duration) (int, time.Time, error)

	// ResetFailedLogins zeroes the counter without clearing an unexpired lock.
	ResetFailedLogins(ctx context.Context, userID string) error

	Deactivate(ctx context.Context, userID string) error
}
