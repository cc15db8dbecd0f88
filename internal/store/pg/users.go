package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hrcore.io/internal/auth"
	"hrcore.io/internal/authz"
	"hrcore.io/internal/directory"
)

// UserRepo implements auth.UserStore.
type UserRepo struct {
	db *sql.DB
}

// Users returns the user repository.
func (s *Store) Users() *UserRepo { return &UserRepo{db: s.db} }

var _ auth.UserStore = (*UserRepo)(nil)

const userColumns = `id, email, role, coalesce(company_id, ''), coalesce(employee_id, ''),
	active, must_change_password, password_hash, password_updated_at,
	coalesce(reset_token_hash, ''), reset_token_expires_at,
	failed_logins, locked_until, created_at, updated_at`

func (r *UserRepo) Create(ctx context.Context, u *auth.User) error {
	_, err := r.db.ExecContext(ctx, `
		insert into users (id, email, role, company_id, employee_id, active,
			must_change_password, password_hash, password_updated_at)
		values ($1, $2, $3, nullif($4, ''), nullif($5, ''), $6, $7, $8, $9)
	`, u.ID, u.Email, string(u.Role), u.CompanyID, u.EmployeeID, u.Active,
		u.MustChangePassword, u.PasswordHash, u.PasswordUpdatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return directory.ErrConflict
	}
	return err
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*auth.User, error) {
	row := r.db.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id)
	return scanUser(row)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.db.QueryRowContext(ctx, `select `+userColumns+` from users where email = $1`, email)
	return scanUser(row)
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string, mustChange bool) error {
	res, err := r.db.ExecContext(ctx, `
		update users
		set password_hash = $2, must_change_password = $3,
			password_updated_at = now(), updated_at = now()
		where id = $1
	`, userID, passwordHash, mustChange)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *UserRepo) SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		update users
		set reset_token_hash = $2, reset_token_expires_at = $3, updated_at = now()
		where id = $1
	`, userID, tokenHash, expiresAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ConsumeResetToken is a single conditional update. The reset_token_hash
// predicate makes tokens single-use: a second attempt with the same token
// matches zero rows.
func (r *UserRepo) ConsumeResetToken(ctx context.Context, userID, tokenHash, newPasswordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		update users
		set password_hash = $3, must_change_password = false,
			reset_token_hash = null, reset_token_expires_at = null,
			failed_logins = 0, password_updated_at = now(), updated_at = now()
		where id = $1 and reset_token_hash = $2
	`, userID, tokenHash, newPasswordHash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// RecordFailedLogin increments the counter and arms the lock in one
// statement, so concurrent failures cannot race past the threshold.
func (r *UserRepo) RecordFailedLogin(ctx context.Context, userID string, threshold int, lockFor time.Duration) (int, time.Time, error) {
	var (
		failures    int
		lockedUntil sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		update users
		set failed_logins = failed_logins + 1,
			locked_until = case
				when failed_logins + 1 >= $2 then now() + make_interval(secs => $3)
				else locked_until
			end,
			updated_at = now()
		where id = $1
		returning failed_logins, locked_until
	`, userID, threshold, lockFor.Seconds()).Scan(&failures, &lockedUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, auth.ErrNotFound
	}
	if err != nil {
		return 0, time.Time{}, err
	}
	if lockedUntil.Valid {
		return failures, lockedUntil.Time, nil
	}
	return failures, time.Time{}, nil
}

// ResetFailedLogins zeroes the counter. locked_until is left untouched, so a
// success after the window expired does not shorten a still-armed lock.
func (r *UserRepo) ResetFailedLogins(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		update users set failed_logins = 0, updated_at = now() where id = $1
	`, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *UserRepo) Deactivate(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		update users set active = false, updated_at = now() where id = $1
	`, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*auth.User, error) {
	var (
		u           auth.User
		role        string
		resetExpiry sql.NullTime
		lockedUntil sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &role, &u.CompanyID, &u.EmployeeID,
		&u.Active, &u.MustChangePassword, &u.PasswordHash, &u.PasswordUpdatedAt,
		&u.ResetTokenHash, &resetExpiry,
		&u.FailedLogins, &lockedUntil, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = authz.Role(role)
	if resetExpiry.Valid {
		u.ResetTokenExpiresAt = resetExpiry.Time
	}
	if lockedUntil.Valid {
		u.LockedUntil = lockedUntil.Time
	}
	return &u, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}
