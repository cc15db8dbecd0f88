package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"hrcore.io/internal/authz"
	"hrcore.io/internal/credential"
	"hrcore.io/internal/ids"
	"hrcore.io/internal/obs"
)

const (
	defaultTokenTTL      = 8 * time.Hour
	defaultLockThreshold = 5
	defaultLockDuration  = 15 * time.Minute
	defaultResetTTL      = 30 * time.Minute
)

// Notifier delivers freshly generated secrets out of band. Raw tokens and
// temporary passwords cross this boundary exactly once and are never logged.
type Notifier interface {
	PasswordReset(ctx context.Context, email, rawToken string) error
	TemporaryPassword(ctx context.Context, email, rawPassword string) error
}

// NopNotifier discards notifications; used in tests and local setups.
type NopNotifier struct{}

func (NopNotifier) PasswordReset(context.Context, string, string) error     { return nil }
func (NopNotifier) TemporaryPassword(context.Context, string, string) error { return nil }

// Service implements password login with lockout, reset tokens, session
// issuance and principal resolution over a UserStore.
type Service struct {
	users    UserStore
	creds    *credential.Service
	notifier Notifier
	now      func() time.Time

	secret   []byte
	tokenTTL time.Duration

	lockThreshold int
	lockDuration  time.Duration
	resetTTL      time.Duration

	dummyOnce sync.Once
	dummyHash string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithNotifier sets the out-of-band delivery collaborator.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) error {
		if n != nil {
			s.notifier = n
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithTokenTTL configures session lifetime.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
		return nil
	}
}

// WithLockPolicy configures the failed-login threshold and lock duration.
func WithLockPolicy(threshold int, duration time.Duration) ServiceOption {
	return func(s *Service) error {
		if threshold > 0 {
			s.lockThreshold = threshold
		}
		if duration > 0 {
			s.lockDuration = duration
		}
		return nil
	}
}

// WithResetTTL configures reset token lifetime.
func WithResetTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.resetTTL = ttl
		}
		return nil
	}
}

// NewService constructs a Service. secret signs session tokens and must be
// non-empty.
func NewService(users UserStore, creds *credential.Service, secret string, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	if creds == nil {
		return nil, errors.New("auth: credential service is required")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, errMissingSecret
	}
	svc := &Service{
		users:         users,
		creds:         creds,
		notifier:      NopNotifier{},
		now:           time.Now,
		secret:        []byte(secret),
		tokenTTL:      defaultTokenTTL,
		lockThreshold: defaultLockThreshold,
		lockDuration:  defaultLockDuration,
		resetTTL:      defaultResetTTL,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// ResolvePrincipal loads the durable record behind a verified claim subject
// and derives the request-scoped principal. Pure lookup; no state changes.
func (s *Service) ResolvePrincipal(ctx context.Context, subjectID string) (*authz.Principal, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, ErrNotFound
	}
	user, err := s.users.FindByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return principalFor(user), nil
}

func principalFor(user *User) *authz.Principal {
	return &authz.Principal{
		ID:          user.ID,
		Role:        user.Role,
		CompanyID:   user.CompanyID,
		EmployeeID:  user.EmployeeID,
		Active:      user.Active,
		LockedUntil: user.LockedUntil,
	}
}

// Session is the outcome of a successful login.
type Session struct {
	Token              string
	ExpiresAt          time.Time
	MustChangePassword bool
}

// Login authenticates an email/password pair. Unknown email and wrong
// password are indistinguishable; a comparable amount of hash work runs in
// both cases.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, *authz.Principal, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		obs.ObserveLogin("invalid")
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.burnVerification(ctx, password)
			obs.ObserveLogin("invalid")
			return nil, nil, ErrInvalidCredentials
		}
		obs.ObserveLogin("error")
		return nil, nil, fmt.Errorf("auth: lookup user: %w", err)
	}

	now := s.now()
	if now.Before(user.LockedUntil) {
		obs.ObserveLogin("locked")
		return nil, nil, &LockedError{Until: user.LockedUntil}
	}

	if !s.creds.Verify(ctx, user.PasswordHash, password) {
		failures, lockedUntil, err := s.users.RecordFailedLogin(ctx, user.ID, s.lockThreshold, s.lockDuration)
		if err != nil {
			// Infrastructure failure: surface it without counting the
			// attempt again; retrying is the caller's decision.
			obs.ObserveLogin("error")
			return nil, nil, fmt.Errorf("auth: record failed login: %w", err)
		}
		if !lockedUntil.IsZero() && now.Before(lockedUntil) {
			_ = LogLockout(ctx, user.ID, failures, lockedUntil)
		}
		obs.ObserveLogin("invalid")
		return nil, nil, ErrInvalidCredentials
	}

	if !user.Active {
		obs.ObserveLogin("inactive")
		return nil, nil, ErrAccountInactive
	}

	// The counter resets on success; an unexpired lock would already have
	// rejected the attempt above, so nothing is unlocked early here.
	if err := s.users.ResetFailedLogins(ctx, user.ID); err != nil {
		obs.ObserveLogin("error")
		return nil, nil, fmt.Errorf("auth: reset failed logins: %w", err)
	}

	token, expiresAt, err := s.signSession(user.ID, now)
	if err != nil {
		obs.ObserveLogin("error")
		return nil, nil, fmt.Errorf("auth: sign session: %w", err)
	}
	obs.ObserveLogin("success")
	return &Session{
		Token:              token,
		ExpiresAt:          expiresAt,
		MustChangePassword: user.MustChangePassword,
	}, principalFor(user), nil
}

// burnVerification runs one hash verification against a throwaway hash so a
// miss on email costs the same as a wrong password.
func (s *Service) burnVerification(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		h, err := s.creds.Hash(ctx, ids.New())
		if err == nil {
			s.dummyHash = h
		}
	})
	if s.dummyHash != "" {
		_ = s.creds.Verify(ctx, s.dummyHash, password)
	}
}

// RequestPasswordReset issues a reset token when the email belongs to an
// active account. The response is identical for unknown, inactive and active
// accounts; token delivery happens off the request path so response timing
// does not depend on account existence.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	raw, hash, err := credential.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("auth: generate reset token: %w", err)
	}
	if email == "" {
		return nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("auth: lookup user: %w", err)
	}
	if !user.Active {
		return nil
	}

	// SetResetToken replaces any prior token in the same write: at most one
	// token is valid per user at any time.
	expiresAt := s.now().Add(s.resetTTL)
	if err := s.users.SetResetToken(ctx, user.ID, hash, expiresAt); err != nil {
		return fmt.Errorf("auth: store reset token: %w", err)
	}

	go func() {
		nctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = s.notifier.PasswordReset(nctx, user.Email, raw)
	}()
	return nil
}

// ResetPassword consumes a reset token. Tokens are single use: the
// conditional write in ConsumeResetToken fails for a second attempt with the
// same token.
func (s *Service) ResetPassword(ctx context.Context, email, rawToken, newPassword string) error {
	email = NormalizeEmail(email)
	if email == "" || rawToken == "" {
		return ErrInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("auth: lookup user: %w", err)
	}
	if user.ResetTokenHash == "" || s.now().After(user.ResetTokenExpiresAt) {
		return ErrInvalidCredentials
	}
	if !credential.VerifyResetToken(rawToken, user.ResetTokenHash) {
		return ErrInvalidCredentials
	}

	if violations := credential.ValidateStrength(newPassword); len(violations) > 0 {
		return &WeakPasswordError{Violations: violations}
	}
	hash, err := s.creds.Hash(ctx, newPassword)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	if err := s.users.ConsumeResetToken(ctx, user.ID, user.ResetTokenHash, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("auth: consume reset token: %w", err)
	}
	return nil
}

// ChangePassword rotates the password of an authenticated user and clears
// the must-change flag.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("auth: lookup user: %w", err)
	}
	if !s.creds.Verify(ctx, user.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	if violations := credential.ValidateStrength(next); len(violations) > 0 {
		return &WeakPasswordError{Violations: violations}
	}
	hash, err := s.creds.Hash(ctx, next)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, user.ID, hash, false)
}

// NewAccount describes an account to provision.
type NewAccount struct {
	Email      string
	Role       authz.Role
	CompanyID  string
	EmployeeID string
}

// Provision creates an account with a generated temporary password that must
// be changed on first login. The password goes to the Notifier only.
func (s *Service) Provision(ctx context.Context, account NewAccount) (*User, error) {
	email := NormalizeEmail(account.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("auth: valid email is required")
	}
	if !account.Role.Valid() {
		return nil, fmt.Errorf("auth: unknown role %q", account.Role)
	}
	if account.Role != authz.RoleRoot && account.CompanyID == "" {
		return nil, fmt.Errorf("auth: role %s requires a company", account.Role)
	}

	tempPassword, err := credential.GenerateTemporaryPassword()
	if err != nil {
		return nil, fmt.Errorf("auth: generate temporary password: %w", err)
	}
	hash, err := s.creds.Hash(ctx, tempPassword)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	now := s.now().UTC()
	user := &User{
		ID:                 ids.New(),
		Email:              email,
		Role:               account.Role,
		CompanyID:          account.CompanyID,
		EmployeeID:         account.EmployeeID,
		Active:             true,
		MustChangePassword: true,
		PasswordHash:       hash,
		PasswordUpdatedAt:  now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.notifier.TemporaryPassword(ctx, user.Email, tempPassword); err != nil {
		return nil, fmt.Errorf("auth: deliver temporary password: %w", err)
	}
	return user, nil
}

// Deactivate disables an account. Records are never hard-deleted.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	return s.users.Deactivate(ctx, userID)
}

// NormalizeEmail lowercases and trims an address for case-insensitive lookup.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// LogLockout emits the audit entry for a lockout transition. Kept here so
// the store stays free of logging concerns.
func LogLockout(ctx context.Context, userID string, failures int, until time.Time) error {
	obs.Emit(map[string]any{
		"type":     "audit",
		"event":    "auth.account.locked",
		"user_id":  userID,
		"failures": failures,
		"until":    until.UTC().Format(time.RFC3339),
	})
	return nil
}
