package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "hrcore"

// sessionClaims is the minimal claim set. Role and tenant are deliberately
// absent: both are re-resolved from the durable record on every request, so a
// role change or deactivation takes effect without waiting for expiry.
type sessionClaims struct {
	jwt.RegisteredClaims
}

func (s *Service) signSession(userID string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.tokenTTL)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseSession verifies a bearer token and returns the subject user id. Any
// failure surfaces as ErrInvalidToken.
func (s *Service) ParseSession(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.Issuer != issuer {
		return "", ErrInvalidToken
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", ErrInvalidToken
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return "", ErrInvalidToken
	}
	return subject, nil
}

var errMissingSecret = errors.New("auth: signing secret is required")
