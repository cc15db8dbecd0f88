package credential

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"unicode"
)

// Violation names one failed password rule.
type Violation string

const (
	ViolationTooShort  Violation = "too_short"
	ViolationNoLower   Violation = "no_lowercase"
	ViolationNoUpper   Violation = "no_uppercase"
	ViolationNoDigit   Violation = "no_digit"
	ViolationNoSpecial Violation = "no_special"
)

// MinPasswordLength is the deployment-wide minimum.
const MinPasswordLength = 10

// Message returns the caller-facing description of the rule.
func (v Violation) Message() string {
	switch v {
	case ViolationTooShort:
		return fmt.Sprintf("must be at least %d characters", MinPasswordLength)
	case ViolationNoLower:
		return "must contain a lowercase letter"
	case ViolationNoUpper:
		return "must contain an uppercase letter"
	case ViolationNoDigit:
		return "must contain a digit"
	case ViolationNoSpecial:
		return "must contain a special character"
	}
	return string(v)
}

// ValidateStrength checks every rule and returns all violations, not just the
// first, so the caller can present a complete list.
func ValidateStrength(password string) []Violation {
	var violations []Violation
	if len([]rune(password)) < MinPasswordLength {
		violations = append(violations, ViolationTooShort)
	}
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	if !lower {
		violations = append(violations, ViolationNoLower)
	}
	if !upper {
		violations = append(violations, ViolationNoUpper)
	}
	if !digit {
		violations = append(violations, ViolationNoDigit)
	}
	if !special {
		violations = append(violations, ViolationNoSpecial)
	}
	return violations
}

const (
	tempLower   = "abcdefghjkmnpqrstuvwxyz"
	tempUpper   = "ABCDEFGHJKMNPQRSTUVWXYZ"
	tempDigits  = "23456789"
	tempSpecial = "!@#$%^&*-_+="
	tempLength  = 16
)

// GenerateTemporaryPassword produces a random password satisfying every
// strength rule, used when provisioning accounts that must change their
// password on first login.
func GenerateTemporaryPassword() (string, error) {
	classes := []string{tempLower, tempUpper, tempDigits, tempSpecial}
	all := tempLower + tempUpper + tempDigits + tempSpecial

	out := make([]byte, 0, tempLength)
	// One character from each class guarantees diversity.
	for _, class := range classes {
		c, err := pick(class)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < tempLength {
		c, err := pick(all)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	// Shuffle so the class-guaranteed characters are not positional.
	for i := len(out) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		out[i], out[j.Int64()] = out[j.Int64()], out[i]
	}
	return string(out), nil
}

func pick(alphabet string) (byte, error) {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, fmt.Errorf("credential: random pick: %w", err)
	}
	return alphabet[idx.Int64()], nil
}
