// Package auth implements password hashing, the password policy, signed
// access/refresh tokens and the server-side refresh token record.
package auth

import (
	"errors"
	"fmt"
	"regexp"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the adaptive hash cost used for every stored password.
const BcryptCost = 10

// dummyHash is compared against when the login id is unknown so both failure
// paths spend the same bcrypt time.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("issueflow-timing-equaliser"), BcryptCost)

// HashPassword hashes a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BurnPasswordCheck performs a throwaway comparison for unknown accounts.
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// PasswordPolicy holds the server enforced password rules.
type PasswordPolicy struct {
	// MinSize is the minimum password length. 0 = disabled.
	MinSize int `json:"min_size"`

	// RegExp is a custom pattern passwords must match. Empty = disabled.
	RegExp string `json:"reg_exp"`

	// Min2Lower2Upper requires at least 2 lowercase AND 2 uppercase letters.
	Min2Lower2Upper bool `json:"min_2_lower_2_upper"`

	// NeedDigit requires at least 1 digit (0-9).
	NeedDigit bool `json:"need_digit"`
}

// PolicyError explains why a password was rejected.
type PolicyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *PolicyError) Error() string { return e.Message }

// DefaultPasswordPolicy returns the policy applied when none is configured.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinSize: 8}
}

// Validate checks password against the policy.
func (p PasswordPolicy) Validate(password string) error {
	if p.MinSize > 0 && len([]rune(password)) < p.MinSize {
		return &PolicyError{
			Code:    "min_size",
			Message: fmt.Sprintf("Password must be at least %d characters long", p.MinSize),
		}
	}

	if p.RegExp != "" {
		re, err := regexp.Compile(p.RegExp)
		if err != nil {
			return fmt.Errorf("invalid password pattern: %w", err)
		}
		if !re.MatchString(password) {
			return &PolicyError{Code: "regexp_mismatch", Message: "Password does not match the required pattern"}
		}
	}

	if p.Min2Lower2Upper {
		var lower, upper int
		for _, r := range password {
			switch {
			case unicode.IsLower(r):
				lower++
			case unicode.IsUpper(r):
				upper++
			}
		}
		if lower < 2 || upper < 2 {
			return &PolicyError{
				Code:    "min_2_lower_2_upper",
				Message: "Password must contain at least 2 lowercase and 2 uppercase letters",
			}
		}
	}

	if p.NeedDigit {
		hasDigit := false
		for _, r := range password {
			if unicode.IsDigit(r) {
				hasDigit = true
				break
			}
		}
		if !hasDigit {
			return &PolicyError{Code: "need_digit", Message: "Password must contain at least one digit"}
		}
	}

	return nil
}

// IsPolicyError reports whether err is a policy rejection.
func IsPolicyError(err error) bool {
	var pe *PolicyError
	return errors.As(err, &pe)
}
