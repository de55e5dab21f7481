package auth

import (
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var (
	upperRe = regexp.MustCompile(`[A-Z]`)
	lowerRe = regexp.MustCompile(`[a-z]`)
	digitRe = regexp.MustCompile(`[0-9]`)
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// VerifyPassword compares a plain password with a hashed password
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePasswordStrength requires 8-128 characters with upper, lower and
// digit.
func ValidatePasswordStrength(password string) error {
	switch {
	case len(password) < 8:
		return errors.New("password must be at least 8 characters long")
	case len(password) > 128:
		return errors.New("password must not exceed 128 characters")
	case !upperRe.MatchString(password):
		return errors.New("password must contain at least one uppercase letter")
	case !lowerRe.MatchString(password):
		return errors.New("password must contain at least one lowercase letter")
	case !digitRe.MatchString(password):
		return errors.New("password must contain at least one number")
	}
	return nil
}
