package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"dopamine-dashboard/internal/domain"
)

// MinPasswordLength is enforced on registration.
const MinPasswordLength = 8

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", domain.NewValidationError("password too short",
			domain.FieldError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", MinPasswordLength)})
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares password with hash. A mismatch is domain.ErrUnauthorized.
func CheckPassword(hash, password string) error {
	if hash == "" {
		return fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	if err != nil {
		return fmt.Errorf("compare password: %w", err)
	}
	return nil
}
