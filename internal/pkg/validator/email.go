package validator

import (
	"errors"
	"strings"
)

var ErrInvalidEmail = errors.New("invalid email format")

// NormalizeEmail lowercases and trims an address; membership matching is
// case-insensitive everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	parts := strings.Split(NormalizeEmail(email), "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ErrInvalidEmail
	}
	if !strings.Contains(parts[1], ".") {
		return ErrInvalidEmail
	}
	return nil
}
