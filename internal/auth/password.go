package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
)

const (
	passwordCost = 10
	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72
)

func HashPassword(plain string) (string, error) {
	if len(plain) > MaxPasswordBytes {
		return "", apperr.Invalid("password must be at most %d bytes", MaxPasswordBytes)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), passwordCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether plain matches hash. Only a mismatch is
// reported as false with a nil error.
func CheckPassword(hash, plain string) (bool, error) {
	if len(plain) > MaxPasswordBytes {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
