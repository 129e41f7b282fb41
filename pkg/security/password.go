package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBcryptCost matches the cost used for every stored credential.
	DefaultBcryptCost = 10

	digits = "0123456789"
)

// ErrInvalidHash signals a stored value that is not a bcrypt hash.
var ErrInvalidHash = fmt.Errorf("invalid bcrypt hash")

// HashPassword returns a bcrypt hash for the provided password.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword returns true when the password matches the encoded hash.
func VerifyPassword(password, encoded string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	case errors.Is(err, bcrypt.ErrHashTooShort):
		return false, ErrInvalidHash
	default:
		var versionErr bcrypt.InvalidHashPrefixError
		if errors.As(err, &versionErr) {
			return false, ErrInvalidHash
		}
		return false, err
	}
}

// GenerateNumericCode returns a uniformly random string of decimal digits.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	out := make([]byte, length)
	for i := range out {
		idx, err := randInt(len(digits))
		if err != nil {
			return "", err
		}
		out[i] = digits[idx]
	}
	return string(out), nil
}

func randInt(max int) (int, error) {
	if max <= 0 {
		return 0, fmt.Errorf("invalid max %d", max)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
