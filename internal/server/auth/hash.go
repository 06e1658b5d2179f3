package auth

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/selva/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is a var so tests can lower it.
var bcryptCost = bcrypt.DefaultCost

// HashSecret hashes a password or an API token.
func HashSecret(secret string) ([]byte, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}
	return h, nil
}

// CheckSecret compares secret with a hash from HashSecret. A mismatch
// yields common.ErrorUnauthorized.
func CheckSecret(hash []byte, secret string) error {
	err := bcrypt.CompareHashAndPassword(hash, []byte(secret))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return common.ErrorUnauthorized
	}
	return fmt.Errorf("%w: %v", common.ErrorUnauthorized, err)
}
