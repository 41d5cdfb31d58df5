package auth

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/common"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when asked to hash an empty password.
// Passwords over bcrypt's 72-byte limit yield common.ErrorValidation.
var ErrEmptyPassword = errors.New("password cannot be empty")

// BcryptHasher hashes and checks passwords with bcrypt.
type BcryptHasher struct {
	cost int

	decoyOnce sync.Once
	decoy     []byte
}

// NewBcryptHasher returns a hasher using cost; values outside bcrypt's
// accepted range fall back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: %w", common.ErrorValidation, err)
		}
		return "", err
	}
	return string(b), nil
}

// Compare reports whether password matches hash. A mismatch is (false, nil);
// a hash bcrypt cannot parse is (false, err).
func (h *BcryptHasher) Compare(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}

// CompareDecoy burns the same work as Compare against a hash that matches
// nothing, so a login for an unknown email costs as much as a wrong password.
func (h *BcryptHasher) CompareDecoy(password string) {
	h.decoyOnce.Do(func() {
		// bcrypt rejects inputs over 72 bytes, so the decoy stays short.
		h.decoy, _ = bcrypt.GenerateFromPassword([]byte("decoy-password-never-matches"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.decoy, []byte(password))
}
