package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// UserFinder looks a user up by exact email.
// Implementations return common.ErrorNotFound when there is no such user.
type UserFinder interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// PasswordComparer checks a plaintext password against a stored hash in
// constant time.
type PasswordComparer interface {
	Compare(password, hash string) (bool, error)
}

// decoyComparer is implemented by comparers that can spend the cost of a
// comparison without a real hash.
type decoyComparer interface {
	CompareDecoy(password string)
}

// Verifier authenticates credentials against stored users.
type Verifier struct {
	users  UserFinder
	hasher PasswordComparer
}

func NewVerifier(users UserFinder, hasher PasswordComparer) *Verifier {
	return &Verifier{users: users, hasher: hasher}
}

// Verify returns the stored user when creds match it.
//
// Failures:
//   - common.ErrMissingFields: email or password empty; no lookup is made.
//   - common.ErrInvalidCredentials: unknown email, user without a password hash,
//     unusable hash, or wrong password. These cases are not distinguished.
//   - common.ErrorInternal (wrapped): the lookup itself failed.
func (v *Verifier) Verify(ctx context.Context, creds Credentials) (*models.User, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	user, err := v.users.FindUserByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			v.spendDecoy(creds.Password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	if user == nil || !user.HasPassword() {
		v.spendDecoy(creds.Password)
		return nil, common.ErrInvalidCredentials
	}

	ok, err := v.hasher.Compare(creds.Password, *user.HashedPassword)
	if err != nil {
		// an unusable hash fails fast
		v.spendDecoy(creds.Password)
		return nil, common.ErrInvalidCredentials
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	return user, nil
}

func (v *Verifier) spendDecoy(password string) {
	if d, ok := v.hasher.(decoyComparer); ok {
		d.CompareDecoy(password)
	}
}
