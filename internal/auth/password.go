package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/salescrm/crm-portal/pkg/util/errorutil"
)

// MinPasswordLength is the shortest password an account may use.
const MinPasswordLength = 6

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("password does not match")

// CheckPasswordPolicy rejects passwords the CRM would not accept.
func CheckPasswordPolicy(password string) error {
	if len(password) < MinPasswordLength {
		return apperrors.NewValidationError(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	return nil
}

// PasswordHasher stores account passwords as bcrypt hashes.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher uses cost, or bcrypt's default when cost is out of range.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns the stored form of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	switch {
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		return "", apperrors.NewValidationError("password must be at most 72 bytes")
	case err != nil:
		return "", apperrors.NewInternalError(err)
	}
	return string(hashed), nil
}

// Verify checks plain against a stored hash. A wrong password yields
// ErrPasswordMismatch; a malformed hash is an internal error.
func (h *PasswordHasher) Verify(hashed, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrPasswordMismatch
	}
	return apperrors.NewInternalError(err)
}
