package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrHashingFailed hides bcrypt internals from callers.
var ErrHashingFailed = errors.New("password hashing failed")

// PasswordHasher hashes account passwords for storage and verifies
// submitted ones against the stored digest. Password policy (length,
// character classes) is enforced by the services before hashing; any
// string can be hashed here.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword, password string) error
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt-backed hasher. Costs outside the
// bcrypt range fall back to the library default.
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (b *bcryptHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", ErrHashingFailed
	}
	return string(bytes), nil
}

func (b *bcryptHasher) Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
