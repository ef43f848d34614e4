package userinfra

import (
	"github.com/Abraxas-365/authgate/pkg/iam/user"
	"golang.org/x/crypto/bcrypt"
)

// BcryptPasswordService implements user.PasswordService with bcrypt.
type BcryptPasswordService struct {
	cost int
}

// NewBcryptPasswordService creates the service with the given cost factor.
func NewBcryptPasswordService(cost int) *BcryptPasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordService{cost: cost}
}

// Hash returns the bcrypt hash of a plaintext password.
func (s *BcryptPasswordService) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		return "", user.ErrHashingFailed().WithDetail("cause", err.Error())
	}
	return string(hash), nil
}

// Compare checks a candidate password against a stored hash. bcrypt's
// comparison is constant time; a malformed hash or empty input is a failed
// comparison, never an error.
func (s *BcryptPasswordService) Compare(hash, candidate string) bool {
	if hash == "" || candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}
