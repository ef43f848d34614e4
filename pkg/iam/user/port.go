package user

import (
	"context"

	"github.com/Abraxas-365/authgate/pkg/kernel"
)

// UserRepository defines the contract for user persistence
type UserRepository interface {
	Save(ctx context.Context, u User) error
	FindByID(ctx context.Context, id kernel.UserID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByTenant(ctx context.Context, id kernel.TenantID, opts kernel.PaginationOptions) ([]*User, error)
	CountByTenant(ctx context.Context, id kernel.TenantID) (int, error)
	Delete(ctx context.Context, id kernel.UserID) error
	UpdatePassword(ctx context.Context, id kernel.UserID, passwordHash string) error
}

// PasswordService hashes and verifies passwords. Compare never returns an
// error: a malformed hash or empty input is simply a failed comparison.
type PasswordService interface {
	Hash(plaintext string) (string, error)
	Compare(hash, candidate string) bool
}
