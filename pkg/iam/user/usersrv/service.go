package usersrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/authgate/pkg/iam/user"
	"github.com/Abraxas-365/authgate/pkg/kernel"
	"github.com/google/uuid"
)

// UserService owns user administration and password management.
type UserService struct {
	users     user.UserRepository
	passwords user.PasswordService
}

// NewUserService creates the service.
func NewUserService(users user.UserRepository, passwords user.PasswordService) *UserService {
	return &UserService{
		users:     users,
		passwords: passwords,
	}
}

// CreateUserRequest carries the fields for a new user.
type CreateUserRequest struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
	TenantID  kernel.TenantID
	Role      user.Role
	IsActive  bool
	ActorID   kernel.UserID
}

// Create persists a new user with a hashed password. Names for tenant-bound
// users live in the tenant's own portal database, so only superadmins keep
// them here.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*user.User, error) {
	if !req.Role.IsValid() {
		return nil, user.ErrInvalidRole().WithDetail("role", string(req.Role))
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	firstName, lastName := "", ""
	if req.Role == user.RoleSuperAdmin {
		firstName, lastName = req.FirstName, req.LastName
	}

	now := time.Now()
	u := user.User{
		ID:           kernel.NewUserID(uuid.New().String()),
		Email:        req.Email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		TenantID:     req.TenantID,
		Role:         req.Role,
		IsActive:     req.IsActive,
		CreatedBy:    req.ActorID,
		ModifiedBy:   req.ActorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Save(ctx, u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUserRequest carries the mutable user fields.
type UpdateUserRequest struct {
	Email     string
	FirstName string
	LastName  string
	TenantID  kernel.TenantID
	Role      user.Role
	IsActive  bool
	ActorID   kernel.UserID
}

// Update overwrites the user's administrative fields. The password is not
// touched here; SetPassword and ChangePassword own that.
func (s *UserService) Update(ctx context.Context, id kernel.UserID, req UpdateUserRequest) (*user.User, error) {
	if !req.Role.IsValid() {
		return nil, user.ErrInvalidRole().WithDetail("role", string(req.Role))
	}

	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	u.Email = req.Email
	u.FirstName = req.FirstName
	u.LastName = req.LastName
	u.TenantID = req.TenantID
	u.Role = req.Role
	u.IsActive = req.IsActive
	u.ModifiedBy = req.ActorID
	u.UpdatedAt = time.Now()

	if err := s.users.Save(ctx, *u); err != nil {
		return nil, err
	}
	return u, nil
}

// Get returns one user by id.
func (s *UserService) Get(ctx context.Context, id kernel.UserID) (*user.User, error) {
	return s.users.FindByID(ctx, id)
}

// GetByEmail returns one user by email address.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.users.FindByEmail(ctx, email)
}

// ListByTenant returns one page of a tenant's users.
func (s *UserService) ListByTenant(ctx context.Context, id kernel.TenantID, opts kernel.PaginationOptions) (kernel.Paginated[*user.User], error) {
	var empty kernel.Paginated[*user.User]

	users, err := s.users.FindByTenant(ctx, id, opts)
	if err != nil {
		return empty, err
	}
	total, err := s.users.CountByTenant(ctx, id)
	if err != nil {
		return empty, err
	}
	return kernel.NewPaginated(users, opts.Page, opts.PageSize, total), nil
}

// Delete removes a user.
func (s *UserService) Delete(ctx context.Context, id kernel.UserID) error {
	return s.users.Delete(ctx, id)
}

// SetPassword replaces a user's password without checking the old one. The
// caller must have proven control of the account through an action token.
func (s *UserService) SetPassword(ctx context.Context, id kernel.UserID, plaintext string) error {
	hash, err := s.passwords.Hash(plaintext)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, id, hash)
}

// ChangePassword verifies the current password before setting a new one.
func (s *UserService) ChangePassword(ctx context.Context, id kernel.UserID, current, next string) error {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.passwords.Compare(u.PasswordHash, current) {
		return user.ErrWrongPassword()
	}
	return s.SetPassword(ctx, id, next)
}
