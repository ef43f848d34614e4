package user

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/authgate/pkg/errx"
	"github.com/Abraxas-365/authgate/pkg/kernel"
)

// Role is a user's access role
type Role string

const (
	// RoleSuperAdmin is the platform operator role; it is not bound to a tenant
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleUser       Role = "USER"
)

// IsValid reports whether the role is known
func (r Role) IsValid() bool {
	return r == RoleSuperAdmin || r == RoleAdmin || r == RoleUser
}

// User is an authenticatable identity belonging to a tenant. PasswordHash
// never crosses the package boundary in responses; only the credential
// verifier reads it.
type User struct {
	ID           kernel.UserID   `json:"id"`
	Email        string          `json:"email"`
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name"`
	PasswordHash string          `json:"-"`
	TenantID     kernel.TenantID `json:"tenant_id"`
	Role         Role            `json:"role"`
	IsActive     bool            `json:"is_active"`
	CreatedBy    kernel.UserID   `json:"created_by,omitempty"`
	ModifiedBy   kernel.UserID   `json:"modified_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// FullName returns the display name
func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Email
	}
	return u.FirstName + " " + u.LastName
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("USER")

var (
	CodeUserNotFound  = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "User not found")
	CodeEmailTaken    = ErrRegistry.Register("EMAIL_TAKEN", errx.TypeConflict, http.StatusConflict, "Email address already registered")
	CodeInvalidRole   = ErrRegistry.Register("INVALID_ROLE", errx.TypeValidation, http.StatusBadRequest, "Invalid role")
	CodeWrongPassword = ErrRegistry.Register("WRONG_PASSWORD", errx.TypeValidation, http.StatusBadRequest, "Incorrect current password")
	CodeHashingFailed = ErrRegistry.Register("HASHING_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Password hashing failed")
)

func ErrUserNotFound() *errx.Error {
	return ErrRegistry.New(CodeUserNotFound)
}

func ErrEmailTaken() *errx.Error {
	return ErrRegistry.New(CodeEmailTaken)
}

func ErrInvalidRole() *errx.Error {
	return ErrRegistry.New(CodeInvalidRole)
}

func ErrWrongPassword() *errx.Error {
	return ErrRegistry.New(CodeWrongPassword)
}

func ErrHashingFailed() *errx.Error {
	return ErrRegistry.New(CodeHashingFailed)
}
