package userinfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/Abraxas-365/authgate/pkg/errx"
	"github.com/Abraxas-365/authgate/pkg/iam/user"
	"github.com/Abraxas-365/authgate/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresUserRepository implements user.UserRepository on Postgres.
type PostgresUserRepository struct {
	db *sqlx.DB
}

// NewPostgresUserRepository creates the repository.
func NewPostgresUserRepository(db *sqlx.DB) user.UserRepository {
	return &PostgresUserRepository{db: db}
}

// Save inserts or updates a user.
func (r *PostgresUserRepository) Save(ctx context.Context, u user.User) error {
	query := `
		INSERT INTO users (
			id, email, first_name, last_name, password_hash, tenant_id,
			role, is_active, created_by, modified_by, created_at, updated_at
		) VALUES (
			:id, :email, :first_name, :last_name, :password_hash, :tenant_id,
			:role, :is_active, :created_by, :modified_by, :created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			tenant_id = EXCLUDED.tenant_id,
			role = EXCLUDED.role,
			is_active = EXCLUDED.is_active,
			modified_by = EXCLUDED.modified_by,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.NamedExecContext(ctx, query, toPersistence(u))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation on email
			return user.ErrEmailTaken().WithDetail("email", u.Email)
		}
		return errx.Wrap(err, "failed to save user", errx.TypeInternal).
			WithDetail("user_id", u.ID.String())
	}
	return nil
}

// FindByID returns one user.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id kernel.UserID) (*user.User, error) {
	var row userPersistence
	err := r.db.GetContext(ctx, &row, `SELECT * FROM users WHERE id = $1`, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, user.ErrUserNotFound().WithDetail("user_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find user by ID", errx.TypeInternal)
	}
	domainUser := toDomain(row)
	return &domainUser, nil
}

// FindByEmail returns the user registered under an email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var row userPersistence
	err := r.db.GetContext(ctx, &row, `SELECT * FROM users WHERE email = $1`, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, user.ErrUserNotFound().WithDetail("email", email)
		}
		return nil, errx.Wrap(err, "failed to find user by email", errx.TypeInternal)
	}
	domainUser := toDomain(row)
	return &domainUser, nil
}

// FindByTenant returns one page of a tenant's users, newest first.
func (r *PostgresUserRepository) FindByTenant(ctx context.Context, id kernel.TenantID, opts kernel.PaginationOptions) ([]*user.User, error) {
	var rows []userPersistence
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM users WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		id.String(), opts.PageSize, opts.Offset())
	if err != nil {
		return nil, errx.Wrap(err, "failed to find users by tenant", errx.TypeInternal)
	}

	users := make([]*user.User, len(rows))
	for i, row := range rows {
		u := toDomain(row)
		users[i] = &u
	}
	return users, nil
}

// CountByTenant returns the number of users in a tenant.
func (r *PostgresUserRepository) CountByTenant(ctx context.Context, id kernel.TenantID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE tenant_id = $1`, id.String())
	if err != nil {
		return 0, errx.Wrap(err, "failed to count users by tenant", errx.TypeInternal)
	}
	return count, nil
}

// Delete removes a user.
func (r *PostgresUserRepository) Delete(ctx context.Context, id kernel.UserID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id.String())
	if err != nil {
		return errx.Wrap(err, "failed to delete user", errx.TypeInternal)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on delete", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return user.ErrUserNotFound().WithDetail("user_id", id.String())
	}
	return nil
}

// UpdatePassword replaces only the stored password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id kernel.UserID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, id.String())
	if err != nil {
		return errx.Wrap(err, "failed to update password", errx.TypeInternal).
			WithDetail("user_id", id.String())
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on password update", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return user.ErrUserNotFound().WithDetail("user_id", id.String())
	}
	return nil
}

// Persistence struct for DB-specific types.
type userPersistence struct {
	ID           kernel.UserID   `db:"id"`
	Email        string          `db:"email"`
	FirstName    sql.NullString  `db:"first_name"`
	LastName     sql.NullString  `db:"last_name"`
	PasswordHash string          `db:"password_hash"`
	TenantID     kernel.TenantID `db:"tenant_id"`
	Role         string          `db:"role"`
	IsActive     bool            `db:"is_active"`
	CreatedBy    sql.NullString  `db:"created_by"`
	ModifiedBy   sql.NullString  `db:"modified_by"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func toPersistence(u user.User) userPersistence {
	return userPersistence{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    sql.NullString{String: u.FirstName, Valid: u.FirstName != ""},
		LastName:     sql.NullString{String: u.LastName, Valid: u.LastName != ""},
		PasswordHash: u.PasswordHash,
		TenantID:     u.TenantID,
		Role:         string(u.Role),
		IsActive:     u.IsActive,
		CreatedBy:    sql.NullString{String: u.CreatedBy.String(), Valid: !u.CreatedBy.IsEmpty()},
		ModifiedBy:   sql.NullString{String: u.ModifiedBy.String(), Valid: !u.ModifiedBy.IsEmpty()},
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func toDomain(p userPersistence) user.User {
	return user.User{
		ID:           p.ID,
		Email:        p.Email,
		FirstName:    p.FirstName.String,
		LastName:     p.LastName.String,
		PasswordHash: p.PasswordHash,
		TenantID:     p.TenantID,
		Role:         user.Role(p.Role),
		IsActive:     p.IsActive,
		CreatedBy:    kernel.UserID(p.CreatedBy.String),
		ModifiedBy:   kernel.UserID(p.ModifiedBy.String),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
