package userapi

import (
	"github.com/Abraxas-365/authgate/pkg/iam/auth"
	"github.com/Abraxas-365/authgate/pkg/iam/user"
	"github.com/Abraxas-365/authgate/pkg/iam/user/usersrv"
	"github.com/Abraxas-365/authgate/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// UserHandlers exposes user administration. Admins manage users of their
// own tenant; superadmins manage everything.
type UserHandlers struct {
	users *usersrv.UserService
	auth  *auth.AuthService
}

// NewUserHandlers creates the handlers.
func NewUserHandlers(users *usersrv.UserService, authSvc *auth.AuthService) *UserHandlers {
	return &UserHandlers{
		users: users,
		auth:  authSvc,
	}
}

// RegisterRoutes mounts the user routes under /api/v1/users.
func (h *UserHandlers) RegisterRoutes(app fiber.Router, mw *auth.TokenMiddleware) {
	g := app.Group("/api/v1/users",
		mw.Authenticate(),
		mw.RequireRole(user.RoleSuperAdmin, user.RoleAdmin))

	g.Post("/", h.Create)
	g.Get("/", h.List)
	g.Get("/:id", h.Get)
	g.Put("/:id", h.Update)
	g.Delete("/:id", h.Delete)
}

type userBody struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
	TenantID  string `json:"tenant_id"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`

	// When true and no password is given, the user is created disabled for
	// login until they follow the mailed setup link.
	SendSetupLink bool `json:"send_setup_link"`
}

// Create provisions a new user, optionally mailing an account-setup link.
func (h *UserHandlers) Create(c *fiber.Ctx) error {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return auth.ErrUnauthorized()
	}

	var body userBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if body.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}
	if body.Password == "" && !body.SendSetupLink {
		return fiber.NewError(fiber.StatusBadRequest, "password or send_setup_link is required")
	}

	tenantID := kernel.NewTenantID(body.TenantID)
	if p.User.Role == user.RoleAdmin {
		// Admins can only provision users inside their own tenant.
		tenantID = p.User.TenantID
	}

	u, err := h.users.Create(c.UserContext(), usersrv.CreateUserRequest{
		Email:     body.Email,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Password:  body.Password,
		TenantID:  tenantID,
		Role:      user.Role(body.Role),
		IsActive:  body.IsActive,
		ActorID:   p.User.ID,
	})
	if err != nil {
		return err
	}

	if body.SendSetupLink {
		if err := h.auth.CreateAccountSetupLink(c.UserContext(), u.ID); err != nil {
			return err
		}
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}

// List returns one page of a tenant's users. Superadmins pass tenant_id;
// admins are scoped to their own tenant.
func (h *UserHandlers) List(c *fiber.Ctx) error {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return auth.ErrUnauthorized()
	}

	tenantID := kernel.NewTenantID(c.Query("tenant_id"))
	if p.User.Role == user.RoleAdmin {
		tenantID = p.User.TenantID
	}
	if tenantID.IsEmpty() {
		return fiber.NewError(fiber.StatusBadRequest, "tenant_id is required")
	}

	opts := kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 || opts.PageSize > 100 {
		opts.PageSize = 20
	}

	page, err := h.users.ListByTenant(c.UserContext(), tenantID, opts)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// Get returns one user.
func (h *UserHandlers) Get(c *fiber.Ctx) error {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return auth.ErrUnauthorized()
	}

	u, err := h.users.Get(c.UserContext(), kernel.NewUserID(c.Params("id")))
	if err != nil {
		return err
	}
	if p.User.Role == user.RoleAdmin && u.TenantID != p.User.TenantID {
		return auth.ErrAccessDenied()
	}
	return c.JSON(u)
}

// Update overwrites a user's administrative fields.
func (h *UserHandlers) Update(c *fiber.Ctx) error {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return auth.ErrUnauthorized()
	}

	var body userBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	id := kernel.NewUserID(c.Params("id"))
	if p.User.Role == user.RoleAdmin {
		existing, err := h.users.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		if existing.TenantID != p.User.TenantID {
			return auth.ErrAccessDenied()
		}
		body.TenantID = p.User.TenantID.String()
	}

	u, err := h.users.Update(c.UserContext(), id, usersrv.UpdateUserRequest{
		Email:     body.Email,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		TenantID:  kernel.NewTenantID(body.TenantID),
		Role:      user.Role(body.Role),
		IsActive:  body.IsActive,
		ActorID:   p.User.ID,
	})
	if err != nil {
		return err
	}
	return c.JSON(u)
}

// Delete removes a user.
func (h *UserHandlers) Delete(c *fiber.Ctx) error {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return auth.ErrUnauthorized()
	}

	id := kernel.NewUserID(c.Params("id"))
	if p.User.Role == user.RoleAdmin {
		existing, err := h.users.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		if existing.TenantID != p.User.TenantID {
			return auth.ErrAccessDenied()
		}
	}

	if err := h.users.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
