package authapi

import (
	"github.com/Abraxas-365/authgate/pkg/iam/auth"
	"github.com/Abraxas-365/authgate/pkg/iam/user"
	"github.com/Abraxas-365/authgate/pkg/iam/user/usersrv"
	"github.com/Abraxas-365/authgate/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// AuthHandlers exposes the token endpoint, the action-link flows and the
// session introspection routes.
type AuthHandlers struct {
	auth  *auth.AuthService
	users *usersrv.UserService
	mw    *auth.TokenMiddleware
}

// NewAuthHandlers creates the handlers.
func NewAuthHandlers(authSvc *auth.AuthService, users *usersrv.UserService, mw *auth.TokenMiddleware) *AuthHandlers {
	return &AuthHandlers{
		auth:  authSvc,
		users: users,
		mw:    mw,
	}
}

// RegisterRoutes mounts the auth routes.
func (h *AuthHandlers) RegisterRoutes(app fiber.Router) {
	app.Post("/oauth/authorize", h.Authorize)
	app.Post("/oauth/token", h.Token)

	app.Post("/auth/password-reset", h.RequestPasswordReset)
	app.Post("/auth/password-reset/confirm", h.ConfirmPasswordReset)
	app.Post("/auth/account-setup/confirm", h.ConfirmAccountSetup)

	app.Get("/auth/me", h.mw.Authenticate(), h.Me)
	app.Post("/auth/change-password", h.mw.Authenticate(), h.ChangePassword)
	app.Post("/auth/account-setup",
		h.mw.Authenticate(),
		h.mw.RequireRole(user.RoleSuperAdmin, user.RoleAdmin),
		h.SendAccountSetup)
}

type authorizeRequest struct {
	Email       string `json:"email" form:"email"`
	Password    string `json:"password" form:"password"`
	Scope       string `json:"scope" form:"scope"`
	RedirectURI string `json:"redirect_uri" form:"redirect_uri"`
}

// Authorize authenticates and returns an authorization code bound to a
// redirect URI.
func (h *AuthHandlers) Authorize(c *fiber.Ctx) error {
	var req authorizeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return auth.ErrInvalidCredentials()
	}

	grant, err := h.auth.Authorize(c.UserContext(), req.Email, req.Password, req.Scope, req.RedirectURI)
	if err != nil {
		return err
	}
	return c.JSON(grant)
}

type tokenRequest struct {
	GrantType    string `json:"grant_type" form:"grant_type"`
	Email        string `json:"email" form:"email"`
	Username     string `json:"username" form:"username"`
	Password     string `json:"password" form:"password"`
	Scope        string `json:"scope" form:"scope"`
	Code         string `json:"code" form:"code"`
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

// Token dispatches on grant_type and returns an access/refresh pair.
func (h *AuthHandlers) Token(c *fiber.Ctx) error {
	var req tokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var (
		pair *auth.TokenPair
		err  error
	)
	switch req.GrantType {
	case "password":
		email := req.Email
		if email == "" {
			email = req.Username
		}
		pair, err = h.auth.PasswordGrant(c.UserContext(), email, req.Password, req.Scope)
	case "authorization_code":
		pair, err = h.auth.ExchangeAuthorizationCode(c.UserContext(), req.Code)
	case "refresh_token":
		pair, err = h.auth.Refresh(c.UserContext(), req.RefreshToken)
	default:
		return auth.ErrUnsupportedGrant().WithDetail("grant_type", req.GrantType)
	}
	if err != nil {
		return err
	}
	return c.JSON(pair)
}

// Me returns the authenticated principal.
func (h *AuthHandlers) Me(c *fiber.Ctx) error {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return auth.ErrUnauthorized()
	}
	return c.JSON(p)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword verifies the current password and replaces it.
func (h *AuthHandlers) ChangePassword(c *fiber.Ctx) error {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return auth.ErrUnauthorized()
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.NewPassword == "" {
		return fiber.NewError(fiber.StatusBadRequest, "new_password is required")
	}

	if err := h.users.ChangePassword(c.UserContext(), p.User.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset mails a reset link to the given address.
func (h *AuthHandlers) RequestPasswordReset(c *fiber.Ctx) error {
	var req passwordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}

	if err := h.auth.CreatePasswordResetLink(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

type confirmActionRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ConfirmPasswordReset consumes a reset token and sets the new password.
func (h *AuthHandlers) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req confirmActionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Token == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "token and password are required")
	}

	if err := h.auth.ConsumePasswordResetLink(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ConfirmAccountSetup consumes a setup token and sets the first password.
func (h *AuthHandlers) ConfirmAccountSetup(c *fiber.Ctx) error {
	var req confirmActionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Token == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "token and password are required")
	}

	if err := h.auth.ConsumeAccountSetupLink(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type sendAccountSetupRequest struct {
	UserID string `json:"user_id"`
}

// SendAccountSetup mails a setup link to an existing user.
func (h *AuthHandlers) SendAccountSetup(c *fiber.Ctx) error {
	var req sendAccountSetupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "user_id is required")
	}

	if err := h.auth.CreateAccountSetupLink(c.UserContext(), kernel.NewUserID(req.UserID)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}
