package auth

import (
	"strings"

	"github.com/Abraxas-365/authgate/pkg/iam/user"
	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

// TokenMiddleware protects routes with bearer-token authentication.
type TokenMiddleware struct {
	auth *AuthService
}

// NewTokenMiddleware creates the middleware.
func NewTokenMiddleware(auth *AuthService) *TokenMiddleware {
	return &TokenMiddleware{auth: auth}
}

// Authenticate validates the Authorization header and stores the hydrated
// principal in the request context.
func (m *TokenMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return ErrUnauthorized()
		}

		p, err := m.auth.VerifyBearer(c.UserContext(), token)
		if err != nil {
			return err
		}

		c.Locals(principalKey, p)
		return c.Next()
	}
}

// RequireRole allows only principals holding one of the given roles.
func (m *TokenMiddleware) RequireRole(roles ...user.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return ErrUnauthorized()
		}
		for _, r := range roles {
			if p.User.Role == r {
				return c.Next()
			}
		}
		return ErrAccessDenied()
	}
}

// PrincipalFrom returns the principal stored by Authenticate.
func PrincipalFrom(c *fiber.Ctx) (*Principal, bool) {
	p, ok := c.Locals(principalKey).(*Principal)
	return p, ok && p != nil
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
