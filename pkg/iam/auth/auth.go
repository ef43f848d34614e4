package auth

import (
	"net/http"

	"github.com/Abraxas-365/authgate/pkg/errx"
	"github.com/Abraxas-365/authgate/pkg/iam/tenant"
	"github.com/Abraxas-365/authgate/pkg/iam/user"
	"github.com/Abraxas-365/authgate/pkg/kernel"
	"github.com/golang-jwt/jwt/v5"
)

// ============================================================================
// Token Types
// ============================================================================

// TokenKind names one of the independent signing contexts. Each kind has its
// own secret and lifetime, so tokens of one kind never verify under another.
type TokenKind string

const (
	TokenAccess            TokenKind = "access"
	TokenRefresh           TokenKind = "refresh"
	TokenAuthorizationCode TokenKind = "authorization_code"
	TokenPasswordReset     TokenKind = "password_reset"
	TokenAccountSetup      TokenKind = "account_setup"
)

// ClientClaim identifies the tenant a session token belongs to.
type ClientClaim struct {
	ID     kernel.TenantID `json:"id"`
	Domain string          `json:"domain"`
}

// UserClaim is the user payload embedded in session tokens.
type UserClaim struct {
	ID     kernel.UserID `json:"id"`
	Role   user.Role     `json:"role"`
	Client ClientClaim   `json:"client"`
}

// SessionClaims is the claim set of access, refresh and authorization-code
// tokens. The audience is the tenant's domain.
type SessionClaims struct {
	Scope string    `json:"scope,omitempty"`
	User  UserClaim `json:"user"`
	jwt.RegisteredClaims
}

// ActionClaims is the claim set of password-reset and account-setup tokens.
// The audience is the service's own base URL.
type ActionClaims struct {
	UserID kernel.UserID `json:"userId"`
	jwt.RegisteredClaims
}

// Principal is a fully hydrated authenticated identity: the durable user
// record plus the tenant snapshot it authenticated against.
type Principal struct {
	User   *user.User     `json:"user"`
	Tenant *tenant.Tenant `json:"tenant"`
	Scope  string         `json:"scope,omitempty"`
}

// TokenPair is the access/refresh pair returned by the token endpoint.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthorizationGrant is the result of a successful authorize call.
type AuthorizationGrant struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	CodeInvalidCredentials    = ErrRegistry.Register("INVALID_CREDENTIALS", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid email or password")
	CodeNoActiveSubscription  = ErrRegistry.Register("NO_ACTIVE_SUBSCRIPTION", errx.TypeAuthorization, http.StatusForbidden, "Tenant has no active subscription")
	CodeTenantInactive        = ErrRegistry.Register("TENANT_INACTIVE", errx.TypeAuthorization, http.StatusForbidden, "Tenant is deactivated")
	CodeUserInactive          = ErrRegistry.Register("USER_INACTIVE", errx.TypeAuthorization, http.StatusForbidden, "User is deactivated")
	CodeTokenExpired          = ErrRegistry.Register("TOKEN_EXPIRED", errx.TypeAuthorization, http.StatusUnauthorized, "Token has expired")
	CodeTokenInvalid          = ErrRegistry.Register("TOKEN_INVALID", errx.TypeAuthorization, http.StatusUnauthorized, "Token is invalid")
	CodeAudienceMismatch      = ErrRegistry.Register("AUDIENCE_MISMATCH", errx.TypeAuthorization, http.StatusUnauthorized, "Token audience mismatch")
	CodeTokenGenerationFailed = ErrRegistry.Register("TOKEN_GENERATION_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Token generation failed")
	CodeInvalidRedirectURI    = ErrRegistry.Register("INVALID_REDIRECT_URI", errx.TypeValidation, http.StatusBadRequest, "Redirect URI is not registered for this tenant")
	CodeUnsupportedGrant      = ErrRegistry.Register("UNSUPPORTED_GRANT_TYPE", errx.TypeValidation, http.StatusBadRequest, "Unsupported grant type")
	CodeUnauthorized          = ErrRegistry.Register("UNAUTHORIZED", errx.TypeAuthorization, http.StatusUnauthorized, "Authentication required")
	CodeAccessDenied          = ErrRegistry.Register("ACCESS_DENIED", errx.TypeAuthorization, http.StatusForbidden, "Access denied")
	CodeSystemUnavailable     = ErrRegistry.Register("SYSTEM_UNAVAILABLE", errx.TypeExternal, http.StatusServiceUnavailable, "Authentication temporarily unavailable")
)

// Helper functions
func ErrInvalidCredentials() *errx.Error {
	return ErrRegistry.New(CodeInvalidCredentials)
}

func ErrNoActiveSubscription() *errx.Error {
	return ErrRegistry.New(CodeNoActiveSubscription)
}

func ErrTenantInactive() *errx.Error {
	return ErrRegistry.New(CodeTenantInactive)
}

func ErrUserInactive() *errx.Error {
	return ErrRegistry.New(CodeUserInactive)
}

func ErrTokenExpired() *errx.Error {
	return ErrRegistry.New(CodeTokenExpired)
}

func ErrTokenInvalid() *errx.Error {
	return ErrRegistry.New(CodeTokenInvalid)
}

func ErrAudienceMismatch() *errx.Error {
	return ErrRegistry.New(CodeAudienceMismatch)
}

func ErrTokenGenerationFailed() *errx.Error {
	return ErrRegistry.New(CodeTokenGenerationFailed)
}

func ErrInvalidRedirectURI() *errx.Error {
	return ErrRegistry.New(CodeInvalidRedirectURI)
}

func ErrUnsupportedGrant() *errx.Error {
	return ErrRegistry.New(CodeUnsupportedGrant)
}

func ErrUnauthorized() *errx.Error {
	return ErrRegistry.New(CodeUnauthorized)
}

func ErrAccessDenied() *errx.Error {
	return ErrRegistry.New(CodeAccessDenied)
}

func ErrSystemUnavailable() *errx.Error {
	return ErrRegistry.New(CodeSystemUnavailable)
}
