package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Abraxas-365/authgate/pkg/config"
	"github.com/Abraxas-365/authgate/pkg/kernel"
	"github.com/golang-jwt/jwt/v5"
)

// signingContext pairs a secret with the lifetime of one token kind. A zero
// TTL issues tokens without an expiry claim.
type signingContext struct {
	secret []byte
	ttl    time.Duration
}

// JWTService implements TokenService with HS256 and one signing context per
// token kind. Session tokens carry the tenant domain as audience; action
// tokens carry the service base URL.
type JWTService struct {
	issuer   string
	baseURL  string
	contexts map[TokenKind]signingContext
}

// NewJWTService creates the service from the five configured contexts.
func NewJWTService(cfg config.JWTConfig, baseURL string) *JWTService {
	return &JWTService{
		issuer:  cfg.Issuer,
		baseURL: baseURL,
		contexts: map[TokenKind]signingContext{
			TokenAccess:            {secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL},
			TokenRefresh:           {secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
			TokenAuthorizationCode: {secret: []byte(cfg.AuthCodeSecret), ttl: cfg.AuthCodeTTL},
			TokenPasswordReset:     {secret: []byte(cfg.PasswordResetSecret), ttl: cfg.PasswordResetTTL},
			TokenAccountSetup:      {secret: []byte(cfg.AccountSetupSecret), ttl: cfg.AccountSetupTTL},
		},
	}
}

// AccessTokenTTL reports the configured access token lifetime.
func (j *JWTService) AccessTokenTTL() time.Duration {
	return j.contexts[TokenAccess].ttl
}

// IssueSessionToken signs an access, refresh or authorization-code token for
// the principal. The audience is the tenant's domain.
func (j *JWTService) IssueSessionToken(kind TokenKind, p *Principal) (string, error) {
	sc, ok := j.contexts[kind]
	if !ok || kind == TokenPasswordReset || kind == TokenAccountSetup {
		return "", ErrTokenGenerationFailed().WithDetail("kind", string(kind))
	}

	now := time.Now()
	claims := SessionClaims{
		Scope: p.Scope,
		User: UserClaim{
			ID:   p.User.ID,
			Role: p.User.Role,
			Client: ClientClaim{
				ID:     p.Tenant.ID,
				Domain: p.Tenant.Domain,
			},
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   p.User.ID.String(),
			Audience:  []string{p.Tenant.Domain},
			ExpiresAt: jwt.NewNumericDate(now.Add(sc.ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(sc.secret)
	if err != nil {
		return "", ErrTokenGenerationFailed().WithDetail("error", err.Error())
	}
	return signed, nil
}

// VerifySessionToken checks signature, issuer and expiry under the kind's
// secret and returns the decoded claims. Expiry is reported as its own error
// so callers can tell a stale session from a forged one.
func (j *JWTService) VerifySessionToken(kind TokenKind, tokenString string) (*SessionClaims, error) {
	sc, ok := j.contexts[kind]
	if !ok || kind == TokenPasswordReset || kind == TokenAccountSetup {
		return nil, ErrTokenInvalid().WithDetail("kind", string(kind))
	}

	var claims SessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, j.keyFunc(sc),
		jwt.WithIssuer(j.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid()
	}

	// Internal-consistency check only: both sides come from the same signed
	// payload, so this catches malformed tokens, not wrong tenants. Binding
	// the session to a live tenant happens when the caller re-reads the
	// tenant record during principal hydration.
	if !audienceContains(claims.Audience, claims.User.Client.Domain) {
		return nil, ErrAudienceMismatch()
	}
	return &claims, nil
}

// IssueActionToken signs a password-reset or account-setup token for the
// user. The audience is the service base URL.
func (j *JWTService) IssueActionToken(kind TokenKind, userID kernel.UserID) (string, error) {
	sc, ok := j.contexts[kind]
	if !ok || (kind != TokenPasswordReset && kind != TokenAccountSetup) {
		return "", ErrTokenGenerationFailed().WithDetail("kind", string(kind))
	}

	now := time.Now()
	claims := ActionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   userID.String(),
			Audience:  []string{j.baseURL},
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if sc.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(sc.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(sc.secret)
	if err != nil {
		return "", ErrTokenGenerationFailed().WithDetail("error", err.Error())
	}
	return signed, nil
}

// VerifyActionToken checks an action token and returns the user it was
// issued for.
func (j *JWTService) VerifyActionToken(kind TokenKind, tokenString string) (kernel.UserID, error) {
	sc, ok := j.contexts[kind]
	if !ok || (kind != TokenPasswordReset && kind != TokenAccountSetup) {
		return "", ErrTokenInvalid().WithDetail("kind", string(kind))
	}

	var claims ActionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, j.keyFunc(sc),
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.baseURL),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", mapJWTError(err)
	}
	if !token.Valid || claims.UserID.IsEmpty() {
		return "", ErrTokenInvalid()
	}
	return claims.UserID, nil
}

func (j *JWTService) keyFunc(sc signingContext) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return sc.secret, nil
	}
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired()
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrAudienceMismatch()
	default:
		return ErrTokenInvalid().WithDetail("error", err.Error())
	}
}

func audienceContains(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
