package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Abraxas-365/authgate/pkg/iam/user"
	"github.com/Abraxas-365/authgate/pkg/kernel"
	"github.com/Abraxas-365/authgate/pkg/logx"
	"github.com/Abraxas-365/authgate/pkg/notifx"
)

// AuthService owns credential verification, the authentication pipeline and
// the action-link flows.
type AuthService struct {
	users       user.UserRepository
	passwords   user.PasswordService
	directory   TenantDirectory
	tokens      TokenService
	mail        notifx.EmailSender
	baseURL     string
	fromAddress string
	resetTTL    time.Duration
}

// NewAuthService creates the service.
func NewAuthService(
	users user.UserRepository,
	passwords user.PasswordService,
	directory TenantDirectory,
	tokens TokenService,
	mail notifx.EmailSender,
	baseURL string,
	fromAddress string,
	resetTTL time.Duration,
) *AuthService {
	return &AuthService{
		users:       users,
		passwords:   passwords,
		directory:   directory,
		tokens:      tokens,
		mail:        mail,
		baseURL:     baseURL,
		fromAddress: fromAddress,
		resetTTL:    resetTTL,
	}
}

// Authenticate runs the ordered credential checks and returns the hydrated
// principal. The first three failures share one message so a caller cannot
// tell an unknown email from a wrong password.
func (s *AuthService) Authenticate(ctx context.Context, email, password, scope string) (*Principal, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound()) {
			return nil, ErrInvalidCredentials()
		}
		return nil, err
	}
	if !s.passwords.Compare(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials()
	}
	if u.TenantID.IsEmpty() {
		return nil, ErrInvalidCredentials()
	}

	t, err := s.directory.Get(ctx, u.TenantID)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeSystemUnavailable, err)
	}
	if t == nil {
		return nil, ErrSystemUnavailable().WithDetail("tenant_id", u.TenantID.String())
	}
	if t.Subscription == nil {
		return nil, ErrNoActiveSubscription()
	}
	if !t.IsActive {
		return nil, ErrTenantInactive()
	}
	if !u.IsActive {
		return nil, ErrUserInactive()
	}

	logx.WithFields(logx.Fields{
		"user_id":   u.ID.String(),
		"tenant_id": t.ID.String(),
	}).Info("User authenticated")

	return &Principal{User: u, Tenant: t, Scope: scope}, nil
}

// IssueTokenPair signs an access/refresh pair for the principal.
func (s *AuthService) IssueTokenPair(p *Principal) (*TokenPair, error) {
	access, err := s.tokens.IssueSessionToken(TokenAccess, p)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueSessionToken(TokenRefresh, p)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokens.AccessTokenTTL().Seconds()),
	}, nil
}

// PasswordGrant authenticates and returns a token pair in one step.
func (s *AuthService) PasswordGrant(ctx context.Context, email, password, scope string) (*TokenPair, error) {
	p, err := s.Authenticate(ctx, email, password, scope)
	if err != nil {
		return nil, err
	}
	return s.IssueTokenPair(p)
}

// Authorize authenticates and issues a short-lived authorization code bound
// to one of the tenant's registered redirect URIs. An empty redirectURI
// selects the tenant's default.
func (s *AuthService) Authorize(ctx context.Context, email, password, scope, redirectURI string) (*AuthorizationGrant, error) {
	p, err := s.Authenticate(ctx, email, password, scope)
	if err != nil {
		return nil, err
	}

	uris := p.Tenant.EffectiveRedirectURIs()
	if redirectURI == "" {
		redirectURI = uris[0]
	} else if !containsString(uris, redirectURI) {
		return nil, ErrInvalidRedirectURI().WithDetail("redirect_uri", redirectURI)
	}

	code, err := s.tokens.IssueSessionToken(TokenAuthorizationCode, p)
	if err != nil {
		return nil, err
	}
	return &AuthorizationGrant{Code: code, RedirectURI: redirectURI}, nil
}

// ExchangeAuthorizationCode swaps a valid authorization code for a token
// pair. The principal is re-hydrated so a tenant or user deactivated since
// the code was issued is still rejected.
func (s *AuthService) ExchangeAuthorizationCode(ctx context.Context, code string) (*TokenPair, error) {
	claims, err := s.tokens.VerifySessionToken(TokenAuthorizationCode, code)
	if err != nil {
		return nil, err
	}
	p, err := s.hydrate(ctx, claims)
	if err != nil {
		return nil, err
	}
	return s.IssueTokenPair(p)
}

// Refresh swaps a valid refresh token for a fresh pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.VerifySessionToken(TokenRefresh, refreshToken)
	if err != nil {
		return nil, err
	}
	p, err := s.hydrate(ctx, claims)
	if err != nil {
		return nil, err
	}
	return s.IssueTokenPair(p)
}

// VerifyBearer validates an access token cryptographically and then against
// the current tenant and user state.
func (s *AuthService) VerifyBearer(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.tokens.VerifySessionToken(TokenAccess, token)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, claims)
}

// hydrate re-runs the tenant and user state checks for an already verified
// token and rebuilds the principal from current records.
func (s *AuthService) hydrate(ctx context.Context, claims *SessionClaims) (*Principal, error) {
	u, err := s.users.FindByID(ctx, claims.User.ID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound()) {
			return nil, ErrTokenInvalid()
		}
		return nil, err
	}

	t, err := s.directory.Get(ctx, u.TenantID)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeSystemUnavailable, err)
	}
	if t == nil {
		return nil, ErrSystemUnavailable().WithDetail("tenant_id", u.TenantID.String())
	}
	if t.Subscription == nil {
		return nil, ErrNoActiveSubscription()
	}
	if !t.IsActive {
		return nil, ErrTenantInactive()
	}
	if !u.IsActive {
		return nil, ErrUserInactive()
	}

	return &Principal{User: u, Tenant: t, Scope: claims.Scope}, nil
}

// CreatePasswordResetLink mails the user a signed reset link.
func (s *AuthService) CreatePasswordResetLink(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := s.tokens.IssueActionToken(TokenPasswordReset, u.ID)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, url.QueryEscape(token))

	body, err := notifx.RenderPasswordReset(u.FullName(), formatExpiry(s.resetTTL), link)
	if err != nil {
		return err
	}

	if err := s.mail.Send(ctx, notifx.EmailMessage{
		To:       []string{u.Email},
		From:     s.fromAddress,
		Subject:  "Reset your password",
		HTMLBody: body,
	}); err != nil {
		return err
	}

	logx.WithField("user_id", u.ID.String()).Info("Password reset link sent")
	return nil
}

// ConsumePasswordResetLink verifies a reset token and sets the new password.
// The token stays valid until it expires, so replaying it only re-applies
// the same operation.
func (s *AuthService) ConsumePasswordResetLink(ctx context.Context, token, newPassword string) error {
	id, err := s.tokens.VerifyActionToken(TokenPasswordReset, token)
	if err != nil {
		return err
	}
	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, id, hash)
}

// CreateAccountSetupLink mails a newly provisioned user a link to choose
// their first password. Setup tokens carry no expiry by default.
func (s *AuthService) CreateAccountSetupLink(ctx context.Context, userID kernel.UserID) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	tenantName := "your organization"
	if !u.TenantID.IsEmpty() {
		t, err := s.directory.Get(ctx, u.TenantID)
		if err == nil && t != nil {
			tenantName = t.Name
		}
	}

	token, err := s.tokens.IssueActionToken(TokenAccountSetup, u.ID)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/account-setup?token=%s", s.baseURL, url.QueryEscape(token))

	body, err := notifx.RenderAccountSetup(u.FullName(), tenantName, link)
	if err != nil {
		return err
	}

	if err := s.mail.Send(ctx, notifx.EmailMessage{
		To:       []string{u.Email},
		From:     s.fromAddress,
		Subject:  "Set up your account",
		HTMLBody: body,
	}); err != nil {
		return err
	}

	logx.WithField("user_id", u.ID.String()).Info("Account setup link sent")
	return nil
}

// ConsumeAccountSetupLink verifies a setup token and sets the password.
func (s *AuthService) ConsumeAccountSetupLink(ctx context.Context, token, password string) error {
	id, err := s.tokens.VerifyActionToken(TokenAccountSetup, token)
	if err != nil {
		return err
	}
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, id, hash)
}

func formatExpiry(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		h := int(d.Hours())
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	m := int(d.Minutes())
	if m <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
