package auth

import (
	"context"
	"time"

	"github.com/Abraxas-365/authgate/pkg/iam/tenant"
	"github.com/Abraxas-365/authgate/pkg/kernel"
)

// TokenService defines the contract for issuing and verifying tokens.
type TokenService interface {
	IssueSessionToken(kind TokenKind, p *Principal) (string, error)
	VerifySessionToken(kind TokenKind, token string) (*SessionClaims, error)
	IssueActionToken(kind TokenKind, userID kernel.UserID) (string, error)
	VerifyActionToken(kind TokenKind, token string) (kernel.UserID, error)
	AccessTokenTTL() time.Duration
}

// TenantDirectory is the cached tenant read path the pipeline depends on.
// An unknown tenant is (nil, nil); an error means the cache lookup and its
// rebuild both failed.
type TenantDirectory interface {
	Get(ctx context.Context, id kernel.TenantID) (*tenant.Tenant, error)
}
