package iamcontainer

import (
	"context"

	"github.com/Abraxas-365/authgate/pkg/config"
	"github.com/Abraxas-365/authgate/pkg/iam/auth"
	"github.com/Abraxas-365/authgate/pkg/iam/auth/authapi"
	"github.com/Abraxas-365/authgate/pkg/iam/tenant/tenantapi"
	"github.com/Abraxas-365/authgate/pkg/iam/tenant/tenantinfra"
	"github.com/Abraxas-365/authgate/pkg/iam/tenant/tenantsrv"
	"github.com/Abraxas-365/authgate/pkg/iam/user/userapi"
	"github.com/Abraxas-365/authgate/pkg/iam/user/userinfra"
	"github.com/Abraxas-365/authgate/pkg/iam/user/usersrv"
	"github.com/Abraxas-365/authgate/pkg/logx"
	"github.com/Abraxas-365/authgate/pkg/notifx"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// ---------------------------------------------------------------------------
// Deps: explicit external dependencies this bounded context requires.
// No hidden globals, no ambient state — everything comes through here.
// ---------------------------------------------------------------------------

type Deps struct {
	DB    *sqlx.DB
	Redis *redis.Client
	Cfg   *config.Config

	// EmailSender is injected as an interface so the IAM module has zero
	// knowledge of the concrete mail transport.
	EmailSender notifx.EmailSender
}

// ---------------------------------------------------------------------------
// Container: the public surface of the IAM module.
// Only expose what other modules or cmd/ actually need.
// ---------------------------------------------------------------------------

type Container struct {
	// Services
	UserService   *usersrv.UserService
	TenantService *tenantsrv.TenantService
	AuthService   *auth.AuthService
	TokenService  auth.TokenService
	Directory     *tenantsrv.Directory

	// API handlers for cmd/ to register routes
	AuthHandlers   *authapi.AuthHandlers
	TenantHandlers *tenantapi.TenantHandlers
	UserHandlers   *userapi.UserHandlers

	// Middleware for cmd/ to protect route groups
	AuthMiddleware *auth.TokenMiddleware
}

// New constructs the entire IAM dependency graph.
// Order matters: infra -> repos -> services -> handlers -> middleware.
func New(deps Deps) *Container {
	logx.Info("🔧 Initializing IAM container...")

	c := &Container{}

	// ── Repositories ─────────────────────────────────────────────────────

	tenantRepo := tenantinfra.NewPostgresTenantRepository(deps.DB)
	subscriptionRepo := tenantinfra.NewPostgresSubscriptionRepository(deps.DB)
	userRepo := userinfra.NewPostgresUserRepository(deps.DB)
	cacheStore := tenantinfra.NewRedisCacheStore(deps.Redis, deps.Cfg.Redis.OpTimeout)

	// ── Infrastructure services ──────────────────────────────────────────

	passwordSvc := userinfra.NewBcryptPasswordService(0)
	c.TokenService = auth.NewJWTService(deps.Cfg.JWT, deps.Cfg.Server.BaseURL)

	// ── Domain services ──────────────────────────────────────────────────

	resolver := tenantsrv.NewEntitlementResolver(tenantRepo, subscriptionRepo)
	c.Directory = tenantsrv.NewDirectory(cacheStore, tenantRepo, resolver)

	c.TenantService = tenantsrv.NewTenantService(
		tenantRepo,
		subscriptionRepo,
		resolver,
		c.Directory,
	)

	c.UserService = usersrv.NewUserService(
		userRepo,
		passwordSvc,
	)

	c.AuthService = auth.NewAuthService(
		userRepo,
		passwordSvc,
		c.Directory,
		c.TokenService,
		deps.EmailSender,
		deps.Cfg.Server.BaseURL,
		deps.Cfg.Email.FromAddress,
		deps.Cfg.JWT.PasswordResetTTL,
	)

	// ── Middleware ───────────────────────────────────────────────────────

	c.AuthMiddleware = auth.NewTokenMiddleware(c.AuthService)

	// ── API handlers ─────────────────────────────────────────────────────

	c.AuthHandlers = authapi.NewAuthHandlers(c.AuthService, c.UserService, c.AuthMiddleware)
	c.TenantHandlers = tenantapi.NewTenantHandlers(c.TenantService)
	c.UserHandlers = userapi.NewUserHandlers(c.UserService, c.AuthService)

	logx.Info("✅ IAM container initialized")
	return c
}

// WarmCache primes the tenant directory so the first authentication does
// not pay the rebuild. A failure is logged and left to the read-side
// miss path.
func (c *Container) WarmCache(ctx context.Context) {
	if err := c.Directory.RebuildAll(ctx); err != nil {
		logx.WithError(err).Warn("Initial tenant cache warm-up failed")
	}
}
