package tenantsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/authgate/pkg/iam/tenant"
	"github.com/Abraxas-365/authgate/pkg/kernel"
	"github.com/Abraxas-365/authgate/pkg/logx"
	"github.com/google/uuid"
)

// TenantService owns tenant administration. Every mutation ends with a
// directory rebuild so the cache never serves a payload staler than the
// last acknowledged write; rebuild failures are logged, not returned, and
// the read-side miss path remains the safety net.
type TenantService struct {
	tenants       tenant.TenantRepository
	subscriptions tenant.SubscriptionRepository
	resolver      *EntitlementResolver
	directory     *Directory
}

// NewTenantService creates the service.
func NewTenantService(
	tenants tenant.TenantRepository,
	subscriptions tenant.SubscriptionRepository,
	resolver *EntitlementResolver,
	directory *Directory,
) *TenantService {
	return &TenantService{
		tenants:       tenants,
		subscriptions: subscriptions,
		resolver:      resolver,
		directory:     directory,
	}
}

// CreateTenantRequest carries the fields for a new tenant, optionally with
// its first subscription.
type CreateTenantRequest struct {
	Name             string
	Domain           string
	IsActive         bool
	ConnectionString string
	RedirectURIs     []string

	NatureOfBusiness  string
	CompanyType       string
	ShipmentVolume    string
	MajorShipmentMode string
	MajorCargo        string
	Logo              string

	Plan      tenant.Plan
	IsTrial   bool
	StartDate time.Time
	EndDate   time.Time
	ActorID   kernel.UserID
}

// Create persists a new tenant, appends its first subscription when a plan
// is given, resolves the entitlement and rebuilds the directory.
func (s *TenantService) Create(ctx context.Context, req CreateTenantRequest) (*tenant.Tenant, error) {
	now := time.Now()
	t := tenant.Tenant{
		ID:                kernel.NewTenantID(uuid.New().String()),
		Name:              req.Name,
		Domain:            req.Domain,
		IsActive:          req.IsActive,
		ConnectionString:  req.ConnectionString,
		RedirectURIs:      req.RedirectURIs,
		NatureOfBusiness:  req.NatureOfBusiness,
		CompanyType:       req.CompanyType,
		ShipmentVolume:    req.ShipmentVolume,
		MajorShipmentMode: req.MajorShipmentMode,
		MajorCargo:        req.MajorCargo,
		Logo:              req.Logo,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.tenants.Save(ctx, t); err != nil {
		return nil, err
	}

	if req.Plan != "" {
		if !req.Plan.IsValid() {
			return nil, tenant.ErrInvalidPlan().WithDetail("plan", string(req.Plan))
		}
		sub := tenant.Subscription{
			ID:         uuid.New().String(),
			TenantID:   t.ID,
			Plan:       req.Plan,
			IsTrial:    req.IsTrial,
			StartDate:  req.StartDate,
			EndDate:    req.EndDate,
			CreatedBy:  req.ActorID,
			ModifiedBy: req.ActorID,
			CreatedAt:  now,
		}
		if err := s.subscriptions.Save(ctx, sub); err != nil {
			return nil, err
		}
	}

	if _, err := s.resolver.ResolveActive(ctx, &t); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return &t, nil
}

// Get returns one tenant with its entitlement freshly resolved.
func (s *TenantService) Get(ctx context.Context, id kernel.TenantID) (*tenant.Tenant, error) {
	t, err := s.tenants.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.resolver.ResolveActive(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns one page of tenants, each with its entitlement resolved.
func (s *TenantService) List(ctx context.Context, opts kernel.PaginationOptions) (kernel.Paginated[*tenant.Tenant], error) {
	var empty kernel.Paginated[*tenant.Tenant]

	tenants, err := s.tenants.FindPage(ctx, opts)
	if err != nil {
		return empty, err
	}
	for _, t := range tenants {
		if _, err := s.resolver.ResolveActive(ctx, t); err != nil {
			return empty, err
		}
	}

	total, err := s.tenants.Count(ctx)
	if err != nil {
		return empty, err
	}
	return kernel.NewPaginated(tenants, opts.Page, opts.PageSize, total), nil
}

// UpdateTenantRequest carries the mutable tenant fields.
type UpdateTenantRequest struct {
	Name             string
	Domain           string
	IsActive         bool
	ConnectionString string

	NatureOfBusiness  string
	CompanyType       string
	ShipmentVolume    string
	MajorShipmentMode string
	MajorCargo        string
	Logo              string
}

// Update overwrites tenant fields and rebuilds the directory.
func (s *TenantService) Update(ctx context.Context, id kernel.TenantID, req UpdateTenantRequest) (*tenant.Tenant, error) {
	t, err := s.tenants.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	t.Name = req.Name
	t.Domain = req.Domain
	t.IsActive = req.IsActive
	t.ConnectionString = req.ConnectionString
	t.NatureOfBusiness = req.NatureOfBusiness
	t.CompanyType = req.CompanyType
	t.ShipmentVolume = req.ShipmentVolume
	t.MajorShipmentMode = req.MajorShipmentMode
	t.MajorCargo = req.MajorCargo
	t.Logo = req.Logo
	t.UpdatedAt = time.Now()

	if err := s.tenants.Save(ctx, *t); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return t, nil
}

// Delete removes a tenant and rebuilds the directory.
func (s *TenantService) Delete(ctx context.Context, id kernel.TenantID) error {
	if err := s.tenants.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// UpdateSubscription applies new subscription terms. History is append
// only: changed terms always create a new entry and repoint the tenant's
// entitlement, identical terms are a no-op.
func (s *TenantService) UpdateSubscription(ctx context.Context, id kernel.TenantID, plan tenant.Plan, isTrial bool, startDate, endDate time.Time, actor kernel.UserID) (*tenant.Tenant, error) {
	if !plan.IsValid() {
		return nil, tenant.ErrInvalidPlan().WithDetail("plan", string(plan))
	}

	t, err := s.tenants.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if t.Subscription != nil && t.Subscription.SameTerms(plan, isTrial, startDate, endDate) {
		return t, nil
	}

	sub := tenant.Subscription{
		ID:         uuid.New().String(),
		TenantID:   t.ID,
		Plan:       plan,
		IsTrial:    isTrial,
		StartDate:  startDate,
		EndDate:    endDate,
		CreatedBy:  actor,
		ModifiedBy: actor,
		CreatedAt:  time.Now(),
	}
	if err := s.subscriptions.Save(ctx, sub); err != nil {
		return nil, err
	}
	if err := s.tenants.SaveEntitlement(ctx, t.ID, &sub); err != nil {
		return nil, err
	}
	t.Subscription = &sub

	s.invalidate(ctx)
	return t, nil
}

// Count returns the total number of tenants.
func (s *TenantService) Count(ctx context.Context) (int, error) {
	return s.tenants.Count(ctx)
}

// InvalidateCache exposes the rebuild trigger for callers outside the
// service, such as an operator endpoint.
func (s *TenantService) InvalidateCache(ctx context.Context) {
	s.invalidate(ctx)
}

func (s *TenantService) invalidate(ctx context.Context) {
	if err := s.directory.RebuildAll(ctx); err != nil {
		logx.WithError(err).Warn("Tenant cache rebuild after write failed")
	}
}
