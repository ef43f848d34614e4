package tenantsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/authgate/pkg/iam/tenant"
	"github.com/Abraxas-365/authgate/pkg/logx"
)

// EntitlementResolver lazily decides a tenant's currently active
// subscription. A still-valid denormalized pointer is reused without any
// store access; otherwise the history is rescanned and the result, active
// or nil, is written back onto the tenant record.
type EntitlementResolver struct {
	tenants       tenant.TenantRepository
	subscriptions tenant.SubscriptionRepository
	now           func() time.Time
}

// NewEntitlementResolver creates the resolver.
func NewEntitlementResolver(tenants tenant.TenantRepository, subscriptions tenant.SubscriptionRepository) *EntitlementResolver {
	return &EntitlementResolver{
		tenants:       tenants,
		subscriptions: subscriptions,
		now:           time.Now,
	}
}

// ResolveActive returns the tenant's active subscription and updates
// t.Subscription in place. History arrives newest-first, so when intervals
// overlap the most recently created subscription wins.
//
// The denormalization write-back is best effort: a failed persist is logged
// and the resolved value is still returned, so a read never fails on store
// write latency alone.
func (r *EntitlementResolver) ResolveActive(ctx context.Context, t *tenant.Tenant) (*tenant.Subscription, error) {
	today := r.now()

	if t.Subscription != nil && t.Subscription.Covers(today) {
		return t.Subscription, nil
	}

	history, err := r.subscriptions.FindByTenant(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	var active *tenant.Subscription
	for _, sub := range history {
		if sub.Covers(today) {
			active = sub
			break
		}
	}

	if err := r.tenants.SaveEntitlement(ctx, t.ID, active); err != nil {
		logx.WithError(err).WithField("tenant_id", t.ID.String()).
			Warn("Failed to persist resolved entitlement")
	}

	t.Subscription = active
	return active, nil
}
