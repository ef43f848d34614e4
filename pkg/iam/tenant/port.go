package tenant

import (
	"context"

	"github.com/Abraxas-365/authgate/pkg/kernel"
)

// TenantRepository defines the contract for tenant persistence
type TenantRepository interface {
	Save(ctx context.Context, t Tenant) error
	FindByID(ctx context.Context, id kernel.TenantID) (*Tenant, error)
	FindAll(ctx context.Context) ([]*Tenant, error)
	FindPage(ctx context.Context, opts kernel.PaginationOptions) ([]*Tenant, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id kernel.TenantID) error

	// SaveEntitlement persists the denormalized active-subscription pointer.
	// A nil subscription clears the pointer.
	SaveEntitlement(ctx context.Context, id kernel.TenantID, sub *Subscription) error
}

// SubscriptionRepository defines the contract for subscription history.
// History is append-only; FindByTenant returns entries newest-first so the
// resolver's first-match tie-break is deterministic.
type SubscriptionRepository interface {
	Save(ctx context.Context, sub Subscription) error
	FindByTenant(ctx context.Context, id kernel.TenantID) ([]*Subscription, error)
}

// CacheStore is the key-value store backing the tenant directory. The
// connection is constructed and owned by the caller; absence is reported
// through the bool, never through an error. SetAll must write the whole
// batch or nothing so a failed rebuild cannot leave a partial snapshot.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetAll(ctx context.Context, entries map[string][]byte) error
}
