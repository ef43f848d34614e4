package tenantsrv

import (
	"context"
	"encoding/json"

	"github.com/Abraxas-365/authgate/pkg/errx"
	"github.com/Abraxas-365/authgate/pkg/iam/tenant"
	"github.com/Abraxas-365/authgate/pkg/kernel"
	"github.com/Abraxas-365/authgate/pkg/logx"
)

// Directory is the cache-aside read path for tenant records. Every
// authentication and every bearer verification goes through Get; the
// durable store is only touched on a miss or an explicit rebuild.
//
// The cache is strictly derived state: a rebuild always recomputes the full
// snapshot from the store, so concurrent rebuilds can interleave with
// last-write-wins and never accumulate stale partial entries.
type Directory struct {
	cache    tenant.CacheStore
	tenants  tenant.TenantRepository
	resolver *EntitlementResolver
}

// NewDirectory creates the directory.
func NewDirectory(cache tenant.CacheStore, tenants tenant.TenantRepository, resolver *EntitlementResolver) *Directory {
	return &Directory{
		cache:    cache,
		tenants:  tenants,
		resolver: resolver,
	}
}

// Get returns the cached tenant snapshot. On a miss the full cache is
// rebuilt once and the lookup retried; absence after that is reported as
// (nil, nil) and the caller decides what an unknown tenant means.
func (d *Directory) Get(ctx context.Context, id kernel.TenantID) (*tenant.Tenant, error) {
	t, found, err := d.lookup(ctx, id)
	if err == nil && found {
		return t, nil
	}
	if err != nil {
		logx.WithError(err).WithField("tenant_id", id.String()).
			Warn("Tenant cache read failed, rebuilding")
	}

	if rebuildErr := d.RebuildAll(ctx); rebuildErr != nil {
		logx.WithError(rebuildErr).Error("Tenant cache rebuild failed during lookup")
	}

	t, found, err = d.lookup(ctx, id)
	if err != nil {
		return nil, errx.Wrap(err, "tenant cache unavailable", errx.TypeExternal)
	}
	if !found {
		return nil, nil
	}
	return t, nil
}

// RebuildAll recomputes the entire tenant snapshot from the durable store
// and replaces the cache in one batch. Large and sensitive fields are
// stripped before caching. A failure leaves the previous snapshot in place.
func (d *Directory) RebuildAll(ctx context.Context) error {
	tenants, err := d.tenants.FindAll(ctx)
	if err != nil {
		return errx.Wrap(err, "failed to load tenants for cache rebuild", errx.TypeInternal)
	}

	entries := make(map[string][]byte, len(tenants))
	for _, t := range tenants {
		if _, err := d.resolver.ResolveActive(ctx, t); err != nil {
			return errx.Wrap(err, "failed to resolve entitlement during cache rebuild", errx.TypeInternal).
				WithDetail("tenant_id", t.ID.String())
		}

		snapshot := *t
		snapshot.Logo = ""
		snapshot.ConnectionString = ""

		payload, err := json.Marshal(snapshot)
		if err != nil {
			return errx.Wrap(err, "failed to encode tenant for cache", errx.TypeInternal).
				WithDetail("tenant_id", t.ID.String())
		}
		entries[t.ID.String()] = payload
	}

	if err := d.cache.SetAll(ctx, entries); err != nil {
		return err
	}

	logx.WithField("tenants", len(entries)).Info("Tenant cache rebuilt")
	return nil
}

func (d *Directory) lookup(ctx context.Context, id kernel.TenantID) (*tenant.Tenant, bool, error) {
	payload, found, err := d.cache.Get(ctx, id.String())
	if err != nil || !found {
		return nil, false, err
	}

	var t tenant.Tenant
	if err := json.Unmarshal(payload, &t); err != nil {
		// A corrupt entry counts as a miss so the rebuild path can heal it.
		logx.WithError(err).WithField("tenant_id", id.String()).
			Warn("Corrupt tenant cache entry")
		return nil, false, nil
	}
	return &t, true, nil
}
