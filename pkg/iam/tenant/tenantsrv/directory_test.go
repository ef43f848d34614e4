package tenantsrv_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Abraxas-365/authgate/pkg/iam/tenant"
	"github.com/Abraxas-365/authgate/pkg/iam/tenant/tenantsrv"
	"github.com/Abraxas-365/authgate/pkg/kernel"
)

type fakeCacheStore struct {
	entries map[string][]byte

	getErr   error
	setErr   error
	setCalls int
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{entries: make(map[string][]byte)}
}

func (c *fakeCacheStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	payload, ok := c.entries[key]
	return payload, ok, nil
}

func (c *fakeCacheStore) SetAll(_ context.Context, entries map[string][]byte) error {
	c.setCalls++
	if c.setErr != nil {
		return c.setErr
	}
	c.entries = make(map[string][]byte, len(entries))
	for k, v := range entries {
		c.entries[k] = v
	}
	return nil
}

func newDirectory(cache tenant.CacheStore, tenants *fakeTenantRepo, subs *fakeSubscriptionRepo) *tenantsrv.Directory {
	resolver := tenantsrv.NewEntitlementResolver(tenants, subs)
	return tenantsrv.NewDirectory(cache, tenants, resolver)
}

func activeTenant(id, domain string) *tenant.Tenant {
	tid := kernel.NewTenantID(id)
	return &tenant.Tenant{
		ID:       tid,
		Name:     "Tenant " + id,
		Domain:   domain,
		IsActive: true,
		Subscription: subscription("sub-"+id, tid, tenant.PlanPro,
			day(-10), day(10), day(-10)),
	}
}

func TestGetMissRebuildsAndServes(t *testing.T) {
	tn := activeTenant("t1", "https://acme.example.com")
	cache := newFakeCacheStore()
	tenants := newFakeTenantRepo(tn)
	dir := newDirectory(cache, tenants, newFakeSubscriptionRepo())

	got, err := dir.Get(context.Background(), tn.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.ID != tn.ID {
		t.Fatalf("got = %+v, want tenant t1", got)
	}
	if got.Subscription == nil || got.Subscription.Plan != tenant.PlanPro {
		t.Errorf("cached snapshot lost its entitlement: %+v", got.Subscription)
	}
	if cache.setCalls != 1 {
		t.Errorf("rebuilds = %d, want 1", cache.setCalls)
	}
}

func TestGetServedFromCacheWithoutStoreAccess(t *testing.T) {
	tn := activeTenant("t1", "https://acme.example.com")
	cache := newFakeCacheStore()
	tenants := newFakeTenantRepo(tn)
	dir := newDirectory(cache, tenants, newFakeSubscriptionRepo())

	if err := dir.RebuildAll(context.Background()); err != nil {
		t.Fatalf("RebuildAll: %v", err)
	}

	// With a warm cache the durable store must stay untouched.
	tenants.findAllErr = errors.New("db down")
	got, err := dir.Get(context.Background(), tn.ID)
	if err != nil {
		t.Fatalf("Get after warm-up: %v", err)
	}
	if got == nil || got.Domain != "https://acme.example.com" {
		t.Fatalf("got = %+v", got)
	}
}

func TestGetUnknownTenantIsNilNil(t *testing.T) {
	cache := newFakeCacheStore()
	tenants := newFakeTenantRepo(activeTenant("t1", "https://acme.example.com"))
	dir := newDirectory(cache, tenants, newFakeSubscriptionRepo())

	got, err := dir.Get(context.Background(), kernel.NewTenantID("missing"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("got = %+v, want nil for unknown tenant", got)
	}
	if cache.setCalls != 1 {
		t.Errorf("rebuild attempted %d times, want exactly one retry", cache.setCalls)
	}
}

func TestRebuildStripsLogoAndConnectionString(t *testing.T) {
	tn := activeTenant("t1", "https://acme.example.com")
	tn.Logo = strings.Repeat("A", 4096)
	tn.ConnectionString = "postgres://tenant:secret@db/acme"

	cache := newFakeCacheStore()
	dir := newDirectory(cache, newFakeTenantRepo(tn), newFakeSubscriptionRepo())

	if err := dir.RebuildAll(context.Background()); err != nil {
		t.Fatalf("RebuildAll: %v", err)
	}

	payload := string(cache.entries[tn.ID.String()])
	if strings.Contains(payload, "AAAA") {
		t.Errorf("logo leaked into the cache payload")
	}
	if strings.Contains(payload, "secret@db") {
		t.Errorf("connection string leaked into the cache payload")
	}

	got, err := dir.Get(context.Background(), tn.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Logo != "" || got.ConnectionString != "" {
		t.Errorf("snapshot carries stripped fields: logo=%q conn=%q", got.Logo, got.ConnectionString)
	}
}

func TestFailedRebuildKeepsLastGoodSnapshot(t *testing.T) {
	tn := activeTenant("t1", "https://acme.example.com")
	cache := newFakeCacheStore()
	tenants := newFakeTenantRepo(tn)
	dir := newDirectory(cache, tenants, newFakeSubscriptionRepo())

	if err := dir.RebuildAll(context.Background()); err != nil {
		t.Fatalf("RebuildAll: %v", err)
	}

	tenants.findAllErr = errors.New("db down")
	if err := dir.RebuildAll(context.Background()); err == nil {
		t.Fatalf("expected rebuild failure")
	}

	got, err := dir.Get(context.Background(), tn.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.ID != tn.ID {
		t.Fatalf("last good snapshot lost: %+v", got)
	}
}

func TestFailedBatchWriteFailsRebuild(t *testing.T) {
	cache := newFakeCacheStore()
	cache.setErr = errors.New("pipeline aborted")
	dir := newDirectory(cache, newFakeTenantRepo(activeTenant("t1", "d")), newFakeSubscriptionRepo())

	if err := dir.RebuildAll(context.Background()); err == nil {
		t.Fatalf("expected SetAll failure to fail the rebuild")
	}
	if len(cache.entries) != 0 {
		t.Errorf("partial entries written: %d", len(cache.entries))
	}
}

func TestGetHealsCorruptEntry(t *testing.T) {
	tn := activeTenant("t1", "https://acme.example.com")
	cache := newFakeCacheStore()
	dir := newDirectory(cache, newFakeTenantRepo(tn), newFakeSubscriptionRepo())

	if err := dir.RebuildAll(context.Background()); err != nil {
		t.Fatalf("RebuildAll: %v", err)
	}
	cache.entries[tn.ID.String()] = []byte("{not json")

	got, err := dir.Get(context.Background(), tn.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.ID != tn.ID {
		t.Fatalf("corrupt entry not healed: %+v", got)
	}
}

func TestGetReportsCacheOutage(t *testing.T) {
	cache := newFakeCacheStore()
	cache.getErr = errors.New("connection refused")
	dir := newDirectory(cache, newFakeTenantRepo(activeTenant("t1", "d")), newFakeSubscriptionRepo())

	if _, err := dir.Get(context.Background(), kernel.NewTenantID("t1")); err == nil {
		t.Fatalf("expected error when cache stays unreadable after rebuild")
	}
}
