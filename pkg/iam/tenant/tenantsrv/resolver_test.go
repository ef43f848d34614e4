package tenantsrv_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Abraxas-365/authgate/pkg/iam/tenant"
	"github.com/Abraxas-365/authgate/pkg/iam/tenant/tenantsrv"
	"github.com/Abraxas-365/authgate/pkg/kernel"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeTenantRepo struct {
	tenants map[kernel.TenantID]*tenant.Tenant

	entitlementCalls int
	lastEntitlement  *tenant.Subscription
	entitlementErr   error
	findAllErr       error
}

func newFakeTenantRepo(tenants ...*tenant.Tenant) *fakeTenantRepo {
	r := &fakeTenantRepo{tenants: make(map[kernel.TenantID]*tenant.Tenant)}
	for _, t := range tenants {
		r.tenants[t.ID] = t
	}
	return r
}

func (r *fakeTenantRepo) Save(_ context.Context, t tenant.Tenant) error {
	r.tenants[t.ID] = &t
	return nil
}

func (r *fakeTenantRepo) FindByID(_ context.Context, id kernel.TenantID) (*tenant.Tenant, error) {
	t, ok := r.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound()
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTenantRepo) FindAll(_ context.Context) ([]*tenant.Tenant, error) {
	if r.findAllErr != nil {
		return nil, r.findAllErr
	}
	out := make([]*tenant.Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeTenantRepo) FindPage(_ context.Context, _ kernel.PaginationOptions) ([]*tenant.Tenant, error) {
	return r.FindAll(context.Background())
}

func (r *fakeTenantRepo) Count(_ context.Context) (int, error) {
	return len(r.tenants), nil
}

func (r *fakeTenantRepo) Delete(_ context.Context, id kernel.TenantID) error {
	delete(r.tenants, id)
	return nil
}

func (r *fakeTenantRepo) SaveEntitlement(_ context.Context, id kernel.TenantID, sub *tenant.Subscription) error {
	r.entitlementCalls++
	r.lastEntitlement = sub
	if r.entitlementErr != nil {
		return r.entitlementErr
	}
	if t, ok := r.tenants[id]; ok {
		t.Subscription = sub
	}
	return nil
}

type fakeSubscriptionRepo struct {
	history map[kernel.TenantID][]*tenant.Subscription
	calls   int
	err     error
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{history: make(map[kernel.TenantID][]*tenant.Subscription)}
}

func (r *fakeSubscriptionRepo) Save(_ context.Context, sub tenant.Subscription) error {
	// Prepend so history stays newest-first like the Postgres query.
	r.history[sub.TenantID] = append([]*tenant.Subscription{&sub}, r.history[sub.TenantID]...)
	return nil
}

func (r *fakeSubscriptionRepo) FindByTenant(_ context.Context, id kernel.TenantID) ([]*tenant.Subscription, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.history[id], nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func day(offset int) time.Time {
	return time.Now().AddDate(0, 0, offset)
}

func subscription(id string, tenantID kernel.TenantID, plan tenant.Plan, start, end, created time.Time) *tenant.Subscription {
	return &tenant.Subscription{
		ID:        id,
		TenantID:  tenantID,
		Plan:      plan,
		StartDate: start,
		EndDate:   end,
		CreatedAt: created,
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestResolveActiveReusesValidPointer(t *testing.T) {
	id := kernel.NewTenantID("t1")
	current := subscription("s1", id, tenant.PlanBasic, day(-10), day(10), day(-10))
	tn := &tenant.Tenant{ID: id, Subscription: current}

	tenants := newFakeTenantRepo(tn)
	subs := newFakeSubscriptionRepo()
	resolver := tenantsrv.NewEntitlementResolver(tenants, subs)

	active, err := resolver.ResolveActive(context.Background(), tn)
	if err != nil {
		t.Fatalf("ResolveActive: %v", err)
	}
	if active != current {
		t.Fatalf("expected the existing pointer to be reused")
	}
	if subs.calls != 0 {
		t.Errorf("history scanned %d times, want 0", subs.calls)
	}
	if tenants.entitlementCalls != 0 {
		t.Errorf("entitlement persisted %d times, want 0", tenants.entitlementCalls)
	}
}

func TestResolveActiveScansHistoryOnStalePointer(t *testing.T) {
	id := kernel.NewTenantID("t1")
	stale := subscription("s1", id, tenant.PlanBasic, day(-30), day(-20), day(-30))
	fresh := subscription("s2", id, tenant.PlanPro, day(-5), day(5), day(-5))
	tn := &tenant.Tenant{ID: id, Subscription: stale}

	tenants := newFakeTenantRepo(tn)
	subs := newFakeSubscriptionRepo()
	subs.history[id] = []*tenant.Subscription{fresh, stale}
	resolver := tenantsrv.NewEntitlementResolver(tenants, subs)

	active, err := resolver.ResolveActive(context.Background(), tn)
	if err != nil {
		t.Fatalf("ResolveActive: %v", err)
	}
	if active == nil || active.ID != "s2" {
		t.Fatalf("active = %+v, want s2", active)
	}
	if tn.Subscription != active {
		t.Errorf("tenant pointer not updated in place")
	}
	if tenants.lastEntitlement == nil || tenants.lastEntitlement.ID != "s2" {
		t.Errorf("persisted entitlement = %+v, want s2", tenants.lastEntitlement)
	}
}

func TestResolveActiveNewestCreatedWinsOnOverlap(t *testing.T) {
	id := kernel.NewTenantID("t1")
	older := subscription("s1", id, tenant.PlanBasic, day(-10), day(10), day(-10))
	newer := subscription("s2", id, tenant.PlanPro, day(-10), day(10), day(-1))
	tn := &tenant.Tenant{ID: id}

	tenants := newFakeTenantRepo(tn)
	subs := newFakeSubscriptionRepo()
	subs.history[id] = []*tenant.Subscription{newer, older}
	resolver := tenantsrv.NewEntitlementResolver(tenants, subs)

	active, err := resolver.ResolveActive(context.Background(), tn)
	if err != nil {
		t.Fatalf("ResolveActive: %v", err)
	}
	if active == nil || active.ID != "s2" {
		t.Fatalf("active = %+v, want the most recently created entry", active)
	}
}

func TestResolveActiveBoundaryDaysInclusive(t *testing.T) {
	id := kernel.NewTenantID("t1")
	tn := &tenant.Tenant{ID: id}

	cases := []struct {
		name   string
		start  time.Time
		end    time.Time
		active bool
	}{
		{"starts today", day(0), day(10), true},
		{"ends today", day(-10), day(0), true},
		{"ended yesterday", day(-10), day(-1), false},
		{"starts tomorrow", day(1), day(10), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tenants := newFakeTenantRepo(tn)
			subs := newFakeSubscriptionRepo()
			subs.history[id] = []*tenant.Subscription{
				subscription("s1", id, tenant.PlanBasic, tc.start, tc.end, day(-1)),
			}
			resolver := tenantsrv.NewEntitlementResolver(tenants, subs)

			tn.Subscription = nil
			active, err := resolver.ResolveActive(context.Background(), tn)
			if err != nil {
				t.Fatalf("ResolveActive: %v", err)
			}
			if (active != nil) != tc.active {
				t.Errorf("active = %v, want active=%v", active, tc.active)
			}
		})
	}
}

func TestResolveActivePersistsNilWhenNothingCovers(t *testing.T) {
	id := kernel.NewTenantID("t1")
	stale := subscription("s1", id, tenant.PlanBasic, day(-30), day(-20), day(-30))
	tn := &tenant.Tenant{ID: id, Subscription: stale}

	tenants := newFakeTenantRepo(tn)
	subs := newFakeSubscriptionRepo()
	subs.history[id] = []*tenant.Subscription{stale}
	resolver := tenantsrv.NewEntitlementResolver(tenants, subs)

	active, err := resolver.ResolveActive(context.Background(), tn)
	if err != nil {
		t.Fatalf("ResolveActive: %v", err)
	}
	if active != nil {
		t.Fatalf("active = %+v, want nil", active)
	}
	if tn.Subscription != nil {
		t.Errorf("tenant pointer not cleared")
	}
	if tenants.entitlementCalls != 1 || tenants.lastEntitlement != nil {
		t.Errorf("expected nil entitlement to be persisted, got %d calls with %+v",
			tenants.entitlementCalls, tenants.lastEntitlement)
	}
}

func TestResolveActiveSurvivesWriteBackFailure(t *testing.T) {
	id := kernel.NewTenantID("t1")
	fresh := subscription("s1", id, tenant.PlanPro, day(-1), day(1), day(-1))
	tn := &tenant.Tenant{ID: id}

	tenants := newFakeTenantRepo(tn)
	tenants.entitlementErr = errors.New("connection reset")
	subs := newFakeSubscriptionRepo()
	subs.history[id] = []*tenant.Subscription{fresh}
	resolver := tenantsrv.NewEntitlementResolver(tenants, subs)

	active, err := resolver.ResolveActive(context.Background(), tn)
	if err != nil {
		t.Fatalf("ResolveActive: %v", err)
	}
	if active == nil || active.ID != "s1" {
		t.Fatalf("active = %+v, want s1 despite failed write-back", active)
	}
}

func TestResolveActiveHistoryErrorPropagates(t *testing.T) {
	id := kernel.NewTenantID("t1")
	tn := &tenant.Tenant{ID: id}

	tenants := newFakeTenantRepo(tn)
	subs := newFakeSubscriptionRepo()
	subs.err = errors.New("query timeout")
	resolver := tenantsrv.NewEntitlementResolver(tenants, subs)

	if _, err := resolver.ResolveActive(context.Background(), tn); err == nil {
		t.Fatalf("expected history error to propagate")
	}
	if tenants.entitlementCalls != 0 {
		t.Errorf("entitlement persisted after failed scan")
	}
}
