package tenant

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/authgate/pkg/errx"
	"github.com/Abraxas-365/authgate/pkg/kernel"
)

// ============================================================================
// Domain Types
// ============================================================================

// Plan is a subscription plan tier
type Plan string

const (
	PlanNone  Plan = "NONE"
	PlanBasic Plan = "BASIC"
	PlanPro   Plan = "PRO"
)

// AllPlans lists every valid plan tier
var AllPlans = []Plan{PlanNone, PlanBasic, PlanPro}

// IsValid reports whether the plan is a known tier
func (p Plan) IsValid() bool {
	for _, plan := range AllPlans {
		if p == plan {
			return true
		}
	}
	return false
}

// Subscription is one entry of a tenant's append-only subscription history.
// At most one subscription is active at any instant; activity is decided by
// date-interval containment, inclusive on both ends.
type Subscription struct {
	ID         string          `db:"id" json:"id"`
	TenantID   kernel.TenantID `db:"tenant_id" json:"tenant_id"`
	Plan       Plan            `db:"plan" json:"plan"`
	IsTrial    bool            `db:"is_trial" json:"is_trial"`
	StartDate  time.Time       `db:"start_date" json:"start_date"`
	EndDate    time.Time       `db:"end_date" json:"end_date"`
	CreatedBy  kernel.UserID   `db:"created_by" json:"created_by"`
	ModifiedBy kernel.UserID   `db:"modified_by" json:"modified_by"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// Covers reports whether the given instant falls inside the subscription
// interval. Both boundary days count.
func (s *Subscription) Covers(at time.Time) bool {
	if s.StartDate.IsZero() || s.EndDate.IsZero() {
		return false
	}
	day := truncateToDay(at)
	return !day.Before(truncateToDay(s.StartDate)) && !day.After(truncateToDay(s.EndDate))
}

// SameTerms reports whether another subscription request carries identical
// terms, in which case no new history entry is needed.
func (s *Subscription) SameTerms(plan Plan, isTrial bool, startDate, endDate time.Time) bool {
	return s.Plan == plan &&
		s.IsTrial == isTrial &&
		s.StartDate.Equal(startDate) &&
		s.EndDate.Equal(endDate)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Tenant is an isolated customer organization. Subscription is the
// denormalized pointer to the currently active entry of the subscription
// history; it is recomputed lazily and may be stale or nil.
type Tenant struct {
	ID               kernel.TenantID `json:"id"`
	Name             string          `json:"name"`
	Domain           string          `json:"domain"`
	IsActive         bool            `json:"is_active"`
	ConnectionString string          `json:"-"`
	RedirectURIs     []string        `json:"redirect_uris,omitempty"`
	Subscription     *Subscription   `json:"subscription,omitempty"`

	// Business profile
	NatureOfBusiness  string `json:"nature_of_business,omitempty"`
	CompanyType       string `json:"company_type,omitempty"`
	ShipmentVolume    string `json:"shipment_volume,omitempty"`
	MajorShipmentMode string `json:"major_shipment_mode,omitempty"`
	MajorCargo        string `json:"major_cargo,omitempty"`
	Logo              string `json:"logo,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectiveRedirectURIs returns the configured redirect URIs, or the
// default <domain>/callback when none are configured.
func (t *Tenant) EffectiveRedirectURIs() []string {
	if len(t.RedirectURIs) > 0 {
		return t.RedirectURIs
	}
	return []string{t.Domain + "/callback"}
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("TENANT")

var (
	CodeTenantNotFound       = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Tenant not found")
	CodeSubscriptionNotFound = ErrRegistry.Register("SUBSCRIPTION_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Subscription not found")
	CodeInvalidPlan          = ErrRegistry.Register("INVALID_PLAN", errx.TypeValidation, http.StatusBadRequest, "Invalid subscription plan")
	CodeCacheUnavailable     = ErrRegistry.Register("CACHE_UNAVAILABLE", errx.TypeExternal, http.StatusServiceUnavailable, "Tenant cache unavailable")
)

func ErrTenantNotFound() *errx.Error {
	return ErrRegistry.New(CodeTenantNotFound)
}

func ErrSubscriptionNotFound() *errx.Error {
	return ErrRegistry.New(CodeSubscriptionNotFound)
}

func ErrInvalidPlan() *errx.Error {
	return ErrRegistry.New(CodeInvalidPlan)
}

func ErrCacheUnavailable() *errx.Error {
	return ErrRegistry.New(CodeCacheUnavailable)
}
