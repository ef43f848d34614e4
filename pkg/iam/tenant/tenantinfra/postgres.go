package tenantinfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/Abraxas-365/authgate/pkg/errx"
	"github.com/Abraxas-365/authgate/pkg/iam/tenant"
	"github.com/Abraxas-365/authgate/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresTenantRepository implements tenant.TenantRepository on Postgres.
type PostgresTenantRepository struct {
	db *sqlx.DB
}

// NewPostgresTenantRepository creates the repository.
func NewPostgresTenantRepository(db *sqlx.DB) tenant.TenantRepository {
	return &PostgresTenantRepository{db: db}
}

const tenantSelect = `
	SELECT t.id, t.name, t.domain, t.is_active, t.connection_string,
	       t.redirect_uris, t.nature_of_business, t.company_type,
	       t.shipment_volume, t.major_shipment_mode, t.major_cargo, t.logo,
	       t.created_at, t.updated_at,
	       s.id AS sub_id, s.plan AS sub_plan, s.is_trial AS sub_is_trial,
	       s.start_date AS sub_start_date, s.end_date AS sub_end_date,
	       s.created_by AS sub_created_by, s.modified_by AS sub_modified_by,
	       s.created_at AS sub_created_at
	FROM tenants t
	LEFT JOIN subscriptions s ON s.id = t.subscription_id`

// Save inserts or updates a tenant.
func (r *PostgresTenantRepository) Save(ctx context.Context, t tenant.Tenant) error {
	query := `
		INSERT INTO tenants (
			id, name, domain, is_active, connection_string, redirect_uris,
			nature_of_business, company_type, shipment_volume,
			major_shipment_mode, major_cargo, logo, created_at, updated_at
		) VALUES (
			:id, :name, :domain, :is_active, :connection_string, :redirect_uris,
			:nature_of_business, :company_type, :shipment_volume,
			:major_shipment_mode, :major_cargo, :logo, :created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			domain = EXCLUDED.domain,
			is_active = EXCLUDED.is_active,
			connection_string = EXCLUDED.connection_string,
			redirect_uris = EXCLUDED.redirect_uris,
			nature_of_business = EXCLUDED.nature_of_business,
			company_type = EXCLUDED.company_type,
			shipment_volume = EXCLUDED.shipment_volume,
			major_shipment_mode = EXCLUDED.major_shipment_mode,
			major_cargo = EXCLUDED.major_cargo,
			logo = EXCLUDED.logo,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.NamedExecContext(ctx, query, toPersistence(t))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return tenant.ErrRegistry.NewWithMessage(tenant.CodeTenantNotFound, "tenant domain already exists").
				WithDetail("domain", t.Domain)
		}
		return errx.Wrap(err, "failed to save tenant", errx.TypeInternal).
			WithDetail("tenant_id", t.ID.String())
	}
	return nil
}

// FindByID returns one tenant with its denormalized subscription.
func (r *PostgresTenantRepository) FindByID(ctx context.Context, id kernel.TenantID) (*tenant.Tenant, error) {
	var row tenantPersistence
	err := r.db.GetContext(ctx, &row, tenantSelect+` WHERE t.id = $1`, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, tenant.ErrTenantNotFound().WithDetail("tenant_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find tenant by ID", errx.TypeInternal)
	}
	domainTenant := toDomain(row)
	return &domainTenant, nil
}

// FindAll returns every tenant, newest first. Used by the directory rebuild.
func (r *PostgresTenantRepository) FindAll(ctx context.Context) ([]*tenant.Tenant, error) {
	var rows []tenantPersistence
	err := r.db.SelectContext(ctx, &rows, tenantSelect+` ORDER BY t.created_at DESC`)
	if err != nil {
		return nil, errx.Wrap(err, "failed to list tenants", errx.TypeInternal)
	}
	return toDomainSlice(rows), nil
}

// FindPage returns one page of tenants, newest first.
func (r *PostgresTenantRepository) FindPage(ctx context.Context, opts kernel.PaginationOptions) ([]*tenant.Tenant, error) {
	var rows []tenantPersistence
	err := r.db.SelectContext(ctx, &rows,
		tenantSelect+` ORDER BY t.created_at DESC LIMIT $1 OFFSET $2`,
		opts.PageSize, opts.Offset())
	if err != nil {
		return nil, errx.Wrap(err, "failed to list tenant page", errx.TypeInternal)
	}
	return toDomainSlice(rows), nil
}

// Count returns the total number of tenants.
func (r *PostgresTenantRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tenants`); err != nil {
		return 0, errx.Wrap(err, "failed to count tenants", errx.TypeInternal)
	}
	return count, nil
}

// Delete removes a tenant.
func (r *PostgresTenantRepository) Delete(ctx context.Context, id kernel.TenantID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id.String())
	if err != nil {
		return errx.Wrap(err, "failed to delete tenant", errx.TypeInternal)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on delete", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return tenant.ErrTenantNotFound().WithDetail("tenant_id", id.String())
	}
	return nil
}

// SaveEntitlement repoints the denormalized active subscription.
func (r *PostgresTenantRepository) SaveEntitlement(ctx context.Context, id kernel.TenantID, sub *tenant.Subscription) error {
	var subID interface{}
	if sub != nil {
		subID = sub.ID
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET subscription_id = $1, updated_at = NOW() WHERE id = $2`,
		subID, id.String())
	if err != nil {
		return errx.Wrap(err, "failed to save tenant entitlement", errx.TypeInternal).
			WithDetail("tenant_id", id.String())
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on entitlement save", errx.TypeInternal)
	}
	if rowsAffected == 0 {
		return tenant.ErrTenantNotFound().WithDetail("tenant_id", id.String())
	}
	return nil
}

// ============================================================================
// Subscription repository
// ============================================================================

// PostgresSubscriptionRepository implements tenant.SubscriptionRepository.
type PostgresSubscriptionRepository struct {
	db *sqlx.DB
}

// NewPostgresSubscriptionRepository creates the repository.
func NewPostgresSubscriptionRepository(db *sqlx.DB) tenant.SubscriptionRepository {
	return &PostgresSubscriptionRepository{db: db}
}

// Save appends one subscription to the history.
func (r *PostgresSubscriptionRepository) Save(ctx context.Context, sub tenant.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, tenant_id, plan, is_trial, start_date, end_date,
			created_by, modified_by, created_at
		) VALUES (
			:id, :tenant_id, :plan, :is_trial, :start_date, :end_date,
			:created_by, :modified_by, :created_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, sub)
	if err != nil {
		return errx.Wrap(err, "failed to save subscription", errx.TypeInternal).
			WithDetail("tenant_id", sub.TenantID.String())
	}
	return nil
}

// FindByTenant returns the tenant's history newest-first. The order is the
// resolver's tie-break for overlapping intervals.
func (r *PostgresSubscriptionRepository) FindByTenant(ctx context.Context, id kernel.TenantID) ([]*tenant.Subscription, error) {
	var subs []*tenant.Subscription
	err := r.db.SelectContext(ctx, &subs,
		`SELECT * FROM subscriptions WHERE tenant_id = $1 ORDER BY created_at DESC`,
		id.String())
	if err != nil {
		return nil, errx.Wrap(err, "failed to find subscriptions by tenant", errx.TypeInternal)
	}
	return subs, nil
}

// ============================================================================
// Persistence mapping
// ============================================================================

type tenantPersistence struct {
	ID                kernel.TenantID `db:"id"`
	Name              string          `db:"name"`
	Domain            string          `db:"domain"`
	IsActive          bool            `db:"is_active"`
	ConnectionString  string          `db:"connection_string"`
	RedirectURIs      pq.StringArray  `db:"redirect_uris"`
	NatureOfBusiness  sql.NullString  `db:"nature_of_business"`
	CompanyType       sql.NullString  `db:"company_type"`
	ShipmentVolume    sql.NullString  `db:"shipment_volume"`
	MajorShipmentMode sql.NullString  `db:"major_shipment_mode"`
	MajorCargo        sql.NullString  `db:"major_cargo"`
	Logo              sql.NullString  `db:"logo"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`

	SubID         sql.NullString `db:"sub_id"`
	SubPlan       sql.NullString `db:"sub_plan"`
	SubIsTrial    sql.NullBool   `db:"sub_is_trial"`
	SubStartDate  sql.NullTime   `db:"sub_start_date"`
	SubEndDate    sql.NullTime   `db:"sub_end_date"`
	SubCreatedBy  sql.NullString `db:"sub_created_by"`
	SubModifiedBy sql.NullString `db:"sub_modified_by"`
	SubCreatedAt  sql.NullTime   `db:"sub_created_at"`
}

func toPersistence(t tenant.Tenant) tenantPersistence {
	return tenantPersistence{
		ID:                t.ID,
		Name:              t.Name,
		Domain:            t.Domain,
		IsActive:          t.IsActive,
		ConnectionString:  t.ConnectionString,
		RedirectURIs:      t.RedirectURIs,
		NatureOfBusiness:  sql.NullString{String: t.NatureOfBusiness, Valid: t.NatureOfBusiness != ""},
		CompanyType:       sql.NullString{String: t.CompanyType, Valid: t.CompanyType != ""},
		ShipmentVolume:    sql.NullString{String: t.ShipmentVolume, Valid: t.ShipmentVolume != ""},
		MajorShipmentMode: sql.NullString{String: t.MajorShipmentMode, Valid: t.MajorShipmentMode != ""},
		MajorCargo:        sql.NullString{String: t.MajorCargo, Valid: t.MajorCargo != ""},
		Logo:              sql.NullString{String: t.Logo, Valid: t.Logo != ""},
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func toDomain(p tenantPersistence) tenant.Tenant {
	t := tenant.Tenant{
		ID:                p.ID,
		Name:              p.Name,
		Domain:            p.Domain,
		IsActive:          p.IsActive,
		ConnectionString:  p.ConnectionString,
		RedirectURIs:      p.RedirectURIs,
		NatureOfBusiness:  p.NatureOfBusiness.String,
		CompanyType:       p.CompanyType.String,
		ShipmentVolume:    p.ShipmentVolume.String,
		MajorShipmentMode: p.MajorShipmentMode.String,
		MajorCargo:        p.MajorCargo.String,
		Logo:              p.Logo.String,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if p.SubID.Valid {
		t.Subscription = &tenant.Subscription{
			ID:         p.SubID.String,
			TenantID:   p.ID,
			Plan:       tenant.Plan(p.SubPlan.String),
			IsTrial:    p.SubIsTrial.Bool,
			StartDate:  p.SubStartDate.Time,
			EndDate:    p.SubEndDate.Time,
			CreatedBy:  kernel.UserID(p.SubCreatedBy.String),
			ModifiedBy: kernel.UserID(p.SubModifiedBy.String),
			CreatedAt:  p.SubCreatedAt.Time,
		}
	}
	return t
}

func toDomainSlice(rows []tenantPersistence) []*tenant.Tenant {
	tenants := make([]*tenant.Tenant, len(rows))
	for i, row := range rows {
		t := toDomain(row)
		tenants[i] = &t
	}
	return tenants
}
