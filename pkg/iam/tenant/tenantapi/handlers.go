package tenantapi

import (
	"time"

	"github.com/Abraxas-365/authgate/pkg/iam/auth"
	"github.com/Abraxas-365/authgate/pkg/iam/tenant"
	"github.com/Abraxas-365/authgate/pkg/iam/tenant/tenantsrv"
	"github.com/Abraxas-365/authgate/pkg/iam/user"
	"github.com/Abraxas-365/authgate/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

// TenantHandlers exposes tenant administration. All routes require a
// superadmin session.
type TenantHandlers struct {
	tenants *tenantsrv.TenantService
}

// NewTenantHandlers creates the handlers.
func NewTenantHandlers(tenants *tenantsrv.TenantService) *TenantHandlers {
	return &TenantHandlers{tenants: tenants}
}

// RegisterRoutes mounts the tenant routes under /api/v1/tenants.
func (h *TenantHandlers) RegisterRoutes(app fiber.Router, mw *auth.TokenMiddleware) {
	g := app.Group("/api/v1/tenants", mw.Authenticate(), mw.RequireRole(user.RoleSuperAdmin))

	g.Post("/", h.Create)
	g.Get("/", h.List)
	g.Post("/cache/rebuild", h.RebuildCache)
	g.Get("/:id", h.Get)
	g.Put("/:id", h.Update)
	g.Delete("/:id", h.Delete)
	g.Put("/:id/subscription", h.UpdateSubscription)
}

type subscriptionBody struct {
	Plan      string `json:"plan"`
	IsTrial   bool   `json:"is_trial"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type tenantBody struct {
	Name             string   `json:"name"`
	Domain           string   `json:"domain"`
	IsActive         bool     `json:"is_active"`
	ConnectionString string   `json:"connection_string"`
	RedirectURIs     []string `json:"redirect_uris"`

	NatureOfBusiness  string `json:"nature_of_business"`
	CompanyType       string `json:"company_type"`
	ShipmentVolume    string `json:"shipment_volume"`
	MajorShipmentMode string `json:"major_shipment_mode"`
	MajorCargo        string `json:"major_cargo"`
	Logo              string `json:"logo"`

	Subscription *subscriptionBody `json:"subscription"`
}

// Create registers a new tenant, optionally with its first subscription.
func (h *TenantHandlers) Create(c *fiber.Ctx) error {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return auth.ErrUnauthorized()
	}

	var body tenantBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if body.Name == "" || body.Domain == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name and domain are required")
	}

	req := tenantsrv.CreateTenantRequest{
		Name:              body.Name,
		Domain:            body.Domain,
		IsActive:          body.IsActive,
		ConnectionString:  body.ConnectionString,
		RedirectURIs:      body.RedirectURIs,
		NatureOfBusiness:  body.NatureOfBusiness,
		CompanyType:       body.CompanyType,
		ShipmentVolume:    body.ShipmentVolume,
		MajorShipmentMode: body.MajorShipmentMode,
		MajorCargo:        body.MajorCargo,
		Logo:              body.Logo,
		ActorID:           p.User.ID,
	}
	if body.Subscription != nil {
		start, end, err := parseDateRange(body.Subscription.StartDate, body.Subscription.EndDate)
		if err != nil {
			return err
		}
		req.Plan = tenant.Plan(body.Subscription.Plan)
		req.IsTrial = body.Subscription.IsTrial
		req.StartDate = start
		req.EndDate = end
	}

	t, err := h.tenants.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

// List returns one page of tenants.
func (h *TenantHandlers) List(c *fiber.Ctx) error {
	page, err := h.tenants.List(c.UserContext(), paginationFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// Get returns one tenant.
func (h *TenantHandlers) Get(c *fiber.Ctx) error {
	t, err := h.tenants.Get(c.UserContext(), kernel.NewTenantID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(t)
}

// Update overwrites tenant fields.
func (h *TenantHandlers) Update(c *fiber.Ctx) error {
	var body tenantBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	t, err := h.tenants.Update(c.UserContext(), kernel.NewTenantID(c.Params("id")), tenantsrv.UpdateTenantRequest{
		Name:              body.Name,
		Domain:            body.Domain,
		IsActive:          body.IsActive,
		ConnectionString:  body.ConnectionString,
		NatureOfBusiness:  body.NatureOfBusiness,
		CompanyType:       body.CompanyType,
		ShipmentVolume:    body.ShipmentVolume,
		MajorShipmentMode: body.MajorShipmentMode,
		MajorCargo:        body.MajorCargo,
		Logo:              body.Logo,
	})
	if err != nil {
		return err
	}
	return c.JSON(t)
}

// Delete removes a tenant.
func (h *TenantHandlers) Delete(c *fiber.Ctx) error {
	if err := h.tenants.Delete(c.UserContext(), kernel.NewTenantID(c.Params("id"))); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateSubscription applies new subscription terms to a tenant.
func (h *TenantHandlers) UpdateSubscription(c *fiber.Ctx) error {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return auth.ErrUnauthorized()
	}

	var body subscriptionBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	start, end, err := parseDateRange(body.StartDate, body.EndDate)
	if err != nil {
		return err
	}

	t, err := h.tenants.UpdateSubscription(c.UserContext(),
		kernel.NewTenantID(c.Params("id")),
		tenant.Plan(body.Plan), body.IsTrial, start, end, p.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(t)
}

// RebuildCache forces a full directory rebuild.
func (h *TenantHandlers) RebuildCache(c *fiber.Ctx) error {
	h.tenants.InvalidateCache(c.UserContext())
	return c.SendStatus(fiber.StatusAccepted)
}

func parseDateRange(start, end string) (time.Time, time.Time, error) {
	var zero time.Time
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return zero, zero, fiber.NewError(fiber.StatusBadRequest, "start_date must be YYYY-MM-DD")
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return zero, zero, fiber.NewError(fiber.StatusBadRequest, "end_date must be YYYY-MM-DD")
	}
	return s, e, nil
}

func paginationFrom(c *fiber.Ctx) kernel.PaginationOptions {
	opts := kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 || opts.PageSize > 100 {
		opts.PageSize = 20
	}
	return opts
}
