package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Abraxas-365/authgate/pkg/iam/auth"
	"github.com/Abraxas-365/authgate/pkg/iam/tenant"
	"github.com/Abraxas-365/authgate/pkg/iam/user"
	"github.com/Abraxas-365/authgate/pkg/kernel"
	"github.com/Abraxas-365/authgate/pkg/notifx"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeUserRepo struct {
	users map[kernel.UserID]*user.User

	passwordUpdates map[kernel.UserID]string
}

func newFakeUserRepo(users ...*user.User) *fakeUserRepo {
	r := &fakeUserRepo{
		users:           make(map[kernel.UserID]*user.User),
		passwordUpdates: make(map[kernel.UserID]string),
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Save(_ context.Context, u user.User) error {
	r.users[u.ID] = &u
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id kernel.UserID) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrUserNotFound()
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound()
}

func (r *fakeUserRepo) FindByTenant(_ context.Context, _ kernel.TenantID, _ kernel.PaginationOptions) ([]*user.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) CountByTenant(_ context.Context, _ kernel.TenantID) (int, error) {
	return 0, nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id kernel.UserID) error {
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id kernel.UserID, hash string) error {
	u, ok := r.users[id]
	if !ok {
		return user.ErrUserNotFound()
	}
	u.PasswordHash = hash
	r.passwordUpdates[id] = hash
	return nil
}

// fakePasswords marks hashes as "hash:" + plaintext so tests can assert on
// stored values without real bcrypt cost.
type fakePasswords struct{}

func (fakePasswords) Hash(plaintext string) (string, error) {
	return "hash:" + plaintext, nil
}

func (fakePasswords) Compare(hash, candidate string) bool {
	return hash == "hash:"+candidate
}

type fakeDirectory struct {
	tenants map[kernel.TenantID]*tenant.Tenant
	err     error
}

func newFakeDirectory(tenants ...*tenant.Tenant) *fakeDirectory {
	d := &fakeDirectory{tenants: make(map[kernel.TenantID]*tenant.Tenant)}
	for _, t := range tenants {
		d.tenants[t.ID] = t
	}
	return d
}

func (d *fakeDirectory) Get(_ context.Context, id kernel.TenantID) (*tenant.Tenant, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.tenants[id], nil
}

type fakeMail struct {
	sent []notifx.EmailMessage
	err  error
}

func (m *fakeMail) Send(_ context.Context, msg notifx.EmailMessage) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type authFixture struct {
	svc    *auth.AuthService
	users  *fakeUserRepo
	dir    *fakeDirectory
	mail   *fakeMail
	user   *user.User
	tenant *tenant.Tenant
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	tid := kernel.NewTenantID("t1")
	tn := &tenant.Tenant{
		ID:       tid,
		Name:     "Acme Freight",
		Domain:   "https://acme.example.com",
		IsActive: true,
		Subscription: &tenant.Subscription{
			ID:        "sub1",
			TenantID:  tid,
			Plan:      tenant.PlanPro,
			StartDate: time.Now().AddDate(0, 0, -10),
			EndDate:   time.Now().AddDate(0, 0, 10),
		},
	}
	u := &user.User{
		ID:           kernel.NewUserID("u1"),
		Email:        "jo@acme.example.com",
		FirstName:    "Jo",
		LastName:     "Doe",
		PasswordHash: "hash:s3cret",
		TenantID:     tid,
		Role:         user.RoleAdmin,
		IsActive:     true,
	}

	users := newFakeUserRepo(u)
	dir := newFakeDirectory(tn)
	mail := &fakeMail{}
	tokens := auth.NewJWTService(testJWTConfig(), testBaseURL)

	svc := auth.NewAuthService(users, fakePasswords{}, dir, tokens, mail,
		testBaseURL, "noreply@authgate.io", time.Hour)

	return &authFixture{svc: svc, users: users, dir: dir, mail: mail, user: u, tenant: tn}
}

// ---------------------------------------------------------------------------
// Pipeline tests
// ---------------------------------------------------------------------------

func TestAuthenticateSuccess(t *testing.T) {
	f := newAuthFixture(t)

	p, err := f.svc.Authenticate(context.Background(), "jo@acme.example.com", "s3cret", "openid")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.User.ID != f.user.ID {
		t.Errorf("user = %s, want u1", p.User.ID)
	}
	if p.Tenant.ID != f.tenant.ID {
		t.Errorf("tenant = %s, want t1", p.Tenant.ID)
	}
	if p.Scope != "openid" {
		t.Errorf("scope = %q", p.Scope)
	}
}

func TestAuthenticateRejectionReasons(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*authFixture)
		email  string
		pass   string
		want   error
	}{
		{
			name:  "unknown email",
			email: "nobody@acme.example.com", pass: "s3cret",
			want: auth.ErrInvalidCredentials(),
		},
		{
			name:  "wrong password",
			email: "jo@acme.example.com", pass: "wrong",
			want: auth.ErrInvalidCredentials(),
		},
		{
			name:   "no tenant binding",
			mutate: func(f *authFixture) { f.users.users[f.user.ID].TenantID = "" },
			email:  "jo@acme.example.com", pass: "s3cret",
			want: auth.ErrInvalidCredentials(),
		},
		{
			name:   "tenant missing from directory",
			mutate: func(f *authFixture) { delete(f.dir.tenants, f.tenant.ID) },
			email:  "jo@acme.example.com", pass: "s3cret",
			want: auth.ErrSystemUnavailable(),
		},
		{
			name:   "no active subscription",
			mutate: func(f *authFixture) { f.tenant.Subscription = nil },
			email:  "jo@acme.example.com", pass: "s3cret",
			want: auth.ErrNoActiveSubscription(),
		},
		{
			name:   "tenant deactivated",
			mutate: func(f *authFixture) { f.tenant.IsActive = false },
			email:  "jo@acme.example.com", pass: "s3cret",
			want: auth.ErrTenantInactive(),
		},
		{
			name:   "user deactivated",
			mutate: func(f *authFixture) { f.users.users[f.user.ID].IsActive = false },
			email:  "jo@acme.example.com", pass: "s3cret",
			want: auth.ErrUserInactive(),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAuthFixture(t)
			if tc.mutate != nil {
				tc.mutate(f)
			}

			_, err := f.svc.Authenticate(context.Background(), tc.email, tc.pass, "")
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestAuthenticateChecksEntitlementBeforeActivity(t *testing.T) {
	f := newAuthFixture(t)
	f.tenant.Subscription = nil
	f.tenant.IsActive = false

	_, err := f.svc.Authenticate(context.Background(), "jo@acme.example.com", "s3cret", "")
	if !errors.Is(err, auth.ErrNoActiveSubscription()) {
		t.Fatalf("err = %v, want no-active-subscription to win over tenant-inactive", err)
	}
}

func TestAuthenticateDirectoryOutage(t *testing.T) {
	f := newAuthFixture(t)
	f.dir.err = errors.New("cache and store unreachable")

	_, err := f.svc.Authenticate(context.Background(), "jo@acme.example.com", "s3cret", "")
	if !errors.Is(err, auth.ErrSystemUnavailable()) {
		t.Fatalf("err = %v, want system-unavailable", err)
	}
}

func TestMissingTenantReadsAsRetryLater(t *testing.T) {
	f := newAuthFixture(t)

	p, err := f.svc.Authenticate(context.Background(), "jo@acme.example.com", "s3cret", "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	pair, err := f.svc.IssueTokenPair(p)
	if err != nil {
		t.Fatalf("IssueTokenPair: %v", err)
	}

	delete(f.dir.tenants, f.tenant.ID)

	_, err = f.svc.Authenticate(context.Background(), "jo@acme.example.com", "s3cret", "")
	if !errors.Is(err, auth.ErrSystemUnavailable()) {
		t.Fatalf("Authenticate err = %v, want system-unavailable", err)
	}
	if errors.Is(err, tenant.ErrTenantNotFound()) {
		t.Fatalf("missing tenant surfaced as tenant-not-found")
	}

	_, err = f.svc.VerifyBearer(context.Background(), pair.AccessToken)
	if !errors.Is(err, auth.ErrSystemUnavailable()) {
		t.Fatalf("VerifyBearer err = %v, want system-unavailable", err)
	}
}

// ---------------------------------------------------------------------------
// Token flow tests
// ---------------------------------------------------------------------------

func TestPasswordGrantIssuesPair(t *testing.T) {
	f := newAuthFixture(t)

	pair, err := f.svc.PasswordGrant(context.Background(), "jo@acme.example.com", "s3cret", "openid")
	if err != nil {
		t.Fatalf("PasswordGrant: %v", err)
	}
	if pair.TokenType != "Bearer" {
		t.Errorf("token type = %q", pair.TokenType)
	}
	if pair.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("expires_in = %d, want 900", pair.ExpiresIn)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Errorf("empty token in pair")
	}
}

func TestVerifyBearerHydratesPrincipal(t *testing.T) {
	f := newAuthFixture(t)

	pair, err := f.svc.PasswordGrant(context.Background(), "jo@acme.example.com", "s3cret", "openid")
	if err != nil {
		t.Fatalf("PasswordGrant: %v", err)
	}

	p, err := f.svc.VerifyBearer(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyBearer: %v", err)
	}
	if p.User.Email != "jo@acme.example.com" {
		t.Errorf("principal not hydrated from current records: %+v", p.User)
	}
	if p.Scope != "openid" {
		t.Errorf("scope = %q", p.Scope)
	}
}

func TestVerifyBearerRejectsRefreshToken(t *testing.T) {
	f := newAuthFixture(t)

	pair, err := f.svc.PasswordGrant(context.Background(), "jo@acme.example.com", "s3cret", "")
	if err != nil {
		t.Fatalf("PasswordGrant: %v", err)
	}
	if _, err := f.svc.VerifyBearer(context.Background(), pair.RefreshToken); !errors.Is(err, auth.ErrTokenInvalid()) {
		t.Errorf("refresh token accepted as bearer: err = %v", err)
	}
}

func TestRefreshRejectsDeactivatedUser(t *testing.T) {
	f := newAuthFixture(t)

	pair, err := f.svc.PasswordGrant(context.Background(), "jo@acme.example.com", "s3cret", "")
	if err != nil {
		t.Fatalf("PasswordGrant: %v", err)
	}

	f.users.users[f.user.ID].IsActive = false
	if _, err := f.svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, auth.ErrUserInactive()) {
		t.Fatalf("err = %v, want user-inactive on refresh", err)
	}
}

func TestAuthorizeUsesDefaultRedirectURI(t *testing.T) {
	f := newAuthFixture(t)

	grant, err := f.svc.Authorize(context.Background(), "jo@acme.example.com", "s3cret", "", "")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if grant.RedirectURI != "https://acme.example.com/callback" {
		t.Errorf("redirect = %q, want default <domain>/callback", grant.RedirectURI)
	}
	if grant.Code == "" {
		t.Errorf("empty authorization code")
	}
}

func TestAuthorizeRejectsUnregisteredRedirectURI(t *testing.T) {
	f := newAuthFixture(t)
	f.tenant.RedirectURIs = []string{"https://app.acme.example.com/cb"}

	_, err := f.svc.Authorize(context.Background(), "jo@acme.example.com", "s3cret", "", "https://evil.example.com/cb")
	if !errors.Is(err, auth.ErrInvalidRedirectURI()) {
		t.Fatalf("err = %v, want invalid-redirect-uri", err)
	}
}

func TestExchangeAuthorizationCode(t *testing.T) {
	f := newAuthFixture(t)

	grant, err := f.svc.Authorize(context.Background(), "jo@acme.example.com", "s3cret", "openid", "")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}

	pair, err := f.svc.ExchangeAuthorizationCode(context.Background(), grant.Code)
	if err != nil {
		t.Fatalf("ExchangeAuthorizationCode: %v", err)
	}
	if pair.AccessToken == "" {
		t.Errorf("empty access token")
	}

	// An access token is not an authorization code.
	if _, err := f.svc.ExchangeAuthorizationCode(context.Background(), pair.AccessToken); !errors.Is(err, auth.ErrTokenInvalid()) {
		t.Errorf("access token exchanged as code: err = %v", err)
	}
}

// ---------------------------------------------------------------------------
// Action link tests
// ---------------------------------------------------------------------------

func tokenFromMail(t *testing.T, msg notifx.EmailMessage) string {
	t.Helper()
	_, after, found := strings.Cut(msg.HTMLBody, "token=")
	if !found {
		t.Fatalf("no token link in mail body")
	}
	token, _, _ := strings.Cut(after, `"`)
	return token
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)

	if err := f.svc.CreatePasswordResetLink(context.Background(), "jo@acme.example.com"); err != nil {
		t.Fatalf("CreatePasswordResetLink: %v", err)
	}
	if len(f.mail.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(f.mail.sent))
	}
	msg := f.mail.sent[0]
	if msg.To[0] != "jo@acme.example.com" {
		t.Errorf("mail to %v", msg.To)
	}
	if !strings.Contains(msg.HTMLBody, "1 hour") {
		t.Errorf("mail body does not state the link expiry")
	}

	token := tokenFromMail(t, msg)
	if err := f.svc.ConsumePasswordResetLink(context.Background(), token, "newpass"); err != nil {
		t.Fatalf("ConsumePasswordResetLink: %v", err)
	}
	if f.users.passwordUpdates[f.user.ID] != "hash:newpass" {
		t.Errorf("password not updated: %q", f.users.passwordUpdates[f.user.ID])
	}

	// Replaying the link re-applies the same operation.
	if err := f.svc.ConsumePasswordResetLink(context.Background(), token, "newpass"); err != nil {
		t.Errorf("second consume failed: %v", err)
	}
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.CreatePasswordResetLink(context.Background(), "nobody@acme.example.com")
	if !errors.Is(err, user.ErrUserNotFound()) {
		t.Fatalf("err = %v, want user-not-found", err)
	}
	if len(f.mail.sent) != 0 {
		t.Errorf("mail sent for unknown address")
	}
}

func TestAccountSetupFlow(t *testing.T) {
	f := newAuthFixture(t)

	if err := f.svc.CreateAccountSetupLink(context.Background(), f.user.ID); err != nil {
		t.Fatalf("CreateAccountSetupLink: %v", err)
	}
	if len(f.mail.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(f.mail.sent))
	}
	if !strings.Contains(f.mail.sent[0].HTMLBody, "Acme Freight") {
		t.Errorf("mail body does not name the tenant")
	}

	token := tokenFromMail(t, f.mail.sent[0])
	if err := f.svc.ConsumeAccountSetupLink(context.Background(), token, "first-pass"); err != nil {
		t.Fatalf("ConsumeAccountSetupLink: %v", err)
	}
	if f.users.passwordUpdates[f.user.ID] != "hash:first-pass" {
		t.Errorf("password not set: %q", f.users.passwordUpdates[f.user.ID])
	}
}

func TestResetTokenNotValidForAccountSetup(t *testing.T) {
	f := newAuthFixture(t)

	if err := f.svc.CreatePasswordResetLink(context.Background(), "jo@acme.example.com"); err != nil {
		t.Fatalf("CreatePasswordResetLink: %v", err)
	}
	token := tokenFromMail(t, f.mail.sent[0])

	if err := f.svc.ConsumeAccountSetupLink(context.Background(), token, "x"); !errors.Is(err, auth.ErrTokenInvalid()) {
		t.Errorf("reset token consumed as setup token: err = %v", err)
	}
}
