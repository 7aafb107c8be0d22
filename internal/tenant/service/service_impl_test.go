package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	appconfigdomain "github.com/smallbiznis/sitebuilder/internal/appconfig/domain"
	authdomain "github.com/smallbiznis/sitebuilder/internal/auth/domain"
	"github.com/smallbiznis/sitebuilder/internal/auth/password"
	authrepo "github.com/smallbiznis/sitebuilder/internal/auth/repository"
	catalogdomain "github.com/smallbiznis/sitebuilder/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/sitebuilder/internal/catalog/repository"
	"github.com/smallbiznis/sitebuilder/internal/clock"
	orderdomain "github.com/smallbiznis/sitebuilder/internal/order/domain"
	orderrepo "github.com/smallbiznis/sitebuilder/internal/order/repository"
	"github.com/smallbiznis/sitebuilder/internal/providers/email"
	"github.com/smallbiznis/sitebuilder/internal/providers/email/mocks"
	"github.com/smallbiznis/sitebuilder/internal/tenant/domain"
	"github.com/smallbiznis/sitebuilder/internal/tenant/repository"
	dbpkg "github.com/smallbiznis/sitebuilder/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type staticLoader struct {
	app appconfigdomain.AppConfig
}

func (l staticLoader) AppSnapshot(context.Context) (appconfigdomain.AppConfig, error) {
	return l.app, nil
}

func (l staticLoader) EmailSnapshot(context.Context) (appconfigdomain.EmailConfig, error) {
	return appconfigdomain.EmailConfig{}, nil
}

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	provider *mocks.MockProvider
	pkg      *catalogdomain.Package
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, repository.Provide(), authrepo.Provide())
}

func newFixtureWith(t *testing.T, repo domain.Repository, users authdomain.Repository) *fixture {
	t.Helper()
	db, err := dbpkg.NewTest(&domain.Tenant{}, &orderdomain.Order{}, &catalogdomain.Package{}, &authdomain.User{})
	require.NoError(t, err)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)

	app := appconfigdomain.DefaultAppConfig()
	app.AppName = "Webku"
	app.BaseDomain = "webku.id"
	app.SupportEmail = "help@webku.id"

	f := &fixture{
		db:       db,
		node:     node,
		clock:    clock.NewFakeClock(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)),
		provider: provider,
	}
	f.svc = New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       f.clock,
		Repo:        repo,
		OrderRepo:   orderrepo.Provide(),
		CatalogRepo: catalogrepo.Provide(),
		AuthRepo:    users,
		AppConfig:   staticLoader{app: app},
		Sender:      email.NewSender(email.SenderParams{Provider: provider, Log: zap.NewNop()}),
	})

	now := f.clock.Now()
	f.pkg = &catalogdomain.Package{
		ID:        node.Generate(),
		Name:      "Business",
		Tier:      "business",
		Price:     2500000,
		Features:  []string{"custom_domain", "blog"},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, catalogrepo.Provide().InsertPackage(context.Background(), db, f.pkg))
	return f
}

func (f *fixture) order(t *testing.T, number, brand, subdomain, mail string) *orderdomain.Order {
	t.Helper()
	now := f.clock.Now()
	order := &orderdomain.Order{
		ID:                 f.node.Generate(),
		OrderNumber:        number,
		ClientName:         "Budi",
		BrandName:          brand,
		Email:              mail,
		Phone:              "0812",
		SubdomainRequested: subdomain,
		PackageID:          f.pkg.ID,
		PaymentType:        orderdomain.PaymentTypeFull,
		Amount:             f.pkg.Price,
		Status:             orderdomain.StatusProcessing,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, orderrepo.Provide().Insert(context.Background(), f.db, order))
	return order
}

func (f *fixture) count(t *testing.T, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Table(table).Count(&n).Error)
	return n
}

func TestProvisionCreatesTenantUserAndActivatesOrder(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, "ORD-240601-0001", "Kopi Budi", "kopibudi", "Budi@Example.com")

	var sent map[string]any
	f.provider.EXPECT().
		SendTemplate(gomock.Any(), []string{"budi@example.com"}, email.TemplateTenantCredentials, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []string, _ string, data map[string]any) error {
			sent = data
			return nil
		})

	result := f.svc.Provision(context.Background(), order.ID)
	require.True(t, result.Success, result.Error)
	assert.True(t, result.Created)
	assert.True(t, result.EmailSent)
	require.NotNil(t, result.Tenant)
	assert.Equal(t, "kopibudi", result.Tenant.Subdomain)
	assert.Equal(t, "default", result.Tenant.Config["theme"])
	assert.Equal(t, "business", result.Tenant.Config["packageTier"])

	assert.Equal(t, "https://kopibudi.webku.id", sent["site_url"])
	assert.Equal(t, "https://kopibudi.webku.id/admin", sent["admin_url"])
	plain, _ := sent["password"].(string)
	require.Len(t, plain, 8)

	user, err := authrepo.Provide().FindByEmail(context.Background(), f.db, "budi@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, authdomain.RoleClient, user.Role)
	assert.True(t, password.Verify(plain, user.PasswordHash))

	stored, err := orderrepo.Provide().FindByID(context.Background(), f.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusActive, stored.Status)
}

func TestProvisionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, "ORD-240601-0002", "Kopi Budi", "kopibudi", "budi@example.com")
	f.provider.EXPECT().SendTemplate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)

	first := f.svc.Provision(context.Background(), order.ID)
	require.True(t, first.Success)
	second := f.svc.Provision(context.Background(), order.ID)
	require.True(t, second.Success)
	assert.False(t, second.Created)
	assert.False(t, second.EmailSent)
	assert.Equal(t, first.Tenant.ID, second.Tenant.ID)

	assert.EqualValues(t, 1, f.count(t, "tenants"))
	assert.EqualValues(t, 1, f.count(t, "users"))
}

func TestProvisionReusesExistingUserWithoutPassword(t *testing.T) {
	f := newFixture(t)
	first := f.order(t, "ORD-240601-0003", "Kopi Budi", "kopibudi", "budi@example.com")
	second := f.order(t, "ORD-240601-0004", "Roti Budi", "rotibudi", "budi@example.com")

	f.provider.EXPECT().SendTemplate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	require.True(t, f.svc.Provision(context.Background(), first.ID).Success)

	var sent map[string]any
	f.provider.EXPECT().SendTemplate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []string, _ string, data map[string]any) error {
			sent = data
			return nil
		})
	result := f.svc.Provision(context.Background(), second.ID)
	require.True(t, result.Success)
	assert.Equal(t, "", sent["password"])
	assert.EqualValues(t, 1, f.count(t, "users"))
	assert.EqualValues(t, 2, f.count(t, "tenants"))
}

func TestProvisionSubdomainTaken(t *testing.T) {
	f := newFixture(t)
	owner := f.order(t, "ORD-240601-0005", "Kopi Budi", "kopibudi", "budi@example.com")
	other := f.order(t, "ORD-240601-0006", "Kopi Lain", "kopibudi", "lain@example.com")

	f.provider.EXPECT().SendTemplate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	require.True(t, f.svc.Provision(context.Background(), owner.ID).Success)

	result := f.svc.Provision(context.Background(), other.ID)
	assert.False(t, result.Success)
	assert.Equal(t, "subdomain already taken", result.Error)
	assert.ErrorIs(t, result.Err, domain.ErrSubdomainTaken)
	assert.EqualValues(t, 1, f.count(t, "tenants"))
	assert.EqualValues(t, 1, f.count(t, "users"))

	stored, err := orderrepo.Provide().FindByID(context.Background(), f.db, other.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusProcessing, stored.Status)
}

// staleTenants hides rows from the pre-insert lookups, as a concurrent run
// committing between those reads and our insert would.
type staleTenants struct {
	domain.Repository
	orderLookups int
}

func (r *staleTenants) FindBySubdomain(context.Context, *gorm.DB, string) (*domain.Tenant, error) {
	return nil, nil
}

func (r *staleTenants) FindByOrderID(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*domain.Tenant, error) {
	r.orderLookups++
	if r.orderLookups == 1 {
		return nil, nil
	}
	return r.Repository.FindByOrderID(ctx, db, orderID)
}

// staleUsers misses the owner on the first email lookup only.
type staleUsers struct {
	authdomain.Repository
	lookups int
}

func (r *staleUsers) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*authdomain.User, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, nil
	}
	return r.Repository.FindByEmail(ctx, db, email)
}

func (f *fixture) tenant(t *testing.T, orderID snowflake.ID, subdomain string) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, repository.Provide().Insert(context.Background(), f.db, &domain.Tenant{
		ID:        f.node.Generate(),
		OrderID:   orderID,
		Subdomain: subdomain,
		BrandName: "Kopi Budi",
		OwnerName: "Budi",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func TestProvisionInsertConflictIsSubdomainTaken(t *testing.T) {
	f := newFixtureWith(t, &staleTenants{Repository: repository.Provide()}, authrepo.Provide())
	owner := f.order(t, "ORD-240601-0011", "Kopi Budi", "kopibudi", "budi@example.com")
	other := f.order(t, "ORD-240601-0012", "Kopi Lain", "kopibudi", "lain@example.com")
	f.tenant(t, owner.ID, "kopibudi")

	result := f.svc.Provision(context.Background(), other.ID)
	assert.False(t, result.Success)
	assert.Equal(t, "subdomain already taken", result.Error)
	assert.ErrorIs(t, result.Err, domain.ErrSubdomainTaken)
	assert.EqualValues(t, 1, f.count(t, "tenants"))
	assert.Zero(t, f.count(t, "users"))

	stored, err := orderrepo.Provide().FindByID(context.Background(), f.db, other.ID)
	require.NoError(t, err)
	assert.Equal(t, orderdomain.StatusProcessing, stored.Status)
}

func TestProvisionInsertConflictOnOwnRowSucceeds(t *testing.T) {
	f := newFixtureWith(t, &staleTenants{Repository: repository.Provide()}, authrepo.Provide())
	order := f.order(t, "ORD-240601-0013", "Kopi Budi", "kopibudi", "budi@example.com")
	f.tenant(t, order.ID, "kopibudi")

	result := f.svc.Provision(context.Background(), order.ID)
	require.True(t, result.Success, result.Error)
	assert.False(t, result.Created)
	assert.False(t, result.EmailSent)
	require.NotNil(t, result.Tenant)
	assert.Equal(t, order.ID, result.Tenant.OrderID)
	assert.EqualValues(t, 1, f.count(t, "tenants"))
	assert.Zero(t, f.count(t, "users"))
}

func TestProvisionRetriesWhenOwnerAccountAppears(t *testing.T) {
	users := &staleUsers{Repository: authrepo.Provide()}
	f := newFixtureWith(t, repository.Provide(), users)
	order := f.order(t, "ORD-240601-0014", "Kopi Budi", "kopibudi", "budi@example.com")

	now := f.clock.Now()
	require.NoError(t, authrepo.Provide().Insert(context.Background(), f.db, &authdomain.User{
		ID:           f.node.Generate(),
		Email:        "budi@example.com",
		Name:         "Budi",
		PasswordHash: "hash",
		Role:         authdomain.RoleClient,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	var sent map[string]any
	f.provider.EXPECT().SendTemplate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []string, _ string, data map[string]any) error {
			sent = data
			return nil
		})

	result := f.svc.Provision(context.Background(), order.ID)
	require.True(t, result.Success, result.Error)
	assert.True(t, result.Created)
	assert.Equal(t, 2, users.lookups)
	assert.Equal(t, "", sent["password"])
	assert.EqualValues(t, 1, f.count(t, "users"))
	assert.EqualValues(t, 1, f.count(t, "tenants"))
}

func TestProvisionEmailFailureStillSucceeds(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, "ORD-240601-0007", "Kopi Budi", "", "budi@example.com")
	f.provider.EXPECT().SendTemplate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(email.ErrNotConfigured)

	result := f.svc.Provision(context.Background(), order.ID)
	require.True(t, result.Success)
	assert.False(t, result.EmailSent)
	assert.Equal(t, "kopi-budi", result.Tenant.Subdomain)
}

func TestProvisionUnknownOrder(t *testing.T) {
	f := newFixture(t)
	result := f.svc.Provision(context.Background(), f.node.Generate())
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, domain.ErrOrderNotFound)
}

func TestSubdomainFor(t *testing.T) {
	cases := []struct {
		requested, brand, want string
		err                    error
	}{
		{"KopiBudi", "", "kopibudi", nil},
		{"", "Toko Ibu Sari", "toko-ibu-sari", nil},
		{"  ", "  ", "", domain.ErrMissingSubdomain},
		{"!!!", "", "", domain.ErrInvalidSubdomain},
	}
	for _, tc := range cases {
		got, err := SubdomainFor(tc.requested, tc.brand)
		if tc.err != nil {
			assert.ErrorIs(t, err, tc.err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestUpdateAndList(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, "ORD-240601-0008", "Kopi Budi", "kopibudi", "budi@example.com")
	f.provider.EXPECT().SendTemplate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	provisioned := f.svc.Provision(context.Background(), order.ID)
	require.True(t, provisioned.Success)

	inactive := false
	domainName := "KopiBudi.com"
	updated, err := f.svc.Update(context.Background(), provisioned.Tenant.ID.String(), domain.UpdateRequest{
		IsActive: &inactive,
		Domain:   &domainName,
		Config:   map[string]any{"theme": "dark"},
	})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "kopibudi.com", updated.Domain)
	assert.Equal(t, "dark", updated.Config["theme"])

	bad := "not a domain"
	_, err = f.svc.Update(context.Background(), provisioned.Tenant.ID.String(), domain.UpdateRequest{Domain: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidDomain)

	active := true
	list, err := f.svc.List(context.Background(), domain.ListRequest{Active: &active})
	require.NoError(t, err)
	assert.Empty(t, list.Tenants)

	list, err = f.svc.List(context.Background(), domain.ListRequest{Search: "kopi"})
	require.NoError(t, err)
	assert.Len(t, list.Tenants, 1)

	_, err = f.svc.Get(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
