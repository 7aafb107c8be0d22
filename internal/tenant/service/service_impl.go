package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	appconfigdomain "github.com/smallbiznis/sitebuilder/internal/appconfig/domain"
	authdomain "github.com/smallbiznis/sitebuilder/internal/auth/domain"
	catalogdomain "github.com/smallbiznis/sitebuilder/internal/catalog/domain"
	"github.com/smallbiznis/sitebuilder/internal/clock"
	"github.com/smallbiznis/sitebuilder/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/sitebuilder/internal/order/domain"
	"github.com/smallbiznis/sitebuilder/internal/providers/email"
	"github.com/smallbiznis/sitebuilder/internal/tenant/domain"
	"github.com/smallbiznis/sitebuilder/pkg/db/option"
	"github.com/smallbiznis/sitebuilder/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	OrderRepo   orderdomain.Repository
	CatalogRepo catalogdomain.Repository
	AuthRepo    authdomain.Repository
	AppConfig   appconfigdomain.Loader
	Sender      *email.Sender    `optional:"true"`
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	orderRepo   orderdomain.Repository
	catalogRepo catalogdomain.Repository
	authRepo    authdomain.Repository
	appConfig   appconfigdomain.Loader
	sender      *email.Sender
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("tenant.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		orderRepo:   p.OrderRepo,
		catalogRepo: p.CatalogRepo,
		authRepo:    p.AuthRepo,
		appConfig:   p.AppConfig,
		sender:      p.Sender,
		metrics:     p.Metrics,
	}
}

var domainPattern = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,}$`)

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	opts := []option.QueryOption{option.ApplyPagination(req.Pagination)}
	if search := strings.ToLower(strings.TrimSpace(req.Search)); search != "" {
		like := "%" + search + "%"
		opts = append(opts, option.WithWhere("(LOWER(subdomain) LIKE ? OR LOWER(brand_name) LIKE ? OR LOWER(domain) LIKE ?)", like, like, like))
	}
	if req.Active != nil {
		opts = append(opts, option.WithWhere("is_active = ?", *req.Active))
	}

	items, err := s.repo.List(ctx, s.db, opts...)
	if err != nil {
		return domain.ListResponse{}, err
	}

	size := req.PageSize
	if size <= 0 {
		size = 10
	}
	rows := make([]*domain.Tenant, 0, len(items))
	for i := range items {
		rows = append(rows, &items[i])
	}
	info := pagination.BuildCursorPageInfo(rows, int32(size), func(t *domain.Tenant) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: t.ID.String()})
		return token
	})
	if len(items) > size {
		items = items[:size]
	}
	if items == nil {
		items = []domain.Tenant{}
	}
	return domain.ListResponse{Tenants: items, PageInfo: *info}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Tenant, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	tenant, err := s.repo.FindByID(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.ErrNotFound
	}
	return tenant, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Tenant, error) {
	tenant, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.IsActive != nil {
		tenant.IsActive = *req.IsActive
	}
	if req.Domain != nil {
		value := strings.ToLower(strings.TrimSpace(*req.Domain))
		if value != "" && !domainPattern.MatchString(value) {
			return nil, domain.ErrInvalidDomain
		}
		tenant.Domain = value
	}
	if req.LogoURL != nil {
		tenant.LogoURL = strings.TrimSpace(*req.LogoURL)
	}
	if req.Config != nil {
		if tenant.Config == nil {
			tenant.Config = map[string]any{}
		}
		for key, value := range req.Config {
			if value == nil {
				delete(tenant.Config, key)
				continue
			}
			tenant.Config[key] = value
		}
	}
	tenant.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, tenant); err != nil {
		return nil, err
	}
	s.log.Info("tenant updated", zap.String("tenant_id", tenant.ID.String()))
	return tenant, nil
}
