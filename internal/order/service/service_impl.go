package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	appconfigdomain "github.com/smallbiznis/sitebuilder/internal/appconfig/domain"
	authdomain "github.com/smallbiznis/sitebuilder/internal/auth/domain"
	catalogdomain "github.com/smallbiznis/sitebuilder/internal/catalog/domain"
	"github.com/smallbiznis/sitebuilder/internal/clock"
	gatewaydomain "github.com/smallbiznis/sitebuilder/internal/gateway/domain"
	"github.com/smallbiznis/sitebuilder/internal/observability/metrics"
	"github.com/smallbiznis/sitebuilder/internal/order/domain"
	paymentdomain "github.com/smallbiznis/sitebuilder/internal/payment/domain"
	"github.com/smallbiznis/sitebuilder/internal/providers/pdf"
	tenantdomain "github.com/smallbiznis/sitebuilder/internal/tenant/domain"
	dbpkg "github.com/smallbiznis/sitebuilder/pkg/db"
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
	CatalogRepo catalogdomain.Repository
	PaymentRepo paymentdomain.Repository
	TenantRepo  tenantdomain.Repository
	Gateways    gatewaydomain.Service
	Provisioner tenantdomain.Provisioner
	AppConfig   appconfigdomain.Loader
	Renderer    pdf.Renderer
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	catalogRepo catalogdomain.Repository
	paymentRepo paymentdomain.Repository
	tenantRepo  tenantdomain.Repository
	gateways    gatewaydomain.Service
	provisioner tenantdomain.Provisioner
	appConfig   appconfigdomain.Loader
	renderer    pdf.Renderer
	metrics     *metrics.Metrics

	newNumber func(time.Time) (string, error)
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("order.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
		paymentRepo: p.PaymentRepo,
		tenantRepo:  p.TenantRepo,
		gateways:    p.Gateways,
		provisioner: p.Provisioner,
		appConfig:   p.AppConfig,
		renderer:    p.Renderer,
		metrics:     p.Metrics,
		newNumber:   NewOrderNumber,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.CreateResult, error) {
	req, packageID, err := validateCreate(req)
	if err != nil {
		return nil, err
	}

	pkg, err := s.catalogRepo.FindPackageByID(ctx, s.db, packageID)
	if err != nil {
		return nil, err
	}
	if pkg == nil || !pkg.IsActive {
		return nil, &domain.FieldError{Field: "packageId", Err: domain.ErrPackageNotFound}
	}

	// Resolve the gateway before writing anything so a missing config leaves no orphan order.
	adapter, err := s.gateways.ActiveGateway(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	order := &domain.Order{
		ID:                 s.genID.Generate(),
		ClientName:         req.ClientName,
		BrandName:          req.BrandName,
		Email:              req.Email,
		Phone:              req.Phone,
		Address:            req.Address,
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
		SubdomainRequested: req.SubdomainRequested,
		DomainRequested:    req.DomainRequested,
		PackageID:          pkg.ID,
		PaymentType:        req.PaymentType,
		Amount:             Amount(pkg.Price, req.PaymentType),
		Status:             domain.StatusPending,
		Notes:              req.Notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.insertWithNumber(ctx, order); err != nil {
		return nil, err
	}

	log := s.log.With(
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("gateway", adapter.Gateway()),
	)

	session, err := adapter.CreatePayment(ctx, gatewaydomain.PaymentRequest{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Amount:        order.Amount,
		CustomerName:  order.ClientName,
		CustomerEmail: order.Email,
		CustomerPhone: order.Phone,
		Description:   "Website " + pkg.Name + " - " + order.BrandName,
		PaymentType:   order.PaymentType,
	})
	if err != nil {
		log.Error("create payment session failed", zap.Error(err))
		return nil, err
	}

	ref := session.GatewayRef
	payment := &paymentdomain.Payment{
		ID:          s.genID.Generate(),
		OrderID:     order.ID,
		Amount:      order.Amount,
		Status:      paymentdomain.StatusPending,
		GatewayRef:  &ref,
		GatewayName: session.GatewayName,
		PaymentURL:  session.PaymentURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.paymentRepo.Insert(ctx, s.db, payment); err != nil {
		log.Error("orphaned payment session",
			zap.String("gateway_ref", session.GatewayRef),
			zap.String("payment_url", session.PaymentURL),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.RecordOrderCreated(ctx, session.GatewayName, order.PaymentType)
	log.Info("order created", zap.Int64("amount", order.Amount), zap.String("gateway_ref", ref))

	order.Package = pkg
	return &domain.CreateResult{
		Order:      order,
		Payment:    payment,
		PaymentURL: session.PaymentURL,
	}, nil
}

// insertWithNumber assigns a fresh order number, regenerating on unique collisions.
func (s *Service) insertWithNumber(ctx context.Context, order *domain.Order) error {
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		number, err := s.newNumber(order.CreatedAt)
		if err != nil {
			return err
		}
		order.OrderNumber = number

		err = s.repo.Insert(ctx, s.db, order)
		if err == nil {
			return nil
		}
		if !dbpkg.IsDuplicateKeyErr(err) {
			return err
		}
		s.log.Warn("order number collision", zap.String("order_number", number), zap.Int("attempt", attempt))
	}
	return domain.ErrOrderNumberExhausted
}

// Amount returns the first charge for a package: half the price rounded down for a down payment.
func Amount(price int64, paymentType string) int64 {
	if paymentType == domain.PaymentTypeDP {
		return decimal.NewFromInt(price).Div(decimal.NewFromInt(2)).Floor().IntPart()
	}
	return price
}

func validateCreate(req domain.CreateRequest) (domain.CreateRequest, snowflake.ID, error) {
	req.ClientName = strings.TrimSpace(req.ClientName)
	req.BrandName = strings.TrimSpace(req.BrandName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	req.SubdomainRequested = strings.ToLower(strings.TrimSpace(req.SubdomainRequested))
	req.DomainRequested = strings.ToLower(strings.TrimSpace(req.DomainRequested))
	req.PaymentType = strings.ToLower(strings.TrimSpace(req.PaymentType))
	req.Notes = strings.TrimSpace(req.Notes)

	required := []struct {
		field string
		value string
	}{
		{"clientName", req.ClientName},
		{"brandName", req.BrandName},
		{"email", req.Email},
		{"phone", req.Phone},
		{"packageId", strings.TrimSpace(req.PackageID)},
	}
	for _, r := range required {
		if r.value == "" {
			return req, 0, &domain.FieldError{Field: r.field, Err: domain.ErrRequired}
		}
	}

	normalized, err := authdomain.NormalizeEmail(req.Email)
	if err != nil {
		return req, 0, &domain.FieldError{Field: "email", Err: domain.ErrInvalidEmail}
	}
	req.Email = normalized

	packageID, err := snowflake.ParseString(strings.TrimSpace(req.PackageID))
	if err != nil {
		return req, 0, &domain.FieldError{Field: "packageId", Err: domain.ErrPackageNotFound}
	}

	switch req.PaymentType {
	case "":
		req.PaymentType = domain.PaymentTypeFull
	case domain.PaymentTypeFull, domain.PaymentTypeDP:
	default:
		return req, 0, &domain.FieldError{Field: "paymentType", Err: domain.ErrInvalidPaymentType}
	}

	if req.SubdomainRequested != "" && !validSubdomain(req.SubdomainRequested) {
		return req, 0, &domain.FieldError{Field: "subdomainRequested", Err: domain.ErrInvalidSubdomain}
	}
	return req, packageID, nil
}

func validSubdomain(value string) bool {
	if len(value) > 63 || strings.HasPrefix(value, "-") || strings.HasSuffix(value, "-") {
		return false
	}
	for _, r := range value {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}

func (s *Service) Get(ctx context.Context, idOrNumber string) (*domain.Order, error) {
	order, err := s.find(ctx, idOrNumber)
	if err != nil {
		return nil, err
	}

	pkg, err := s.catalogRepo.FindPackageByID(ctx, s.db, order.PackageID)
	if err != nil {
		return nil, err
	}
	order.Package = pkg

	payments, err := s.paymentRepo.ListByOrder(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}
	order.Payments = payments

	tenant, err := s.tenantRepo.FindByOrderID(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}
	order.Tenant = tenant
	return order, nil
}

func (s *Service) find(ctx context.Context, idOrNumber string) (*domain.Order, error) {
	key := strings.TrimSpace(idOrNumber)
	if key == "" {
		return nil, domain.ErrNotFound
	}
	if id, err := snowflake.ParseString(key); err == nil {
		order, err := s.repo.FindByID(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		if order != nil {
			return order, nil
		}
	}
	order, err := s.repo.FindByNumber(ctx, s.db, strings.ToUpper(key))
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	opts := []option.QueryOption{option.ApplyPagination(req.Pagination)}
	if status := strings.TrimSpace(req.Status); status != "" {
		if !domain.ValidStatus(status) {
			return domain.ListResponse{}, domain.ErrInvalidStatus
		}
		opts = append(opts, option.WithWhere("status = ?", status))
	}
	if mail := strings.ToLower(strings.TrimSpace(req.Email)); mail != "" {
		opts = append(opts, option.WithWhere("LOWER(email) = ?", mail))
	}
	if search := strings.ToLower(strings.TrimSpace(req.Search)); search != "" {
		like := "%" + search + "%"
		opts = append(opts, option.WithWhere(
			"(LOWER(order_number) LIKE ? OR LOWER(client_name) LIKE ? OR LOWER(brand_name) LIKE ?)",
			like, like, like,
		))
	}

	items, err := s.repo.List(ctx, s.db, opts...)
	if err != nil {
		return domain.ListResponse{}, err
	}

	size := req.PageSize
	if size <= 0 {
		size = 10
	}
	rows := make([]*domain.Order, 0, len(items))
	for i := range items {
		rows = append(rows, &items[i])
	}
	info := pagination.BuildCursorPageInfo(rows, int32(size), func(o *domain.Order) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: o.ID.String()})
		return token
	})
	if len(items) > size {
		items = items[:size]
	}
	if items == nil {
		items = []domain.Order{}
	}
	return domain.ListResponse{Orders: items, PageInfo: *info}, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Order, error) {
	order, err := s.byID(ctx, id)
	if err != nil {
		return nil, err
	}
	var status string
	if req.Status != nil {
		status = strings.ToLower(strings.TrimSpace(*req.Status))
		if !domain.ValidStatus(status) {
			return nil, domain.ErrInvalidStatus
		}
	}
	now := s.clock.Now()

	if req.Notes != nil {
		notes := strings.TrimSpace(*req.Notes)
		if err := s.repo.UpdateNotes(ctx, s.db, order.ID, notes, now); err != nil {
			return nil, err
		}
	}

	if req.Status != nil {
		switch {
		case status == domain.StatusActive:
			// Provisioning owns the transition to active.
			result := s.provisioner.Provision(ctx, order.ID)
			if !result.Success {
				return nil, provisionErr(result)
			}
			if order.Status != domain.StatusActive {
				if err := s.repo.UpdateStatus(ctx, s.db, order.ID, domain.StatusActive, now); err != nil {
					return nil, err
				}
			}
		case status != order.Status:
			if err := s.repo.UpdateStatus(ctx, s.db, order.ID, status, now); err != nil {
				return nil, err
			}
		}
		s.log.Info("order status updated",
			zap.String("order_id", order.ID.String()),
			zap.String("from", order.Status),
			zap.String("to", status),
		)
	}

	return s.Get(ctx, order.ID.String())
}

func (s *Service) Provision(ctx context.Context, id string) (tenantdomain.ProvisionResult, error) {
	order, err := s.byID(ctx, id)
	if err != nil {
		return tenantdomain.ProvisionResult{}, err
	}
	return s.provisioner.Provision(ctx, order.ID), nil
}

func (s *Service) byID(ctx context.Context, id string) (*domain.Order, error) {
	orderID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

func provisionErr(result tenantdomain.ProvisionResult) error {
	if result.Err == nil {
		return domain.ErrProvisioningFailed
	}
	if errors.Is(result.Err, tenantdomain.ErrSubdomainTaken) ||
		errors.Is(result.Err, tenantdomain.ErrOrderNotFound) ||
		errors.Is(result.Err, tenantdomain.ErrMissingSubdomain) ||
		errors.Is(result.Err, tenantdomain.ErrInvalidSubdomain) {
		return result.Err
	}
	return errors.Join(domain.ErrProvisioningFailed, result.Err)
}
