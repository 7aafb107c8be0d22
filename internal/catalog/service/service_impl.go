package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebuilder/internal/catalog/domain"
	"github.com/smallbiznis/sitebuilder/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) ListPackages(ctx context.Context, activeOnly bool) ([]domain.Package, error) {
	items, err := s.repo.ListPackages(ctx, s.db, activeOnly)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Package{}
	}
	return items, nil
}

func (s *Service) GetPackage(ctx context.Context, id string) (domain.Package, error) {
	pkgID, err := parseID(id)
	if err != nil {
		return domain.Package{}, err
	}
	item, err := s.repo.FindPackageByID(ctx, s.db, pkgID)
	if err != nil {
		return domain.Package{}, err
	}
	if item == nil {
		return domain.Package{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) GetActivePackage(ctx context.Context, id string) (domain.Package, error) {
	item, err := s.GetPackage(ctx, id)
	if err != nil {
		if err == domain.ErrInvalidID {
			return domain.Package{}, domain.ErrNotFound
		}
		return domain.Package{}, err
	}
	if !item.IsActive {
		return domain.Package{}, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) CreatePackage(ctx context.Context, req domain.PackageRequest) (domain.Package, error) {
	now := time.Now().UTC()
	pkg := domain.Package{
		ID:        s.genID.Generate(),
		IsActive:  true,
		Features:  datatypes.JSONSlice[string]{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Price == nil {
		return domain.Package{}, domain.ErrInvalidPrice
	}
	if err := applyPackage(&pkg, req); err != nil {
		return domain.Package{}, err
	}

	if err := s.repo.InsertPackage(ctx, s.db, &pkg); err != nil {
		return domain.Package{}, err
	}
	return pkg, nil
}

func (s *Service) UpdatePackage(ctx context.Context, id string, req domain.PackageRequest) (domain.Package, error) {
	pkg, err := s.GetPackage(ctx, id)
	if err != nil {
		return domain.Package{}, err
	}
	if strings.TrimSpace(req.Name) == "" {
		req.Name = pkg.Name
	}
	if strings.TrimSpace(req.Tier) == "" {
		req.Tier = pkg.Tier
	}
	if err := applyPackage(&pkg, req); err != nil {
		return domain.Package{}, err
	}
	pkg.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdatePackage(ctx, s.db, &pkg); err != nil {
		return domain.Package{}, err
	}
	return pkg, nil
}

func (s *Service) DeletePackage(ctx context.Context, id string) error {
	pkg, err := s.GetPackage(ctx, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.repo.CountOrdersForPackage(ctx, tx, pkg.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrPackageInUse
		}
		return s.repo.DeletePackage(ctx, tx, pkg.ID)
	})
}

func (s *Service) ListDomainPrices(ctx context.Context, activeOnly bool) ([]domain.DomainPrice, error) {
	items, err := s.repo.ListDomainPrices(ctx, s.db, activeOnly)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.DomainPrice{}
	}
	return items, nil
}

func (s *Service) CreateDomainPrice(ctx context.Context, req domain.DomainPriceRequest) (domain.DomainPrice, error) {
	now := time.Now().UTC()
	price := domain.DomainPrice{
		ID:        s.genID.Generate(),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Price == nil || req.RenewalPrice == nil {
		return domain.DomainPrice{}, domain.ErrInvalidPrice
	}
	if err := applyDomainPrice(&price, req); err != nil {
		return domain.DomainPrice{}, err
	}

	if err := s.repo.InsertDomainPrice(ctx, s.db, &price); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.DomainPrice{}, domain.ErrDuplicateDomain
		}
		return domain.DomainPrice{}, err
	}
	return price, nil
}

func (s *Service) UpdateDomainPrice(ctx context.Context, id string, req domain.DomainPriceRequest) (domain.DomainPrice, error) {
	priceID, err := parseID(id)
	if err != nil {
		return domain.DomainPrice{}, err
	}
	price, err := s.repo.FindDomainPriceByID(ctx, s.db, priceID)
	if err != nil {
		return domain.DomainPrice{}, err
	}
	if price == nil {
		return domain.DomainPrice{}, domain.ErrNotFound
	}
	if strings.TrimSpace(req.Extension) == "" {
		req.Extension = price.Extension
	}
	if err := applyDomainPrice(price, req); err != nil {
		return domain.DomainPrice{}, err
	}
	price.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateDomainPrice(ctx, s.db, price); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.DomainPrice{}, domain.ErrDuplicateDomain
		}
		return domain.DomainPrice{}, err
	}
	return *price, nil
}

func (s *Service) DeleteDomainPrice(ctx context.Context, id string) error {
	priceID, err := parseID(id)
	if err != nil {
		return err
	}
	price, err := s.repo.FindDomainPriceByID(ctx, s.db, priceID)
	if err != nil {
		return err
	}
	if price == nil {
		return domain.ErrNotFound
	}
	return s.repo.DeleteDomainPrice(ctx, s.db, priceID)
}

func applyPackage(pkg *domain.Package, req domain.PackageRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.ErrInvalidName
	}
	tier := strings.ToLower(strings.TrimSpace(req.Tier))
	if tier == "" {
		return domain.ErrInvalidTier
	}
	pkg.Name = name
	pkg.Tier = tier

	if req.Price != nil {
		if *req.Price < 0 {
			return domain.ErrInvalidPrice
		}
		pkg.Price = *req.Price
	}
	if req.MonthlyFee != nil {
		if *req.MonthlyFee < 0 {
			return domain.ErrInvalidPrice
		}
		pkg.MonthlyFee = *req.MonthlyFee
	}
	if req.Features != nil {
		features := make(datatypes.JSONSlice[string], 0, len(req.Features))
		for _, feature := range req.Features {
			if feature = strings.TrimSpace(feature); feature != "" {
				features = append(features, feature)
			}
		}
		pkg.Features = features
	}
	if req.IsActive != nil {
		pkg.IsActive = *req.IsActive
	}
	if req.SortOrder != nil {
		pkg.SortOrder = *req.SortOrder
	}
	return nil
}

func applyDomainPrice(price *domain.DomainPrice, req domain.DomainPriceRequest) error {
	ext := normalizeExtension(req.Extension)
	if ext == "" {
		return domain.ErrInvalidExtension
	}
	price.Extension = ext

	if req.Price != nil {
		if *req.Price < 0 {
			return domain.ErrInvalidPrice
		}
		price.Price = *req.Price
	}
	if req.RenewalPrice != nil {
		if *req.RenewalPrice < 0 {
			return domain.ErrInvalidPrice
		}
		price.RenewalPrice = *req.RenewalPrice
	}
	if req.IsActive != nil {
		price.IsActive = *req.IsActive
	}
	return nil
}

// normalizeExtension lowercases and prefixes a dot, e.g. "CO.ID" becomes ".co.id".
func normalizeExtension(value string) string {
	ext := strings.ToLower(strings.TrimSpace(value))
	ext = strings.TrimLeft(ext, ".")
	if ext == "" || strings.ContainsAny(ext, " /@") {
		return ""
	}
	return "." + ext
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
