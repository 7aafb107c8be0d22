package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	appconfigdomain "github.com/smallbiznis/sitebuilder/internal/appconfig/domain"
	appconfigrepo "github.com/smallbiznis/sitebuilder/internal/appconfig/repository"
	authdomain "github.com/smallbiznis/sitebuilder/internal/auth/domain"
	"github.com/smallbiznis/sitebuilder/internal/auth/password"
	authrepo "github.com/smallbiznis/sitebuilder/internal/auth/repository"
	catalogdomain "github.com/smallbiznis/sitebuilder/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/sitebuilder/internal/catalog/repository"
	"github.com/smallbiznis/sitebuilder/internal/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultAdminEmail    = "admin@sitebuilder.local"
	defaultAdminPassword = "admin"
)

// Seeder bootstraps rows the application needs to be usable on first start.
type Seeder struct {
	db    *gorm.DB
	node  *snowflake.Node
	log   *zap.Logger
	now   func() time.Time
	admin config.BootstrapConfig
}

func New(db *gorm.DB, node *snowflake.Node, log *zap.Logger, admin config.BootstrapConfig) *Seeder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Seeder{
		db:    db,
		node:  node,
		log:   log.Named("seed"),
		now:   func() time.Time { return time.Now().UTC() },
		admin: admin,
	}
}

// Run seeds the admin user, the config singletons and a starter catalog. Every step is idempotent.
func (s *Seeder) Run(ctx context.Context) error {
	if s.db == nil || s.node == nil {
		return errors.New("seed database handle is required")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureAdmin(ctx, tx); err != nil {
			return err
		}
		if err := s.ensureAppConfig(ctx, tx); err != nil {
			return err
		}
		return s.ensureCatalog(ctx, tx)
	})
}

func (s *Seeder) ensureAdmin(ctx context.Context, tx *gorm.DB) error {
	repo := authrepo.Provide()
	count, err := repo.Count(ctx, tx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email := strings.TrimSpace(s.admin.AdminEmail)
	if email == "" {
		email = defaultAdminEmail
	}
	email, err = authdomain.NormalizeEmail(email)
	if err != nil {
		return err
	}
	plain := s.admin.AdminPassword
	if plain == "" {
		plain = defaultAdminPassword
		s.log.Warn("seeding admin with default password, change it after first login", zap.String("email", email))
	}
	hashed, err := password.Hash(plain)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(s.admin.AdminName)
	if name == "" {
		name = "Administrator"
	}

	now := s.now()
	if err := repo.Insert(ctx, tx, &authdomain.User{
		ID:           s.node.Generate(),
		Email:        email,
		Name:         name,
		PasswordHash: hashed,
		Role:         authdomain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		return err
	}
	s.log.Info("admin user seeded", zap.String("email", email))
	return nil
}

func (s *Seeder) ensureAppConfig(ctx context.Context, tx *gorm.DB) error {
	repo := appconfigrepo.Provide()
	existing, err := repo.FindAppConfig(ctx, tx)
	if err != nil {
		return err
	}
	if existing == nil {
		cfg := appconfigdomain.DefaultAppConfig()
		cfg.UpdatedAt = s.now()
		if err := repo.SaveAppConfig(ctx, tx, &cfg); err != nil {
			return err
		}
	}

	email, err := repo.FindEmailConfig(ctx, tx)
	if err != nil {
		return err
	}
	if email == nil {
		cfg := appconfigdomain.EmailConfig{SMTPPort: 587, UpdatedAt: s.now()}
		return repo.SaveEmailConfig(ctx, tx, &cfg)
	}
	return nil
}

var starterPackages = []catalogdomain.Package{
	{Name: "Starter", Tier: "starter", Price: 1500000, MonthlyFee: 100000, Features: []string{"landing_page", "subdomain", "contact_form"}, SortOrder: 1},
	{Name: "Business", Tier: "business", Price: 3500000, MonthlyFee: 200000, Features: []string{"landing_page", "custom_domain", "blog", "contact_form"}, SortOrder: 2},
	{Name: "Premium", Tier: "premium", Price: 7500000, MonthlyFee: 350000, Features: []string{"landing_page", "custom_domain", "blog", "catalog", "priority_support"}, SortOrder: 3},
}

func (s *Seeder) ensureCatalog(ctx context.Context, tx *gorm.DB) error {
	repo := catalogrepo.Provide()
	existing, err := repo.ListPackages(ctx, tx, false)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	now := s.now()
	for _, pkg := range starterPackages {
		pkg.ID = s.node.Generate()
		pkg.IsActive = true
		pkg.CreatedAt = now
		pkg.UpdatedAt = now
		if err := repo.InsertPackage(ctx, tx, &pkg); err != nil {
			return err
		}
	}
	s.log.Info("starter catalog seeded", zap.Int("packages", len(starterPackages)))
	return nil
}
