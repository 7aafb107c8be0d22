package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/sitebuilder/internal/appconfig/domain"
	authdomain "github.com/smallbiznis/sitebuilder/internal/auth/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TestMailer sends the SMTP probe; satisfied by the email provider.
type TestMailer interface {
	SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error
}

const testEmailTemplate = "test_email"

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Repo   domain.Repository
	Loader domain.Loader
	Mailer TestMailer `optional:"true"`
}

type Service struct {
	domain.Loader

	db     *gorm.DB
	log    *zap.Logger
	repo   domain.Repository
	mailer TestMailer
}

func New(p Params) domain.Service {
	return &Service{
		Loader: p.Loader,
		db:     p.DB,
		log:    p.Log.Named("appconfig.service"),
		repo:   p.Repo,
		mailer: p.Mailer,
	}
}

func (s *Service) GetApp(ctx context.Context) (domain.AppConfig, error) {
	return s.AppSnapshot(ctx)
}

func (s *Service) UpdateApp(ctx context.Context, req domain.UpdateAppConfigRequest) (domain.AppConfig, error) {
	cfg, err := s.AppSnapshot(ctx)
	if err != nil {
		return domain.AppConfig{}, err
	}

	assign(&cfg.AppName, req.AppName)
	assign(&cfg.Tagline, req.Tagline)
	assign(&cfg.SupportEmail, req.SupportEmail)
	assign(&cfg.SupportPhone, req.SupportPhone)
	assign(&cfg.BaseDomain, req.BaseDomain)
	assign(&cfg.PublicURL, req.PublicURL)
	assign(&cfg.AdminPath, req.AdminPath)
	assign(&cfg.BankName, req.BankName)
	assign(&cfg.BankAccountNumber, req.BankAccountNumber)
	assign(&cfg.BankAccountHolder, req.BankAccountHolder)

	if cfg.AppName == "" {
		return domain.AppConfig{}, domain.ErrInvalidAppName
	}
	cfg.BaseDomain = strings.ToLower(strings.Trim(cfg.BaseDomain, "."))
	if cfg.BaseDomain == "" || strings.ContainsAny(cfg.BaseDomain, "/: ") {
		return domain.AppConfig{}, domain.ErrInvalidBaseDomain
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	if u, err := url.Parse(cfg.PublicURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.AppConfig{}, domain.ErrInvalidPublicURL
	}
	if cfg.AdminPath == "" {
		cfg.AdminPath = "/admin"
	}
	if !strings.HasPrefix(cfg.AdminPath, "/") {
		cfg.AdminPath = "/" + cfg.AdminPath
	}
	if cfg.SupportEmail != "" {
		normalized, err := authdomain.NormalizeEmail(cfg.SupportEmail)
		if err != nil {
			return domain.AppConfig{}, domain.ErrInvalidEmail
		}
		cfg.SupportEmail = normalized
	}
	cfg.UpdatedAt = time.Now().UTC()

	if err := s.repo.SaveAppConfig(ctx, s.db, &cfg); err != nil {
		return domain.AppConfig{}, err
	}
	return cfg, nil
}

func (s *Service) GetEmail(ctx context.Context) (domain.EmailConfigView, error) {
	cfg, err := s.EmailSnapshot(ctx)
	if err != nil {
		return domain.EmailConfigView{}, err
	}
	return view(cfg), nil
}

func (s *Service) UpdateEmail(ctx context.Context, req domain.UpdateEmailConfigRequest) (domain.EmailConfigView, error) {
	cfg, err := s.EmailSnapshot(ctx)
	if err != nil {
		return domain.EmailConfigView{}, err
	}

	assign(&cfg.SMTPHost, req.SMTPHost)
	assign(&cfg.SMTPUsername, req.SMTPUsername)
	assign(&cfg.FromName, req.FromName)
	assign(&cfg.FromAddress, req.FromAddress)
	// An empty password in the request keeps the stored secret.
	if req.SMTPPassword != nil && *req.SMTPPassword != "" {
		cfg.SMTPPassword = *req.SMTPPassword
	}
	if req.SMTPPort != nil {
		if *req.SMTPPort <= 0 || *req.SMTPPort > 65535 {
			return domain.EmailConfigView{}, domain.ErrInvalidSMTPPort
		}
		cfg.SMTPPort = *req.SMTPPort
	}
	if req.IsActive != nil {
		cfg.IsActive = *req.IsActive
	}
	if cfg.FromAddress != "" {
		normalized, err := authdomain.NormalizeEmail(cfg.FromAddress)
		if err != nil {
			return domain.EmailConfigView{}, domain.ErrInvalidEmail
		}
		cfg.FromAddress = normalized
	}
	if cfg.IsActive && !cfg.Usable() {
		return domain.EmailConfigView{}, domain.ErrEmailNotActive
	}
	cfg.UpdatedAt = time.Now().UTC()

	if err := s.repo.SaveEmailConfig(ctx, s.db, &cfg); err != nil {
		return domain.EmailConfigView{}, err
	}
	return view(cfg), nil
}

func (s *Service) SendTestEmail(ctx context.Context, to string) error {
	recipient, err := authdomain.NormalizeEmail(to)
	if err != nil {
		return domain.ErrInvalidEmail
	}
	cfg, err := s.EmailSnapshot(ctx)
	if err != nil {
		return err
	}
	if !cfg.Usable() || s.mailer == nil {
		return domain.ErrEmailNotActive
	}
	app, err := s.AppSnapshot(ctx)
	if err != nil {
		return err
	}

	if err := s.mailer.SendTemplate(ctx, []string{recipient}, testEmailTemplate, map[string]any{
		"app_name": app.AppName,
	}); err != nil {
		s.log.Warn("test email failed", zap.Error(err))
		return domain.ErrEmailDelivery
	}
	return nil
}

func assign(dst *string, value *string) {
	if value == nil {
		return
	}
	*dst = strings.TrimSpace(*value)
}

func view(cfg domain.EmailConfig) domain.EmailConfigView {
	return domain.EmailConfigView{
		EmailConfig: cfg,
		HasPassword: cfg.SMTPPassword != "",
	}
}
