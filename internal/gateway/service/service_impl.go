package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	appconfigdomain "github.com/smallbiznis/sitebuilder/internal/appconfig/domain"
	"github.com/smallbiznis/sitebuilder/internal/clock"
	"github.com/smallbiznis/sitebuilder/internal/config"
	"github.com/smallbiznis/sitebuilder/internal/gateway/adapters"
	"github.com/smallbiznis/sitebuilder/internal/gateway/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Cfg       config.Config
	AppConfig appconfigdomain.Loader
	Adapters  *adapters.Registry
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      domain.Repository
	genID     *snowflake.Node
	clock     clock.Clock
	sealer    *sealer
	appConfig appconfigdomain.Loader
	adapters  *adapters.Registry
}

// requiredKeys lists credentials each remote gateway cannot work without.
var requiredKeys = map[string][]string{
	domain.GatewayMidtrans: {"server_key"},
	domain.GatewayXendit:   {"secret_key", "callback_token"},
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("gateway.service"),
		repo:      p.Repo,
		genID:     p.GenID,
		clock:     p.Clock,
		sealer:    newSealer(p.Cfg.GatewayConfigSecret),
		appConfig: p.AppConfig,
		adapters:  p.Adapters,
	}
}

func (s *Service) ListConfigs(ctx context.Context) ([]domain.ConfigSummary, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.ConfigSummary, 0, len(items))
	for _, item := range items {
		resp = append(resp, summary(item))
	}
	return resp, nil
}

func (s *Service) UpsertConfig(ctx context.Context, req domain.UpsertRequest) (*domain.ConfigSummary, error) {
	gateway, err := normalizeGateway(req.Gateway)
	if err != nil {
		return nil, err
	}

	cfg := normalizeConfig(req.Config)
	for _, key := range requiredKeys[gateway] {
		if _, ok := domain.ReadString(cfg, key); !ok {
			return nil, domain.ErrInvalidConfig
		}
	}

	encrypted, err := s.sealer.Seal(gateway, cfg)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Find(ctx, s.db, gateway)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	item := domain.Config{
		ID:        s.genID.Generate(),
		Gateway:   gateway,
		Config:    encrypted,
		IsSandbox: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing != nil {
		item.ID = existing.ID
		item.IsSandbox = existing.IsSandbox
		item.IsActive = existing.IsActive
		item.CreatedAt = existing.CreatedAt
	}
	if req.IsSandbox != nil {
		item.IsSandbox = *req.IsSandbox
	}

	if err := s.repo.Upsert(ctx, s.db, &item); err != nil {
		return nil, err
	}

	action := "gateway.rotate_secret"
	if existing == nil {
		action = "gateway.configure"
	}
	s.log.Info(action, zap.String("gateway", gateway), zap.Bool("sandbox", item.IsSandbox))

	resp := summary(item)
	return &resp, nil
}

func (s *Service) Activate(ctx context.Context, gateway string) (*domain.ConfigSummary, error) {
	gateway, err := normalizeGateway(gateway)
	if err != nil {
		return nil, err
	}

	var activated *domain.Config
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := s.repo.Find(ctx, tx, gateway)
		if err != nil {
			return err
		}
		if target == nil {
			return domain.ErrNotFound
		}

		now := s.clock.Now()
		if err := s.repo.DeactivateAll(ctx, tx, now); err != nil {
			return err
		}
		if _, err := s.repo.SetActive(ctx, tx, gateway, true, now); err != nil {
			return err
		}
		target.IsActive = true
		target.UpdatedAt = now
		activated = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("gateway activated", zap.String("gateway", gateway))
	resp := summary(*activated)
	return &resp, nil
}

func (s *Service) Deactivate(ctx context.Context, gateway string) (*domain.ConfigSummary, error) {
	gateway, err := normalizeGateway(gateway)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Find(ctx, s.db, gateway)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domain.ErrNotFound
	}

	now := s.clock.Now()
	if _, err := s.repo.SetActive(ctx, s.db, gateway, false, now); err != nil {
		return nil, err
	}
	existing.IsActive = false
	existing.UpdatedAt = now

	s.log.Info("gateway deactivated", zap.String("gateway", gateway))
	resp := summary(*existing)
	return &resp, nil
}

func (s *Service) ActiveGateway(ctx context.Context) (domain.Adapter, error) {
	active, err := s.repo.FindActive(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, domain.ErrNotConfigured
	}
	return s.adapterFor(ctx, active)
}

func (s *Service) ParseWebhook(ctx context.Context, gateway string, payload []byte, headers http.Header) (*domain.Callback, error) {
	gateway, err := normalizeGateway(gateway)
	if err != nil {
		return nil, err
	}
	if gateway == domain.GatewayManual {
		return nil, domain.ErrWebhookUnsupported
	}

	stored, err := s.repo.Find(ctx, s.db, gateway)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, domain.ErrNotConfigured
	}

	adapter, err := s.adapterFor(ctx, stored)
	if err != nil {
		return nil, err
	}
	return adapter.ParseWebhook(ctx, payload, headers)
}

func (s *Service) adapterFor(ctx context.Context, stored *domain.Config) (domain.Adapter, error) {
	decrypted, err := s.sealer.Open(stored.Gateway, stored.Config)
	if err != nil {
		s.log.Error("gateway config unreadable", zap.String("gateway", stored.Gateway), zap.Error(err))
		return nil, err
	}

	app, err := s.appConfig.AppSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	return s.adapters.NewAdapter(domain.AdapterConfig{
		Gateway:   stored.Gateway,
		Sandbox:   stored.IsSandbox,
		Config:    decrypted,
		PublicURL: strings.TrimRight(app.PublicURL, "/"),
	})
}

func normalizeGateway(gateway string) (string, error) {
	gateway = strings.ToLower(strings.TrimSpace(gateway))
	if !domain.Known(gateway) {
		return "", domain.ErrInvalidGateway
	}
	return gateway, nil
}

func summary(item domain.Config) domain.ConfigSummary {
	return domain.ConfigSummary{
		Gateway:    item.Gateway,
		IsSandbox:  item.IsSandbox,
		IsActive:   item.IsActive,
		Configured: len(item.Config) > 0,
		UpdatedAt:  item.UpdatedAt,
	}
}
