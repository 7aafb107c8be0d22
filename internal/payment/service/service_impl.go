package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	appconfigdomain "github.com/smallbiznis/sitebuilder/internal/appconfig/domain"
	"github.com/smallbiznis/sitebuilder/internal/clock"
	"github.com/smallbiznis/sitebuilder/internal/config"
	gatewaydomain "github.com/smallbiznis/sitebuilder/internal/gateway/domain"
	"github.com/smallbiznis/sitebuilder/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/sitebuilder/internal/order/domain"
	"github.com/smallbiznis/sitebuilder/internal/payment/domain"
	"github.com/smallbiznis/sitebuilder/internal/providers/email"
	"github.com/smallbiznis/sitebuilder/internal/providers/storage"
	"github.com/smallbiznis/sitebuilder/pkg/db/option"
	"github.com/smallbiznis/sitebuilder/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	callbackDedupeTTL = 24 * time.Hour
	keyCallbackDedupe = "payments:callback:%s:%s"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	OrderRepo  orderdomain.Repository
	Gateways   gatewaydomain.Service
	Storage    storage.Storage
	Storefront *config.StorefrontConfigHolder
	AppConfig  appconfigdomain.Loader `optional:"true"`
	Sender     *email.Sender          `optional:"true"`
	Redis      *redis.Client          `optional:"true"`
	Metrics    *metrics.Metrics       `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	orderRepo  orderdomain.Repository
	gateways   gatewaydomain.Service
	storage    storage.Storage
	storefront *config.StorefrontConfigHolder
	appConfig  appconfigdomain.Loader
	sender     *email.Sender
	redis      *redis.Client
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		orderRepo:  p.OrderRepo,
		gateways:   p.Gateways,
		storage:    p.Storage,
		storefront: p.Storefront,
		appConfig:  p.AppConfig,
		sender:     p.Sender,
		redis:      p.Redis,
		metrics:    p.Metrics,
	}
}

func (s *Service) HandleCallback(ctx context.Context, cb gatewaydomain.Callback) (*domain.Payment, error) {
	ref := strings.TrimSpace(cb.GatewayRef)
	if ref == "" {
		return nil, domain.ErrMissingGatewayRef
	}
	status := strings.ToLower(strings.TrimSpace(cb.Status))
	if !domain.ValidStatus(status) {
		return nil, domain.ErrInvalidStatus
	}
	log := s.log.With(zap.String("gateway_ref", ref), zap.String("status", status))

	dedupeKey := fmt.Sprintf(keyCallbackDedupe, ref, status)
	if s.redis != nil {
		fresh, err := s.redis.SetNX(ctx, dedupeKey, s.clock.Now().Unix(), callbackDedupeTTL).Result()
		if err != nil {
			log.Warn("callback dedupe unavailable", zap.Error(err))
		} else if !fresh {
			existing, err := s.repo.FindByGatewayRef(ctx, s.db, ref)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.Status == status {
				log.Info("duplicate callback ignored")
				return existing, nil
			}
		}
	}

	payment, err := s.settle(ctx, ref, status, strings.TrimSpace(cb.Method), nil)
	if err != nil {
		if s.redis != nil {
			_ = s.redis.Del(ctx, dedupeKey).Err()
		}
		return nil, err
	}

	log.Info("payment reconciled", zap.String("payment_id", payment.ID.String()))
	s.metrics.RecordPaymentReconciled(ctx, "callback", status)
	return payment, nil
}

func (s *Service) HandleWebhook(ctx context.Context, gateway string, payload []byte, headers http.Header) (*domain.Payment, error) {
	cb, err := s.gateways.ParseWebhook(ctx, gateway, payload, headers)
	if err != nil {
		s.log.Warn("webhook rejected", zap.String("gateway", gateway), zap.Error(err))
		return nil, err
	}
	return s.HandleCallback(ctx, *cb)
}

// settle applies a status to the payment identified by ref and advances its order in one transaction.
func (s *Service) settle(ctx context.Context, ref string, status string, method string, amount *int64) (*domain.Payment, error) {
	var (
		settled  *domain.Payment
		advanced *orderdomain.Order
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindByGatewayRef(ctx, tx, ref)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrNotFound
		}
		settled, advanced, err = s.apply(ctx, tx, payment, status, method, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifyPaid(ctx, advanced)
	return settled, nil
}

// apply returns the order as well when this payment moved it to processing.
func (s *Service) apply(ctx context.Context, tx *gorm.DB, payment *domain.Payment, status string, method string, amount *int64) (*domain.Payment, *orderdomain.Order, error) {
	now := s.clock.Now()

	// A paid payment keeps its original settlement time on redelivery.
	if status == domain.StatusPaid {
		if payment.PaidAt == nil {
			payment.PaidAt = &now
		}
	} else {
		payment.PaidAt = nil
	}
	payment.Status = status
	if method != "" {
		payment.Method = method
	}
	if amount != nil {
		payment.Amount = *amount
	}
	payment.UpdatedAt = now

	if err := s.repo.UpdateSettlement(ctx, tx, payment); err != nil {
		return nil, nil, err
	}

	if status != domain.StatusPaid {
		return payment, nil, nil
	}

	order, err := s.orderRepo.FindByID(ctx, tx, payment.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, domain.ErrOrderNotFound
	}
	if orderdomain.Settled(order.Status) {
		return payment, nil, nil
	}
	if err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, orderdomain.StatusProcessing, now); err != nil {
		return nil, nil, err
	}
	order.Status = orderdomain.StatusProcessing
	return payment, order, nil
}

func (s *Service) ConfirmManualTransfer(ctx context.Context, req domain.ManualProofRequest) (*domain.Payment, error) {
	orderNumber := strings.TrimSpace(req.OrderNumber)
	if orderNumber == "" {
		return nil, domain.ErrMissingOrder
	}
	if req.Body == nil || req.Size <= 0 {
		return nil, domain.ErrMissingProof
	}

	rules := s.storefront.Get()
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(req.ContentType)), rules.ProofMimePrefix) {
		return nil, domain.ErrInvalidProofType
	}
	if req.Size > rules.MaxProofBytes {
		return nil, domain.ErrProofTooLarge
	}

	order, err := s.orderRepo.FindByNumber(ctx, s.db, orderNumber)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	now := s.clock.Now()
	key := fmt.Sprintf("%s/%s-%d.%s", storage.ProofsPrefix, storage.Sanitize(order.OrderNumber), now.UnixMilli(), storage.Extension(req.FileName, "jpg"))
	publicURL, err := s.storage.Put(ctx, key, req.ContentType, req.Body, req.Size)
	if err != nil {
		return nil, fmt.Errorf("store proof: %w", err)
	}

	payment := &domain.Payment{
		ID:          s.genID.Generate(),
		OrderID:     order.ID,
		Amount:      0,
		Status:      domain.StatusPending,
		GatewayName: domain.GatewayManualTransfer,
		Method:      domain.MethodBankTransfer,
		ProofFile:   publicURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, payment); err != nil {
			return err
		}
		if orderdomain.Settled(order.Status) {
			return nil
		}
		return s.orderRepo.UpdateStatus(ctx, tx, order.ID, orderdomain.StatusPendingVerification, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("transfer proof received",
		zap.String("order_number", order.OrderNumber),
		zap.String("payment_id", payment.ID.String()),
		zap.String("proof", publicURL),
	)
	s.metrics.RecordPaymentReconciled(ctx, "manual_proof", domain.StatusPending)
	return payment, nil
}

func (s *Service) Verify(ctx context.Context, id string, req domain.VerifyRequest) (*domain.Payment, error) {
	paymentID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	if req.Amount != nil && *req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var (
		verified *domain.Payment
		advanced *orderdomain.Order
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrNotFound
		}
		if req.Amount == nil && payment.Amount <= 0 {
			return domain.ErrInvalidAmount
		}
		verified, advanced, err = s.apply(ctx, tx, payment, domain.StatusPaid, strings.TrimSpace(req.Method), req.Amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifyPaid(ctx, advanced)

	s.log.Info("payment verified", zap.String("payment_id", verified.ID.String()), zap.Int64("amount", verified.Amount))
	s.metrics.RecordPaymentReconciled(ctx, "admin_verify", domain.StatusPaid)
	return verified, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	opts := []option.QueryOption{option.ApplyPagination(req.Pagination)}
	if status := strings.TrimSpace(req.Status); status != "" {
		if !domain.ValidStatus(status) {
			return domain.ListResponse{}, domain.ErrInvalidStatus
		}
		opts = append(opts, option.WithWhere("status = ?", status))
	}
	if orderID := strings.TrimSpace(req.OrderID); orderID != "" {
		parsed, err := snowflake.ParseString(orderID)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidID
		}
		opts = append(opts, option.WithWhere("order_id = ?", parsed))
	}

	items, err := s.repo.List(ctx, s.db, opts...)
	if err != nil {
		return domain.ListResponse{}, err
	}

	size := pageSize(req.Pagination)
	rows := make([]*domain.Payment, 0, len(items))
	for i := range items {
		rows = append(rows, &items[i])
	}
	info := pagination.BuildCursorPageInfo(rows, int32(size), func(p *domain.Payment) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: p.ID.String()})
		return token
	})
	if len(items) > size {
		items = items[:size]
	}
	if items == nil {
		items = []domain.Payment{}
	}
	return domain.ListResponse{Payments: items, PageInfo: *info}, nil
}

func (s *Service) ExpireStale(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	if olderThan <= 0 {
		olderThan = s.storefront.Get().PendingPaymentExpiry
	}
	if limit <= 0 {
		limit = 100
	}

	stale, err := s.repo.ListStalePending(ctx, s.db, s.clock.Now().Add(-olderThan), limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, payment := range stale {
		ok, err := s.expire(ctx, payment.ID)
		if err != nil {
			return expired, err
		}
		if ok {
			expired++
		}
	}
	if expired > 0 {
		s.log.Info("expired stale payments", zap.Int("count", expired))
		s.metrics.RecordPaymentReconciled(ctx, "scheduler", domain.StatusExpired)
	}
	return expired, nil
}

// expire marks a payment expired only if it is still pending when re-read inside the transaction.
func (s *Service) expire(ctx context.Context, id snowflake.ID) (bool, error) {
	expired := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindByID(ctx, tx, id)
		if err != nil || payment == nil || payment.Status != domain.StatusPending {
			return err
		}
		if _, _, err := s.apply(ctx, tx, payment, domain.StatusExpired, "", nil); err != nil {
			return err
		}
		expired = true
		return nil
	})
	return expired, err
}

func pageSize(page pagination.Pagination) int {
	if page.PageSize <= 0 {
		return 10
	}
	return page.PageSize
}

// notifyPaid tells the customer their payment arrived. Delivery is best-effort.
func (s *Service) notifyPaid(ctx context.Context, order *orderdomain.Order) {
	if order == nil || s.sender == nil || s.appConfig == nil {
		return
	}
	app, err := s.appConfig.AppSnapshot(ctx)
	if err != nil {
		s.log.Warn("payment notification skipped", zap.String("order_number", order.OrderNumber), zap.Error(err))
		return
	}
	s.sender.Deliver(ctx, order.Email, email.TemplatePaymentReceived, map[string]any{
		"app_name":      app.AppName,
		"client_name":   order.ClientName,
		"order_number":  order.OrderNumber,
		"support_email": app.SupportEmail,
	})
}
