package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/sitebuilder/internal/appconfig"
	appconfigdomain "github.com/smallbiznis/sitebuilder/internal/appconfig/domain"
	"github.com/smallbiznis/sitebuilder/internal/auth"
	authdomain "github.com/smallbiznis/sitebuilder/internal/auth/domain"
	"github.com/smallbiznis/sitebuilder/internal/authorization"
	"github.com/smallbiznis/sitebuilder/internal/catalog"
	catalogdomain "github.com/smallbiznis/sitebuilder/internal/catalog/domain"
	"github.com/smallbiznis/sitebuilder/internal/clock"
	"github.com/smallbiznis/sitebuilder/internal/cloudmetrics"
	"github.com/smallbiznis/sitebuilder/internal/config"
	"github.com/smallbiznis/sitebuilder/internal/gateway"
	gatewaydomain "github.com/smallbiznis/sitebuilder/internal/gateway/domain"
	"github.com/smallbiznis/sitebuilder/internal/observability"
	obsmiddleware "github.com/smallbiznis/sitebuilder/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/sitebuilder/internal/observability/metrics"
	obstracing "github.com/smallbiznis/sitebuilder/internal/observability/tracing"
	"github.com/smallbiznis/sitebuilder/internal/order"
	orderdomain "github.com/smallbiznis/sitebuilder/internal/order/domain"
	"github.com/smallbiznis/sitebuilder/internal/payment"
	paymentdomain "github.com/smallbiznis/sitebuilder/internal/payment/domain"
	"github.com/smallbiznis/sitebuilder/internal/providers"
	"github.com/smallbiznis/sitebuilder/internal/providers/storage"
	"github.com/smallbiznis/sitebuilder/internal/ratelimit"
	"github.com/smallbiznis/sitebuilder/internal/tenant"
	tenantdomain "github.com/smallbiznis/sitebuilder/internal/tenant/domain"
	"github.com/smallbiznis/sitebuilder/internal/traffic"
	trafficdomain "github.com/smallbiznis/sitebuilder/internal/traffic/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	providers.Module,
	authorization.Module,
	auth.Module,
	appconfig.Module,
	catalog.Module,
	gateway.Module,
	payment.Module,
	tenant.Module,
	order.Module,
	traffic.Module,
	ratelimit.Module,
	cloudmetrics.Module,
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(Correlation())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	clock      clock.Clock
	authsvc    authdomain.Service
	authzSvc   authorization.Service
	orderSvc   orderdomain.Service
	paymentSvc paymentdomain.Service
	tenantSvc  tenantdomain.Service
	catalogSvc catalogdomain.Service
	gatewaySvc gatewaydomain.Service
	settings   appconfigdomain.Service
	trafficSvc trafficdomain.Service
	storage    storage.Storage
	local      *storage.Local
	storefront *config.StorefrontConfigHolder
	limiter    *ratelimit.StorefrontLimiter
	obsMetrics *obsmetrics.Metrics

	packageCache     *ttlCache[catalogdomain.Package]
	domainPriceCache *ttlCache[catalogdomain.DomainPrice]
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Clock      clock.Clock
	Authsvc    authdomain.Service
	AuthzSvc   authorization.Service
	OrderSvc   orderdomain.Service
	PaymentSvc paymentdomain.Service
	TenantSvc  tenantdomain.Service
	CatalogSvc catalogdomain.Service
	GatewaySvc gatewaydomain.Service
	Settings   appconfigdomain.Service
	TrafficSvc trafficdomain.Service
	Storage    storage.Storage
	Local      *storage.Local                `optional:"true"`
	Storefront *config.StorefrontConfigHolder
	Limiter    *ratelimit.StorefrontLimiter `optional:"true"`
	ObsMetrics *obsmetrics.Metrics          `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http.server"),
		clock:      p.Clock,
		authsvc:    p.Authsvc,
		authzSvc:   p.AuthzSvc,
		orderSvc:   p.OrderSvc,
		paymentSvc: p.PaymentSvc,
		tenantSvc:  p.TenantSvc,
		catalogSvc: p.CatalogSvc,
		gatewaySvc: p.GatewaySvc,
		settings:   p.Settings,
		trafficSvc: p.TrafficSvc,
		storage:    p.Storage,
		local:      p.Local,
		storefront: p.Storefront,
		limiter:    p.Limiter,
		obsMetrics: p.ObsMetrics,

		packageCache:     newTTLCache[catalogdomain.Package](publicCatalogTTL, p.Clock.Now),
		domainPriceCache: newTTLCache[catalogdomain.DomainPrice](publicCatalogTTL, p.Clock.Now),
	}

	svc.registerAuthRoutes()
	svc.registerPublicRoutes()
	svc.registerAdminRoutes()
	svc.registerStaticRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.POST("/change-password", s.AuthRequired(), s.ChangePassword)
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/", s.TrackTraffic())

	// -------- Catalog --------
	public.GET("/packages", s.ListPublicPackages)
	public.GET("/domain-prices", s.ListPublicDomainPrices)
	public.GET("/app-config", s.GetPublicAppConfig)

	// -------- Orders --------
	public.POST("/orders", s.StorefrontRateLimit("orders"), s.CreateOrder)
	public.GET("/orders/:id", s.GetOrder)
	public.GET("/orders/:id/receipt", s.DownloadReceipt)

	// -------- Payments --------
	public.POST("/payment/confirm", s.StorefrontRateLimit("payment_confirm"), s.ConfirmManualPayment)

	// Gateway notifications are machine traffic and stay out of the traffic log.
	s.engine.POST("/payments/callback", s.HandlePaymentCallback)
	s.engine.POST("/payments/webhooks/:gateway", s.HandlePaymentWebhook)

	s.engine.POST("/uploads",
		s.AuthRequired(),
		s.authorize(authorization.ObjectUpload, authorization.ActionManage),
		s.Upload,
	)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.AdminRoute())
	admin.Use(s.AuthRequired())

	// -------- Orders --------
	admin.GET("/orders", s.authorize(authorization.ObjectOrder, authorization.ActionView), s.ListOrders)
	admin.GET("/orders/:id", s.authorize(authorization.ObjectOrder, authorization.ActionView), s.GetOrder)
	admin.PATCH("/orders/:id", s.authorize(authorization.ObjectOrder, authorization.ActionManage), s.UpdateOrder)
	admin.POST("/orders/:id/provision", s.authorize(authorization.ObjectOrder, authorization.ActionManage), s.ProvisionOrder)
	admin.GET("/orders/:id/receipt", s.authorize(authorization.ObjectOrder, authorization.ActionView), s.DownloadReceipt)

	// -------- Payments --------
	admin.GET("/payments", s.authorize(authorization.ObjectPayment, authorization.ActionView), s.ListPayments)
	admin.POST("/payments/:id/verify", s.authorize(authorization.ObjectPayment, authorization.ActionManage), s.VerifyPayment)

	// -------- Tenants --------
	admin.GET("/tenants", s.authorize(authorization.ObjectTenant, authorization.ActionView), s.ListTenants)
	admin.GET("/tenants/:id", s.authorize(authorization.ObjectTenant, authorization.ActionView), s.GetTenant)
	admin.PATCH("/tenants/:id", s.authorize(authorization.ObjectTenant, authorization.ActionManage), s.UpdateTenant)

	// -------- Catalog --------
	admin.GET("/packages", s.authorize(authorization.ObjectPackage, authorization.ActionView), s.ListPackages)
	admin.POST("/packages", s.authorize(authorization.ObjectPackage, authorization.ActionManage), s.CreatePackage)
	admin.GET("/packages/:id", s.authorize(authorization.ObjectPackage, authorization.ActionView), s.GetPackage)
	admin.PATCH("/packages/:id", s.authorize(authorization.ObjectPackage, authorization.ActionManage), s.UpdatePackage)
	admin.DELETE("/packages/:id", s.authorize(authorization.ObjectPackage, authorization.ActionManage), s.DeletePackage)

	admin.GET("/domain-prices", s.authorize(authorization.ObjectDomainPrice, authorization.ActionView), s.ListDomainPrices)
	admin.POST("/domain-prices", s.authorize(authorization.ObjectDomainPrice, authorization.ActionManage), s.CreateDomainPrice)
	admin.PATCH("/domain-prices/:id", s.authorize(authorization.ObjectDomainPrice, authorization.ActionManage), s.UpdateDomainPrice)
	admin.DELETE("/domain-prices/:id", s.authorize(authorization.ObjectDomainPrice, authorization.ActionManage), s.DeleteDomainPrice)

	// -------- Payment Gateways --------
	admin.GET("/gateways", s.authorize(authorization.ObjectGateway, authorization.ActionView), s.ListGateways)
	admin.PUT("/gateways", s.authorize(authorization.ObjectGateway, authorization.ActionManage), s.UpsertGateway)
	admin.POST("/gateways/:gateway/activate", s.authorize(authorization.ObjectGateway, authorization.ActionManage), s.ActivateGateway)
	admin.POST("/gateways/:gateway/deactivate", s.authorize(authorization.ObjectGateway, authorization.ActionManage), s.DeactivateGateway)

	// -------- Settings --------
	admin.GET("/settings/app", s.authorize(authorization.ObjectSettings, authorization.ActionView), s.GetAppSettings)
	admin.PUT("/settings/app", s.authorize(authorization.ObjectSettings, authorization.ActionManage), s.UpdateAppSettings)
	admin.GET("/settings/email", s.authorize(authorization.ObjectSettings, authorization.ActionView), s.GetEmailSettings)
	admin.PUT("/settings/email", s.authorize(authorization.ObjectSettings, authorization.ActionManage), s.UpdateEmailSettings)
	admin.POST("/settings/email/test", s.authorize(authorization.ObjectSettings, authorization.ActionManage), s.SendTestEmail)

	// -------- Traffic --------
	admin.GET("/traffic/summary", s.authorize(authorization.ObjectTraffic, authorization.ActionView), s.GetTrafficSummary)
}

// registerStaticRoutes serves uploaded files when they live on local disk.
func (s *Server) registerStaticRoutes() {
	if s.local == nil {
		return
	}
	s.engine.Static(s.local.PublicPrefix(), s.local.Root())
}
