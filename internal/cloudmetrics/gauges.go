package cloudmetrics

import (
	"context"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	orderdomain "github.com/smallbiznis/sitebuilder/internal/order/domain"
	tenantdomain "github.com/smallbiznis/sitebuilder/internal/tenant/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CloudMetrics owns the gauges pushed on each interval.
type CloudMetrics struct {
	registry *prometheus.Registry
	pusher   Pusher
	log      *zap.Logger

	db         *gorm.DB
	tenantRepo tenantdomain.Repository
	orderRepo  orderdomain.Repository

	tenantsTotal  prometheus.Gauge
	tenantsActive prometheus.Gauge
	ordersByState *prometheus.GaugeVec
	memoryBytes   prometheus.Gauge
	info          *prometheus.GaugeVec
}

func New(
	registry *prometheus.Registry,
	pusher Pusher,
	db *gorm.DB,
	tenantRepo tenantdomain.Repository,
	orderRepo orderdomain.Repository,
	instanceID string,
	version string,
	log *zap.Logger,
) *CloudMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &CloudMetrics{
		registry:   registry,
		pusher:     pusher,
		log:        log.Named("cloudmetrics"),
		db:         db,
		tenantRepo: tenantRepo,
		orderRepo:  orderRepo,
		tenantsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sitebuilder_tenants_total",
			Help: "Provisioned tenants.",
		}),
		tenantsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sitebuilder_tenants_active",
			Help: "Tenants currently serving traffic.",
		}),
		ordersByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sitebuilder_orders",
			Help: "Orders by status.",
		}, []string{"status"}),
		memoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sitebuilder_memory_sys_bytes",
			Help: "Memory obtained from the OS.",
		}),
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sitebuilder_instance_info",
			Help: "Instance identity.",
		}, []string{"instance_id", "version"}),
	}
	registry.MustRegister(c.tenantsTotal, c.tenantsActive, c.ordersByState, c.memoryBytes, c.info)
	c.info.WithLabelValues(instanceID, version).Set(1)
	return c
}

// Refresh recomputes every gauge from the store.
func (c *CloudMetrics) Refresh(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	c.memoryBytes.Set(float64(m.Sys))

	if c.db == nil {
		return nil
	}
	total, err := c.tenantRepo.Count(ctx, c.db, false)
	if err != nil {
		return err
	}
	active, err := c.tenantRepo.Count(ctx, c.db, true)
	if err != nil {
		return err
	}
	c.tenantsTotal.Set(float64(total))
	c.tenantsActive.Set(float64(active))

	counts, err := c.orderRepo.CountByStatus(ctx, c.db)
	if err != nil {
		return err
	}
	c.ordersByState.Reset()
	for status, n := range counts {
		c.ordersByState.WithLabelValues(status).Set(float64(n))
	}
	return nil
}

// Push refreshes and ships the registry. A nil pusher only refreshes.
func (c *CloudMetrics) Push(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.Refresh(ctx); err != nil {
		return err
	}
	if c.pusher == nil {
		return nil
	}
	return c.pusher.Push(ctx, c.registry)
}

func (c *CloudMetrics) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}
