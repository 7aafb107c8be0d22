package scheduler

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/sitebuilder/internal/clock"
	"github.com/smallbiznis/sitebuilder/internal/config"
	obsmetrics "github.com/smallbiznis/sitebuilder/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/sitebuilder/internal/payment/domain"
	"github.com/smallbiznis/sitebuilder/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePayments struct {
	paymentdomain.Service
	calls     int
	olderThan time.Duration
	limit     int
	expired   int
	err       error
}

func (f *fakePayments) ExpireStale(_ context.Context, olderThan time.Duration, limit int) (int, error) {
	f.calls++
	f.olderThan = olderThan
	f.limit = limit
	return f.expired, f.err
}

func newTestScheduler(t *testing.T, payments *fakePayments, locker *ratelimit.Locker) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	s, err := New(Params{
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)),
		Payments: payments,
		Locker:   locker,
		Config:   Config{BatchSize: 20},
	})
	require.NoError(t, err)
	return s
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{
		ServiceName: "sitebuilder",
		Environment: "test",
	})

	s := newTestScheduler(t, &fakePayments{}, nil)
	err := s.runJob(context.Background(), "timeout_job", 0, 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	labels := map[string]string{
		"service": "sitebuilder",
		"env":     "test",
		"job":     "timeout_job",
	}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "sitebuilder_scheduler_job_timeouts_total", labels))

	errorLabels := map[string]string{
		"service": "sitebuilder",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "sitebuilder_scheduler_job_errors_total", errorLabels))
}

func TestExpirePaymentsUsesStorefrontWindow(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	payments := &fakePayments{expired: 3}
	s := newTestScheduler(t, payments, nil)
	rules := config.DefaultStorefrontConfig()
	rules.PendingPaymentExpiry = 2 * time.Hour
	s.storefront = config.NewStaticStorefrontConfigHolder(rules)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, payments.calls)
	assert.Equal(t, 2*time.Hour, payments.olderThan)
	assert.Equal(t, 20, payments.limit)
}

func TestExpirePaymentsErrorIsReturned(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	payments := &fakePayments{err: errors.New("db down")}
	s := newTestScheduler(t, payments, nil)

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobExpirePayments)
}

func TestJobSkippedWhenLockHeld(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	locker := ratelimit.NewLocker(client)
	key := "scheduler:lock:" + JobExpirePayments
	require.NoError(t, client.Del(context.Background(), key).Err())

	token, ok, err := locker.TryLock(context.Background(), key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	payments := &fakePayments{}
	s := newTestScheduler(t, payments, locker)
	require.NoError(t, s.RunOnce(context.Background()))
	assert.Zero(t, payments.calls)

	require.NoError(t, locker.Release(context.Background(), key, token))
	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, payments.calls)
	exists, err := client.Exists(context.Background(), key).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	obsmetrics.ResetSchedulerMetricsForTest()
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			require.NotNil(t, metric.Counter, "metric %s is not a counter", name)
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
