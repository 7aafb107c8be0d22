package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebuilder/internal/clock"
	"github.com/smallbiznis/sitebuilder/internal/config"
	obsmetrics "github.com/smallbiznis/sitebuilder/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/sitebuilder/internal/payment/domain"
	"github.com/smallbiznis/sitebuilder/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobExpirePayments = "expire_payments"

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Payments   paymentdomain.Service
	Storefront *config.StorefrontConfigHolder `optional:"true"`
	Locker     *ratelimit.Locker              `optional:"true"`
	Config     Config                         `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	payments   paymentdomain.Service
	storefront *config.StorefrontConfigHolder
	locker     *ratelimit.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Payments == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		payments:   p.Payments,
		storefront: p.Storefront,
		locker:     p.Locker,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.beginRun(ctx, name, batchSize)
	log := s.logger(ctx).With(run.fields()...)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := s.withLock(ctx, name, fn)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && !errors.Is(err, obsmetrics.ErrSchedulerLockHeld) && run.errors == 0 {
			run.IncError()
		}
		s.endRun(ctx, run)
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, obsmetrics.ErrSchedulerLockHeld) {
		log.Debug("job skipped, lock held elsewhere")
		return nil
	}

	// A deadline is a soft timeout: the next tick resumes the remaining batch.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// withLock serializes a job across instances when redis is configured.
func (s *Scheduler) withLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	key := "scheduler:lock:" + name
	token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
	if err != nil {
		s.logger(ctx).Warn("scheduler lock unavailable, running unlocked", zap.String("job", name), zap.Error(err))
		return fn(ctx)
	}
	if !ok {
		return obsmetrics.ErrSchedulerLockHeld
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger(ctx).Warn("scheduler lock release failed", zap.String("job", name), zap.Error(err))
		}
	}()
	return fn(ctx)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{JobExpirePayments, s.isJobEnabled(JobExpirePayments), func(ctx context.Context) error {
			return s.runJob(ctx, JobExpirePayments, s.cfg.BatchSize, s.cfg.JobTimeout, s.ExpirePaymentsJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// ExpirePaymentsJob marks gateway payments that stayed pending past the expiry window as expired.
func (s *Scheduler) ExpirePaymentsJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	expiry := s.cfg.PendingExpiry
	if s.storefront != nil {
		if v := s.storefront.Get().PendingPaymentExpiry; v > 0 {
			expiry = v
		}
	}

	expired, err := s.payments.ExpireStale(ctx, expiry, s.cfg.BatchSize)
	run.AddProcessed(expired)
	obsmetrics.Scheduler().AddBatchProcessed(JobExpirePayments, "payment", expired)
	if err != nil {
		s.jobFailed(ctx, run, "expire payments failed", err)
		return err
	}
	if expired > 0 {
		s.logger(ctx).Info("expired stale payments",
			zap.Int("count", expired),
			zap.Duration("older_than", expiry),
		)
	}
	return nil
}
