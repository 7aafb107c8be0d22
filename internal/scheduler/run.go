package scheduler

import (
	"context"
	"time"

	obscontext "github.com/smallbiznis/sitebuilder/internal/observability/context"
	obslogger "github.com/smallbiznis/sitebuilder/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/sitebuilder/internal/observability/metrics"
	"go.uber.org/zap"
)

// jobRun tracks one execution of a job; nested runJob calls share it.
type jobRun struct {
	job       string
	id        string
	batchSize int
	started   time.Time
	processed int
	errors    int
}

type jobRunKey struct{}

func (r *jobRun) AddProcessed(n int) {
	if r != nil && n > 0 {
		r.processed += n
	}
}

func (r *jobRun) IncError() {
	if r != nil {
		r.errors++
	}
}

func (r *jobRun) fields() []zap.Field {
	return []zap.Field{zap.String("job", r.job), zap.String("run_id", r.id)}
}

// beginRun attaches a jobRun to ctx unless one is already present. The
// returned bool is true for the caller that owns the run.
func (s *Scheduler) beginRun(ctx context.Context, job string, batchSize int) (context.Context, *jobRun, bool) {
	if run := jobRunFromContext(ctx); run != nil {
		return ctx, run, false
	}
	run := &jobRun{
		job:       job,
		id:        s.genID.Generate().String(),
		batchSize: batchSize,
		started:   s.clock.Now(),
	}
	ctx = obscontext.WithActor(context.WithValue(ctx, jobRunKey{}, run), "system", "scheduler")
	s.logger(ctx).Info("scheduler.job.start", append(run.fields(), zap.Int("batch_size", batchSize))...)
	return ctx, run, true
}

func (s *Scheduler) endRun(ctx context.Context, run *jobRun) {
	fields := append(run.fields(),
		zap.Int64("duration_ms", s.clock.Now().Sub(run.started).Milliseconds()),
		zap.Int("processed_count", run.processed),
		zap.Int("error_count", run.errors),
	)
	if run.errors > 0 {
		s.logger(ctx).Warn("scheduler.job.finish", fields...)
		return
	}
	s.logger(ctx).Info("scheduler.job.finish", fields...)
}

func jobRunFromContext(ctx context.Context) *jobRun {
	if ctx == nil {
		return nil
	}
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) jobFailed(ctx context.Context, run *jobRun, msg string, err error) {
	if err == nil {
		return
	}
	run.IncError()
	job := ""
	if run != nil {
		job = run.job
	}
	s.logger(ctx).Error(msg,
		zap.String("job", job),
		zap.String("error_type", obsmetrics.ClassifySchedulerErrorType(err)),
		zap.Bool("retryable", obsmetrics.IsSchedulerErrorRetryable(err)),
		zap.Error(err),
	)
}
