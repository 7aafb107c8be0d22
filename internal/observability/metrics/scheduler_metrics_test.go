package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: SchedulerJobReasonDeadlineExceeded},
		{name: "lock_held", err: fmt.Errorf("expire: %w", ErrSchedulerLockHeld), want: SchedulerJobReasonLockHeld},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: SchedulerJobReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: SchedulerJobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: SchedulerJobReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: SchedulerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestClassifySchedulerErrorType(t *testing.T) {
	if got := ClassifySchedulerErrorType(&pgconn.PgError{Code: "40001"}); got != SchedulerErrorTypeDB {
		t.Fatalf("expected db, got %q", got)
	}
	if got := ClassifySchedulerErrorType(gorm.ErrRecordNotFound); got != SchedulerErrorTypeBusinessRule {
		t.Fatalf("expected business_rule, got %q", got)
	}
	if !IsSchedulerErrorRetryable(context.Canceled) {
		t.Fatalf("expected canceled to be retryable")
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{
		ServiceName: "sitebuilder",
		Environment: "test",
	})

	metrics.AddBatchProcessed("expire_pending_payments", "payments", 3)
	metrics.AddBatchProcessed("expire_pending_payments", "payments", 0)

	got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues("expire_pending_payments", "payments"))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
}

func TestObserveRunLoopLagClampsNegative(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{})
	metrics.ObserveRunLoopLag(-time.Second)

	if count := testutil.CollectAndCount(registry, "sitebuilder_scheduler_runloop_lag_seconds"); count != 1 {
		t.Fatalf("expected one lag series, got %d", count)
	}
}

func TestClassifyMySQLErrors(t *testing.T) {
	if got := ClassifySchedulerJobReason(&mysql.MySQLError{Number: 1213}); got != SchedulerJobReasonSerializationFailure {
		t.Fatalf("expected serialization_failure, got %q", got)
	}
	if got := ClassifySchedulerJobReason(&mysql.MySQLError{Number: 1205}); got != SchedulerJobReasonDBLockTimeout {
		t.Fatalf("expected db_lock_timeout, got %q", got)
	}
	if !IsSchedulerErrorRetryable(&mysql.MySQLError{Number: 1062}) {
		t.Fatalf("expected mysql errors to be retryable")
	}
}
