package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/kalamandir/kalamandir-backend/pkg/db/models"
	"github.com/kalamandir/kalamandir-backend/pkg/logger"
	"github.com/kalamandir/kalamandir-backend/pkg/metrics"
)

// TimeoutJobName identifies the stale order cancellation job.
const TimeoutJobName = "order-timeout"

// CancelReasonTimeout is recorded on orders cancelled by this sweep.
const CancelReasonTimeout = "payment timeout"

type staleOrderStore interface {
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	CancelIfStillPending(ctx context.Context, id uuid.UUID, reason string, at time.Time) (int64, error)
}

// TimeoutStats reports what a single timeout sweep did.
type TimeoutStats struct {
	Cancelled int `json:"cancelled"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// TimeoutSweeperParams configure the timeout sweeper.
type TimeoutSweeperParams struct {
	Logger  *logger.Logger
	Orders  staleOrderStore
	Metrics *metrics.SweepJobMetrics
	Timeout time.Duration
	Limit   int
}

// TimeoutSweeper cancels orders that sat pending past the timeout. The
// cancel re-checks the pending predicate at write time, so an order captured
// mid-sweep is skipped, never clobbered.
type TimeoutSweeper struct {
	logg    *logger.Logger
	orders  staleOrderStore
	metrics *metrics.SweepJobMetrics
	timeout time.Duration
	limit   int
	now     func() time.Time
}

// NewTimeoutSweeper builds the sweeper used by both the scheduled job and
// the admin trigger.
func NewTimeoutSweeper(params TimeoutSweeperParams) (*TimeoutSweeper, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order store required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}
	return &TimeoutSweeper{
		logg:    params.Logger,
		orders:  params.Orders,
		metrics: params.Metrics,
		timeout: timeout,
		limit:   limit,
		now:     time.Now,
	}, nil
}

// Name implements Job.
func (s *TimeoutSweeper) Name() string { return TimeoutJobName }

// Run implements Job using the configured defaults.
func (s *TimeoutSweeper) Run(ctx context.Context) error {
	_, err := s.Sweep(ctx, s.timeout, s.limit)
	return err
}

// Sweep cancels up to limit orders older than timeout. Item failures are
// isolated so one bad row never stops the batch.
func (s *TimeoutSweeper) Sweep(ctx context.Context, timeout time.Duration, limit int) (TimeoutStats, error) {
	if timeout <= 0 {
		timeout = s.timeout
	}
	if limit <= 0 {
		limit = s.limit
	}

	stats := TimeoutStats{}
	cutoff := s.now().UTC().Add(-timeout)
	stale, err := s.orders.FindStalePending(ctx, cutoff, limit)
	if err != nil {
		return stats, fmt.Errorf("listing stale orders: %w", err)
	}

	var errs []error
	for _, order := range stale {
		affected, err := s.orders.CancelIfStillPending(ctx, order.ID, CancelReasonTimeout, s.now().UTC())
		if err != nil {
			stats.Failed++
			errs = append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if affected == 0 {
			// A capture landed between the read and this write; the
			// payment wins.
			stats.Skipped++
			continue
		}
		stats.Cancelled++
	}

	s.metrics.AddItems(TimeoutJobName, "cancelled", stats.Cancelled)
	s.metrics.AddItems(TimeoutJobName, "skipped", stats.Skipped)
	s.metrics.AddItems(TimeoutJobName, "failed", stats.Failed)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"cancelled": stats.Cancelled,
		"skipped":   stats.Skipped,
		"failed":    stats.Failed,
	})
	s.logg.Info(logCtx, "timeout sweep complete")
	return stats, multierr.Combine(errs...)
}
