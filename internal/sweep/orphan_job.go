package sweep

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/kalamandir/kalamandir-backend/internal/reconcile"
	"github.com/kalamandir/kalamandir-backend/pkg/db/models"
	"github.com/kalamandir/kalamandir-backend/pkg/logger"
	"github.com/kalamandir/kalamandir-backend/pkg/metrics"
)

// OrphanJobName identifies the orphan reconciliation job in logs and metrics.
const OrphanJobName = "orphan-reconcile"

type captureReplayer interface {
	HandleCapture(ctx context.Context, event reconcile.CaptureEvent) (reconcile.Result, error)
}

type orphanStore interface {
	ListUnprocessedOldest(ctx context.Context, limit, maxRetries int) ([]models.OrphanPayment, error)
	IncrementRetry(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// OrphanStats reports what a single orphan sweep did.
type OrphanStats struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	NotFound  int `json:"not_found"`
}

// OrphanSweeperParams configure the orphan sweeper.
type OrphanSweeperParams struct {
	Logger     *logger.Logger
	Orphans    orphanStore
	Reconciler captureReplayer
	Metrics    *metrics.SweepJobMetrics
	Limit      int
	MaxRetries int
}

// OrphanSweeper replays quarantined captures against the reconciler. Each
// pass absorbs orphans whose order has since appeared and bumps the retry
// count on the rest.
type OrphanSweeper struct {
	logg       *logger.Logger
	orphans    orphanStore
	reconciler captureReplayer
	metrics    *metrics.SweepJobMetrics
	limit      int
	maxRetries int
}

// NewOrphanSweeper builds the sweeper used by both the scheduled job and the
// admin trigger.
func NewOrphanSweeper(params OrphanSweeperParams) (*OrphanSweeper, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orphans == nil {
		return nil, fmt.Errorf("orphan store required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &OrphanSweeper{
		logg:       params.Logger,
		orphans:    params.Orphans,
		reconciler: params.Reconciler,
		metrics:    params.Metrics,
		limit:      limit,
		maxRetries: maxRetries,
	}, nil
}

// Name implements Job.
func (s *OrphanSweeper) Name() string { return OrphanJobName }

// Run implements Job using the configured defaults.
func (s *OrphanSweeper) Run(ctx context.Context) error {
	_, err := s.Sweep(ctx, s.limit, s.maxRetries)
	return err
}

// Sweep replays up to limit orphans oldest first. Item failures are isolated:
// one bad row never stops the batch.
func (s *OrphanSweeper) Sweep(ctx context.Context, limit, maxRetries int) (OrphanStats, error) {
	if limit <= 0 {
		limit = s.limit
	}
	if maxRetries <= 0 {
		maxRetries = s.maxRetries
	}

	stats := OrphanStats{}
	candidates, err := s.orphans.ListUnprocessedOldest(ctx, limit, maxRetries)
	if err != nil {
		return stats, fmt.Errorf("listing orphans: %w", err)
	}

	var errs []error
	for _, orphan := range candidates {
		if err := s.sweepOne(ctx, orphan, &stats); err != nil {
			errs = append(errs, fmt.Errorf("orphan %s: %w", orphan.ID, err))
		}
	}

	s.metrics.AddItems(OrphanJobName, "processed", stats.Processed)
	s.metrics.AddItems(OrphanJobName, "failed", stats.Failed)
	s.metrics.AddItems(OrphanJobName, "not_found", stats.NotFound)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"processed": stats.Processed,
		"failed":    stats.Failed,
		"not_found": stats.NotFound,
	})
	s.logg.Info(logCtx, "orphan sweep complete")
	return stats, multierr.Combine(errs...)
}

func (s *OrphanSweeper) sweepOne(ctx context.Context, orphan models.OrphanPayment, stats *OrphanStats) error {
	result, err := s.reconciler.HandleCapture(ctx, reconcile.CaptureEvent{
		GatewayOrderID:   orphan.GatewayOrderID,
		GatewayPaymentID: orphan.GatewayPaymentID,
		AmountMinor:      orphan.Amount,
		Currency:         orphan.Currency,
		EventType:        orphan.EventType,
	})
	if err != nil {
		stats.Failed++
		return err
	}

	switch result.Outcome {
	case reconcile.OutcomeApplied, reconcile.OutcomeAlreadyProcessed:
		// The order absorbed the payment (now or earlier); the quarantine
		// row has served its purpose.
		if err := s.orphans.Delete(ctx, orphan.ID); err != nil {
			stats.Failed++
			return fmt.Errorf("deleting absorbed orphan: %w", err)
		}
		stats.Processed++
		return nil

	case reconcile.OutcomeOrderNotFound:
		stats.NotFound++
		return s.bumpRetry(ctx, orphan)

	default:
		// Mismatches need a human; keep the row and stop retrying once the
		// ceiling is reached.
		stats.Failed++
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"orphan_id": orphan.ID.String(),
			"outcome":   string(result.Outcome),
		})
		s.logg.Warn(logCtx, "orphan replay rejected")
		return s.bumpRetry(ctx, orphan)
	}
}

func (s *OrphanSweeper) bumpRetry(ctx context.Context, orphan models.OrphanPayment) error {
	if err := s.orphans.IncrementRetry(ctx, orphan.ID); err != nil {
		return fmt.Errorf("incrementing retry count: %w", err)
	}
	return nil
}
