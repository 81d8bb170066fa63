package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/kalamandir/kalamandir-backend/api/responses"
	"github.com/kalamandir/kalamandir-backend/api/validators"
	"github.com/kalamandir/kalamandir-backend/internal/sweep"
	"github.com/kalamandir/kalamandir-backend/pkg/logger"
)

type orphanSweeper interface {
	Sweep(ctx context.Context, limit, maxRetries int) (sweep.OrphanStats, error)
}

type timeoutSweeper interface {
	Sweep(ctx context.Context, timeout time.Duration, limit int) (sweep.TimeoutStats, error)
}

// AdminSweepOrphans runs an orphan replay pass on demand. It may race the
// scheduled worker; both converge on the same idempotent transitions.
func AdminSweepOrphans(sweeper orphanSweeper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 500)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		maxRetries, err := validators.ParseQueryInt(r, "maxRetries", 0, 1, 50)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		stats, err := sweeper.Sweep(ctx, limit, maxRetries)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// AdminSweepTimeouts cancels stale pending orders on demand.
func AdminSweepTimeouts(sweeper timeoutSweeper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 1000)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		timeoutMinutes, err := validators.ParseQueryInt(r, "timeoutMinutes", 0, 1, 24*60)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		stats, err := sweeper.Sweep(ctx, time.Duration(timeoutMinutes)*time.Minute, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
