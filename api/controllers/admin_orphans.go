package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/kalamandir/kalamandir-backend/api/responses"
	"github.com/kalamandir/kalamandir-backend/api/validators"
	"github.com/kalamandir/kalamandir-backend/internal/orphans"
	pkgerrors "github.com/kalamandir/kalamandir-backend/pkg/errors"
	"github.com/kalamandir/kalamandir-backend/pkg/logger"
	"github.com/kalamandir/kalamandir-backend/pkg/pagination"
)

type orphanLister interface {
	List(ctx context.Context, params pagination.Params) (*orphans.List, error)
}

// AdminListOrphans pages through quarantined payments newest first so
// operators can review rows the sweep gave up on.
func AdminListOrphans(repo orphanLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))
		if _, err := pagination.ParseCursor(cursor); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
			return
		}

		list, err := repo.List(ctx, pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
