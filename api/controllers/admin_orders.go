package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalamandir/kalamandir-backend/api/middleware"
	"github.com/kalamandir/kalamandir-backend/api/responses"
	"github.com/kalamandir/kalamandir-backend/api/validators"
	"github.com/kalamandir/kalamandir-backend/internal/orders"
	"github.com/kalamandir/kalamandir-backend/pkg/enums"
	pkgerrors "github.com/kalamandir/kalamandir-backend/pkg/errors"
	"github.com/kalamandir/kalamandir-backend/pkg/logger"
)

type orderStatusRequest struct {
	Status string  `json:"status" validate:"required,oneof=confirmed shipped delivered cancelled"`
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// AdminUpdateOrderStatus applies a fulfillment transition. The lifecycle is
// one-way; the service rejects skips and writes the matching timestamp.
func AdminUpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		var req orderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		actorID, err := uuid.Parse(middleware.StaffIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing staff id"))
			return
		}

		view, err := svc.UpdateStatus(ctx, orders.StatusUpdateInput{
			OrderID: orderID,
			Status:  enums.OrderStatus(req.Status),
			Reason:  req.Reason,
			ActorID: actorID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// AdminTrashOrder soft-deletes an order. Payment state is untouched; the
// row just disappears from buyer-facing reads.
func AdminTrashOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		actorID, err := uuid.Parse(middleware.StaffIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing staff id"))
			return
		}

		if err := svc.Trash(ctx, orderID, actorID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "trashed"})
	}
}
