package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kalamandir/kalamandir-backend/api/responses"
	"github.com/kalamandir/kalamandir-backend/api/validators"
	"github.com/kalamandir/kalamandir-backend/internal/orders"
	"github.com/kalamandir/kalamandir-backend/pkg/enums"
	pkgerrors "github.com/kalamandir/kalamandir-backend/pkg/errors"
	"github.com/kalamandir/kalamandir-backend/pkg/logger"
)

type checkoutRequest struct {
	UserID        *string `json:"user_id" validate:"omitempty,uuid"`
	GuestID       *string `json:"guest_id" validate:"omitempty,uuid"`
	AmountMinor   int64   `json:"amount" validate:"required,min=1"`
	Currency      string  `json:"currency" validate:"omitempty,len=3"`
	PaymentMethod string  `json:"payment_method" validate:"required,oneof=online cod"`
}

// Checkout creates an order and its gateway-side counterpart so the client
// can open the payment widget.
func Checkout(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := orders.CheckoutInput{
			AmountMinor:   req.AmountMinor,
			Currency:      req.Currency,
			PaymentMethod: enums.PaymentMethod(req.PaymentMethod),
		}
		if req.UserID != nil {
			id, err := uuid.Parse(*req.UserID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid user_id"))
				return
			}
			input.UserID = &id
		}
		if req.GuestID != nil {
			id, err := uuid.Parse(*req.GuestID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid guest_id"))
				return
			}
			input.GuestID = &id
		}

		result, err := svc.Checkout(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
