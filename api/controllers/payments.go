package controllers

import (
	"net/http"

	"github.com/kalamandir/kalamandir-backend/api/responses"
	"github.com/kalamandir/kalamandir-backend/api/validators"
	pkgerrors "github.com/kalamandir/kalamandir-backend/pkg/errors"
	"github.com/kalamandir/kalamandir-backend/pkg/logger"
)

type paymentVerifier interface {
	VerifyPayment(gatewayOrderID, gatewayPaymentID, signature string) bool
}

type verifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

// VerifyPayment checks the checkout callback signature. It never writes:
// order state only moves on webhook delivery.
func VerifyPayment(verifier paymentVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if !verifier.VerifyPayment(req.GatewayOrderID, req.GatewayPaymentID, req.Signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "payment signature verification failed"))
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"valid":              true,
			"gateway_order_id":   req.GatewayOrderID,
			"gateway_payment_id": req.GatewayPaymentID,
		})
	}
}
