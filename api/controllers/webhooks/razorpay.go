package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/kalamandir/kalamandir-backend/api/responses"
	"github.com/kalamandir/kalamandir-backend/internal/reconcile"
	razorpaywebhook "github.com/kalamandir/kalamandir-backend/internal/webhooks/razorpay"
	pkgerrors "github.com/kalamandir/kalamandir-backend/pkg/errors"
	"github.com/kalamandir/kalamandir-backend/pkg/logger"
)

const signatureHeader = "X-Razorpay-Signature"

// maxBodyBytes caps webhook payloads well above any real gateway envelope.
const maxBodyBytes = 1 << 20

type reconciler interface {
	HandleCapture(ctx context.Context, event reconcile.CaptureEvent) (reconcile.Result, error)
	HandleFailure(ctx context.Context, event reconcile.FailureEvent) (reconcile.Result, error)
}

type webhookVerifier interface {
	VerifyWebhook(body []byte, signature string) bool
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// RazorpayWebhook ingests gateway payment events. The signature is checked
// over the raw body before any parsing; after it passes, every outcome is
// acknowledged with 200 so the gateway stops redelivering. The internal
// outcome travels in the response payload, not the status code.
func RazorpayWebhook(svc reconciler, verifier webhookVerifier, guard eventGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || verifier == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook pipeline unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(signatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "webhook signature missing"))
			return
		}
		if !verifier.VerifyWebhook(payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "webhook signature invalid"))
			return
		}

		var event razorpaywebhook.WebhookEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}
		if event.Payload.Payment.Entity.ID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event missing payment id"))
			return
		}

		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"event":              event.Event,
				"gateway_payment_id": event.Payload.Payment.Entity.ID,
			})
		}

		dedupeKey := event.DedupeKey()
		alreadySeen, err := guard.CheckAndMark(ctx, dedupeKey)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadySeen {
			if logg != nil {
				logg.Info(ctx, "duplicate webhook delivery acknowledged")
			}
			responses.WriteSuccess(w, reconcile.Result{Outcome: reconcile.OutcomeAlreadyProcessed})
			return
		}

		var result reconcile.Result
		switch event.Event {
		case razorpaywebhook.EventPaymentCaptured:
			result, err = svc.HandleCapture(ctx, event.CaptureEvent())
		case razorpaywebhook.EventPaymentFailed:
			result, err = svc.HandleFailure(ctx, event.FailureEvent())
		default:
			if logg != nil {
				logg.Info(ctx, "unhandled webhook event acknowledged")
			}
			responses.WriteSuccess(w, reconcile.Result{Outcome: reconcile.OutcomeAlreadyProcessed})
			return
		}
		if err != nil {
			// Let the gateway redeliver: the transition did not land.
			_ = guard.Delete(ctx, dedupeKey)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logCtx := logg.WithField(ctx, "outcome", string(result.Outcome))
			logg.Info(logCtx, "webhook processed")
		}
		responses.WriteSuccess(w, result)
	}
}
